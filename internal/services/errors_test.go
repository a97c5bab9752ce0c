package services_test

import (
	"errors"
	"strings"
	"testing"

	"vaultcast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternal, "backend", "outline", "request failed", base)
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"backend", "outline", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransientMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestIsLocal(t *testing.T) {
	if !services.IsLocal(services.Wrap(services.ErrNotFound, "workflow", "load notebook", "missing", nil)) {
		t.Fatal("expected not found to be local")
	}
	if services.IsLocal(services.Wrap(services.ErrQuota, "backend", "speech", "429", nil)) {
		t.Fatal("expected quota to be a provider condition")
	}
}
