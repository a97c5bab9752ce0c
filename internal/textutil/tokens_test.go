package textutil

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("The Deep-Sea vents, at 2,000m: an ÉCOSYSTÈME!")
	want := []string{"the", "deep", "sea", "vents", "000m", "écosystème"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
}

func TestDistinctTerms(t *testing.T) {
	got := DistinctTerms("kelp Kelp forests kelp otters")
	want := []string{"kelp", "forests", "otters"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DistinctTerms() = %v, want %v", got, want)
	}
	if len(DistinctTerms("a an to")) != 0 {
		t.Fatal("expected no terms for short words")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héllo" {
		t.Fatalf("Truncate() = %q", got)
	}
	if got := Truncate("short", 0); got != "short" {
		t.Fatalf("Truncate() with zero limit = %q", got)
	}
}

func TestSnippet(t *testing.T) {
	got := Snippet("Kelp  forests\nshelter sea otters and urchins.", 25)
	if got != "Kelp forests shelter sea..." {
		t.Fatalf("Snippet() = %q", got)
	}
	if got := Snippet("  tidy  ", 24); got != "tidy" {
		t.Fatalf("Snippet() = %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Deep Sea: Vents/Life?", "Deep Sea- Vents-Life"},
		{"  ", "episode"},
		{`"<|>"`, "episode"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in, "episode"); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
