package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"vaultcast/internal/api"
)

func createNotebook(t *testing.T, env *cliTestEnv, title string) api.Notebook {
	t.Helper()
	out, _, err := runCLI(t, []string{"notebook", "create", title, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("notebook create: %v", err)
	}
	var nb api.Notebook
	if err := json.Unmarshal([]byte(out), &nb); err != nil {
		t.Fatalf("decode notebook: %v (%s)", err, out)
	}
	if nb.ID == "" {
		t.Fatalf("expected a notebook id, got %s", out)
	}
	return nb
}

func TestNotebookCreateListShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notebook", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("notebook list: %v", err)
	}
	requireContains(t, out, "No notebooks")

	nb := createNotebook(t, env, "Tidal Flats")
	if nb.Personality != "balanced" {
		t.Fatalf("expected default personality, got %q", nb.Personality)
	}

	if _, _, err := runCLI(t, []string{"notebook", "add", nb.ID, "--text", "Mudflats host migrating shorebirds every spring.", "--title", "Shorebirds"}, env.configPath); err != nil {
		t.Fatalf("notebook add text: %v", err)
	}
	notes := filepath.Join(env.baseDir, "lugworms.md")
	if err := os.WriteFile(notes, []byte("# Lugworms\n\nLugworms rework the sediment of tidal flats."), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	out, _, err = runCLI(t, []string{"notebook", "add", nb.ID, "--file", notes}, env.configPath)
	if err != nil {
		t.Fatalf("notebook add file: %v", err)
	}
	requireContains(t, out, "Added document source")

	out, _, err = runCLI(t, []string{"notebook", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("notebook list: %v", err)
	}
	requireContains(t, out, "Tidal Flats")
	requireContains(t, out, nb.ID)

	out, _, err = runCLI(t, []string{"notebook", "show", nb.ID}, env.configPath)
	if err != nil {
		t.Fatalf("notebook show: %v", err)
	}
	requireContains(t, out, "Shorebirds")
	requireContains(t, out, "document")
	if strings.Contains(out, "Episode") {
		t.Fatalf("expected no media table before generation, got %s", out)
	}
}

func TestNotebookAddRequiresExactlyOneSource(t *testing.T) {
	env := setupCLITestEnv(t)
	nb := createNotebook(t, env, "Dunes")

	if _, _, err := runCLI(t, []string{"notebook", "add", nb.ID}, env.configPath); err == nil {
		t.Fatal("expected add without a source flag to fail")
	}
	if _, _, err := runCLI(t, []string{"notebook", "add", nb.ID, "--text", "a", "--url", "https://example.com"}, env.configPath); err == nil {
		t.Fatal("expected conflicting source flags to fail")
	}
	if _, _, err := runCLI(t, []string{"notebook", "add", "missing", "--text", "sand"}, env.configPath); err == nil {
		t.Fatal("expected an unknown notebook to fail")
	}
}

func TestNotebookCreateRejectsUnknownPersonality(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"notebook", "create", "Reefs", "--personality", "grumpy"}, env.configPath)
	if err == nil {
		t.Fatal("expected unknown personality to fail")
	}
	requireContains(t, err.Error(), "unknown personality")
}

func TestNotebookDeleteNeedsDaemonLock(t *testing.T) {
	env := setupCLITestEnv(t)
	nb := createNotebook(t, env, "Salt Marsh")

	lock := flock.New(filepath.Join(env.dataDir, "vaultcastd.lock"))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	_, _, err = runCLI(t, []string{"notebook", "delete", nb.ID}, env.configPath)
	if !errors.Is(err, errDaemonRunning) {
		t.Fatalf("expected errDaemonRunning, got %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	out, _, err := runCLI(t, []string{"notebook", "delete", nb.ID}, env.configPath)
	if err != nil {
		t.Fatalf("notebook delete: %v", err)
	}
	requireContains(t, out, "Deleted notebook")
	if _, _, err := runCLI(t, []string{"notebook", "show", nb.ID}, env.configPath); err == nil {
		t.Fatal("expected deleted notebook to be gone")
	}
}

func TestSourceRequest(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "field-log.txt")
	if err := os.WriteFile(textPath, []byte("Observed eelgrass."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	req, err := sourceRequest("", textPath, "", "", "")
	if err != nil {
		t.Fatalf("sourceRequest: %v", err)
	}
	if req.Kind != "text" || req.Title != "field-log" || req.Content != "Observed eelgrass." {
		t.Fatalf("unexpected text-file request: %+v", req)
	}

	req, err = sourceRequest("", "", "", textPath, "Log")
	if err != nil {
		t.Fatalf("sourceRequest: %v", err)
	}
	if req.Kind != "document" || req.FileName != "field-log.txt" || req.Title != "Log" || req.Data == "" {
		t.Fatalf("unexpected document request: %+v", req)
	}

	if _, err := sourceRequest("", filepath.Join(dir, "missing.txt"), "", "", ""); err == nil {
		t.Fatal("expected a missing file to fail")
	}
}
