package grounding

import (
	"strings"
	"testing"

	"vaultcast/internal/notebook"
)

func sources(contents ...string) []notebook.Source {
	out := make([]notebook.Source, 0, len(contents))
	for i, content := range contents {
		out = append(out, notebook.Source{Title: string(rune('A' + i)), Content: content})
	}
	return out
}

func TestSelectSmallNotebookIncludesEverything(t *testing.T) {
	got := Select(sources("alpha text", "beta text"), "unrelated query words", 3)
	want := "SOURCE 1 (A):\nalpha text\n\nSOURCE 2 (B):\nbeta text"
	if got != want {
		t.Fatalf("Select() = %q, want %q", got, want)
	}
}

func TestSelectSmallNotebookKeepsNonMatchingSource(t *testing.T) {
	srcs := []notebook.Source{
		{Title: "Otters", Content: "sea otters eat urchins"},
		{Title: "Kelp", Content: "kelp forests grow fast"},
	}
	got := Select(srcs, "kelp", 3)
	want := "SOURCE 1 (Kelp):\nkelp forests grow fast\n\nSOURCE 2 (Otters):\nsea otters eat urchins"
	if got != want {
		t.Fatalf("Select() = %q, want %q", got, want)
	}
	if got := Select(srcs, "kelp", 1); !strings.Contains(got, "SOURCE 2 (Otters)") {
		t.Fatalf("small notebook trimmed to k: %q", got)
	}
}

func TestSelectLargeNotebookWithoutMatch(t *testing.T) {
	got := Select(sources("one", "two", "three"), "volcanoes", 3)
	if got != NoRelevantSource {
		t.Fatalf("Select() = %q, want NoRelevantSource", got)
	}
}

func TestSelectRanksByDistinctTermMatches(t *testing.T) {
	srcs := sources(
		"Sharks patrol the reef.",
		"Coral reefs host fish, sharks and turtles.",
		"Kelp forests.",
		"Turtles nest on beaches.",
	)
	got := Select(srcs, "reef sharks turtles turtles", 1)
	if !strings.HasPrefix(got, "SOURCE 1 (B):") {
		t.Fatalf("expected the three-term source first, got %q", got)
	}
	if strings.Contains(got, "SOURCE 2") {
		t.Fatalf("expected only one block for k=1, got %q", got)
	}
}

func TestSelectTiesKeepNotebookOrder(t *testing.T) {
	srcs := sources("no match here", "tide pools", "tide charts", "tide tables")
	got := New(2, 0).Select(srcs, "tide")
	want := "SOURCE 1 (B):\ntide pools\n\nSOURCE 2 (C):\ntide charts"
	if got != want {
		t.Fatalf("Select() = %q, want %q", got, want)
	}
}

func TestSelectSkipsZeroScoresAndTruncates(t *testing.T) {
	srcs := sources("plankton bloom "+strings.Repeat("x", 50), "nothing", "other")
	got := New(3, 20).Select(srcs, "plankton")
	if strings.Contains(got, "SOURCE 2") {
		t.Fatalf("zero-score source included: %q", got)
	}
	if got != "SOURCE 1 (A):\nplankton bloom xxxxx" {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestSelectIgnoresShortQueryTerms(t *testing.T) {
	got := Select(sources("an ox", "is at", "to be"), "an ox", 3)
	if got != NoRelevantSource {
		t.Fatalf("expected short terms to be ignored, got %q", got)
	}
	if Select(nil, "anything", 3) != "" {
		t.Fatal("expected empty output for no sources")
	}
}

func TestOutlineQuery(t *testing.T) {
	nb := notebook.Notebook{Title: "Oceans", Sources: sources("x", "y")}
	if got := OutlineQuery(nb); got != "Oceans A B" {
		t.Fatalf("OutlineQuery() = %q", got)
	}
}
