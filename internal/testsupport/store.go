package testsupport

import (
	"context"
	"testing"

	"vaultcast/internal/config"
	"vaultcast/internal/notebook"
	"vaultcast/internal/sqlitedb"
)

// MustOpenDB opens the configured SQLite database and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *sqlitedb.DB {
	t.Helper()

	db, err := sqlitedb.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("sqlitedb.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// NewNotebook creates a notebook with one text source per entry in sources,
// keyed by title.
func NewNotebook(t testing.TB, store *notebook.Store, title string, sources ...notebook.Source) notebook.Notebook {
	t.Helper()

	ctx := context.Background()
	nb, err := store.Create(ctx, title, "")
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	for _, src := range sources {
		if src.Kind == "" {
			src.Kind = notebook.KindText
		}
		if _, err := store.AddSource(ctx, nb.ID, src); err != nil {
			t.Fatalf("store.AddSource: %v", err)
		}
	}
	loaded, err := store.Get(ctx, nb.ID)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	return loaded
}
