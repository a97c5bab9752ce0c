package notebook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vaultcast/internal/sqlitedb"
)

// Store persists notebooks in the shared SQLite database.
type Store struct {
	db  *sqlitedb.DB
	now func() time.Time
}

// NewStore wraps an open database.
func NewStore(db *sqlitedb.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Create inserts a notebook with no sources.
func (s *Store) Create(ctx context.Context, title, personality string) (Notebook, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Notebook{}, errors.New("create notebook: title required")
	}
	if personality == "" {
		personality = "balanced"
	}
	now := s.now().UTC()
	nb := Notebook{
		ID:          uuid.NewString(),
		Title:       title,
		Personality: personality,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.db.Exec(ctx,
		`INSERT INTO notebooks (id, title, personality, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		nb.ID, nb.Title, nb.Personality, sqlitedb.FormatTime(now), sqlitedb.FormatTime(now),
	); err != nil {
		return Notebook{}, fmt.Errorf("create notebook: %w", err)
	}
	return nb, nil
}

// Get loads a notebook with its sources and media list.
func (s *Store) Get(ctx context.Context, id string) (Notebook, error) {
	var (
		nb                     Notebook
		summary                sql.NullString
		createdRaw, updatedRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, summary, personality, created_at, updated_at FROM notebooks WHERE id = ?`, id,
	).Scan(&nb.ID, &nb.Title, &summary, &nb.Personality, &createdRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return Notebook{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Notebook{}, fmt.Errorf("get notebook: %w", err)
	}
	nb.Summary = summary.String
	nb.CreatedAt, _ = sqlitedb.ParseTime(createdRaw)
	nb.UpdatedAt, _ = sqlitedb.ParseTime(updatedRaw)

	if nb.Sources, err = s.sources(ctx, id); err != nil {
		return Notebook{}, err
	}
	if nb.Media, err = s.media(ctx, id); err != nil {
		return Notebook{}, err
	}
	return nb, nil
}

// List returns every notebook without sources or media, newest first.
func (s *Store) List(ctx context.Context) ([]Notebook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT n.id, n.title, n.summary, n.personality, n.created_at, n.updated_at,
                (SELECT COUNT(1) FROM sources src WHERE src.notebook_id = n.id)
         FROM notebooks n ORDER BY n.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	defer rows.Close()

	var notebooks []Notebook
	for rows.Next() {
		var (
			nb                  Notebook
			summary             sql.NullString
			createdRaw, updated string
			sourceCount         int
		)
		if err := rows.Scan(&nb.ID, &nb.Title, &summary, &nb.Personality, &createdRaw, &updated, &sourceCount); err != nil {
			return nil, fmt.Errorf("list notebooks: %w", err)
		}
		nb.Summary = summary.String
		nb.CreatedAt, _ = sqlitedb.ParseTime(createdRaw)
		nb.UpdatedAt, _ = sqlitedb.ParseTime(updated)
		nb.Sources = make([]Source, 0, sourceCount)
		notebooks = append(notebooks, nb)
	}
	return notebooks, rows.Err()
}

// SourceCount returns the number of sources attached to a notebook.
func (s *Store) SourceCount(ctx context.Context, id string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sources WHERE notebook_id = ?`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sources: %w", err)
	}
	return count, nil
}

// AddSource appends an immutable source to the notebook.
func (s *Store) AddSource(ctx context.Context, notebookID string, src Source) (Source, error) {
	if _, err := s.exists(ctx, notebookID); err != nil {
		return Source{}, err
	}
	if strings.TrimSpace(src.Content) == "" {
		return Source{}, errors.New("add source: content required")
	}
	if _, ok := ParseSourceKind(string(src.Kind)); !ok {
		return Source{}, fmt.Errorf("add source: unknown kind %q", src.Kind)
	}
	now := s.now().UTC()
	src.ID = uuid.NewString()
	src.NotebookID = notebookID
	src.CreatedAt = now
	if strings.TrimSpace(src.Title) == "" {
		src.Title = fallbackTitle(src)
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var seq int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM sources WHERE notebook_id = ?`, notebookID,
		).Scan(&seq); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sources (id, notebook_id, seq, kind, title, content, origin, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			src.ID, notebookID, seq, string(src.Kind), src.Title, src.Content,
			sqlitedb.NullableString(src.Origin), sqlitedb.FormatTime(now),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE notebooks SET updated_at = ? WHERE id = ?`, sqlitedb.FormatTime(now), notebookID)
		return err
	})
	if err != nil {
		return Source{}, fmt.Errorf("add source: %w", err)
	}
	return src, nil
}

// AppendMedia records a generated episode on the notebook's media list.
// Appending the same entry ID twice is a no-op.
func (s *Store) AppendMedia(ctx context.Context, notebookID string, entry MediaEntry) error {
	if _, err := s.exists(ctx, notebookID); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.Kind == "" {
		entry.Kind = "audio"
	}
	if _, err := s.db.Exec(ctx,
		`INSERT INTO media (id, notebook_id, kind, title, duration_ms, chapter_count, artwork_url, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		entry.ID, notebookID, entry.Kind, entry.Title, entry.DurationMs, entry.ChapterCount,
		sqlitedb.NullableString(entry.ArtworkURL), sqlitedb.FormatTime(entry.CreatedAt),
	); err != nil {
		return fmt.Errorf("append media: %w", err)
	}
	return nil
}

// SetSummary stores the derived notebook summary.
func (s *Store) SetSummary(ctx context.Context, notebookID, summary string) error {
	res, err := s.db.Exec(ctx,
		`UPDATE notebooks SET summary = ?, updated_at = ? WHERE id = ?`,
		sqlitedb.NullableString(strings.TrimSpace(summary)), sqlitedb.FormatTime(s.now()), notebookID,
	)
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, notebookID)
	}
	return nil
}

// Delete removes a notebook and everything it owns. Callers guard active jobs.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.Exec(ctx, `DELETE FROM notebooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notebook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM notebooks WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("lookup notebook: %w", err)
	}
	if count == 0 {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return true, nil
}

func (s *Store) sources(ctx context.Context, notebookID string) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, notebook_id, kind, title, content, origin, created_at
         FROM sources WHERE notebook_id = ? ORDER BY seq`, notebookID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	sources := []Source{}
	for rows.Next() {
		var (
			src        Source
			kind       string
			origin     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&src.ID, &src.NotebookID, &kind, &src.Title, &src.Content, &origin, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.Kind = SourceKind(kind)
		src.Origin = origin.String
		src.CreatedAt, _ = sqlitedb.ParseTime(createdRaw)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *Store) media(ctx context.Context, notebookID string) ([]MediaEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, title, duration_ms, chapter_count, artwork_url, created_at
         FROM media WHERE notebook_id = ? ORDER BY created_at, rowid`, notebookID)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	media := []MediaEntry{}
	for rows.Next() {
		var (
			entry      MediaEntry
			artwork    sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.Kind, &entry.Title, &entry.DurationMs, &entry.ChapterCount, &artwork, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		entry.ArtworkURL = artwork.String
		entry.CreatedAt, _ = sqlitedb.ParseTime(createdRaw)
		media = append(media, entry)
	}
	return media, rows.Err()
}

func fallbackTitle(src Source) string {
	if origin := strings.TrimSpace(src.Origin); origin != "" {
		return origin
	}
	content := strings.Join(strings.Fields(src.Content), " ")
	if runes := []rune(content); len(runes) > 48 {
		return string(runes[:48]) + "..."
	}
	return content
}
