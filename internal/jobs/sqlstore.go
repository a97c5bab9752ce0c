package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vaultcast/internal/sqlitedb"
)

// SQLStore persists jobs in the shared SQLite database. The full job is kept
// as JSON; scalar columns mirror the fields used for lookups.
type SQLStore struct {
	db *sqlitedb.DB
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sqlitedb.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Save(ctx context.Context, job Job) error {
	if job.ID == "" || job.NotebookID == "" {
		return errors.New("save job: id and notebook id required")
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("save job: encode payload: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO jobs (
            id, notebook_id, state, mode, progress, completed_chunks, total_chunks,
            personality, payload_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            state = excluded.state,
            mode = excluded.mode,
            progress = excluded.progress,
            completed_chunks = excluded.completed_chunks,
            total_chunks = excluded.total_chunks,
            payload_json = excluded.payload_json,
            updated_at = excluded.updated_at`,
		job.ID,
		job.NotebookID,
		string(job.State),
		string(job.Mode),
		job.Progress,
		job.CompletedChunks,
		job.TotalChunks,
		job.Personality,
		string(payload),
		sqlitedb.FormatTime(job.CreatedAt),
		sqlitedb.FormatTime(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (s *SQLStore) Latest(ctx context.Context, notebookID string) (Job, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM jobs
         WHERE notebook_id = ? AND superseded = 0
         ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		notebookID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("latest job: %w", err)
	}
	return job, true, nil
}

func (s *SQLStore) Pending(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload_json FROM jobs j
         WHERE superseded = 0 AND state != ?
           AND NOT EXISTS (
               SELECT 1 FROM jobs newer
               WHERE newer.notebook_id = j.notebook_id AND newer.superseded = 0
                 AND (newer.created_at > j.created_at OR (newer.created_at = j.created_at AND newer.rowid > j.rowid))
           )
         ORDER BY notebook_id`,
		string(StateReady),
	)
	if err != nil {
		return nil, fmt.Errorf("pending jobs: %w", err)
	}
	defer rows.Close()

	var pending []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("pending jobs: %w", err)
		}
		pending = append(pending, job)
	}
	return pending, rows.Err()
}

func (s *SQLStore) Supersede(ctx context.Context, notebookID, jobID string) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE jobs SET superseded = 1 WHERE notebook_id = ? AND id != ?`,
		notebookID, jobID,
	); err != nil {
		return fmt.Errorf("supersede jobs: %w", err)
	}
	return nil
}

func (s *SQLStore) Forget(ctx context.Context, notebookID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE notebook_id = ?`, notebookID); err != nil {
		return fmt.Errorf("forget jobs: %w", err)
	}
	return nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (Job, error) {
	var payload string
	if err := scanner.Scan(&payload); err != nil {
		return Job{}, err
	}
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return Job{}, fmt.Errorf("decode job payload: %w", err)
	}
	return job, nil
}
