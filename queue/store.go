package queue

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/katje/colorizer/errors"
)

// Store persists the job list in SQLite. The in-memory queue is canonical;
// Save writes the whole list through on every mutation and Load rebuilds it
// at startup.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewStore creates a job store backed by the given database.
func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, logger: logger}
}

// Load reads all persisted jobs in queue order. Any job found in the
// processing state is coerced back to pending: a crash or restart must not
// permanently strand a job mid-flight.
func (s *Store) Load() ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT id, payload, mime_type, display_name, status, error_message,
		       retry_count, iterations, created_at, updated_at
		FROM jobs
		ORDER BY position ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load jobs")
	}
	defer rows.Close()

	var jobs []*Job
	recovered := 0
	for rows.Next() {
		job := &Job{}
		err := rows.Scan(
			&job.ID, &job.Payload, &job.MIMEType, &job.DisplayName,
			&job.Status, &job.ErrorMessage, &job.RetryCount, &job.Iterations,
			&job.CreatedAt, &job.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan job row")
		}

		if job.Status == StatusProcessing {
			job.Status = StatusPending
			recovered++
		}

		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate job rows")
	}

	if recovered > 0 && s.logger != nil {
		s.logger.Infow("Recovered orphaned jobs from previous run",
			"count", recovered)
	}

	return jobs, nil
}

// Save writes the full job list in one transaction: upserts every job with
// its queue position and deletes rows whose jobs are gone. Payloads are
// immutable, so upserts of existing rows skip the blob column.
func (s *Store) Save(jobs []*Job) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin queue save")
	}
	defer tx.Rollback()

	existing, err := storedIDs(tx)
	if err != nil {
		return err
	}

	now := time.Now()
	keep := make(map[string]bool, len(jobs))
	for pos, job := range jobs {
		keep[job.ID] = true
		if existing[job.ID] {
			_, err = tx.Exec(`
				UPDATE jobs
				SET status = ?, error_message = ?, retry_count = ?,
				    iterations = ?, position = ?, updated_at = ?
				WHERE id = ?`,
				job.Status, job.ErrorMessage, job.RetryCount,
				job.Iterations, pos, now, job.ID)
		} else {
			_, err = tx.Exec(`
				INSERT INTO jobs (id, payload, mime_type, display_name, status,
				                  error_message, retry_count, iterations, position,
				                  created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				job.ID, job.Payload, job.MIMEType, job.DisplayName, job.Status,
				job.ErrorMessage, job.RetryCount, job.Iterations, pos,
				job.CreatedAt, now)
		}
		if err != nil {
			return errors.WithDetail(
				errors.Wrap(err, "failed to save job"),
				fmt.Sprintf("Job ID: %s", job.ID))
		}
	}

	for id := range existing {
		if !keep[id] {
			if _, err := tx.Exec("DELETE FROM jobs WHERE id = ?", id); err != nil {
				return errors.WithDetail(
					errors.Wrap(err, "failed to delete removed job"),
					fmt.Sprintf("Job ID: %s", id))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit queue save")
	}

	return nil
}

// storedIDs returns the set of job ids currently persisted.
func storedIDs(tx *sql.Tx) (map[string]bool, error) {
	rows, err := tx.Query("SELECT id FROM jobs")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list stored jobs")
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan stored job id")
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
