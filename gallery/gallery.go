// Package gallery stores finished generations. The gallery keeps a bounded
// most-recent window; the oldest result is evicted once the cap is hit.
package gallery

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/katje/colorizer/errors"
	"github.com/katje/colorizer/queue"
)

// MaxResults is the bounded most-recent window of kept generations.
const MaxResults = 50

// Result is one immutable finished generation.
type Result struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	DisplayName string    `json:"display_name"`
	Filename    string    `json:"filename"`
	MIMEType    string    `json:"mime_type"`
	Image       []byte    `json:"-"`
	Story       string    `json:"story,omitempty"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Gallery persists results in SQLite.
type Gallery struct {
	db     *sql.DB
	cap    int
	now    func() time.Time
	logger *zap.SugaredLogger
}

// New creates a gallery with the default cap.
func New(db *sql.DB, logger *zap.SugaredLogger) *Gallery {
	return &Gallery{db: db, cap: MaxResults, now: time.Now, logger: logger}
}

// Add stores a finished generation and evicts the oldest results past the
// cap, in one transaction. Returns the new result id.
func (g *Gallery) Add(job *queue.Job, gen *queue.Generation) (string, error) {
	id := uuid.New().String()

	tx, err := g.db.Begin()
	if err != nil {
		return "", errors.Wrap(err, "failed to begin result insert")
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO results (id, job_id, display_name, filename, mime_type, image, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, job.ID, job.DisplayName, gen.Filename, gen.MIMEType, gen.Image, gen.Model, g.now())
	if err != nil {
		return "", errors.WithDetail(
			errors.Wrap(err, "failed to insert result"),
			fmt.Sprintf("Job ID: %s", job.ID))
	}

	// Evict oldest past the cap. Ordering by rowid keeps eviction strictly
	// insertion-ordered even when timestamps collide.
	_, err = tx.Exec(`
		DELETE FROM results WHERE id IN (
			SELECT id FROM results
			ORDER BY rowid DESC
			LIMIT -1 OFFSET ?
		)`, g.cap)
	if err != nil {
		return "", errors.Wrap(err, "failed to evict old results")
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "failed to commit result insert")
	}

	if g.logger != nil {
		g.logger.Infow("Result stored",
			"result_id", id,
			"job_id", job.ID,
			"filename", gen.Filename,
		)
	}

	return id, nil
}

// AttachStory records the chained story text on an existing result.
func (g *Gallery) AttachStory(resultID, story string) error {
	res, err := g.db.Exec("UPDATE results SET story = ? WHERE id = ?", story, resultID)
	if err != nil {
		return errors.Wrap(err, "failed to attach story")
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.Wrapf(errors.ErrNotFound, "result %s", resultID)
	}
	return nil
}

// List returns result metadata newest first, without image blobs.
func (g *Gallery) List() ([]Result, error) {
	rows, err := g.db.Query(`
		SELECT id, job_id, display_name, filename, mime_type, story, model, created_at
		FROM results
		ORDER BY rowid DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list results")
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		err := rows.Scan(&r.ID, &r.JobID, &r.DisplayName, &r.Filename,
			&r.MIMEType, &r.Story, &r.Model, &r.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan result row")
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Get returns one result including its image bytes.
func (g *Gallery) Get(id string) (*Result, error) {
	var r Result
	err := g.db.QueryRow(`
		SELECT id, job_id, display_name, filename, mime_type, image, story, model, created_at
		FROM results WHERE id = ?`, id).
		Scan(&r.ID, &r.JobID, &r.DisplayName, &r.Filename, &r.MIMEType,
			&r.Image, &r.Story, &r.Model, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "result %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load result")
	}
	return &r, nil
}

// Delete removes one result.
func (g *Gallery) Delete(id string) error {
	res, err := g.db.Exec("DELETE FROM results WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete result")
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.Wrapf(errors.ErrNotFound, "result %s", id)
	}
	return nil
}

// Clear removes every result and returns how many were deleted.
func (g *Gallery) Clear() (int, error) {
	res, err := g.db.Exec("DELETE FROM results")
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear gallery")
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// Count returns the number of stored results.
func (g *Gallery) Count() (int, error) {
	var count int
	if err := g.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count results")
	}
	return count, nil
}
