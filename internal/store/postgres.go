package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

func (s *PostgresStore) AddJob(ctx context.Context, job *models.Job) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin add job: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO jobs (id, preset, status, created_at, completed_at) VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.Preset, string(job.Status), job.CreatedAt, job.CompletedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert job: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"job_items"},
		[]string{"job_id", "id", "position", "url", "name", "status", "feedback_reason", "feedback_notes"},
		pgx.CopyFromSlice(len(job.Items), func(i int) ([]any, error) {
			it := job.Items[i]
			reason, notes := feedbackColumns(it.Feedback)
			return []any{job.ID, it.ID, i, it.URL, it.Name, string(it.Status), reason, notes}, nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert job items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit add job: %w", err)
	}
	return nil
}

// GetJob reads the job row and its items in one read-only transaction so a
// concurrent ResolvePending is seen either entirely or not at all.
func (s *PostgresStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job *models.Job
	err := s.readTx(ctx, func(tx pgx.Tx) error {
		var err error
		job, err = getJob(ctx, tx, id)
		return err
	})
	return job, err
}

func (s *PostgresStore) ListJobs(ctx context.Context) ([]*models.Job, error) {
	var jobs []*models.Job
	err := s.readTx(ctx, func(tx pgx.Tx) error {
		var err error
		jobs, err = listJobs(ctx, tx)
		return err
	})
	return jobs, err
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// readTx runs fn in a repeatable-read, read-only transaction so multi-statement
// reads share one snapshot.
func (s *PostgresStore) readTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func listJobs(ctx context.Context, q querier) ([]*models.Job, error) {
	rows, err := q.Query(ctx,
		`SELECT id, preset, status, created_at, completed_at FROM jobs ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := []*models.Job{}
	byID := make(map[string]*models.Job)
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Preset, &j.Status, &j.CreatedAt, &j.CompletedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Items = []models.ImageItem{}
		jobs = append(jobs, &j)
		byID[j.ID] = &j
	}
	// The transaction's connection must be free before the items query.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	itemRows, err := q.Query(ctx,
		`SELECT job_id, id, url, name, status, feedback_reason, feedback_notes
		 FROM job_items ORDER BY job_id, position`)
	if err != nil {
		return nil, fmt.Errorf("list job items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var jobID string
		it, err := scanItem(itemRows, &jobID)
		if err != nil {
			return nil, err
		}
		if j, ok := byID[jobID]; ok {
			j.Items = append(j.Items, it)
		}
	}
	return jobs, itemRows.Err()
}

// --- Items ---

func (s *PostgresStore) UpdateItem(ctx context.Context, jobID, itemID string, upd models.ItemUpdate, opts ...ItemUpdateOption) (*models.ImageItem, error) {
	params := applyOptions(opts)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update item: %w", err)
	}
	defer tx.Rollback(ctx)

	var current models.ItemStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM job_items WHERE job_id = $1 AND id = $2 FOR UPDATE`,
		jobID, itemID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item status: %w", err)
	}
	if params.ExpectStatus != nil && current != *params.ExpectStatus {
		return nil, ErrStatusConflict
	}

	query := `UPDATE job_items SET position = position`
	args := []any{jobID, itemID}
	argIdx := 3

	if upd.Status != nil {
		query += fmt.Sprintf(", status = $%d", argIdx)
		args = append(args, string(*upd.Status))
		argIdx++
	}
	if upd.Feedback != nil {
		reason, notes := feedbackColumns(upd.Feedback)
		query += fmt.Sprintf(", feedback_reason = $%d, feedback_notes = $%d", argIdx, argIdx+1)
		args = append(args, reason, notes)
		argIdx += 2
	}

	query += ` WHERE job_id = $1 AND id = $2
		RETURNING id, url, name, status, feedback_reason, feedback_notes`

	it, err := scanItem(tx.QueryRow(ctx, query, args...), nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update item: %w", err)
	}
	return &it, nil
}

func (s *PostgresStore) ResolvePending(ctx context.Context, jobID string, classify ClassifyFunc) (*models.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin resolve: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, jobID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock job: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT id, url, name, status, feedback_reason, feedback_notes
		 FROM job_items WHERE job_id = $1 AND status = 'pending' ORDER BY position FOR UPDATE`, jobID)
	if err != nil {
		return nil, fmt.Errorf("select pending items: %w", err)
	}
	var pending []models.ImageItem
	for rows.Next() {
		it, err := scanItem(rows, nil)
		if err != nil {
			rows.Close()
			return nil, err
		}
		pending = append(pending, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select pending items: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range pending {
		batch.Queue(`UPDATE job_items SET status = $3 WHERE job_id = $1 AND id = $2`,
			jobID, it.ID, string(classify(it)))
	}
	batch.Queue(`UPDATE jobs SET status = $2, completed_at = COALESCE(completed_at, $3) WHERE id = $1`,
		jobID, string(models.JobStatusCompleted), time.Now().UTC())
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("resolve items: %w", err)
	}

	job, err := getJob(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit resolve: %w", err)
	}
	return job, nil
}

// --- helpers ---

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getJob(ctx context.Context, q querier, id string) (*models.Job, error) {
	var j models.Job
	err := q.QueryRow(ctx,
		`SELECT id, preset, status, created_at, completed_at FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.Preset, &j.Status, &j.CreatedAt, &j.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT id, url, name, status, feedback_reason, feedback_notes
		 FROM job_items WHERE job_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get job items: %w", err)
	}
	defer rows.Close()

	j.Items = []models.ImageItem{}
	for rows.Next() {
		it, err := scanItem(rows, nil)
		if err != nil {
			return nil, err
		}
		j.Items = append(j.Items, it)
	}
	return &j, rows.Err()
}

// scanItem reads an item row. When jobID is non-nil the row is expected to
// start with the job_id column.
func scanItem(row pgx.Row, jobID *string) (models.ImageItem, error) {
	var (
		it     models.ImageItem
		reason *string
		notes  *string
	)
	dest := []any{&it.ID, &it.URL, &it.Name, &it.Status, &reason, &notes}
	if jobID != nil {
		dest = append([]any{jobID}, dest...)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return it, ErrNotFound
		}
		return it, fmt.Errorf("scan item: %w", err)
	}
	if reason != nil {
		it.Feedback = &models.Feedback{Reason: models.FeedbackReason(*reason)}
		if notes != nil {
			it.Feedback.Notes = *notes
		}
	}
	return it, nil
}

func feedbackColumns(fb *models.Feedback) (reason, notes *string) {
	if fb == nil {
		return nil, nil
	}
	r := string(fb.Reason)
	n := fb.Notes
	return &r, &n
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
