package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tmendes/orderimport/internal/importer"
)

// ImportStore reads and writes import lifecycle records. It is the only
// writer of import status; transitions are additionally guarded in SQL
// so a stale process cannot drag a terminal import backwards.
type ImportStore struct {
	db DBTX
}

// NewImportStore creates an ImportStore.
func NewImportStore(db DBTX) *ImportStore {
	return &ImportStore{db: db}
}

// Create inserts a new pending import with fileRef attached (write-once)
// and returns its id. An empty fileRef is allowed; the pipeline treats
// such imports as no-ops.
func (s *ImportStore) Create(ctx context.Context, fileRef string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO imports (status, file_ref) VALUES ($1, $2) RETURNING id`,
		string(importer.StatusPending), fileRef,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create import: %w", err)
	}
	return id, nil
}

// Find returns the import with the given id, or
// importer.ErrImportNotFound when the id does not resolve.
func (s *ImportStore) Find(ctx context.Context, id int64) (importer.Import, error) {
	var imp importer.Import
	var status string
	err := s.db.QueryRow(ctx,
		`SELECT id, status, file_ref, created_at, updated_at FROM imports WHERE id = $1`,
		id,
	).Scan(&imp.ID, &status, &imp.FileRef, &imp.CreatedAt, &imp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return importer.Import{}, importer.ErrImportNotFound
	}
	if err != nil {
		return importer.Import{}, fmt.Errorf("find import: %w", err)
	}
	imp.Status = importer.Status(status)
	return imp, nil
}

// MarkProcessing moves the import into processing.
func (s *ImportStore) MarkProcessing(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, importer.StatusProcessing)
}

// MarkCompleted moves the import into its successful terminal state.
func (s *ImportStore) MarkCompleted(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, importer.StatusCompleted)
}

// MarkFailed moves the import into its failed terminal state. Reached
// only through the job runner's exhaustion hook.
func (s *ImportStore) MarkFailed(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, importer.StatusFailed)
}

// setStatus advances the lifecycle, enforcing the transition table in
// SQL: the update applies only when the current status permits the move.
func (s *ImportStore) setStatus(ctx context.Context, id int64, next importer.Status) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE imports SET status = $2, updated_at = now() WHERE id = $1 AND status = ANY($3)`,
		id, string(next), importer.TransitionSources(next),
	)
	if err != nil {
		return fmt.Errorf("update import status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the import vanished or its current status forbids the
		// move; report which.
		cur, findErr := s.Find(ctx, id)
		if findErr != nil {
			return findErr
		}
		return &importer.InvalidTransitionError{From: cur.Status, To: next}
	}
	return nil
}

// redeliverAfter is how long a polled import stays claimed before the
// poller may hand it out again.
const redeliverAfter = "1 minute"

// NextPending claims and returns the oldest import still awaiting
// processing, used by the job runner's poll loop to recover work lost
// from its queue. Claiming stamps attempted_at, so an import that
// never leaves pending (an empty file reference, say) is handed out at
// most once per redelivery window instead of starving younger imports.
// Imports stranded in processing by a crash become pollable again the
// same way once their claim expires.
func (s *ImportStore) NextPending(ctx context.Context) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`UPDATE imports SET attempted_at = now()
		WHERE id = (
			SELECT id FROM imports
			WHERE status = ANY($1)
			AND (attempted_at IS NULL OR attempted_at < now() - $2::interval)
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`,
		[]string{string(importer.StatusPending), string(importer.StatusProcessing)},
		redeliverAfter,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("next pending import: %w", err)
	}
	return id, true, nil
}
