package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ImportStore looks up imports and advances their lifecycle status.
// It is the only writer of status anywhere in the system.
type ImportStore interface {
	Find(ctx context.Context, id int64) (Import, error)
	MarkProcessing(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64) error
}

// EntityWriter persists collapsed entity sets. Every write is an
// idempotent natural-key upsert, so re-running a file converges on the
// same rows.
type EntityWriter interface {
	UpsertUsers(ctx context.Context, users []User) error
	UpsertProducts(ctx context.Context, products []Product) error
	UpsertOrders(ctx context.Context, orders []Order) error
	UpsertOrderItems(ctx context.Context, items []OrderItem) error
}

// FileSource opens the stored source file attached to an import.
type FileSource interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Pipeline processes one import end to end: stream, collapse, upsert,
// lifecycle bookkeeping. It carries no retry logic of its own: errors
// return to the caller untouched, and the job runner decides whether to
// re-run the whole thing.
type Pipeline struct {
	imports ImportStore
	writer  EntityWriter
	files   FileSource
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(imports ImportStore, writer EntityWriter, files FileSource) *Pipeline {
	return &Pipeline{imports: imports, writer: writer, files: files}
}

// Run processes the import identified by id.
//
// A missing import, an import already in a terminal state, or an import
// with no attached file is a silent no-op. Any other failure, such as
// a malformed record, an unreadable file, or a store write error,
// returns with nothing marked completed; because every entity write is an
// idempotent upsert, the caller may safely re-run the whole pipeline.
func (p *Pipeline) Run(ctx context.Context, id int64) error {
	logger := slog.Default().With("import_id", id)

	imp, err := p.imports.Find(ctx, id)
	if errors.Is(err, ErrImportNotFound) {
		logger.Debug("import does not exist, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find import: %w", err)
	}
	if imp.Status.Terminal() {
		logger.Debug("import already finished, skipping", "status", imp.Status)
		return nil
	}
	if imp.FileRef == "" {
		logger.Debug("import has no attached file, skipping")
		return nil
	}

	if err := p.imports.MarkProcessing(ctx, id); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	src, err := p.files.Open(ctx, imp.FileRef)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer src.Close()

	batch, err := Collapse(ctx, src)
	if err != nil {
		return err
	}

	// Write order matters: orders reference users, items reference both
	// orders and products.
	if err := p.writer.UpsertUsers(ctx, batch.Users()); err != nil {
		return fmt.Errorf("upsert users: %w", err)
	}
	if err := p.writer.UpsertProducts(ctx, batch.Products()); err != nil {
		return fmt.Errorf("upsert products: %w", err)
	}
	if err := p.writer.UpsertOrders(ctx, batch.Orders()); err != nil {
		return fmt.Errorf("upsert orders: %w", err)
	}
	if err := p.writer.UpsertOrderItems(ctx, batch.OrderItems()); err != nil {
		return fmt.Errorf("upsert order items: %w", err)
	}

	if err := p.imports.MarkCompleted(ctx, id); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	logger.Info("import completed",
		"lines", batch.Lines(),
		"users", len(batch.users),
		"products", len(batch.products),
		"orders", len(batch.orders),
		"order_items", len(batch.orderItems),
	)
	return nil
}
