package importer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tmendes/orderimport/internal/fixedwidth"
)

const (
	// maxLineBytes bounds a single scanned line. Well above the 95-byte
	// layout, low enough that a file with no newlines fails fast instead
	// of buffering without limit.
	maxLineBytes = 1 << 20

	// cancelCheckEvery is how many lines pass between context checks.
	cancelCheckEvery = 4096
)

// Collapse streams an order file line by line and folds every decoded
// record into a Batch.
//
// The file is read once, sequentially; only the collapsed entity sets
// are kept in memory. The first malformed line aborts the fold with a
// line-numbered *fixedwidth.MalformedRecordError. The batch for a file
// is all-or-nothing, so no caller ever sees a partially decoded file.
func Collapse(ctx context.Context, r io.Reader) (*Batch, error) {
	counting := NewCountingReader(NewBOMSkippingReader(r))
	scanner := bufio.NewScanner(counting)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	batch := NewBatch()
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%cancelCheckEvery == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		rec, err := fixedwidth.DecodeLine(scanner.Text())
		if err != nil {
			var malformed *fixedwidth.MalformedRecordError
			if errors.As(err, &malformed) {
				malformed.Line = lineNo
			}
			return nil, err
		}
		batch.Add(rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read order file: %w", err)
	}

	slog.Debug("order file collapsed",
		"lines", batch.Lines(),
		"bytes", counting.BytesRead(),
		"users", len(batch.users),
		"products", len(batch.products),
		"orders", len(batch.orders),
		"order_items", len(batch.orderItems),
	)
	return batch, nil
}
