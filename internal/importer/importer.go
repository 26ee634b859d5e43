// Package importer holds the order-file import pipeline: streaming the
// uploaded file, collapsing its records into deduplicated entity sets,
// writing those sets through idempotent upserts, and advancing the
// import's lifecycle status.
package importer

import (
	"errors"
	"time"
)

// Import is the progress record for one uploaded order file. It is a
// pure status record: no entity row references it.
type Import struct {
	ID        int64
	Status    Status
	FileRef   string // attachment reference, write-once at creation; empty when nothing was attached
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a collapsed user entity keyed by external id.
type User struct {
	ID   int64
	Name string
}

// Product is a collapsed product entity keyed by external id.
type Product struct {
	ID         int64
	PriceCents int64
}

// Order is a collapsed order entity keyed by external id.
type Order struct {
	ID     int64
	UserID int64
	Date   time.Time
}

// OrderItem is one order line. Its identity is the full triple: the
// same order/product pair at a different price is a different item.
type OrderItem struct {
	OrderID    int64
	ProductID  int64
	PriceCents int64
}

var (
	// ErrImportNotFound marks an import id that does not resolve.
	ErrImportNotFound = errors.New("import not found")

	// ErrFileNotFound marks a file reference that does not resolve.
	ErrFileNotFound = errors.New("import file not found")
)
