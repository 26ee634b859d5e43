package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tmendes/orderimport/internal/importer"
)

const defaultBatchSize = 1000

// EntityStore persists collapsed entity sets with chunked multi-row
// upserts. Input slices come from the batch collapser, so every natural
// key appears at most once per call. That is a precondition of
// multi-row ON CONFLICT, which rejects touching the same row twice in
// one statement.
type EntityStore struct {
	db        DBTX
	batchSize int
}

// NewEntityStore creates an EntityStore. batchSize caps the rows per
// INSERT statement; values <= 0 fall back to the default.
func NewEntityStore(db DBTX, batchSize int) *EntityStore {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &EntityStore{db: db, batchSize: batchSize}
}

// UpsertUsers inserts or overwrites users by external id. The guarded
// DO UPDATE leaves unchanged rows untouched, so re-importing the same
// file is a clean no-op at the row level.
func (s *EntityStore) UpsertUsers(ctx context.Context, users []importer.User) error {
	for chunk := range slices.Chunk(users, s.batchSize) {
		args := make([]any, 0, len(chunk)*2)
		for _, u := range chunk {
			args = append(args, u.ID, u.Name)
		}
		sql := buildValuesSQL("users", []string{"external_id", "name"}, len(chunk),
			`ON CONFLICT (external_id) DO UPDATE
			SET name = EXCLUDED.name, updated_at = now()
			WHERE users.name IS DISTINCT FROM EXCLUDED.name`)
		if _, err := s.db.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("upsert users: %w", err)
		}
	}
	return nil
}

// UpsertProducts inserts or overwrites products by external id.
func (s *EntityStore) UpsertProducts(ctx context.Context, products []importer.Product) error {
	for chunk := range slices.Chunk(products, s.batchSize) {
		args := make([]any, 0, len(chunk)*2)
		for _, p := range chunk {
			args = append(args, p.ID, p.PriceCents)
		}
		sql := buildValuesSQL("products", []string{"external_id", "price_cents"}, len(chunk),
			`ON CONFLICT (external_id) DO UPDATE
			SET price_cents = EXCLUDED.price_cents, updated_at = now()
			WHERE products.price_cents IS DISTINCT FROM EXCLUDED.price_cents`)
		if _, err := s.db.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("upsert products: %w", err)
		}
	}
	return nil
}

// UpsertOrders inserts or overwrites orders by external id. Users must
// already be written: orders carry a foreign key to them.
func (s *EntityStore) UpsertOrders(ctx context.Context, orders []importer.Order) error {
	for chunk := range slices.Chunk(orders, s.batchSize) {
		args := make([]any, 0, len(chunk)*3)
		for _, o := range chunk {
			args = append(args, o.ID, o.UserID, o.Date)
		}
		sql := buildValuesSQL("orders", []string{"external_id", "user_external_id", "date"}, len(chunk),
			`ON CONFLICT (external_id) DO UPDATE
			SET user_external_id = EXCLUDED.user_external_id, date = EXCLUDED.date, updated_at = now()
			WHERE (orders.user_external_id, orders.date)
			IS DISTINCT FROM (EXCLUDED.user_external_id, EXCLUDED.date)`)
		if _, err := s.db.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("upsert orders: %w", err)
		}
	}
	return nil
}

// UpsertOrderItems inserts order items by their full composite key.
// Price is part of the identity, so there is nothing to overwrite: an
// exact duplicate is simply skipped. Orders and products must already
// be written.
func (s *EntityStore) UpsertOrderItems(ctx context.Context, items []importer.OrderItem) error {
	for chunk := range slices.Chunk(items, s.batchSize) {
		args := make([]any, 0, len(chunk)*3)
		for _, item := range chunk {
			args = append(args, item.OrderID, item.ProductID, item.PriceCents)
		}
		sql := buildValuesSQL("order_items", []string{"order_external_id", "product_external_id", "price_cents"}, len(chunk),
			`ON CONFLICT (order_external_id, product_external_id, price_cents) DO NOTHING`)
		if _, err := s.db.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("upsert order items: %w", err)
		}
	}
	return nil
}

// buildValuesSQL renders a multi-row INSERT:
//
//	INSERT INTO table (cols...) VALUES ($1,$2),($3,$4),... suffix
//
// Placeholders number left to right, row-major.
func buildValuesSQL(table string, columns []string, rows int, suffix string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")

	arg := 1
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j := range columns {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(arg))
			arg++
		}
		b.WriteByte(')')
	}

	b.WriteByte(' ')
	b.WriteString(suffix)
	return b.String()
}
