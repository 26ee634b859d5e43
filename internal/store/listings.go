package store

// listings.go serves the read-only API: paginated users, products, and
// orders with their line items. No pipeline logic lives here.

import (
	"context"
	"fmt"
	"time"
)

// UserRow is one user listing entry with the user's orders nested in.
type UserRow struct {
	ID     int64
	Name   string
	Orders []OrderRow
}

// ProductRow is one product listing entry.
type ProductRow struct {
	ID         int64
	PriceCents int64
}

// OrderItemRow is one line of an order listing entry.
type OrderItemRow struct {
	ProductID  int64
	PriceCents int64
}

// OrderRow is one order listing entry with its items and total.
type OrderRow struct {
	ID         int64
	Date       time.Time
	TotalCents int64
	Items      []OrderItemRow
}

// ListUsers returns a page of users ordered by external id, each with
// the user's orders, their items, and per-order totals nested in.
func (s *EntityStore) ListUsers(ctx context.Context, limit, offset int) ([]UserRow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT external_id, name FROM users ORDER BY external_id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]UserRow, 0, limit)
	userIndex := make(map[int64]int, limit)
	userIDs := make([]int64, 0, limit)
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		userIndex[u.ID] = len(out)
		userIDs = append(userIDs, u.ID)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}

	orderRows, err := s.db.Query(ctx,
		`SELECT external_id, user_external_id, date FROM orders
		WHERE user_external_id = ANY($1)
		ORDER BY user_external_id, external_id`,
		userIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	defer orderRows.Close()

	// Orders are collected flat so the items query can fill them in one
	// pass; they fold back into their users afterwards.
	var orders []OrderRow
	owners := make([]int64, 0, len(out))
	for orderRows.Next() {
		var o OrderRow
		var userID int64
		if err := orderRows.Scan(&o.ID, &userID, &o.Date); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		owners = append(owners, userID)
		orders = append(orders, o)
	}
	if err := orderRows.Err(); err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}

	if err := s.loadOrderItems(ctx, orders); err != nil {
		return nil, err
	}

	for i, o := range orders {
		u := userIndex[owners[i]]
		out[u].Orders = append(out[u].Orders, o)
	}
	return out, nil
}

// ListProducts returns a page of products ordered by external id.
func (s *EntityStore) ListProducts(ctx context.Context, limit, offset int) ([]ProductRow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT external_id, price_cents FROM products ORDER BY external_id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]ProductRow, 0, limit)
	for rows.Next() {
		var p ProductRow
		if err := rows.Scan(&p.ID, &p.PriceCents); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// ListOrders returns a page of orders ordered by external id, each with
// its line items and a summed total.
func (s *EntityStore) ListOrders(ctx context.Context, limit, offset int) ([]OrderRow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT external_id, date FROM orders ORDER BY external_id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]OrderRow, 0, limit)
	for rows.Next() {
		var o OrderRow
		if err := rows.Scan(&o.ID, &o.Date); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	rows.Close()

	if err := s.loadOrderItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadOrderItems fetches the items for every order in orders with one
// query, appending them and summing totals in place.
func (s *EntityStore) loadOrderItems(ctx context.Context, orders []OrderRow) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[int64]int, len(orders))
	ids := make([]int64, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids = append(ids, o.ID)
	}

	rows, err := s.db.Query(ctx,
		`SELECT order_external_id, product_external_id, price_cents
		FROM order_items
		WHERE order_external_id = ANY($1)
		ORDER BY order_external_id, product_external_id, price_cents`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var item OrderItemRow
		if err := rows.Scan(&orderID, &item.ProductID, &item.PriceCents); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
		orders[i].TotalCents += item.PriceCents
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	return nil
}
