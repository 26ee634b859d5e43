package importer

import "github.com/tmendes/orderimport/internal/fixedwidth"

// Batch accumulates decoded records into deduplicated entity sets.
//
// Users, products, and orders collapse by natural key with the last
// occurrence in file order winning, even when the occurrences are not
// adjacent. Order items collapse by the full (order, product, price)
// triple: the same pair at two prices stays two items, and only an
// exact duplicate folds away. These maps are the only structures that
// grow with the file, proportional to distinct entities rather than
// lines.
type Batch struct {
	users      map[int64]User
	products   map[int64]Product
	orders     map[int64]Order
	orderItems map[OrderItem]struct{}
	lines      int
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{
		users:      make(map[int64]User),
		products:   make(map[int64]Product),
		orders:     make(map[int64]Order),
		orderItems: make(map[OrderItem]struct{}),
	}
}

// Add folds one decoded record into the batch, overwriting any earlier
// occurrence of the same user, product, or order key.
func (b *Batch) Add(rec fixedwidth.Record) {
	b.users[rec.UserID] = User{ID: rec.UserID, Name: rec.UserName}
	b.products[rec.ProductID] = Product{ID: rec.ProductID, PriceCents: rec.PriceCents}
	b.orders[rec.OrderID] = Order{ID: rec.OrderID, UserID: rec.UserID, Date: rec.OrderDate}
	b.orderItems[OrderItem{OrderID: rec.OrderID, ProductID: rec.ProductID, PriceCents: rec.PriceCents}] = struct{}{}
	b.lines++
}

// Lines returns the number of records folded in, duplicates included.
func (b *Batch) Lines() int { return b.lines }

// Empty reports whether no records were folded in.
func (b *Batch) Empty() bool { return b.lines == 0 }

// Users returns the collapsed users. Slice order is unspecified.
func (b *Batch) Users() []User {
	out := make([]User, 0, len(b.users))
	for _, u := range b.users {
		out = append(out, u)
	}
	return out
}

// Products returns the collapsed products. Slice order is unspecified.
func (b *Batch) Products() []Product {
	out := make([]Product, 0, len(b.products))
	for _, p := range b.products {
		out = append(out, p)
	}
	return out
}

// Orders returns the collapsed orders. Slice order is unspecified.
func (b *Batch) Orders() []Order {
	out := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	return out
}

// OrderItems returns the collapsed order items. Slice order is
// unspecified.
func (b *Batch) OrderItems() []OrderItem {
	out := make([]OrderItem, 0, len(b.orderItems))
	for item := range b.orderItems {
		out = append(out, item)
	}
	return out
}
