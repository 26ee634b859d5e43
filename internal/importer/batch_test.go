package importer

import (
	"testing"
	"time"

	"github.com/tmendes/orderimport/internal/fixedwidth"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(userID int64, name string, orderID, productID, cents int64, date time.Time) fixedwidth.Record {
	return fixedwidth.Record{
		UserID:     userID,
		UserName:   name,
		OrderID:    orderID,
		ProductID:  productID,
		PriceCents: cents,
		OrderDate:  date,
	}
}

func TestBatchLastWriteWins(t *testing.T) {
	b := NewBatch()

	// The overriding occurrence is deliberately not adjacent to the one
	// it overrides.
	b.Add(rec(10, "Old Name", 100, 1, 500, day(2021, 3, 1)))
	b.Add(rec(20, "Someone Else", 200, 2, 600, day(2021, 3, 2)))
	b.Add(rec(10, "New Name", 300, 1, 700, day(2021, 3, 3)))

	if got := len(b.Users()); got != 2 {
		t.Fatalf("len(Users()) = %d, want 2", got)
	}
	if got := b.users[10].Name; got != "New Name" {
		t.Errorf("user 10 name = %q, want %q", got, "New Name")
	}
	if got := b.products[1].PriceCents; got != 700 {
		t.Errorf("product 1 price = %d, want 700", got)
	}
}

func TestBatchOrderOverride(t *testing.T) {
	b := NewBatch()
	b.Add(rec(10, "A", 100, 1, 500, day(2021, 3, 1)))
	b.Add(rec(20, "B", 100, 2, 600, day(2021, 4, 1)))

	order := b.orders[100]
	if order.UserID != 20 {
		t.Errorf("order 100 user = %d, want 20", order.UserID)
	}
	if !order.Date.Equal(day(2021, 4, 1)) {
		t.Errorf("order 100 date = %v, want 2021-04-01", order.Date)
	}
}

func TestBatchOrderItemCompositeKey(t *testing.T) {
	b := NewBatch()

	// Same order/product at two prices: two items. Exact duplicate: one.
	b.Add(rec(70, "A", 1068, 2, 73857, day(2021, 3, 1)))
	b.Add(rec(70, "A", 1068, 2, 73957, day(2021, 3, 1)))
	b.Add(rec(70, "A", 1068, 2, 73857, day(2021, 3, 1)))

	items := b.OrderItems()
	if len(items) != 2 {
		t.Fatalf("len(OrderItems()) = %d, want 2", len(items))
	}
	seen := map[int64]bool{}
	for _, item := range items {
		if item.OrderID != 1068 || item.ProductID != 2 {
			t.Errorf("unexpected item %+v", item)
		}
		seen[item.PriceCents] = true
	}
	if !seen[73857] || !seen[73957] {
		t.Errorf("item prices = %v, want both 73857 and 73957", seen)
	}
}

func TestBatchScenario(t *testing.T) {
	b := NewBatch()
	b.Add(rec(99, "Junita Jast", 1066, 1, 10000, day(2021, 3, 1)))
	b.Add(rec(77, "Mrs. Stephen Trantow", 1067, 3, 20000, day(2021, 3, 2)))
	b.Add(rec(70, "Palmer Prosacco", 1068, 2, 73857, day(2021, 3, 3)))
	b.Add(rec(70, "Palmer Prosacco", 1068, 2, 73957, day(2021, 3, 3)))
	b.Add(rec(70, "Palmer Prosacco", 1068, 4, 50000, day(2021, 3, 3)))
	b.Add(rec(75, "Bobbie Batz", 1069, 1, 12345, day(2021, 3, 4)))

	if got := len(b.Users()); got != 4 {
		t.Errorf("users = %d, want 4", got)
	}
	if got := len(b.Products()); got != 4 {
		t.Errorf("products = %d, want 4", got)
	}
	if got := len(b.Orders()); got != 4 {
		t.Errorf("orders = %d, want 4", got)
	}

	var forProduct2, forProduct4 int
	for item := range b.orderItems {
		if item.OrderID != 1068 {
			continue
		}
		switch item.ProductID {
		case 2:
			forProduct2++
		case 4:
			forProduct4++
		}
	}
	if forProduct2 != 2 {
		t.Errorf("order 1068 items for product 2 = %d, want 2", forProduct2)
	}
	if forProduct4 != 1 {
		t.Errorf("order 1068 items for product 4 = %d, want 1", forProduct4)
	}

	if b.Lines() != 6 {
		t.Errorf("Lines() = %d, want 6", b.Lines())
	}
	if b.Empty() {
		t.Error("Empty() = true after adds")
	}
}
