package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func newItem(id, sweetID string, qty int, unitPrice string) OrderItem {
	item := OrderItem{
		ID:        id,
		SweetID:   sweetID,
		SweetName: "Kaju Katli",
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(unitPrice),
	}
	item.RecalculateSubtotal()
	return item
}

func TestOrderItem_RecalculateSubtotal(t *testing.T) {
	item := newItem("i1", "s1", 5, "10.00")

	if !item.Subtotal.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("expected subtotal 50.00, got %s", item.Subtotal)
	}

	item.Quantity = 3
	item.RecalculateSubtotal()

	if !item.Subtotal.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("expected subtotal 30.00 after quantity change, got %s", item.Subtotal)
	}
}

func TestOrder_TotalTracksItems(t *testing.T) {
	order := &Order{Status: OrderStatusPending}

	order.AddItem(newItem("i1", "s1", 2, "12.50"))
	order.AddItem(newItem("i2", "s2", 1, "99.99"))

	want := decimal.RequireFromString("124.99")
	if !order.TotalAmount.Equal(want) {
		t.Errorf("expected total %s, got %s", want, order.TotalAmount)
	}
	if order.TotalQuantity() != 3 {
		t.Errorf("expected total quantity 3, got %d", order.TotalQuantity())
	}

	if !order.RemoveItem("i1") {
		t.Fatal("expected i1 to be removed")
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("99.99")) {
		t.Errorf("expected total 99.99 after removal, got %s", order.TotalAmount)
	}

	if order.RemoveItem("missing") {
		t.Error("removing an unknown item should report false")
	}

	order.RemoveItem("i2")
	if !order.TotalAmount.Equal(decimal.Zero) {
		t.Errorf("expected zero total for empty order, got %s", order.TotalAmount)
	}
}

func TestOrder_FindItemBySweet(t *testing.T) {
	order := &Order{Status: OrderStatusPending}
	order.AddItem(newItem("i1", "s1", 2, "10.00"))

	if order.FindItemBySweet("s2") != nil {
		t.Error("expected nil for unknown sweet")
	}

	line := order.FindItemBySweet("s1")
	if line == nil {
		t.Fatal("expected line for s1")
	}

	// Merging a repeated add mutates the line in place.
	line.Quantity += 3
	line.RecalculateSubtotal()
	order.RecalculateTotal()

	if len(order.Items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(order.Items))
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("expected merged total 50.00, got %s", order.TotalAmount)
	}
}

func TestOrder_StatusPredicates(t *testing.T) {
	cases := []struct {
		status     OrderStatus
		modifiable bool
		cancelable bool
	}{
		{OrderStatusPending, true, true},
		{OrderStatusConfirmed, false, true},
		{OrderStatusPreparing, false, false},
		{OrderStatusReady, false, false},
		{OrderStatusOutForDelivery, false, false},
		{OrderStatusDelivered, false, false},
		{OrderStatusCompleted, false, false},
		{OrderStatusCancelled, false, false},
	}

	for _, tc := range cases {
		order := &Order{Status: tc.status}
		if order.CanBeModified() != tc.modifiable {
			t.Errorf("%s: CanBeModified = %v, want %v", tc.status, order.CanBeModified(), tc.modifiable)
		}
		if order.CanBeCancelled() != tc.cancelable {
			t.Errorf("%s: CanBeCancelled = %v, want %v", tc.status, order.CanBeCancelled(), tc.cancelable)
		}
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	if OrderStatus("SHIPPED").Valid() {
		t.Error("SHIPPED is not a known status")
	}
	if !OrderStatusOutForDelivery.Valid() {
		t.Error("OUT_FOR_DELIVERY should be valid")
	}
	if !OrderStatusDelivered.Completed() || !OrderStatusCompleted.Completed() {
		t.Error("DELIVERED and COMPLETED count as completed")
	}
	if OrderStatusCancelled.Completed() {
		t.Error("CANCELLED does not count as completed")
	}
}

func TestSweet_StockPredicates(t *testing.T) {
	sweet := &Sweet{Quantity: 0, MinStockLevel: 10}
	if sweet.IsInStock() {
		t.Error("zero quantity is out of stock")
	}
	if !sweet.IsLowStock() {
		t.Error("zero quantity is low stock")
	}

	sweet.Quantity = 10
	if !sweet.IsLowStock() {
		t.Error("quantity equal to threshold is low stock")
	}

	sweet.Quantity = 11
	if sweet.IsLowStock() {
		t.Error("quantity above threshold is not low stock")
	}
	if !sweet.IsInStock() {
		t.Error("positive quantity is in stock")
	}
}

func TestCategoryAndPricingValidation(t *testing.T) {
	if !CategoryBengali.Valid() || SweetCategory("CHOCOLATE").Valid() {
		t.Error("category validation mismatch")
	}
	if !PricePerKg.Valid() || PricingType("PER_BOX").Valid() {
		t.Error("pricing type validation mismatch")
	}
}
