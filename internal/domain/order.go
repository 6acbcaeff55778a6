package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusReady          OrderStatus = "READY"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// OrderStatuses lists every status in workflow order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
	OrderStatusReady, OrderStatusOutForDelivery, OrderStatusDelivered,
	OrderStatusCompleted, OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusOutForDelivery, OrderStatusDelivered,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Completed reports whether the status counts toward revenue and carries a
// completion timestamp.
func (s OrderStatus) Completed() bool {
	return s == OrderStatusDelivered || s == OrderStatusCompleted
}

// OrderItem is a line within an order. The sweet's name, category and unit
// price are captured when the line is created and frozen afterwards, so
// later catalog changes never rewrite order history.
type OrderItem struct {
	ID            string          `json:"id"`
	SweetID       string          `json:"sweet_id"`
	SweetName     string          `json:"sweet_name"`
	SweetCategory SweetCategory   `json:"sweet_category"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecalculateSubtotal keeps subtotal consistent with quantity * unit price.
// Call after any quantity or price change.
func (i *OrderItem) RecalculateSubtotal() {
	i.Subtotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order owns its items. Every mutation goes through the methods below so
// TotalAmount never drifts from the sum of item subtotals.
type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Notes           string          `json:"notes,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
	o.RecalculateTotal()
}

// RemoveItem drops the item with the given id and reports whether it was
// present.
func (o *Order) RemoveItem(itemID string) bool {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.RecalculateTotal()
			return true
		}
	}
	return false
}

// FindItem returns a pointer into the order's item slice, or nil.
func (o *Order) FindItem(itemID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// FindItemBySweet returns the line for the given sweet, or nil. Used to
// merge repeated adds of the same sweet into one line.
func (o *Order) FindItemBySweet(sweetID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].SweetID == sweetID {
			return &o.Items[i]
		}
	}
	return nil
}

func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal)
	}
	o.TotalAmount = total
}

// CanBeModified reports whether line items and customer fields may still
// change. Only pending orders are editable.
func (o *Order) CanBeModified() bool {
	return o.Status == OrderStatusPending
}

func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

func (o *Order) TotalQuantity() int {
	total := 0
	for i := range o.Items {
		total += o.Items[i].Quantity
	}
	return total
}
