package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kafka topics carrying the events below.
const (
	TopicOrderCreated   = "sweetshop.order.created"
	TopicOrderCancelled = "sweetshop.order.cancelled"
	TopicStockLow       = "sweetshop.stock.low"
)

type EventItem struct {
	SweetID   string `json:"sweet_id"`
	SweetName string `json:"sweet_name"`
	Quantity  int    `json:"quantity"`
}

type OrderCreatedEvent struct {
	OrderID       string          `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Items         []EventItem     `json:"items"`
	Timestamp     time.Time       `json:"timestamp"`
}

type OrderCancelledEvent struct {
	OrderID       string          `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

type StockLowEvent struct {
	SweetID       string    `json:"sweet_id"`
	SweetName     string    `json:"sweet_name"`
	Quantity      int       `json:"quantity"`
	MinStockLevel int       `json:"min_stock_level"`
	Timestamp     time.Time `json:"timestamp"`
}
