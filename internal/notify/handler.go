package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
)

// Handler turns catalog and order events into emails. Each HandleX method
// matches the messaging.Handler signature and is bound to one topic by the
// worker.
type Handler struct {
	emailServiceURL string
	adminEmail      string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewHandler(emailServiceURL, adminEmail string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		emailServiceURL: emailServiceURL,
		adminEmail:      adminEmail,
		httpClient:      client,
		logger:          logger,
	}
}

func (h *Handler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "customer_email", event.CustomerEmail)

	body := fmt.Sprintf("Dear %s,\n\nWe have received your order %s (%d items, total %s). We will confirm it shortly.",
		event.CustomerName, event.OrderID, len(event.Items), event.TotalAmount.StringFixed(2))
	if err := h.sendEmail(ctx, event.CustomerEmail, "Order Received: "+event.OrderID, body); err != nil {
		return fmt.Errorf("send order received email: %w", err)
	}

	return nil
}

func (h *Handler) HandleOrderCancelled(ctx context.Context, payload []byte) error {
	var event domain.OrderCancelledEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order cancelled event: %w", err)
	}

	h.logger.Info("processing order cancelled event", "order_id", event.OrderID, "customer_email", event.CustomerEmail)

	body := fmt.Sprintf("Dear %s,\n\nYour order %s has been cancelled. Any reserved items have been returned to stock.",
		event.CustomerName, event.OrderID)
	if err := h.sendEmail(ctx, event.CustomerEmail, "Order Cancelled: "+event.OrderID, body); err != nil {
		return fmt.Errorf("send order cancelled email: %w", err)
	}

	return nil
}

// HandleStockLow alerts the shop admin, not the customer.
func (h *Handler) HandleStockLow(ctx context.Context, payload []byte) error {
	var event domain.StockLowEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal stock low event: %w", err)
	}

	h.logger.Info("processing stock low event", "sweet_id", event.SweetID, "quantity", event.Quantity)

	body := fmt.Sprintf("Stock for '%s' is down to %d units (minimum level %d). Consider restocking.",
		event.SweetName, event.Quantity, event.MinStockLevel)
	if err := h.sendEmail(ctx, h.adminEmail, "Low Stock Alert: "+event.SweetName, body); err != nil {
		return fmt.Errorf("send low stock email: %w", err)
	}

	return nil
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	data, err := json.Marshal(map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
