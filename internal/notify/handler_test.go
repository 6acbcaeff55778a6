package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
)

type sentEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func newEmailServer(t *testing.T, status int) (*httptest.Server, *[]sentEmail) {
	t.Helper()
	var sent []sentEmail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var email sentEmail
		if err := json.NewDecoder(r.Body).Decode(&email); err != nil {
			t.Errorf("decode email request: %v", err)
		}
		sent = append(sent, email)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &sent
}

func TestHandleOrderCreatedSendsEmail(t *testing.T) {
	srv, sent := newEmailServer(t, http.StatusOK)
	h := NewHandler(srv.URL, "admin@sweetshop.test", srv.Client(), slog.Default())

	event := domain.OrderCreatedEvent{
		OrderID:       "order-1",
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		TotalAmount:   decimal.RequireFromString("125.50"),
		Items:         []domain.EventItem{{SweetID: "s1", SweetName: "Kaju Katli", Quantity: 2}},
		Timestamp:     time.Now().UTC(),
	}
	payload, _ := json.Marshal(event)

	if err := h.HandleOrderCreated(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(*sent))
	}
	if (*sent)[0].To != "asha@example.com" {
		t.Errorf("to = %q, want customer email", (*sent)[0].To)
	}
}

func TestHandleStockLowGoesToAdmin(t *testing.T) {
	srv, sent := newEmailServer(t, http.StatusOK)
	h := NewHandler(srv.URL, "admin@sweetshop.test", srv.Client(), slog.Default())

	payload, _ := json.Marshal(domain.StockLowEvent{
		SweetID:       "s1",
		SweetName:     "Rasgulla",
		Quantity:      3,
		MinStockLevel: 10,
	})

	if err := h.HandleStockLow(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(*sent) != 1 || (*sent)[0].To != "admin@sweetshop.test" {
		t.Fatalf("low stock alert should go to the admin, got %+v", *sent)
	}
}

func TestHandleOrderCancelledPropagatesEmailFailure(t *testing.T) {
	srv, _ := newEmailServer(t, http.StatusInternalServerError)
	h := NewHandler(srv.URL, "admin@sweetshop.test", srv.Client(), slog.Default())

	payload, _ := json.Marshal(domain.OrderCancelledEvent{
		OrderID:       "order-9",
		CustomerName:  "Ravi",
		CustomerEmail: "ravi@example.com",
	})

	if err := h.HandleOrderCancelled(context.Background(), payload); err == nil {
		t.Error("expected an error when the email service fails")
	}
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	srv, sent := newEmailServer(t, http.StatusOK)
	h := NewHandler(srv.URL, "admin@sweetshop.test", srv.Client(), slog.Default())

	if err := h.HandleOrderCreated(context.Background(), []byte("{not json")); err == nil {
		t.Error("expected unmarshal error")
	}
	if len(*sent) != 0 {
		t.Errorf("no email should be sent for a malformed payload")
	}
}
