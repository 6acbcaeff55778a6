//go:build integration

package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/catalog"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/messaging"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/orders"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/telemetry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedSweet(ctx context.Context, t *testing.T, svc *catalog.Service, name string, price string, quantity int) *domain.Sweet {
	t.Helper()

	sweet, err := svc.CreateSweet(ctx, catalog.SweetCreate{
		Name:     name,
		Category: domain.CategoryMilkBased,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
	})
	if err != nil {
		t.Fatalf("failed to seed sweet %s: %v", name, err)
	}
	return sweet
}

func TestCreateSweetDefaultsToAvailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)
	orderSvc := orders.NewService(db, nil, nil, logger)

	// A create request that never mentions the availability flag.
	var input catalog.SweetCreate
	body := `{"name":"Motichoor Laddu","category":"FLOUR_BASED","price":"30.00","quantity":50}`
	if err := json.Unmarshal([]byte(body), &input); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	sweet, err := catalogSvc.CreateSweet(ctx, input)
	if err != nil {
		t.Fatalf("create sweet: %v", err)
	}
	if !sweet.IsAvailable {
		t.Fatal("sweet created without the flag should default to available")
	}

	persisted, err := catalogSvc.GetSweet(ctx, sweet.ID)
	if err != nil {
		t.Fatalf("get sweet: %v", err)
	}
	if !persisted.IsAvailable {
		t.Fatal("persisted sweet should be available")
	}

	if _, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName:  "Tara",
		CustomerEmail: "tara@example.com",
		Items:         []orders.CreateOrderItem{{SweetID: sweet.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("a freshly created sweet should be orderable: %v", err)
	}

	// An explicit false still sticks.
	unavailable := false
	hidden, err := catalogSvc.CreateSweet(ctx, catalog.SweetCreate{
		Name:        "Seasonal Modak",
		Category:    domain.CategoryFlourBased,
		Price:       decimal.RequireFromString("40.00"),
		Quantity:    20,
		IsAvailable: &unavailable,
	})
	if err != nil {
		t.Fatalf("create sweet: %v", err)
	}
	if hidden.IsAvailable {
		t.Error("explicit is_available=false should be kept")
	}
}

func TestStockAdjustmentEndpoints(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)

	sweet := seedSweet(ctx, t, catalogSvc, "Soan Papdi", "35.00", 20)

	mux := http.NewServeMux()
	passthrough := func(next http.HandlerFunc) http.HandlerFunc { return next }
	catalog.NewHandler(catalogSvc, logger).Register(mux, passthrough, passthrough)

	server := httptest.NewServer(mux)
	defer server.Close()

	adjust := func(t *testing.T, path string) (*http.Response, domain.Sweet) {
		t.Helper()
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, server.URL+path, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("do request: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()

		var got domain.Sweet
		if resp.StatusCode == http.StatusOK {
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode response: %v", err)
			}
		}
		return resp, got
	}

	resp, got := adjust(t, "/api/v1/sweets/"+sweet.ID+"/stock/reduce/6")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reduce status = %d, want 200", resp.StatusCode)
	}
	if got.Quantity != 14 {
		t.Errorf("quantity after reduce = %d, want 14", got.Quantity)
	}

	resp, got = adjust(t, "/api/v1/sweets/"+sweet.ID+"/stock/increase/10")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("increase status = %d, want 200", resp.StatusCode)
	}
	if got.Quantity != 24 {
		t.Errorf("quantity after increase = %d, want 24", got.Quantity)
	}

	resp, _ = adjust(t, "/api/v1/sweets/"+sweet.ID+"/stock/reduce/999")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("oversized reduce status = %d, want 409", resp.StatusCode)
	}

	resp, _ = adjust(t, "/api/v1/sweets/"+sweet.ID+"/stock/reduce/abc")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-numeric amount status = %d, want 400", resp.StatusCode)
	}

	after, err := catalogSvc.GetSweet(ctx, sweet.ID)
	if err != nil {
		t.Fatalf("get sweet: %v", err)
	}
	if after.Quantity != 24 {
		t.Errorf("stock = %d, want 24 after the failed adjustments", after.Quantity)
	}
}

func TestCreateOrderReducesStock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)
	orderSvc := orders.NewService(db, nil, nil, logger)

	sweet := seedSweet(ctx, t, catalogSvc, "Gulab Jamun", "10.00", 100)

	order, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		Items:         []orders.CreateOrderItem{{SweetID: sweet.ID, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Status != domain.OrderStatusPending {
		t.Errorf("status = %s, want PENDING", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("total = %s, want 50.00", order.TotalAmount)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 5 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
	if order.Items[0].SweetName != "Gulab Jamun" {
		t.Errorf("item should snapshot the sweet name, got %q", order.Items[0].SweetName)
	}

	after, err := catalogSvc.GetSweet(ctx, sweet.ID)
	if err != nil {
		t.Fatalf("get sweet: %v", err)
	}
	if after.Quantity != 95 {
		t.Errorf("stock = %d, want 95", after.Quantity)
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)
	orderSvc := orders.NewService(db, nil, nil, logger)

	sweet := seedSweet(ctx, t, catalogSvc, "Rasgulla", "20.00", 100)

	order, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName:  "Ravi",
		CustomerEmail: "ravi@example.com",
		Items:         []orders.CreateOrderItem{{SweetID: sweet.ID, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	cancelled, err := orderSvc.CancelOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}

	after, err := catalogSvc.GetSweet(ctx, sweet.ID)
	if err != nil {
		t.Fatalf("get sweet: %v", err)
	}
	if after.Quantity != 100 {
		t.Errorf("stock = %d, want 100 after cancellation", after.Quantity)
	}
}

func TestInsufficientStockLeavesNothingBehind(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)
	orderSvc := orders.NewService(db, nil, nil, logger)

	cheap := seedSweet(ctx, t, catalogSvc, "Besan Laddu", "15.00", 100)
	scarce := seedSweet(ctx, t, catalogSvc, "Kaju Katli", "450.00", 3)

	_, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName:  "Meera",
		CustomerEmail: "meera@example.com",
		Items: []orders.CreateOrderItem{
			{SweetID: cheap.ID, Quantity: 5},
			{SweetID: scarce.ID, Quantity: 50},
		},
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	for _, s := range []*domain.Sweet{cheap, scarce} {
		after, err := catalogSvc.GetSweet(ctx, s.ID)
		if err != nil {
			t.Fatalf("get sweet: %v", err)
		}
		if after.Quantity != s.Quantity {
			t.Errorf("%s: stock = %d, want %d untouched", s.Name, after.Quantity, s.Quantity)
		}
	}

	all, err := orderSvc.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("no order should survive the failed creation, found %d", len(all))
	}
}

func TestAddItemMergesExistingLine(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)
	orderSvc := orders.NewService(db, nil, nil, logger)

	sweet := seedSweet(ctx, t, catalogSvc, "Jalebi", "180.00", 50)

	order, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName:  "Kiran",
		CustomerEmail: "kiran@example.com",
		Items:         []orders.CreateOrderItem{{SweetID: sweet.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	order, err = orderSvc.AddItemToOrder(ctx, order.ID, orders.AddItemInput{SweetID: sweet.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	if len(order.Items) != 1 {
		t.Fatalf("lines = %d, want the repeated sweet merged into one", len(order.Items))
	}
	if order.Items[0].Quantity != 5 {
		t.Errorf("merged quantity = %d, want 5", order.Items[0].Quantity)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("900.00")) {
		t.Errorf("total = %s, want 900.00", order.TotalAmount)
	}

	after, err := catalogSvc.GetSweet(ctx, sweet.ID)
	if err != nil {
		t.Fatalf("get sweet: %v", err)
	}
	if after.Quantity != 45 {
		t.Errorf("stock = %d, want 45", after.Quantity)
	}
}

func TestUpdateOrderItemFailureIsStockNeutral(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)
	orderSvc := orders.NewService(db, nil, nil, logger)

	sweet := seedSweet(ctx, t, catalogSvc, "Mysore Pak", "250.00", 10)

	order, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName:  "Divya",
		CustomerEmail: "divya@example.com",
		Items:         []orders.CreateOrderItem{{SweetID: sweet.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// 6 left in stock; 4 restored makes 10, still short of 11.
	_, err = orderSvc.UpdateOrderItem(ctx, order.ID, order.Items[0].ID, orders.UpdateItemInput{Quantity: 11})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	after, err := catalogSvc.GetSweet(ctx, sweet.ID)
	if err != nil {
		t.Fatalf("get sweet: %v", err)
	}
	if after.Quantity != 6 {
		t.Errorf("stock = %d, want 6 unchanged after the failed update", after.Quantity)
	}

	fetched, err := orderSvc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if fetched.Items[0].Quantity != 4 {
		t.Errorf("line quantity = %d, want 4 unchanged", fetched.Items[0].Quantity)
	}

	// A feasible update succeeds and settles stock at the new level.
	updated, err := orderSvc.UpdateOrderItem(ctx, order.ID, order.Items[0].ID, orders.UpdateItemInput{Quantity: 7})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Items[0].Quantity != 7 {
		t.Errorf("line quantity = %d, want 7", updated.Items[0].Quantity)
	}

	after, err = catalogSvc.GetSweet(ctx, sweet.ID)
	if err != nil {
		t.Fatalf("get sweet: %v", err)
	}
	if after.Quantity != 3 {
		t.Errorf("stock = %d, want 3", after.Quantity)
	}
}

func TestDeleteOrderRequiresPendingStatus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)
	orderSvc := orders.NewService(db, nil, nil, logger)

	sweet := seedSweet(ctx, t, catalogSvc, "Sandesh", "22.00", 100)

	order, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName:  "Nikhil",
		CustomerEmail: "nikhil@example.com",
		Items:         []orders.CreateOrderItem{{SweetID: sweet.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := orderSvc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusConfirmed, nil); err != nil {
		t.Fatalf("update status: %v", err)
	}

	err = orderSvc.DeleteOrder(ctx, order.ID)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if err.Error() != "only pending orders can be deleted" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	// Back to PENDING, deletion restores stock and removes the order.
	if _, err := orderSvc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, nil); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := orderSvc.DeleteOrder(ctx, order.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}

	if _, err := orderSvc.GetOrder(ctx, order.ID); !domain.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}

	after, err := catalogSvc.GetSweet(ctx, sweet.ID)
	if err != nil {
		t.Fatalf("get sweet: %v", err)
	}
	if after.Quantity != 100 {
		t.Errorf("stock = %d, want 100 restored", after.Quantity)
	}
}

func TestRevenueAndStatistics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)
	orderSvc := orders.NewService(db, nil, nil, logger)

	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)

	revenue, err := orderSvc.Revenue(ctx, start, end)
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if !revenue.IsZero() {
		t.Errorf("revenue = %s, want 0 with no completed orders", revenue)
	}

	sweet := seedSweet(ctx, t, catalogSvc, "Mishti Doi", "45.00", 100)

	order, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName:  "Priya",
		CustomerEmail: "priya@example.com",
		Items:         []orders.CreateOrderItem{{SweetID: sweet.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	delivered, err := orderSvc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusDelivered, nil)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if delivered.CompletedAt == nil {
		t.Error("delivered order should carry a completion timestamp")
	}

	revenue, err = orderSvc.Revenue(ctx, start, end)
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if !revenue.Equal(decimal.RequireFromString("90.00")) {
		t.Errorf("revenue = %s, want 90.00", revenue)
	}

	stats, err := orderSvc.OrderStatistics(ctx)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalOrders != 1 {
		t.Errorf("total orders = %d, want 1", stats.TotalOrders)
	}
	if stats.StatusCounts[domain.OrderStatusDelivered] != 1 {
		t.Errorf("delivered count = %d, want 1", stats.StatusCounts[domain.OrderStatusDelivered])
	}
	if stats.StatusCounts[domain.OrderStatusPending] != 0 {
		t.Errorf("pending count = %d, want 0", stats.StatusCounts[domain.OrderStatusPending])
	}
}

func TestRevenueMetricCountedOncePerOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(previous) })

	orderMetrics, err := telemetry.NewOrderMetrics()
	if err != nil {
		t.Fatalf("order metrics: %v", err)
	}

	db := OpenDB(t, pg.ConnStr)
	logger := testLogger()
	catalogSvc := catalog.NewService(db, nil, logger)
	orderSvc := orders.NewService(db, nil, orderMetrics, logger)

	sweet := seedSweet(ctx, t, catalogSvc, "Rasmalai", "60.00", 100)

	order, err := orderSvc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName:  "Anil",
		CustomerEmail: "anil@example.com",
		Items:         []orders.CreateOrderItem{{SweetID: sweet.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// DELIVERED stamps completion; the later COMPLETED and the repeated
	// DELIVERED must not count the order's revenue again.
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusDelivered,
		domain.OrderStatusCompleted,
		domain.OrderStatusDelivered,
	} {
		if _, err := orderSvc.UpdateOrderStatus(ctx, order.ID, status, nil); err != nil {
			t.Fatalf("update status to %s: %v", status, err)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	var total float64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "sweetshop.orders.revenue" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[float64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}

	if total != 180 {
		t.Errorf("revenue recorded = %v, want 180 counted once", total)
	}
}

func TestKafkaEventRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	producer := messaging.NewProducer(brokers)
	defer func() { _ = producer.Close() }()

	event := domain.StockLowEvent{
		SweetID:       "sweet-1",
		SweetName:     "Imarti",
		Quantity:      4,
		MinStockLevel: 10,
		Timestamp:     time.Now().UTC(),
	}
	if err := producer.Publish(ctx, domain.TopicStockLow, event.SweetID, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	consumer := messaging.NewConsumer(brokers, domain.TopicStockLow, "roundtrip-test")
	defer func() { _ = consumer.Close() }()

	received := make(chan domain.StockLowEvent, 1)
	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		_ = consumer.Run(consumeCtx, func(_ context.Context, payload []byte) error {
			var got domain.StockLowEvent
			if err := json.Unmarshal(payload, &got); err != nil {
				return err
			}
			received <- got
			stop()
			return nil
		})
	}()

	select {
	case got := <-received:
		if got.SweetID != event.SweetID || got.Quantity != event.Quantity {
			t.Errorf("received %+v, want %+v", got, event)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}
