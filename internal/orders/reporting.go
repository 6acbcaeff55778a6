package orders

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
)

const defaultRecentLimit = 10

// Statistics is the dashboard summary: a count per status, zero-filled so
// every status always appears, plus totals.
type Statistics struct {
	TotalOrders  int64                        `json:"total_orders"`
	StatusCounts map[domain.OrderStatus]int64 `json:"status_counts"`
	TotalRevenue decimal.Decimal              `json:"total_revenue"`
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return NewOrderRepository(s.db).List(ctx)
}

func (s *Service) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Validationf("invalid order status: %s", status)
	}
	return NewOrderRepository(s.db).ListByStatus(ctx, status)
}

// ListPendingOrders returns pending orders oldest first, the kitchen work
// queue.
func (s *Service) ListPendingOrders(ctx context.Context) ([]domain.Order, error) {
	return NewOrderRepository(s.db).ListPending(ctx)
}

// ListActiveOrders returns orders currently moving through fulfilment,
// oldest first.
func (s *Service) ListActiveOrders(ctx context.Context) ([]domain.Order, error) {
	return NewOrderRepository(s.db).ListActive(ctx)
}

func (s *Service) ListRecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return NewOrderRepository(s.db).ListRecent(ctx, limit)
}

func (s *Service) ListOrdersByCustomerEmail(ctx context.Context, email string) ([]domain.Order, error) {
	if strings.TrimSpace(email) == "" {
		return nil, domain.Validationf("customer email is required")
	}
	return NewOrderRepository(s.db).ListByCustomerEmail(ctx, email)
}

func (s *Service) SearchOrdersByCustomerName(ctx context.Context, name string) ([]domain.Order, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.Validationf("customer name is required")
	}
	return NewOrderRepository(s.db).SearchByCustomerName(ctx, name)
}

func (s *Service) ListCompletedOrders(ctx context.Context, start, end time.Time) ([]domain.Order, error) {
	if end.Before(start) {
		return nil, domain.Validationf("end date must not be before start date")
	}
	return NewOrderRepository(s.db).ListCompletedBetween(ctx, start, end)
}

func (s *Service) CountOrdersByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	if !status.Valid() {
		return 0, domain.Validationf("invalid order status: %s", status)
	}
	return NewOrderRepository(s.db).CountByStatus(ctx, status)
}

// Revenue sums the totals of completed orders whose completion falls in
// the window. Returns zero when nothing completed.
func (s *Service) Revenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	if end.Before(start) {
		return decimal.Zero, domain.Validationf("end date must not be before start date")
	}
	return NewOrderRepository(s.db).RevenueBetween(ctx, start, end)
}

func (s *Service) OrderStatistics(ctx context.Context) (*Statistics, error) {
	repo := NewOrderRepository(s.db)

	counts, err := repo.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		StatusCounts: make(map[domain.OrderStatus]int64, len(domain.OrderStatuses)),
	}
	for _, status := range domain.OrderStatuses {
		stats.StatusCounts[status] = counts[status]
		stats.TotalOrders += counts[status]
	}

	revenue, err := repo.RevenueBetween(ctx, time.Time{}, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	stats.TotalRevenue = revenue

	return stats, nil
}
