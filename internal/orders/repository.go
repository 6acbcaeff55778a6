package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/storage"
)

const orderColumns = `
	id, customer_name, customer_email, customer_phone, delivery_address,
	status, total_amount, notes, created_at, updated_at, completed_at`

const itemColumns = `
	id, order_id, sweet_id, sweet_name, sweet_category, quantity,
	unit_price, subtotal, notes, created_at`

// OrderRepository persists orders and their lines. Like the catalog
// repository it runs over storage.DBTX, so the transaction service can
// scope every call to one database transaction.
type OrderRepository struct {
	db storage.DBTX
}

func NewOrderRepository(db storage.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Insert persists the order row only; lines are inserted one by one so the
// service can interleave stock decrements with line creation.
func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, NULL)
	`, order.ID, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.DeliveryAddress, order.Status, order.TotalAmount, order.Notes, now)
	return err
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	order.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET customer_name = $2, customer_email = $3, customer_phone = $4,
		    delivery_address = $5, status = $6, total_amount = $7,
		    notes = $8, updated_at = $9, completed_at = $10
		WHERE id = $1
	`, order.ID, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.DeliveryAddress, order.Status, order.TotalAmount, order.Notes,
		order.UpdatedAt, order.CompletedAt)
	return err
}

// Delete removes the order; order_items go with it via ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM orders WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *OrderRepository) InsertItem(ctx context.Context, orderID string, item *domain.OrderItem) error {
	item.ID = uuid.New().String()
	item.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, orderID, item.SweetID, item.SweetName, item.SweetCategory,
		item.Quantity, item.UnitPrice, item.Subtotal, item.Notes, item.CreatedAt)
	return err
}

func (r *OrderRepository) UpdateItem(ctx context.Context, item *domain.OrderItem) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE order_items
		SET quantity = $2, unit_price = $3, subtotal = $4, notes = $5
		WHERE id = $1
	`, item.ID, item.Quantity, item.UnitPrice, item.Subtotal, item.Notes)
	return err
}

// GetItem loads a single line plus its owning order id, so the service can
// tell a missing item from one attached to a different order.
func (r *OrderRepository) GetItem(ctx context.Context, itemID string) (*domain.OrderItem, string, error) {
	var item domain.OrderItem
	var orderID string
	err := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM order_items
		WHERE id = $1
	`, itemID).Scan(&item.ID, &orderID, &item.SweetID, &item.SweetName,
		&item.SweetCategory, &item.Quantity, &item.UnitPrice,
		&item.Subtotal, &item.Notes, &item.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &item, orderID, nil
}

func (r *OrderRepository) DeleteItem(ctx context.Context, itemID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM order_items WHERE id = $1
	`, itemID)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerName, &order.CustomerEmail,
		&order.CustomerPhone, &order.DeliveryAddress, &order.Status,
		&order.TotalAmount, &order.Notes, &order.CreatedAt, &order.UpdatedAt,
		&completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if completedAt.Valid {
		order.CompletedAt = &completedAt.Time
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		var orderID string
		if err := rows.Scan(&item.ID, &orderID, &item.SweetID, &item.SweetName,
			&item.SweetCategory, &item.Quantity, &item.UnitPrice,
			&item.Subtotal, &item.Notes, &item.CreatedAt); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
	`)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC
	`, status)
}

// ListPending returns orders still open for modification, oldest first so
// the shop works the queue in arrival order.
func (r *OrderRepository) ListPending(ctx context.Context) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'PENDING'
		ORDER BY created_at
	`)
}

func (r *OrderRepository) ListActive(ctx context.Context) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status IN ('CONFIRMED', 'PREPARING', 'READY', 'OUT_FOR_DELIVERY')
		ORDER BY created_at
	`)
}

func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

func (r *OrderRepository) ListByCustomerEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE LOWER(customer_email) = LOWER($1)
		ORDER BY created_at DESC
	`, email)
}

func (r *OrderRepository) SearchByCustomerName(ctx context.Context, name string) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
	`, name)
}

func (r *OrderRepository) ListCompletedBetween(ctx context.Context, start, end time.Time) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status IN ('DELIVERED', 'COMPLETED')
		  AND completed_at BETWEEN $1 AND $2
		ORDER BY completed_at DESC
	`, start, end)
}

func (r *OrderRepository) CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders WHERE status = $1
	`, status).Scan(&count)
	return count, err
}

func (r *OrderRepository) StatusCounts(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM orders
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.OrderStatus]int64)
	for rows.Next() {
		var status domain.OrderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// RevenueBetween sums totals of delivered and completed orders whose
// completion timestamp falls inside [start, end]. Zero when nothing
// matches.
func (r *OrderRepository) RevenueBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE status IN ('DELIVERED', 'COMPLETED')
		  AND completed_at BETWEEN $1 AND $2
	`, start, end).Scan(&revenue)
	return revenue, err
}

func (r *OrderRepository) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		var completedAt sql.NullTime
		if err := rows.Scan(&order.ID, &order.CustomerName, &order.CustomerEmail,
			&order.CustomerPhone, &order.DeliveryAddress, &order.Status,
			&order.TotalAmount, &order.Notes, &order.CreatedAt,
			&order.UpdatedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			order.CompletedAt = &completedAt.Time
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var item domain.OrderItem
		var orderID string
		if err := itemRows.Scan(&item.ID, &orderID, &item.SweetID,
			&item.SweetName, &item.SweetCategory, &item.Quantity,
			&item.UnitPrice, &item.Subtotal, &item.Notes,
			&item.CreatedAt); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}
