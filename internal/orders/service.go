package orders

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/catalog"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/messaging"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/telemetry"
)

const maxItemQuantity = 1000

// Service orchestrates order mutations together with stock adjustments.
// Every mutating operation runs inside one serializable transaction
// covering both the order tables and the sweets table, so a failure at any
// step leaves no partial stock change behind. Events and metrics are
// emitted only after the transaction commits.
type Service struct {
	db       *sql.DB
	producer *messaging.Producer
	metrics  *telemetry.OrderMetrics
	logger   *slog.Logger
}

func NewService(db *sql.DB, producer *messaging.Producer, metrics *telemetry.OrderMetrics, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

type CreateOrderItem struct {
	SweetID  string `json:"sweet_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

type CreateOrderInput struct {
	CustomerName    string            `json:"customer_name"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerPhone   string            `json:"customer_phone,omitempty"`
	DeliveryAddress string            `json:"delivery_address,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Items           []CreateOrderItem `json:"items"`
}

// OrderUpdate carries a partial update of customer fields; nil fields are
// left untouched. Stock is never involved.
type OrderUpdate struct {
	CustomerName    *string `json:"customer_name"`
	CustomerEmail   *string `json:"customer_email"`
	CustomerPhone   *string `json:"customer_phone"`
	DeliveryAddress *string `json:"delivery_address"`
	Notes           *string `json:"notes"`
}

type AddItemInput struct {
	SweetID  string `json:"sweet_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

type UpdateItemInput struct {
	Quantity int     `json:"quantity"`
	Notes    *string `json:"notes"`
}

func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateOrder validates every requested line against the catalog before
// touching anything, then creates the order and decrements stock line by
// line inside one transaction.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, domain.Validationf("order must contain at least one item")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, domain.Validationf("customer name is required")
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, domain.Validationf("customer email is required")
	}
	for _, item := range input.Items {
		if item.SweetID == "" {
			return nil, domain.Validationf("sweet ID is required for every item")
		}
		if item.Quantity < 1 || item.Quantity > maxItemQuantity {
			return nil, domain.Validationf("invalid quantity: %d", item.Quantity)
		}
	}

	var order *domain.Order
	var lowStock []domain.Sweet

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sweets := catalog.NewSweetRepository(tx)
		repo := NewOrderRepository(tx)

		// Pre-flight pass: every line must be satisfiable before any
		// mutation happens.
		for _, item := range input.Items {
			sweet, err := sweets.GetByID(ctx, item.SweetID)
			if err != nil {
				return err
			}
			if sweet == nil {
				return domain.NotFound("sweet", item.SweetID)
			}
			if !sweet.IsAvailable {
				return domain.Conflictf("sweet '%s' is not available for purchase", sweet.Name)
			}
			if sweet.Quantity < item.Quantity {
				return domain.Conflictf("insufficient stock for sweet '%s': available %d, requested %d",
					sweet.Name, sweet.Quantity, item.Quantity)
			}
		}

		order = &domain.Order{
			CustomerName:    strings.TrimSpace(input.CustomerName),
			CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
			CustomerPhone:   input.CustomerPhone,
			DeliveryAddress: input.DeliveryAddress,
			Notes:           input.Notes,
			Status:          domain.OrderStatusPending,
			Items:           []domain.OrderItem{},
		}
		if err := repo.Insert(ctx, order); err != nil {
			return err
		}

		for _, item := range input.Items {
			sweet, err := sweets.GetByID(ctx, item.SweetID)
			if err != nil {
				return err
			}

			line := domain.OrderItem{
				SweetID:       sweet.ID,
				SweetName:     sweet.Name,
				SweetCategory: sweet.Category,
				Quantity:      item.Quantity,
				UnitPrice:     sweet.Price,
				Notes:         item.Notes,
			}
			line.RecalculateSubtotal()

			if err := repo.InsertItem(ctx, order.ID, &line); err != nil {
				return err
			}
			order.AddItem(line)

			reduced, err := sweets.ReduceStock(ctx, sweet.ID, item.Quantity)
			if err != nil {
				return err
			}
			if !reduced {
				return domain.Conflictf("insufficient stock for sweet '%s': available %d, requested %d",
					sweet.Name, sweet.Quantity, item.Quantity)
			}

			after, err := sweets.GetByID(ctx, sweet.ID)
			if err != nil {
				return err
			}
			if after != nil && after.IsLowStock() {
				lowStock = append(lowStock, *after)
			}
		}

		order.RecalculateTotal()
		return repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created", "order_id", order.ID,
		"customer_email", order.CustomerEmail, "total", order.TotalAmount)
	if s.metrics != nil {
		s.metrics.OrdersCreated.Add(ctx, 1)
	}
	s.publishOrderCreated(ctx, order)
	s.publishLowStock(ctx, lowStock)

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	repo := NewOrderRepository(s.db)
	order, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.NotFound("order", id)
	}
	return order, nil
}

// UpdateOrder overwrites customer fields present in the update. Pending
// orders only; stock is untouched.
func (s *Service) UpdateOrder(ctx context.Context, id string, update OrderUpdate) (*domain.Order, error) {
	var order *domain.Order

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		repo := NewOrderRepository(tx)

		var err error
		order, err = getModifiableOrder(ctx, repo, id)
		if err != nil {
			return err
		}

		if update.CustomerName != nil {
			name := strings.TrimSpace(*update.CustomerName)
			if name == "" {
				return domain.Validationf("customer name cannot be empty")
			}
			order.CustomerName = name
		}
		if update.CustomerEmail != nil {
			email := strings.TrimSpace(*update.CustomerEmail)
			if email == "" {
				return domain.Validationf("customer email cannot be empty")
			}
			order.CustomerEmail = email
		}
		if update.CustomerPhone != nil {
			order.CustomerPhone = *update.CustomerPhone
		}
		if update.DeliveryAddress != nil {
			order.DeliveryAddress = *update.DeliveryAddress
		}
		if update.Notes != nil {
			order.Notes = *update.Notes
		}

		return repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order updated", "order_id", id)
	return order, nil
}

// UpdateOrderStatus applies any valid status without checking the forward
// sequence; the workflow deliberately leaves transitions to the operator.
// The completion timestamp is stamped the first time the order reaches a
// completed status.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, notes *string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Validationf("invalid order status: %s", status)
	}

	var order *domain.Order
	firstCompletion := false

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		repo := NewOrderRepository(tx)

		var err error
		order, err = getOrder(ctx, repo, id)
		if err != nil {
			return err
		}

		order.Status = status
		if status.Completed() && order.CompletedAt == nil {
			now := time.Now().UTC()
			order.CompletedAt = &now
			firstCompletion = true
		}
		if notes != nil {
			order.Notes = *notes
		}

		return repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated", "order_id", id, "status", status)
	// Revenue is counted once per order, on the update that stamps the
	// completion timestamp. DELIVERED followed by COMPLETED records nothing
	// the second time.
	if s.metrics != nil && firstCompletion {
		revenue, _ := order.TotalAmount.Float64()
		s.metrics.RevenueRecorded.Add(ctx, revenue)
	}
	return order, nil
}

// CancelOrder returns every reserved unit to stock and marks the order
// cancelled. Pending and confirmed orders only.
func (s *Service) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order *domain.Order

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sweets := catalog.NewSweetRepository(tx)
		repo := NewOrderRepository(tx)

		var err error
		order, err = getOrder(ctx, repo, id)
		if err != nil {
			return err
		}
		if !order.CanBeCancelled() {
			return domain.Conflictf("order with status '%s' cannot be cancelled", order.Status)
		}

		for _, item := range order.Items {
			if _, err := sweets.IncreaseStock(ctx, item.SweetID, item.Quantity); err != nil {
				return err
			}
		}

		order.Status = domain.OrderStatusCancelled
		return repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", "order_id", id)
	if s.metrics != nil {
		s.metrics.OrdersCancelled.Add(ctx, 1)
	}
	s.publishOrderCancelled(ctx, order)

	return order, nil
}

// DeleteOrder restores stock and hard-deletes the order with its items.
// Only pending orders may be deleted.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sweets := catalog.NewSweetRepository(tx)
		repo := NewOrderRepository(tx)

		order, err := getOrder(ctx, repo, id)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderStatusPending {
			return domain.Conflictf("only pending orders can be deleted")
		}

		for _, item := range order.Items {
			if _, err := sweets.IncreaseStock(ctx, item.SweetID, item.Quantity); err != nil {
				return err
			}
		}

		_, err = repo.Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("order deleted", "order_id", id)
	return nil
}

// AddItemToOrder appends a line, or merges into the existing line when the
// order already holds the same sweet. The merged line keeps its original
// unit price snapshot; stock is reduced by the requested amount only.
func (s *Service) AddItemToOrder(ctx context.Context, orderID string, input AddItemInput) (*domain.Order, error) {
	if input.SweetID == "" {
		return nil, domain.Validationf("sweet ID is required")
	}
	if input.Quantity < 1 || input.Quantity > maxItemQuantity {
		return nil, domain.Validationf("invalid quantity: %d", input.Quantity)
	}

	var order *domain.Order
	var lowStock []domain.Sweet

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sweets := catalog.NewSweetRepository(tx)
		repo := NewOrderRepository(tx)

		var err error
		order, err = getModifiableOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		sweet, err := sweets.GetByID(ctx, input.SweetID)
		if err != nil {
			return err
		}
		if sweet == nil {
			return domain.NotFound("sweet", input.SweetID)
		}
		if !sweet.IsAvailable {
			return domain.Conflictf("sweet '%s' is not available for purchase", sweet.Name)
		}
		if sweet.Quantity < input.Quantity {
			return domain.Conflictf("insufficient stock for sweet '%s': available %d, requested %d",
				sweet.Name, sweet.Quantity, input.Quantity)
		}

		if existing := order.FindItemBySweet(input.SweetID); existing != nil {
			existing.Quantity += input.Quantity
			existing.RecalculateSubtotal()
			if err := repo.UpdateItem(ctx, existing); err != nil {
				return err
			}
		} else {
			line := domain.OrderItem{
				SweetID:       sweet.ID,
				SweetName:     sweet.Name,
				SweetCategory: sweet.Category,
				Quantity:      input.Quantity,
				UnitPrice:     sweet.Price,
				Notes:         input.Notes,
			}
			line.RecalculateSubtotal()
			if err := repo.InsertItem(ctx, order.ID, &line); err != nil {
				return err
			}
			order.Items = append(order.Items, line)
		}

		reduced, err := sweets.ReduceStock(ctx, sweet.ID, input.Quantity)
		if err != nil {
			return err
		}
		if !reduced {
			return domain.Conflictf("insufficient stock for sweet '%s': available %d, requested %d",
				sweet.Name, sweet.Quantity, input.Quantity)
		}

		after, err := sweets.GetByID(ctx, sweet.ID)
		if err != nil {
			return err
		}
		if after != nil && after.IsLowStock() {
			lowStock = append(lowStock, *after)
		}

		order.RecalculateTotal()
		return repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item added to order", "order_id", orderID, "sweet_id", input.SweetID)
	s.publishLowStock(ctx, lowStock)
	return order, nil
}

// UpdateOrderItem changes a line's quantity. The original quantity is
// returned to stock first; if the sweet then cannot cover the new
// quantity, the restoration is undone so the failed call leaves stock
// exactly where it started.
func (s *Service) UpdateOrderItem(ctx context.Context, orderID, itemID string, input UpdateItemInput) (*domain.Order, error) {
	if input.Quantity < 1 || input.Quantity > maxItemQuantity {
		return nil, domain.Validationf("invalid quantity: %d", input.Quantity)
	}

	var order *domain.Order
	var lowStock []domain.Sweet

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sweets := catalog.NewSweetRepository(tx)
		repo := NewOrderRepository(tx)

		var err error
		order, err = getModifiableOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		item, owner, err := repo.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.NotFound("order item", itemID)
		}
		if owner != orderID {
			return domain.Validationf("order item does not belong to the specified order")
		}

		originalQuantity := item.Quantity
		if _, err := sweets.IncreaseStock(ctx, item.SweetID, originalQuantity); err != nil {
			return err
		}

		sweet, err := sweets.GetByID(ctx, item.SweetID)
		if err != nil {
			return err
		}
		if sweet == nil {
			return domain.NotFound("sweet", item.SweetID)
		}
		if sweet.Quantity < input.Quantity {
			// Undo the restoration so the failed call is stock-neutral.
			if _, err := sweets.ReduceStock(ctx, item.SweetID, originalQuantity); err != nil {
				return err
			}
			return domain.Conflictf("insufficient stock for sweet '%s': available %d, requested %d",
				sweet.Name, sweet.Quantity, input.Quantity)
		}

		item.Quantity = input.Quantity
		if input.Notes != nil {
			item.Notes = *input.Notes
		}
		item.RecalculateSubtotal()
		if err := repo.UpdateItem(ctx, item); err != nil {
			return err
		}

		reduced, err := sweets.ReduceStock(ctx, item.SweetID, input.Quantity)
		if err != nil {
			return err
		}
		if !reduced {
			return domain.Conflictf("insufficient stock for sweet '%s': available %d, requested %d",
				sweet.Name, sweet.Quantity, input.Quantity)
		}

		after, err := sweets.GetByID(ctx, item.SweetID)
		if err != nil {
			return err
		}
		if after != nil && after.IsLowStock() {
			lowStock = append(lowStock, *after)
		}

		if line := order.FindItem(itemID); line != nil {
			*line = *item
		}
		order.RecalculateTotal()
		return repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order item updated", "order_id", orderID, "item_id", itemID)
	s.publishLowStock(ctx, lowStock)
	return order, nil
}

// RemoveItemFromOrder restores the line's quantity to stock and deletes
// the line.
func (s *Service) RemoveItemFromOrder(ctx context.Context, orderID, itemID string) (*domain.Order, error) {
	var order *domain.Order

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sweets := catalog.NewSweetRepository(tx)
		repo := NewOrderRepository(tx)

		var err error
		order, err = getModifiableOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		item, owner, err := repo.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.NotFound("order item", itemID)
		}
		if owner != orderID {
			return domain.Validationf("order item does not belong to the specified order")
		}

		if _, err := sweets.IncreaseStock(ctx, item.SweetID, item.Quantity); err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return err
		}

		order.RemoveItem(itemID)
		return repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order item removed", "order_id", orderID, "item_id", itemID)
	return order, nil
}

func getOrder(ctx context.Context, repo *OrderRepository, id string) (*domain.Order, error) {
	order, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.NotFound("order", id)
	}
	return order, nil
}

func getModifiableOrder(ctx context.Context, repo *OrderRepository, id string) (*domain.Order, error) {
	order, err := getOrder(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if !order.CanBeModified() {
		return nil, domain.Conflictf("order with status '%s' cannot be modified", order.Status)
	}
	return order, nil
}

func (s *Service) publishOrderCreated(ctx context.Context, order *domain.Order) {
	if s.producer == nil {
		return
	}

	event := domain.OrderCreatedEvent{
		OrderID:       order.ID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount,
		Timestamp:     order.CreatedAt,
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, domain.EventItem{
			SweetID:   item.SweetID,
			SweetName: item.SweetName,
			Quantity:  item.Quantity,
		})
	}

	if err := s.producer.Publish(ctx, domain.TopicOrderCreated, order.ID, event); err != nil {
		s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}

func (s *Service) publishOrderCancelled(ctx context.Context, order *domain.Order) {
	if s.producer == nil {
		return
	}

	event := domain.OrderCancelledEvent{
		OrderID:       order.ID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, domain.TopicOrderCancelled, order.ID, event); err != nil {
		s.logger.Error("failed to publish order cancelled event", "error", err, "order_id", order.ID)
	}
}

func (s *Service) publishLowStock(ctx context.Context, sweets []domain.Sweet) {
	if s.producer == nil {
		return
	}

	for i := range sweets {
		event := domain.StockLowEvent{
			SweetID:       sweets[i].ID,
			SweetName:     sweets[i].Name,
			Quantity:      sweets[i].Quantity,
			MinStockLevel: sweets[i].MinStockLevel,
			Timestamp:     time.Now().UTC(),
		}
		if err := s.producer.Publish(ctx, domain.TopicStockLow, sweets[i].ID, event); err != nil {
			s.logger.Error("failed to publish low stock event", "error", err, "sweet_id", sweets[i].ID)
		}
	}
}
