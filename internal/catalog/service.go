package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/messaging"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/storage"
)

// Service owns catalog business rules: unique names, validated enums,
// guarded stock mutation. The order service reuses the repository directly
// inside its own transactions; everything else goes through here.
type Service struct {
	repo     *SweetRepository
	producer *messaging.Producer
	logger   *slog.Logger
}

func NewService(db storage.DBTX, producer *messaging.Producer, logger *slog.Logger) *Service {
	return &Service{
		repo:     NewSweetRepository(db),
		producer: producer,
		logger:   logger,
	}
}

// SweetCreate carries a new catalog entry. IsAvailable is a pointer so that
// an omitted flag can be told apart from an explicit false; omitted means
// available.
type SweetCreate struct {
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	Category      domain.SweetCategory `json:"category"`
	Price         decimal.Decimal      `json:"price"`
	PricingType   domain.PricingType   `json:"pricing_type"`
	Quantity      int                  `json:"quantity"`
	MinStockLevel int                  `json:"min_stock_level"`
	ImageURL      string               `json:"image_url"`
	IsAvailable   *bool                `json:"is_available"`
	Unit          string               `json:"unit"`
	Brand         string               `json:"brand"`
}

// SweetUpdate carries a partial update; nil fields keep their current value.
type SweetUpdate struct {
	Name          *string               `json:"name"`
	Description   *string               `json:"description"`
	Category      *domain.SweetCategory `json:"category"`
	Price         *decimal.Decimal      `json:"price"`
	PricingType   *domain.PricingType   `json:"pricing_type"`
	Quantity      *int                  `json:"quantity"`
	MinStockLevel *int                  `json:"min_stock_level"`
	ImageURL      *string               `json:"image_url"`
	IsAvailable   *bool                 `json:"is_available"`
	Unit          *string               `json:"unit"`
	Brand         *string               `json:"brand"`
}

func (s *Service) CreateSweet(ctx context.Context, input SweetCreate) (*domain.Sweet, error) {
	sweet := &domain.Sweet{
		Name:          strings.TrimSpace(input.Name),
		Description:   strings.TrimSpace(input.Description),
		Category:      input.Category,
		Price:         input.Price,
		PricingType:   input.PricingType,
		Quantity:      input.Quantity,
		MinStockLevel: input.MinStockLevel,
		ImageURL:      strings.TrimSpace(input.ImageURL),
		IsAvailable:   true,
		Unit:          strings.TrimSpace(input.Unit),
		Brand:         strings.TrimSpace(input.Brand),
	}
	if input.IsAvailable != nil {
		sweet.IsAvailable = *input.IsAvailable
	}

	if sweet.Name == "" {
		return nil, domain.Validationf("sweet name is required")
	}
	if !sweet.Category.Valid() {
		return nil, domain.Validationf("invalid sweet category: %s", sweet.Category)
	}
	if sweet.PricingType == "" {
		sweet.PricingType = domain.PricePerItem
	}
	if !sweet.PricingType.Valid() {
		return nil, domain.Validationf("invalid pricing type: %s", sweet.PricingType)
	}
	if !sweet.Price.IsPositive() {
		return nil, domain.Validationf("price must be greater than 0")
	}
	if sweet.Quantity < 0 {
		return nil, domain.Validationf("quantity cannot be negative")
	}
	if sweet.MinStockLevel < 0 {
		return nil, domain.Validationf("minimum stock level cannot be negative")
	}
	if sweet.MinStockLevel == 0 {
		sweet.MinStockLevel = domain.DefaultMinStockLevel
	}

	exists, err := s.repo.ExistsByName(ctx, sweet.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.Conflictf("sweet with name '%s' already exists", sweet.Name)
	}

	if err := s.repo.Create(ctx, sweet); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflictf("sweet with name '%s' already exists", sweet.Name)
		}
		return nil, err
	}

	s.logger.Info("sweet created", "sweet_id", sweet.ID, "name", sweet.Name)
	return sweet, nil
}

func (s *Service) GetSweet(ctx context.Context, id string) (*domain.Sweet, error) {
	sweet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sweet == nil {
		return nil, domain.NotFound("sweet", id)
	}
	return sweet, nil
}

func (s *Service) GetSweetByName(ctx context.Context, name string) (*domain.Sweet, error) {
	name = strings.TrimSpace(name)
	sweet, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if sweet == nil {
		return nil, domain.NotFound("sweet", name)
	}
	return sweet, nil
}

func (s *Service) ListSweets(ctx context.Context) ([]domain.Sweet, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListAvailableSweets(ctx context.Context) ([]domain.Sweet, error) {
	return s.repo.ListAvailable(ctx)
}

func (s *Service) ListSweetsByCategory(ctx context.Context, category domain.SweetCategory) ([]domain.Sweet, error) {
	if !category.Valid() {
		return nil, domain.Validationf("invalid sweet category: %s", category)
	}
	return s.repo.ListByCategory(ctx, category)
}

func (s *Service) ListSweetsByBrand(ctx context.Context, brand string) ([]domain.Sweet, error) {
	return s.repo.ListByBrand(ctx, brand)
}

func (s *Service) ListSweetsByPriceRange(ctx context.Context, minPrice, maxPrice decimal.Decimal) ([]domain.Sweet, error) {
	if minPrice.IsNegative() || maxPrice.LessThan(minPrice) {
		return nil, domain.Validationf("invalid price range: %s - %s", minPrice, maxPrice)
	}
	return s.repo.ListByPriceRange(ctx, minPrice.String(), maxPrice.String())
}

func (s *Service) SearchSweets(ctx context.Context, term string) ([]domain.Sweet, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.repo.List(ctx)
	}
	return s.repo.Search(ctx, term)
}

func (s *Service) ListLowStockSweets(ctx context.Context) ([]domain.Sweet, error) {
	return s.repo.ListLowStock(ctx)
}

func (s *Service) ListOutOfStockSweets(ctx context.Context) ([]domain.Sweet, error) {
	return s.repo.ListOutOfStock(ctx)
}

func (s *Service) ListInStockSweets(ctx context.Context) ([]domain.Sweet, error) {
	return s.repo.ListInStock(ctx)
}

func (s *Service) UpdateSweet(ctx context.Context, id string, update SweetUpdate) (*domain.Sweet, error) {
	sweet, err := s.GetSweet(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, domain.Validationf("sweet name cannot be empty")
		}
		if name != sweet.Name {
			exists, err := s.repo.ExistsByName(ctx, name)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, domain.Conflictf("sweet with name '%s' already exists", name)
			}
		}
		sweet.Name = name
	}
	if update.Description != nil {
		sweet.Description = strings.TrimSpace(*update.Description)
	}
	if update.Category != nil {
		if !update.Category.Valid() {
			return nil, domain.Validationf("invalid sweet category: %s", *update.Category)
		}
		sweet.Category = *update.Category
	}
	if update.Price != nil {
		if !update.Price.IsPositive() {
			return nil, domain.Validationf("price must be greater than 0")
		}
		sweet.Price = *update.Price
	}
	if update.PricingType != nil {
		if !update.PricingType.Valid() {
			return nil, domain.Validationf("invalid pricing type: %s", *update.PricingType)
		}
		sweet.PricingType = *update.PricingType
	}
	if update.Quantity != nil {
		if *update.Quantity < 0 {
			return nil, domain.Validationf("quantity cannot be negative")
		}
		sweet.Quantity = *update.Quantity
	}
	if update.MinStockLevel != nil {
		if *update.MinStockLevel < 0 {
			return nil, domain.Validationf("minimum stock level cannot be negative")
		}
		sweet.MinStockLevel = *update.MinStockLevel
	}
	if update.ImageURL != nil {
		sweet.ImageURL = strings.TrimSpace(*update.ImageURL)
	}
	if update.IsAvailable != nil {
		sweet.IsAvailable = *update.IsAvailable
	}
	if update.Unit != nil {
		sweet.Unit = strings.TrimSpace(*update.Unit)
	}
	if update.Brand != nil {
		sweet.Brand = strings.TrimSpace(*update.Brand)
	}

	if err := s.repo.Update(ctx, sweet); err != nil {
		return nil, err
	}

	s.logger.Info("sweet updated", "sweet_id", sweet.ID, "name", sweet.Name)
	return sweet, nil
}

func (s *Service) DeleteSweet(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NotFound("sweet", id)
	}
	s.logger.Info("sweet deleted", "sweet_id", id)
	return nil
}

func (s *Service) SetStock(ctx context.Context, id string, quantity int) (*domain.Sweet, error) {
	if quantity < 0 {
		return nil, domain.Validationf("quantity cannot be negative")
	}
	updated, err := s.repo.SetStock(ctx, id, quantity)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.NotFound("sweet", id)
	}
	s.logger.Info("stock set", "sweet_id", id, "quantity", quantity)
	return s.GetSweet(ctx, id)
}

// ReduceStock decrements stock, failing without mutation when fewer than
// amount units remain.
func (s *Service) ReduceStock(ctx context.Context, id string, amount int) (*domain.Sweet, error) {
	if amount <= 0 {
		return nil, domain.Validationf("amount must be positive")
	}

	sweet, err := s.GetSweet(ctx, id)
	if err != nil {
		return nil, err
	}

	reduced, err := s.repo.ReduceStock(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	if !reduced {
		return nil, domain.Conflictf("insufficient stock for sweet '%s': available %d, requested %d",
			sweet.Name, sweet.Quantity, amount)
	}

	sweet, err = s.GetSweet(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock reduced", "sweet_id", id, "amount", amount, "remaining", sweet.Quantity)
	s.PublishLowStockAlert(ctx, sweet)
	return sweet, nil
}

func (s *Service) IncreaseStock(ctx context.Context, id string, amount int) (*domain.Sweet, error) {
	if amount <= 0 {
		return nil, domain.Validationf("amount must be positive")
	}

	increased, err := s.repo.IncreaseStock(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	if !increased {
		return nil, domain.NotFound("sweet", id)
	}

	s.logger.Info("stock increased", "sweet_id", id, "amount", amount)
	return s.GetSweet(ctx, id)
}

func (s *Service) ToggleAvailability(ctx context.Context, id string) (*domain.Sweet, error) {
	sweet, err := s.GetSweet(ctx, id)
	if err != nil {
		return nil, err
	}

	sweet.IsAvailable = !sweet.IsAvailable
	if err := s.repo.Update(ctx, sweet); err != nil {
		return nil, err
	}

	s.logger.Info("availability toggled", "sweet_id", id, "is_available", sweet.IsAvailable)
	return sweet, nil
}

// PublishLowStockAlert emits a stock.low event when the sweet sits at or
// below its reorder threshold. Best effort: a publish failure is logged,
// never surfaced to the caller.
func (s *Service) PublishLowStockAlert(ctx context.Context, sweet *domain.Sweet) {
	if s.producer == nil || !sweet.IsLowStock() {
		return
	}

	event := domain.StockLowEvent{
		SweetID:       sweet.ID,
		SweetName:     sweet.Name,
		Quantity:      sweet.Quantity,
		MinStockLevel: sweet.MinStockLevel,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, domain.TopicStockLow, sweet.ID, event); err != nil {
		s.logger.Error("failed to publish low stock event", "error", err, "sweet_id", sweet.ID)
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
