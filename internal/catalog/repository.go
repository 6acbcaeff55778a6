package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/storage"
)

const sweetColumns = `
	id, name, description, category, price, pricing_type, quantity,
	min_stock_level, image_url, is_available, unit, brand, created_at, updated_at`

// SweetRepository reads and writes the sweets table. It is constructed over
// storage.DBTX so the same queries run standalone or inside an order
// transaction.
type SweetRepository struct {
	db storage.DBTX
}

func NewSweetRepository(db storage.DBTX) *SweetRepository {
	return &SweetRepository{db: db}
}

func (r *SweetRepository) Create(ctx context.Context, sweet *domain.Sweet) error {
	sweet.ID = uuid.New().String()
	now := time.Now().UTC()
	sweet.CreatedAt = now
	sweet.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sweets (`+sweetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`, sweet.ID, sweet.Name, sweet.Description, sweet.Category, sweet.Price,
		sweet.PricingType, sweet.Quantity, sweet.MinStockLevel, sweet.ImageURL,
		sweet.IsAvailable, sweet.Unit, sweet.Brand, now)
	return err
}

func (r *SweetRepository) GetByID(ctx context.Context, id string) (*domain.Sweet, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE id = $1
	`, id)
	return scanSweet(row)
}

func (r *SweetRepository) GetByName(ctx context.Context, name string) (*domain.Sweet, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE name = $1
	`, name)
	return scanSweet(row)
}

func (r *SweetRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sweets WHERE name = $1)
	`, name).Scan(&exists)
	return exists, err
}

func (r *SweetRepository) List(ctx context.Context) ([]domain.Sweet, error) {
	return r.query(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		ORDER BY name
	`)
}

func (r *SweetRepository) ListAvailable(ctx context.Context) ([]domain.Sweet, error) {
	return r.query(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE is_available
		ORDER BY name
	`)
}

func (r *SweetRepository) ListByCategory(ctx context.Context, category domain.SweetCategory) ([]domain.Sweet, error) {
	return r.query(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE category = $1
		ORDER BY name
	`, category)
}

func (r *SweetRepository) ListByBrand(ctx context.Context, brand string) ([]domain.Sweet, error) {
	return r.query(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE LOWER(brand) = LOWER($1)
		ORDER BY name
	`, brand)
}

func (r *SweetRepository) ListByPriceRange(ctx context.Context, minPrice, maxPrice string) ([]domain.Sweet, error) {
	return r.query(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE price BETWEEN $1 AND $2
		ORDER BY price
	`, minPrice, maxPrice)
}

// Search matches name, description or brand case-insensitively.
func (r *SweetRepository) Search(ctx context.Context, term string) ([]domain.Sweet, error) {
	return r.query(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE name ILIKE '%' || $1 || '%'
		   OR description ILIKE '%' || $1 || '%'
		   OR brand ILIKE '%' || $1 || '%'
		ORDER BY name
	`, term)
}

func (r *SweetRepository) ListLowStock(ctx context.Context) ([]domain.Sweet, error) {
	return r.query(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE quantity <= min_stock_level
		ORDER BY quantity
	`)
}

func (r *SweetRepository) ListOutOfStock(ctx context.Context) ([]domain.Sweet, error) {
	return r.query(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE quantity = 0
		ORDER BY name
	`)
}

func (r *SweetRepository) ListInStock(ctx context.Context) ([]domain.Sweet, error) {
	return r.query(ctx, `
		SELECT `+sweetColumns+`
		FROM sweets
		WHERE quantity > 0
		ORDER BY name
	`)
}

func (r *SweetRepository) Update(ctx context.Context, sweet *domain.Sweet) error {
	sweet.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE sweets
		SET name = $2, description = $3, category = $4, price = $5,
		    pricing_type = $6, quantity = $7, min_stock_level = $8,
		    image_url = $9, is_available = $10, unit = $11, brand = $12,
		    updated_at = $13
		WHERE id = $1
	`, sweet.ID, sweet.Name, sweet.Description, sweet.Category, sweet.Price,
		sweet.PricingType, sweet.Quantity, sweet.MinStockLevel, sweet.ImageURL,
		sweet.IsAvailable, sweet.Unit, sweet.Brand, sweet.UpdatedAt)
	return err
}

func (r *SweetRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sweets WHERE id = $1
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

// ReduceStock decrements quantity only when enough stock remains. The
// conditional UPDATE serializes concurrent decrements on the row, so two
// orders racing for the last units cannot both win.
func (r *SweetRepository) ReduceStock(ctx context.Context, id string, amount int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sweets
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
	`, id, amount)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *SweetRepository) IncreaseStock(ctx context.Context, id string, amount int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sweets
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1
	`, id, amount)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// SetStock overwrites quantity. Admin correction path only; order flows go
// through ReduceStock/IncreaseStock.
func (r *SweetRepository) SetStock(ctx context.Context, id string, quantity int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sweets
		SET quantity = $2, updated_at = NOW()
		WHERE id = $1
	`, id, quantity)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *SweetRepository) query(ctx context.Context, query string, args ...any) ([]domain.Sweet, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sweets := []domain.Sweet{}
	for rows.Next() {
		var s domain.Sweet
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Category,
			&s.Price, &s.PricingType, &s.Quantity, &s.MinStockLevel,
			&s.ImageURL, &s.IsAvailable, &s.Unit, &s.Brand,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sweets = append(sweets, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sweets, nil
}

func scanSweet(row *sql.Row) (*domain.Sweet, error) {
	var s domain.Sweet
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Category,
		&s.Price, &s.PricingType, &s.Quantity, &s.MinStockLevel,
		&s.ImageURL, &s.IsAvailable, &s.Unit, &s.Brand,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
