package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SweetCategory string

const (
	CategoryMilkBased       SweetCategory = "MILK_BASED"
	CategoryDryFruit        SweetCategory = "DRY_FRUIT"
	CategorySyrupBased      SweetCategory = "SYRUP_BASED"
	CategoryFlourBased      SweetCategory = "FLOUR_BASED"
	CategoryGrainBased      SweetCategory = "GRAIN_BASED"
	CategoryCoconutBased    SweetCategory = "COCONUT_BASED"
	CategoryFestivalSpecial SweetCategory = "FESTIVAL_SPECIAL"
	CategoryBengali         SweetCategory = "BENGALI"
	CategorySouthIndian     SweetCategory = "SOUTH_INDIAN"
	CategorySugarFree       SweetCategory = "SUGAR_FREE"
	CategoryOther           SweetCategory = "OTHER"
)

func (c SweetCategory) Valid() bool {
	switch c {
	case CategoryMilkBased, CategoryDryFruit, CategorySyrupBased,
		CategoryFlourBased, CategoryGrainBased, CategoryCoconutBased,
		CategoryFestivalSpecial, CategoryBengali, CategorySouthIndian,
		CategorySugarFree, CategoryOther:
		return true
	}
	return false
}

type PricingType string

const (
	PricePerItem PricingType = "PER_ITEM"
	PricePerKg   PricingType = "PER_KG"
)

func (p PricingType) Valid() bool {
	return p == PricePerItem || p == PricePerKg
}

// DefaultMinStockLevel is applied when a sweet is created without an
// explicit reorder threshold.
const DefaultMinStockLevel = 10

// Sweet is a catalog item. Quantity is only ever mutated through the
// catalog repository's stock operations, never overwritten directly,
// except by the explicit admin stock-set.
type Sweet struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Category      SweetCategory   `json:"category"`
	Price         decimal.Decimal `json:"price"`
	PricingType   PricingType     `json:"pricing_type"`
	Quantity      int             `json:"quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	ImageURL      string          `json:"image_url,omitempty"`
	IsAvailable   bool            `json:"is_available"`
	Unit          string          `json:"unit,omitempty"`
	Brand         string          `json:"brand,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (s *Sweet) IsInStock() bool {
	return s.Quantity > 0
}

func (s *Sweet) IsLowStock() bool {
	return s.Quantity <= s.MinStockLevel
}
