package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategorySofa     ProductCategory = "sofa"
	CategoryTable    ProductCategory = "table"
	CategoryChair    ProductCategory = "chair"
	CategoryBed      ProductCategory = "bed"
	CategoryBookcase ProductCategory = "bookcase"
)

type Product struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Category    ProductCategory `gorm:"type:varchar(50)" json:"category"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `gorm:"default:0" json:"stock"`
	MaxQuantity int             `gorm:"default:0" json:"max_quantity"` // per-basket cap, <= 0 means uncapped
	RatingRate  float64         `json:"rating_rate"`
	RatingCount int             `json:"rating_count"`
	Color       string          `json:"color"`
	WoodType    string          `json:"wood_type"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Depth       int             `json:"depth"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	BasketItems []BasketItem `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// QuantityCap returns the per-basket cap for this product, or 0 when uncapped.
func (p *Product) QuantityCap() int {
	if p.MaxQuantity <= 0 {
		return 0
	}
	return p.MaxQuantity
}
