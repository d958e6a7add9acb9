package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BasketItem is one product line in a basket. The price, name and image are
// snapshots taken when the item was added; they are not recomputed when the
// catalog changes. A basket holds at most one item per product.
type BasketItem struct {
	ID        uint            `gorm:"primarykey" json:"-"`
	UserID    uint            `gorm:"index;uniqueIndex:idx_basket_items_user_product" json:"-"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_basket_items_user_product" json:"product_id"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`

	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"-"`
}

func (BasketItem) TableName() string {
	return "basket_items"
}

// Subtotal returns unit price times quantity for this line.
func (item *BasketItem) Subtotal() decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Basket is an ordered collection of line items, unique by product ID.
type Basket struct {
	Items []BasketItem `json:"items"`
}

// Total computes the basket total, rounded to 2 decimal places. It is pure:
// repeated calls on the same items yield the same value.
func (b *Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range b.Items {
		total = total.Add(b.Items[i].Subtotal())
	}
	return total.Round(2)
}

// Find returns the item for a product, or nil when absent.
func (b *Basket) Find(productID uint) *BasketItem {
	for i := range b.Items {
		if b.Items[i].ProductID == productID {
			return &b.Items[i]
		}
	}
	return nil
}

// MergeBaskets reconciles a guest basket into an authenticated base basket.
// The base items come first and keep their price/name/image snapshots; guest
// quantities are added per product and clamped to the product cap reported by
// capFor (0 = uncapped). Guest items for unseen products are appended in
// their original order, clamped the same way. Clamping never fails the merge.
// The result is independent of the guest item order.
func MergeBaskets(base, guest []BasketItem, capFor func(productID uint) int) []BasketItem {
	merged := make([]BasketItem, len(base))
	copy(merged, base)

	index := make(map[uint]int, len(merged))
	for i := range merged {
		index[merged[i].ProductID] = i
	}

	for _, guestItem := range guest {
		quantity := guestItem.Quantity
		if quantity < 1 {
			quantity = 1
		}

		quantityCap := 0
		if capFor != nil {
			quantityCap = capFor(guestItem.ProductID)
		}

		if i, ok := index[guestItem.ProductID]; ok {
			combined := merged[i].Quantity + quantity
			if quantityCap > 0 && combined > quantityCap {
				combined = quantityCap
			}
			merged[i].Quantity = combined
			continue
		}

		if quantityCap > 0 && quantity > quantityCap {
			quantity = quantityCap
		}
		appended := guestItem
		appended.ID = 0
		appended.UserID = 0
		appended.Quantity = quantity
		index[appended.ProductID] = len(merged)
		merged = append(merged, appended)
	}

	return merged
}
