package repository

import (
	"github.com/oakline/storefront-backend/internal/app/model"
	"github.com/oakline/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// BasketRepository persists the server-side basket of authenticated users,
// one row per (user, product), ordered by insertion.
type BasketRepository interface {
	FindByUserID(userID uint) ([]model.BasketItem, error)
	FindByUserAndProduct(userID, productID uint) (*model.BasketItem, error)
	Create(item *model.BasketItem) error
	Update(item *model.BasketItem) error
	DeleteByUserAndProduct(userID, productID uint) error
	DeleteByUserID(userID uint) error
	ReplaceForUser(userID uint, items []model.BasketItem) error
}

type basketRepository struct {
	db *gorm.DB
}

func NewBasketRepository(db *gorm.DB) BasketRepository {
	return &basketRepository{db: db}
}

func (r *basketRepository) FindByUserID(userID uint) ([]model.BasketItem, error) {
	logger.Debug("Finding basket items by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var items []model.BasketItem
	err := r.db.Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		logger.Error("Failed to find basket items by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Basket items found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(items),
	})
	return items, nil
}

func (r *basketRepository) FindByUserAndProduct(userID, productID uint) (*model.BasketItem, error) {
	logger.Debug("Finding basket item by user and product in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	var item model.BasketItem
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find basket item by user and product in database", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
		}
		return nil, err
	}

	return &item, nil
}

func (r *basketRepository) Create(item *model.BasketItem) error {
	logger.Debug("Creating basket item in database", map[string]interface{}{
		"user_id":    item.UserID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})

	if err := r.db.Create(item).Error; err != nil {
		logger.Error("Failed to create basket item in database", err, map[string]interface{}{
			"user_id":    item.UserID,
			"product_id": item.ProductID,
		})
		return err
	}

	logger.Debug("Basket item created in database", map[string]interface{}{
		"basket_item_id": item.ID,
		"user_id":        item.UserID,
		"product_id":     item.ProductID,
	})
	return nil
}

func (r *basketRepository) Update(item *model.BasketItem) error {
	logger.Debug("Updating basket item in database", map[string]interface{}{
		"basket_item_id": item.ID,
		"user_id":        item.UserID,
		"product_id":     item.ProductID,
		"quantity":       item.Quantity,
	})

	if err := r.db.Save(item).Error; err != nil {
		logger.Error("Failed to update basket item in database", err, map[string]interface{}{
			"basket_item_id": item.ID,
			"user_id":        item.UserID,
		})
		return err
	}

	return nil
}

func (r *basketRepository) DeleteByUserAndProduct(userID, productID uint) error {
	logger.Debug("Deleting basket item from database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.BasketItem{}).Error
	if err != nil {
		logger.Error("Failed to delete basket item from database", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return err
	}

	return nil
}

func (r *basketRepository) DeleteByUserID(userID uint) error {
	logger.Debug("Deleting basket items by user ID from database", map[string]interface{}{
		"user_id": userID,
	})

	if err := r.db.Where("user_id = ?", userID).Delete(&model.BasketItem{}).Error; err != nil {
		logger.Error("Failed to delete basket items by user ID from database", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	return nil
}

// ReplaceForUser swaps the user's basket rows for the given items in one
// transaction. Either every row lands or none do.
func (r *basketRepository) ReplaceForUser(userID uint, items []model.BasketItem) error {
	logger.Debug("Replacing basket items for user in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(items),
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.BasketItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			item := items[i]
			item.ID = 0
			item.UserID = userID
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to replace basket items for user in database", err, map[string]interface{}{
			"user_id": userID,
			"count":   len(items),
		})
		return err
	}

	logger.Debug("Basket items replaced for user in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(items),
	})
	return nil
}
