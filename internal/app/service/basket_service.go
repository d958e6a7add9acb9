package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/oakline/storefront-backend/internal/app/model"
	"github.com/oakline/storefront-backend/internal/app/repository"
	"github.com/oakline/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrItemNotInBasket     = errors.New("item not in basket")
	ErrOutOfStock          = errors.New("product out of stock")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrQuantityCapExceeded = errors.New("quantity exceeds per-basket cap")
	ErrPersistenceFailure  = errors.New("basket write did not complete")
	ErrUpstreamUnavailable = errors.New("basket store unavailable")
)

// BasketIdentity names the owner of a basket: an authenticated user ID, a
// guest ID, or both when a logged-in client still carries its guest ID.
type BasketIdentity struct {
	UserID  uint
	GuestID string
}

func (id BasketIdentity) Authenticated() bool {
	return id.UserID != 0
}

// SyncItem is one guest line submitted for reconciliation. Snapshots are
// refreshed from the catalog server-side; clients only send id and quantity.
type SyncItem struct {
	ProductID uint
	Quantity  int
}

type BasketService interface {
	GetBasket(ctx context.Context, id BasketIdentity) (*model.Basket, error)
	AddItem(ctx context.Context, id BasketIdentity, productID uint, quantity int) (*model.Basket, error)
	SetQuantity(ctx context.Context, id BasketIdentity, productID uint, quantity int) (*model.Basket, error)
	RemoveItem(ctx context.Context, id BasketIdentity, productID uint) (*model.Basket, error)
	Clear(ctx context.Context, id BasketIdentity) error
	Sync(ctx context.Context, userID uint, guestID string, items []SyncItem) (*model.Basket, error)
}

type basketService struct {
	basketRepo  repository.BasketRepository
	guestRepo   repository.GuestBasketRepository
	productRepo repository.ProductRepository
}

func NewBasketService(
	basketRepo repository.BasketRepository,
	guestRepo repository.GuestBasketRepository,
	productRepo repository.ProductRepository,
) BasketService {
	return &basketService{
		basketRepo:  basketRepo,
		guestRepo:   guestRepo,
		productRepo: productRepo,
	}
}

func (s *basketService) GetBasket(ctx context.Context, id BasketIdentity) (*model.Basket, error) {
	logger.Debug("Fetching basket", map[string]interface{}{
		"user_id":  id.UserID,
		"guest_id": id.GuestID,
	})

	if id.Authenticated() {
		items, err := s.basketRepo.FindByUserID(id.UserID)
		if err == nil {
			return &model.Basket{Items: items}, nil
		}

		// Read path degrades to the guest basket rather than failing the
		// whole request when the server record is unreachable.
		if id.GuestID != "" {
			logger.Warn("Server basket unreachable, falling back to guest basket", map[string]interface{}{
				"user_id":  id.UserID,
				"guest_id": id.GuestID,
				"error":    err.Error(),
			})
			if items, guestErr := s.guestRepo.Get(ctx, id.GuestID); guestErr == nil {
				return &model.Basket{Items: items}, nil
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	items, err := s.guestRepo.Get(ctx, id.GuestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return &model.Basket{Items: items}, nil
}

// AddItem adds quantity of a product to the identity's basket. Adding is
// additive: repeating the same call doubles the quantity. Validation rejects
// before anything is written, so a failed add leaves the basket untouched.
func (s *basketService) AddItem(ctx context.Context, id BasketIdentity, productID uint, quantity int) (*model.Basket, error) {
	logger.Info("Adding item to basket", map[string]interface{}{
		"user_id":    id.UserID,
		"guest_id":   id.GuestID,
		"product_id": productID,
		"quantity":   quantity,
	})

	product, err := s.lookupProduct(productID)
	if err != nil {
		return nil, err
	}

	if id.Authenticated() {
		return s.addItemUser(id, product, quantity)
	}
	return s.addItemGuest(ctx, id.GuestID, product, quantity)
}

func (s *basketService) addItemUser(id BasketIdentity, product *model.Product, quantity int) (*model.Basket, error) {
	existing, err := s.basketRepo.FindByUserAndProduct(id.UserID, product.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	current := 0
	if existing != nil {
		current = existing.Quantity
	}
	if err := validateQuantity(product, current+quantity); err != nil {
		logger.Warn("Cannot add to basket", map[string]interface{}{
			"user_id":    id.UserID,
			"product_id": product.ID,
			"requested":  current + quantity,
			"error":      err.Error(),
		})
		return nil, err
	}

	if existing != nil {
		existing.Quantity += quantity
		if err := s.basketRepo.Update(existing); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
	} else {
		item := newBasketItem(product, quantity)
		item.UserID = id.UserID
		if err := s.basketRepo.Create(&item); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
	}

	items, err := s.basketRepo.FindByUserID(id.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	logger.Info("Item added to basket", map[string]interface{}{
		"user_id":    id.UserID,
		"product_id": product.ID,
	})
	return &model.Basket{Items: items}, nil
}

func (s *basketService) addItemGuest(ctx context.Context, guestID string, product *model.Product, quantity int) (*model.Basket, error) {
	items, err := s.guestRepo.Get(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	basket := model.Basket{Items: items}
	current := 0
	if existing := basket.Find(product.ID); existing != nil {
		current = existing.Quantity
	}
	if err := validateQuantity(product, current+quantity); err != nil {
		logger.Warn("Cannot add to guest basket", map[string]interface{}{
			"guest_id":   guestID,
			"product_id": product.ID,
			"requested":  current + quantity,
			"error":      err.Error(),
		})
		return nil, err
	}

	if existing := basket.Find(product.ID); existing != nil {
		existing.Quantity += quantity
	} else {
		basket.Items = append(basket.Items, newBasketItem(product, quantity))
	}

	if err := s.guestRepo.Save(ctx, guestID, basket.Items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	logger.Info("Item added to guest basket", map[string]interface{}{
		"guest_id":   guestID,
		"product_id": product.ID,
	})
	return &basket, nil
}

// SetQuantity overwrites the quantity of an existing line. A quantity below 1
// removes the line instead of storing a non-positive count.
func (s *basketService) SetQuantity(ctx context.Context, id BasketIdentity, productID uint, quantity int) (*model.Basket, error) {
	logger.Info("Setting basket item quantity", map[string]interface{}{
		"user_id":    id.UserID,
		"guest_id":   id.GuestID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return s.RemoveItem(ctx, id, productID)
	}

	product, err := s.lookupProduct(productID)
	if err != nil {
		return nil, err
	}
	if err := validateQuantity(product, quantity); err != nil {
		logger.Warn("Cannot set basket quantity", map[string]interface{}{
			"user_id":    id.UserID,
			"guest_id":   id.GuestID,
			"product_id": productID,
			"requested":  quantity,
			"error":      err.Error(),
		})
		return nil, err
	}

	if id.Authenticated() {
		existing, err := s.basketRepo.FindByUserAndProduct(id.UserID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrItemNotInBasket
			}
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}

		existing.Quantity = quantity
		if err := s.basketRepo.Update(existing); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}

		items, err := s.basketRepo.FindByUserID(id.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		return &model.Basket{Items: items}, nil
	}

	items, err := s.guestRepo.Get(ctx, id.GuestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	basket := model.Basket{Items: items}
	item := basket.Find(productID)
	if item == nil {
		return nil, ErrItemNotInBasket
	}
	item.Quantity = quantity

	if err := s.guestRepo.Save(ctx, id.GuestID, basket.Items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return &basket, nil
}

// RemoveItem deletes the line for a product. Removing an absent product is a
// success no-op, not an error.
func (s *basketService) RemoveItem(ctx context.Context, id BasketIdentity, productID uint) (*model.Basket, error) {
	logger.Info("Removing basket item", map[string]interface{}{
		"user_id":    id.UserID,
		"guest_id":   id.GuestID,
		"product_id": productID,
	})

	if id.Authenticated() {
		if err := s.basketRepo.DeleteByUserAndProduct(id.UserID, productID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
		items, err := s.basketRepo.FindByUserID(id.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		return &model.Basket{Items: items}, nil
	}

	items, err := s.guestRepo.Get(ctx, id.GuestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	kept := items[:0]
	for _, item := range items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}

	if err := s.guestRepo.Save(ctx, id.GuestID, kept); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return &model.Basket{Items: kept}, nil
}

func (s *basketService) Clear(ctx context.Context, id BasketIdentity) error {
	logger.Info("Clearing basket", map[string]interface{}{
		"user_id":  id.UserID,
		"guest_id": id.GuestID,
	})

	if id.Authenticated() {
		if err := s.basketRepo.DeleteByUserID(id.UserID); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
		return nil
	}

	if err := s.guestRepo.Delete(ctx, id.GuestID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return nil
}

// Sync reconciles guest items into the user's server basket. The server
// record is the base: guest quantities add onto it, clamped to each
// product's cap, and the server's price snapshots win on conflict. Guest
// lines for unknown products are skipped, never fatal. The guest copy is
// deleted only after the transactional replace commits; if the write fails
// the guest copy survives so the caller can retry without losing items.
func (s *basketService) Sync(ctx context.Context, userID uint, guestID string, syncItems []SyncItem) (*model.Basket, error) {
	logger.Info("Syncing guest basket into user basket", map[string]interface{}{
		"user_id":  userID,
		"guest_id": guestID,
		"count":    len(syncItems),
	})

	base, err := s.basketRepo.FindByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	guestItems := make([]model.BasketItem, 0, len(syncItems))
	caps := make(map[uint]int, len(syncItems))
	for _, syncItem := range syncItems {
		product, err := s.lookupProduct(syncItem.ProductID)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				logger.Warn("Skipping unknown product during basket sync", map[string]interface{}{
					"user_id":    userID,
					"product_id": syncItem.ProductID,
				})
				continue
			}
			return nil, err
		}
		caps[product.ID] = product.QuantityCap()
		guestItems = append(guestItems, newBasketItem(product, syncItem.Quantity))
	}

	merged := model.MergeBaskets(base, guestItems, func(productID uint) int {
		return caps[productID]
	})

	if err := s.basketRepo.ReplaceForUser(userID, merged); err != nil {
		logger.Error("Basket sync write failed, guest basket retained", err, map[string]interface{}{
			"user_id":  userID,
			"guest_id": guestID,
		})
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	// The merge is durably accepted; only now is it safe to drop the guest
	// copy. A failed delete is logged but does not fail the sync.
	if guestID != "" {
		if err := s.guestRepo.Delete(ctx, guestID); err != nil {
			logger.Error("Failed to clear guest basket after sync", err, map[string]interface{}{
				"guest_id": guestID,
			})
		}
	}

	items, err := s.basketRepo.FindByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	logger.Info("Guest basket synced successfully", map[string]interface{}{
		"user_id": userID,
		"count":   len(items),
	})
	return &model.Basket{Items: items}, nil
}

func (s *basketService) lookupProduct(productID uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return product, nil
}

// validateQuantity enforces stock and the per-basket cap for the total
// quantity a single basket would hold after the operation.
func validateQuantity(product *model.Product, total int) error {
	if product.Stock == 0 {
		return ErrOutOfStock
	}
	if product.Stock < total {
		return ErrInsufficientStock
	}
	if quantityCap := product.QuantityCap(); quantityCap > 0 && total > quantityCap {
		return ErrQuantityCapExceeded
	}
	return nil
}

func newBasketItem(product *model.Product, quantity int) model.BasketItem {
	if quantity < 1 {
		quantity = 1
	}
	return model.BasketItem{
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: product.Price,
		Name:      product.Name,
		ImageURL:  product.ImageURL,
	}
}
