package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oakline/storefront-backend/internal/app/model"
	"github.com/oakline/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const guestBasketKeyPrefix = "guest_basket:"

// GuestBasketRepository round-trips anonymous baskets through Redis, keyed by
// the client-held guest ID. An absent key is an empty basket, never an error;
// clearing removes the key rather than storing an empty array.
type GuestBasketRepository interface {
	Get(ctx context.Context, guestID string) ([]model.BasketItem, error)
	Save(ctx context.Context, guestID string, items []model.BasketItem) error
	Delete(ctx context.Context, guestID string) error
}

type guestBasketRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuestBasketRepository(client *redis.Client, ttl time.Duration) GuestBasketRepository {
	return &guestBasketRepository{client: client, ttl: ttl}
}

func guestBasketKey(guestID string) string {
	return guestBasketKeyPrefix + guestID
}

func (r *guestBasketRepository) Get(ctx context.Context, guestID string) ([]model.BasketItem, error) {
	logger.Debug("Fetching guest basket from store", map[string]interface{}{
		"guest_id": guestID,
	})

	raw, err := r.client.Get(ctx, guestBasketKey(guestID)).Result()
	if err == redis.Nil {
		return []model.BasketItem{}, nil
	}
	if err != nil {
		logger.Error("Failed to fetch guest basket from store", err, map[string]interface{}{
			"guest_id": guestID,
		})
		return nil, err
	}

	var items []model.BasketItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Error("Failed to decode guest basket", err, map[string]interface{}{
			"guest_id": guestID,
		})
		return nil, fmt.Errorf("corrupt guest basket record: %w", err)
	}

	logger.Debug("Guest basket fetched from store", map[string]interface{}{
		"guest_id": guestID,
		"count":    len(items),
	})
	return items, nil
}

func (r *guestBasketRepository) Save(ctx context.Context, guestID string, items []model.BasketItem) error {
	logger.Debug("Saving guest basket to store", map[string]interface{}{
		"guest_id": guestID,
		"count":    len(items),
	})

	// An empty basket and a missing record are equivalent; keep the store
	// clean instead of persisting empty arrays.
	if len(items) == 0 {
		return r.Delete(ctx, guestID)
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode guest basket: %w", err)
	}

	if err := r.client.Set(ctx, guestBasketKey(guestID), raw, r.ttl).Err(); err != nil {
		logger.Error("Failed to save guest basket to store", err, map[string]interface{}{
			"guest_id": guestID,
		})
		return err
	}

	return nil
}

func (r *guestBasketRepository) Delete(ctx context.Context, guestID string) error {
	logger.Debug("Deleting guest basket from store", map[string]interface{}{
		"guest_id": guestID,
	})

	if err := r.client.Del(ctx, guestBasketKey(guestID)).Err(); err != nil {
		logger.Error("Failed to delete guest basket from store", err, map[string]interface{}{
			"guest_id": guestID,
		})
		return err
	}

	return nil
}
