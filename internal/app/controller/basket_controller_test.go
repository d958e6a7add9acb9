package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/oakline/storefront-backend/internal/app/model"
	"github.com/oakline/storefront-backend/internal/app/repository"
	"github.com/oakline/storefront-backend/internal/app/service"
	"github.com/oakline/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGuestBasketRepository keeps guest baskets in a map so controller tests
// run without Redis.
type fakeGuestBasketRepository struct {
	baskets map[string][]model.BasketItem
}

func newFakeGuestBasketRepository() *fakeGuestBasketRepository {
	return &fakeGuestBasketRepository{baskets: make(map[string][]model.BasketItem)}
}

func (r *fakeGuestBasketRepository) Get(ctx context.Context, guestID string) ([]model.BasketItem, error) {
	items := r.baskets[guestID]
	out := make([]model.BasketItem, len(items))
	copy(out, items)
	return out, nil
}

func (r *fakeGuestBasketRepository) Save(ctx context.Context, guestID string, items []model.BasketItem) error {
	if len(items) == 0 {
		delete(r.baskets, guestID)
		return nil
	}
	stored := make([]model.BasketItem, len(items))
	copy(stored, items)
	r.baskets[guestID] = stored
	return nil
}

func (r *fakeGuestBasketRepository) Delete(ctx context.Context, guestID string) error {
	delete(r.baskets, guestID)
	return nil
}

func setupBasketControllerTest(t *testing.T) (*BasketController, *gin.Engine, *gorm.DB, *model.User, *model.Product, *fakeGuestBasketRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	basketRepo := repository.NewBasketRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	guestRepo := newFakeGuestBasketRepository()
	basketService := service.NewBasketService(basketRepo, guestRepo, productRepo)
	basketController := NewBasketController(basketService)

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hash",
		Name:         "Test",
		Surname:      "User",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	product := &model.Product{
		Name:        "Oak Dining Table",
		Price:       decimal.RequireFromString("450.00"),
		Category:    model.CategoryTable,
		Stock:       10,
		MaxQuantity: 5,
	}
	testDB.Create(product)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return basketController, router, testDB, user, product, guestRepo
}

func asUser(userID uint, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		handler(c)
	}
}

func asGuest(guestID string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("guest_id", guestID)
		handler(c)
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	return response
}

func assertTotal(t *testing.T, response map[string]interface{}, expected string) {
	raw, ok := response["total"].(string)
	require.True(t, ok, "total should be a decimal string")
	total, err := decimal.NewFromString(raw)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString(expected)),
		"expected total %s, got %s", expected, raw)
}

func TestBasketController_GetBasket_User(t *testing.T) {
	controller, router, testDB, user, product, _ := setupBasketControllerTest(t)

	basketRepo := repository.NewBasketRepository(testDB)
	basketRepo.Create(&model.BasketItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Quantity:  2,
		UnitPrice: product.Price,
		Name:      product.Name,
	})

	router.GET("/basket", asUser(user.ID, controller.GetBasket))

	req := httptest.NewRequest(http.MethodGet, "/basket", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, float64(1), response["count"])
	assertTotal(t, response, "900.00")
}

func TestBasketController_GetBasket_Guest(t *testing.T) {
	controller, router, _, _, product, guestRepo := setupBasketControllerTest(t)

	guestRepo.baskets["11111111-1111-1111-1111-111111111111"] = []model.BasketItem{
		{ProductID: product.ID, Quantity: 1, UnitPrice: product.Price, Name: product.Name},
	}

	router.GET("/basket", asGuest("11111111-1111-1111-1111-111111111111", controller.GetBasket))

	req := httptest.NewRequest(http.MethodGet, "/basket", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, float64(1), response["count"])
	assertTotal(t, response, "450.00")
}

func TestBasketController_GetBasket_NoIdentity(t *testing.T) {
	controller, router, _, _, _, _ := setupBasketControllerTest(t)

	router.GET("/basket", controller.GetBasket)

	req := httptest.NewRequest(http.MethodGet, "/basket", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "BASKET_GUEST_ID_MISSING", response["error"])
}

func TestBasketController_AddItem_Success(t *testing.T) {
	controller, router, _, user, product, _ := setupBasketControllerTest(t)

	router.POST("/basket/items", asUser(user.ID, controller.AddItem))

	body, _ := json.Marshal(AddItemRequest{ProductID: product.ID, Quantity: 2})
	req := httptest.NewRequest(http.MethodPost, "/basket/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, float64(1), response["count"])
	assertTotal(t, response, "900.00")
}

func TestBasketController_AddItem_ProductNotFound(t *testing.T) {
	controller, router, _, user, _, _ := setupBasketControllerTest(t)

	router.POST("/basket/items", asUser(user.ID, controller.AddItem))

	body, _ := json.Marshal(AddItemRequest{ProductID: 9999, Quantity: 1})
	req := httptest.NewRequest(http.MethodPost, "/basket/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "PRODUCT_NOT_FOUND", response["error"])
}

func TestBasketController_AddItem_QuantityCap(t *testing.T) {
	controller, router, _, user, product, _ := setupBasketControllerTest(t)

	router.POST("/basket/items", asUser(user.ID, controller.AddItem))

	body, _ := json.Marshal(AddItemRequest{ProductID: product.ID, Quantity: 6})
	req := httptest.NewRequest(http.MethodPost, "/basket/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "BASKET_QUANTITY_CAP", response["error"])
}

func TestBasketController_AddItem_OutOfStock(t *testing.T) {
	controller, router, testDB, user, _, _ := setupBasketControllerTest(t)

	depleted := &model.Product{
		Name:     "Sold Out Chair",
		Price:    decimal.RequireFromString("99.00"),
		Category: model.CategoryChair,
		Stock:    0,
	}
	testDB.Create(depleted)

	router.POST("/basket/items", asUser(user.ID, controller.AddItem))

	body, _ := json.Marshal(AddItemRequest{ProductID: depleted.ID, Quantity: 1})
	req := httptest.NewRequest(http.MethodPost, "/basket/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "PRODUCT_OUT_OF_STOCK", response["error"])
}

func TestBasketController_AddItem_InvalidBody(t *testing.T) {
	controller, router, _, user, _, _ := setupBasketControllerTest(t)

	router.POST("/basket/items", asUser(user.ID, controller.AddItem))

	req := httptest.NewRequest(http.MethodPost, "/basket/items", bytes.NewReader([]byte(`{"quantity":0}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBasketController_SetQuantity_AbsentItem(t *testing.T) {
	controller, router, _, user, product, _ := setupBasketControllerTest(t)

	router.PUT("/basket/items", asUser(user.ID, controller.SetQuantity))

	body, _ := json.Marshal(SetQuantityRequest{ProductID: product.ID, Quantity: 3})
	req := httptest.NewRequest(http.MethodPut, "/basket/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "BASKET_ITEM_NOT_FOUND", response["error"])
}

func TestBasketController_RemoveItem(t *testing.T) {
	controller, router, testDB, user, product, _ := setupBasketControllerTest(t)

	basketRepo := repository.NewBasketRepository(testDB)
	basketRepo.Create(&model.BasketItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Quantity:  2,
		UnitPrice: product.Price,
	})

	router.DELETE("/basket/items/:product_id", asUser(user.ID, controller.RemoveItem))

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/basket/items/%d", product.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, float64(0), response["count"])
}

func TestBasketController_ClearBasket(t *testing.T) {
	controller, router, testDB, user, product, _ := setupBasketControllerTest(t)

	basketRepo := repository.NewBasketRepository(testDB)
	basketRepo.Create(&model.BasketItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Quantity:  2,
		UnitPrice: product.Price,
	})

	router.DELETE("/basket", asUser(user.ID, controller.ClearBasket))

	req := httptest.NewRequest(http.MethodDelete, "/basket", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	items, err := basketRepo.FindByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 0)
}

func TestBasketController_Sync_Success(t *testing.T) {
	controller, router, _, user, product, guestRepo := setupBasketControllerTest(t)

	guestID := "22222222-2222-2222-2222-222222222222"
	guestRepo.baskets[guestID] = []model.BasketItem{
		{ProductID: product.ID, Quantity: 2},
	}

	router.POST("/basket/sync", func(c *gin.Context) {
		c.Set("user_id", user.ID)
		c.Set("guest_id", guestID)
		controller.SyncBasket(c)
	})

	body, _ := json.Marshal(SyncRequest{Items: []SyncItemRequest{
		{ProductID: product.ID, Quantity: 2},
	}})
	req := httptest.NewRequest(http.MethodPost, "/basket/sync", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, float64(1), response["count"])
	assertTotal(t, response, "900.00")

	// Guest copy cleared after the merge landed
	stored, _ := guestRepo.Get(context.Background(), guestID)
	assert.Len(t, stored, 0)
}

func TestBasketController_Sync_RequiresAuth(t *testing.T) {
	controller, router, _, _, product, _ := setupBasketControllerTest(t)

	router.POST("/basket/sync", controller.SyncBasket)

	body, _ := json.Marshal(SyncRequest{Items: []SyncItemRequest{
		{ProductID: product.ID, Quantity: 1},
	}})
	req := httptest.NewRequest(http.MethodPost, "/basket/sync", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
