package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oakline/storefront-backend/internal/app/model"
	"github.com/oakline/storefront-backend/internal/app/service"
	apperrors "github.com/oakline/storefront-backend/internal/errors"
	"github.com/oakline/storefront-backend/internal/middleware"
)

type BasketController struct {
	basketService service.BasketService
}

func NewBasketController(basketService service.BasketService) *BasketController {
	return &BasketController{
		basketService: basketService,
	}
}

type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type SetQuantityRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type SyncRequest struct {
	Items []SyncItemRequest `json:"items" binding:"required"`
}

type SyncItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// basketIdentity resolves who owns the basket for this request: the
// authenticated user if a valid token was presented, otherwise the guest ID
// header. Requests with neither cannot address any basket.
func basketIdentity(c *gin.Context) (service.BasketIdentity, bool) {
	id := service.BasketIdentity{}
	if userID, ok := middleware.GetUserID(c); ok {
		id.UserID = userID
	}
	if guestID, ok := middleware.GetGuestID(c); ok {
		id.GuestID = guestID
	}
	if id.UserID == 0 && id.GuestID == "" {
		apperrors.BadRequest(c, apperrors.CodeBasketGuestIDMissing, "Provide a bearer token or an X-Guest-ID header")
		return id, false
	}
	return id, true
}

func basketJSON(basket *model.Basket) gin.H {
	return gin.H{
		"items": basket.Items,
		"count": len(basket.Items),
		"total": basket.Total(),
	}
}

func respondBasketError(c *gin.Context, err error) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.CodeProductNotFound, "Product not found")
	case errors.Is(err, service.ErrItemNotInBasket):
		apperrors.NotFound(c, apperrors.CodeBasketItemNotFound, "This product is not in your basket")
	case errors.Is(err, service.ErrOutOfStock):
		apperrors.Conflict(c, apperrors.CodeProductOutOfStock, "This product is out of stock")
	case errors.Is(err, service.ErrInsufficientStock):
		apperrors.Conflict(c, apperrors.CodeProductInsufficientStock, "Not enough stock for the requested quantity")
	case errors.Is(err, service.ErrQuantityCapExceeded):
		apperrors.Conflict(c, apperrors.CodeBasketQuantityCap, "Requested quantity exceeds the per-order limit for this product")
	case errors.Is(err, service.ErrPersistenceFailure):
		apperrors.ServiceUnavailable(c, apperrors.CodeBasketPersistenceFailed, "Your basket could not be saved. Please try again")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		apperrors.ServiceUnavailable(c, apperrors.CodeUpstreamUnavailable, "The basket service is temporarily unavailable")
	default:
		log.Error("Unhandled basket error", err, nil)
		apperrors.InternalError(c, "")
	}
}

// GetBasket returns the caller's basket
// GET /api/v1/basket
func (ctrl *BasketController) GetBasket(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := basketIdentity(c)
	if !ok {
		return
	}

	basket, err := ctrl.basketService.GetBasket(c.Request.Context(), id)
	if err != nil {
		log.Error("Failed to fetch basket", err, map[string]interface{}{
			"user_id":  id.UserID,
			"guest_id": id.GuestID,
		})
		respondBasketError(c, err)
		return
	}

	c.JSON(http.StatusOK, basketJSON(basket))
}

// AddItem adds a quantity of a product to the basket
// POST /api/v1/basket/items
func (ctrl *BasketController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := basketIdentity(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add item request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Provide a product_id and a quantity of at least 1")
		return
	}

	basket, err := ctrl.basketService.AddItem(c.Request.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		respondBasketError(c, err)
		return
	}

	c.JSON(http.StatusOK, basketJSON(basket))
}

// SetQuantity overwrites the quantity of a basket line. Quantity below 1
// removes the line.
// PUT /api/v1/basket/items
func (ctrl *BasketController) SetQuantity(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := basketIdentity(c)
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid set quantity request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Provide a product_id and a quantity")
		return
	}

	basket, err := ctrl.basketService.SetQuantity(c.Request.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		respondBasketError(c, err)
		return
	}

	c.JSON(http.StatusOK, basketJSON(basket))
}

// RemoveItem deletes one product line from the basket
// DELETE /api/v1/basket/items/:product_id
func (ctrl *BasketController) RemoveItem(c *gin.Context) {
	id, ok := basketIdentity(c)
	if !ok {
		return
	}

	productID, err := parseIDParam(c, "product_id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Invalid product ID")
		return
	}

	basket, err := ctrl.basketService.RemoveItem(c.Request.Context(), id, productID)
	if err != nil {
		respondBasketError(c, err)
		return
	}

	c.JSON(http.StatusOK, basketJSON(basket))
}

// ClearBasket empties the caller's basket
// DELETE /api/v1/basket
func (ctrl *BasketController) ClearBasket(c *gin.Context) {
	id, ok := basketIdentity(c)
	if !ok {
		return
	}

	if err := ctrl.basketService.Clear(c.Request.Context(), id); err != nil {
		respondBasketError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Basket cleared",
	})
}

// SyncBasket merges the guest basket submitted by a freshly signed-in client
// into the user's server basket. Requires authentication.
// POST /api/v1/basket/sync
func (ctrl *BasketController) SyncBasket(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid sync request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Provide an items array")
		return
	}

	guestID, _ := middleware.GetGuestID(c)

	items := make([]service.SyncItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.SyncItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	basket, err := ctrl.basketService.Sync(c.Request.Context(), userID, guestID, items)
	if err != nil {
		respondBasketError(c, err)
		return
	}

	c.JSON(http.StatusOK, basketJSON(basket))
}
