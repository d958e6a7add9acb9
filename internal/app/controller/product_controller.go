package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oakline/storefront-backend/internal/app/model"
	"github.com/oakline/storefront-backend/internal/app/repository"
	"github.com/oakline/storefront-backend/internal/app/service"
	apperrors "github.com/oakline/storefront-backend/internal/errors"
	"github.com/oakline/storefront-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `json:"stock" binding:"min=0"`
	MaxQuantity int             `json:"max_quantity"`
	Color       string          `json:"color"`
	WoodType    string          `json:"wood_type"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Depth       int             `json:"depth"`
}

type UpdateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `json:"stock" binding:"min=0"`
	MaxQuantity int             `json:"max_quantity"`
	Color       string          `json:"color"`
	WoodType    string          `json:"wood_type"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Depth       int             `json:"depth"`
}

// GetProducts lists catalog products with optional filters
// GET /api/v1/products?category=&search=&sort=&order=&limit=&offset=
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := repository.ProductFilter{
		Search: c.Query("search"),
	}

	if category := c.Query("category"); category != "" {
		cat := model.ProductCategory(category)
		filter.Category = &cat
	}

	switch c.Query("sort") {
	case "price":
		filter.SortBy = repository.ProductSortPrice
	case "rating":
		filter.SortBy = repository.ProductSortRating
	case "", "newest":
		filter.SortBy = repository.ProductSortCreatedAt
	default:
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Unknown sort field")
		return
	}
	filter.SortAscending = c.Query("order") == "asc"

	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Invalid limit")
			return
		}
		filter.Limit = n
	}
	if offset := c.Query("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Invalid offset")
			return
		}
		filter.Offset = n
	}

	products, err := ctrl.productService.GetProducts(filter)
	if err != nil {
		log.Error("Failed to list products", err, nil)
		info := apperrors.ParseError(err, "list products")
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		return
	}

	log.Debug("Products listed", map[string]interface{}{
		"count": len(products),
	})

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProduct returns a single product by ID
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Invalid product ID")
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			log.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			apperrors.NotFound(c, apperrors.CodeProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to get product", err, map[string]interface{}{
			"product_id": id,
		})
		info := apperrors.ParseError(err, "get product")
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CreateProduct adds a product to the catalog (admin)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create product request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Invalid product data")
		return
	}

	product := model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    model.ProductCategory(req.Category),
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		MaxQuantity: req.MaxQuantity,
		Color:       req.Color,
		WoodType:    req.WoodType,
		Width:       req.Width,
		Height:      req.Height,
		Depth:       req.Depth,
	}

	if err := ctrl.productService.CreateProduct(&product); err != nil {
		log.Error("Failed to create product", err, map[string]interface{}{
			"name": req.Name,
		})
		info := apperrors.ParseError(err, "create product")
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		return
	}

	log.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct replaces a product's editable fields (admin)
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update product request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Invalid product data")
		return
	}

	product := model.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    model.ProductCategory(req.Category),
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		MaxQuantity: req.MaxQuantity,
		Color:       req.Color,
		WoodType:    req.WoodType,
		Width:       req.Width,
		Height:      req.Height,
		Depth:       req.Depth,
	}

	if err := ctrl.productService.UpdateProduct(&product); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			log.Warn("Product not found for update", map[string]interface{}{
				"product_id": id,
			})
			apperrors.NotFound(c, apperrors.CodeProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		info := apperrors.ParseError(err, "update product")
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		return
	}

	log.Info("Product updated", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct removes a product from the catalog (admin)
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.CodeValidationFailed, "Invalid product ID")
		return
	}

	if err := ctrl.productService.DeleteProduct(id); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			log.Warn("Product not found for delete", map[string]interface{}{
				"product_id": id,
			})
			apperrors.NotFound(c, apperrors.CodeProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		info := apperrors.ParseError(err, "delete product")
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		return
	}

	log.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id parameter")
	}
	return uint(id), nil
}
