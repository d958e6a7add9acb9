package service

import (
	"testing"

	"github.com/oakline/storefront-backend/internal/app/model"
	"github.com/oakline/storefront-backend/internal/app/repository"
	"github.com/oakline/storefront-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductServiceTest(t *testing.T) ProductService {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productRepo := repository.NewProductRepository(testDB)
	return NewProductService(productRepo)
}

func seedProduct(t *testing.T, svc ProductService, name string, category model.ProductCategory, price string) *model.Product {
	product := &model.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: category,
		Stock:    5,
	}
	require.NoError(t, svc.CreateProduct(product))
	return product
}

func TestProductService_CreateAndGet(t *testing.T) {
	svc := setupProductServiceTest(t)

	created := seedProduct(t, svc, "Oak Dining Table", model.CategoryTable, "450.00")
	require.NotZero(t, created.ID)

	found, err := svc.GetProductByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, found.Name)
	assert.True(t, found.Price.Equal(created.Price))
}

func TestProductService_GetProductByID_NotFound(t *testing.T) {
	svc := setupProductServiceTest(t)

	_, err := svc.GetProductByID(9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_GetProducts_CategoryFilter(t *testing.T) {
	svc := setupProductServiceTest(t)

	seedProduct(t, svc, "Oak Dining Table", model.CategoryTable, "450.00")
	seedProduct(t, svc, "Walnut Chair", model.CategoryChair, "120.00")

	category := model.CategoryChair
	products, err := svc.GetProducts(repository.ProductFilter{Category: &category})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Walnut Chair", products[0].Name)
}

func TestProductService_GetProducts_Search(t *testing.T) {
	svc := setupProductServiceTest(t)

	seedProduct(t, svc, "Oak Dining Table", model.CategoryTable, "450.00")
	seedProduct(t, svc, "Walnut Coffee Table", model.CategoryTable, "210.00")

	products, err := svc.GetProducts(repository.ProductFilter{Search: "walnut"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Walnut Coffee Table", products[0].Name)
}

func TestProductService_GetProducts_SortByPrice(t *testing.T) {
	svc := setupProductServiceTest(t)

	seedProduct(t, svc, "Oak Dining Table", model.CategoryTable, "450.00")
	seedProduct(t, svc, "Walnut Chair", model.CategoryChair, "120.00")

	products, err := svc.GetProducts(repository.ProductFilter{
		SortBy:        repository.ProductSortPrice,
		SortAscending: true,
	})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Walnut Chair", products[0].Name)
}

func TestProductService_UpdateProduct(t *testing.T) {
	svc := setupProductServiceTest(t)

	created := seedProduct(t, svc, "Oak Dining Table", model.CategoryTable, "450.00")

	created.Price = decimal.RequireFromString("399.00")
	created.Stock = 3
	require.NoError(t, svc.UpdateProduct(created))

	found, err := svc.GetProductByID(created.ID)
	require.NoError(t, err)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("399.00")))
	assert.Equal(t, 3, found.Stock)
}

func TestProductService_UpdateProduct_NotFound(t *testing.T) {
	svc := setupProductServiceTest(t)

	err := svc.UpdateProduct(&model.Product{
		ID:       9999,
		Name:     "Ghost",
		Price:    decimal.New(1, 0),
		Category: model.CategoryBed,
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_DeleteProduct(t *testing.T) {
	svc := setupProductServiceTest(t)

	created := seedProduct(t, svc, "Oak Dining Table", model.CategoryTable, "450.00")

	require.NoError(t, svc.DeleteProduct(created.ID))

	_, err := svc.GetProductByID(created.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_DeleteProduct_NotFound(t *testing.T) {
	svc := setupProductServiceTest(t)

	err := svc.DeleteProduct(9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
