package errors

// Error codes returned to clients. Codes are stable identifiers; the
// accompanying messages may change without notice.
const (
	// Auth
	CodeAuthUnauthorized       = "AUTH_UNAUTHORIZED"
	CodeAuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAuthEmailExists        = "AUTH_EMAIL_EXISTS"
	CodeAuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	CodeAuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	CodeAuthRefreshInvalid     = "AUTH_REFRESH_INVALID"

	// Authorization
	CodeForbidden = "AUTHZ_FORBIDDEN"

	// Validation
	CodeValidationFailed = "VALIDATION_FAILED"

	// Catalog
	CodeProductNotFound          = "PRODUCT_NOT_FOUND"
	CodeProductOutOfStock        = "PRODUCT_OUT_OF_STOCK"
	CodeProductInsufficientStock = "PRODUCT_INSUFFICIENT_STOCK"

	// Basket
	CodeBasketItemNotFound      = "BASKET_ITEM_NOT_FOUND"
	CodeBasketQuantityCap       = "BASKET_QUANTITY_CAP"
	CodeBasketPersistenceFailed = "BASKET_PERSISTENCE_FAILED"
	CodeBasketGuestIDMissing    = "BASKET_GUEST_ID_MISSING"

	// Generic resources
	CodeResourceNotFound = "RESOURCE_NOT_FOUND"
	CodeResourceConflict = "RESOURCE_CONFLICT"

	// Uploads
	CodeUploadInvalidType = "UPLOAD_INVALID_TYPE"
	CodeUploadFailed      = "UPLOAD_FAILED"

	// Infrastructure
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)
