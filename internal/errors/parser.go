package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo pairs a stable error code with a client-safe message.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps storage and driver errors to a code and a message that is
// safe to show users. The context string hints at the resource involved so
// not-found responses can name it.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: CodeInternalError, Message: "Something went wrong"}
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    CodeResourceNotFound,
			Message: notFoundMessage(context),
		}
	}

	// Unique constraint (postgres 23505)
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "unique constraint") {
		if strings.Contains(errStr, "email") || strings.Contains(errStr, "idx_users_email") {
			return ErrorInfo{Code: CodeAuthEmailExists, Message: "This email address is already registered"}
		}
		return ErrorInfo{Code: CodeResourceConflict, Message: "This record already exists"}
	}

	// Foreign key constraint (postgres 23503)
	if strings.Contains(errStr, "foreign key constraint") {
		if strings.Contains(errStr, "still referenced") {
			return ErrorInfo{Code: CodeResourceConflict, Message: "This record is referenced by other data and cannot be removed"}
		}
		return ErrorInfo{Code: CodeResourceNotFound, Message: "A referenced record does not exist"}
	}

	// Connectivity
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") {
		return ErrorInfo{
			Code:    CodeUpstreamUnavailable,
			Message: "A backing service is unavailable. Please try again later",
		}
	}

	return ErrorInfo{Code: CodeInternalError, Message: "Something went wrong. Please try again later"}
}

func notFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "product") {
		return "Product not found"
	}
	if strings.Contains(contextLower, "user") {
		return "User not found"
	}
	if strings.Contains(contextLower, "basket") {
		return "Basket item not found"
	}

	return "The requested record was not found"
}
