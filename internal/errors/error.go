package errors

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrEmptyAuth          = errors.New("missing authorization")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrCartNotFound       = errors.New("cart not found")
	ErrCartLineNotFound   = errors.New("cart line not found")
	ErrCartAlreadyMerged  = errors.New("cart already merged")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordMismatch   = errors.New("password mismatch")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrOutOfStock         = errors.New("product is out of stock")
)

func HandleError(err error, span trace.Span) {
	if err == nil {
		return
	}
	span.AddEvent(err.Error())
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
