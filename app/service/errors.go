package service

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrAmountMismatch        = errors.New("amount does not match items total")
	ErrCheckoutNotFound      = errors.New("checkout not found")
	ErrCheckoutAlreadyExists = errors.New("checkout already exists")
	ErrCheckoutLocked        = errors.New("checkout is being processed")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrSurfaceNotFound       = errors.New("payment surface not found")
	ErrPaymentSetupFailed    = errors.New("payment setup failed")
	ErrUnavailable           = errors.New("checkout service unavailable")
)
