package exception

import "errors"

var (
	ErrOrderEntryFailed      = errors.New("order: entry order rejected")
	ErrOrderInvalidQuantity  = errors.New("order: invalid quantity")
	ErrOrderInvalidPrice     = errors.New("order: invalid price")
	ErrOrderNotionalExceeded = errors.New("order: notional above safety limit")
	ErrOrderUnsupportedType  = errors.New("order: unsupported type")
)
