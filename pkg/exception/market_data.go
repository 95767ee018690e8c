package exception

import "errors"

var (
	ErrBookNotInitialized = errors.New("market: order book not initialized")
	ErrBookCrossedUpdate  = errors.New("market: crossed depth update discarded")
	ErrBookEmptyUpdate    = errors.New("market: empty depth update discarded")
	ErrDepthDecode        = errors.New("market: decode depth payload")
)
