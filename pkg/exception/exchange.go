package exception

import "errors"

var (
	ErrExchangeNotConnected = errors.New("exchange: not connected")
	ErrExchangeNilCallback  = errors.New("exchange: nil callback")
	ErrExchangeMissingKeys  = errors.New("exchange: missing api credentials")
	ErrExchangeRejected     = errors.New("exchange: request rejected")
	ErrExchangeDecodeBody   = errors.New("exchange: decode response body")
	ErrExchangeStreamClosed = errors.New("exchange: stream closed")
	ErrExchangeAlreadyLive  = errors.New("exchange: already started")
)
