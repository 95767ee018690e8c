package exception

import "errors"

var (
	ErrEngineNotRunning   = errors.New("engine: not running")
	ErrEngineBadState     = errors.New("engine: invalid state transition")
	ErrEngineConnectFail  = errors.New("engine: initial connection failed")
	ErrEngineNoSymbols    = errors.New("engine: no trading symbols configured")
	ErrEngineNilComponent = errors.New("engine: nil component")
)
