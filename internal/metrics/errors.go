package metrics

import "codeberg.org/mutker/eveenergy/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidAddr   = errors.ErrorCode("metrics_invalid_addr")
	ErrRegister      = errors.ErrorCode("metrics_register_failed")
	ErrServe         = errors.ErrorCode("metrics_serve_failed")
)
