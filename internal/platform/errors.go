package platform

import "codeberg.org/mutker/eveenergy/internal/errors"

const (
	ErrCodeNotStarted        = errors.ErrorCode("platform_not_started")
	ErrCodeAlreadyConfigured = errors.ErrorCode("platform_already_configured")
	ErrCodeShutDown          = errors.ErrorCode("platform_shut_down")
)

// Lifecycle errors, matchable with errors.Is.
var (
	ErrNotStarted        = errors.New().WithMessage(ErrCodeNotStarted, "platform has not been started")
	ErrAlreadyConfigured = errors.New().WithMessage(ErrCodeAlreadyConfigured, "sampling is already running")
	ErrShutDown          = errors.New().WithMessage(ErrCodeShutDown, "platform has been shut down")
)
