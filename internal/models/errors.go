package models

import (
	"context"
	"errors"
)

// Client input errors.
var (
	ErrInvalidPin   = errors.New("invalid pin")
	ErrInvalidValue = errors.New("invalid value")
	ErrEmptyReading = errors.New("empty reading")
)

// Infrastructure errors. None of them are retried by the service.
var (
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrTimeout            = errors.New("timeout")
	ErrNotifierFailure    = errors.New("notifier failure")
)

// IsClientError reports whether err was caused by the submitted payload.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPin) || errors.Is(err, ErrInvalidValue) || errors.Is(err, ErrEmptyReading)
}

// ErrorReason returns a short metric label for err.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPin):
		return "invalid_pin"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrEmptyReading):
		return "empty_reading"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "internal"
}
