package client

import (
	"context"
	"errors"
)

// ErrorCategory is a stable label for tick outcomes in metrics and logs.
type ErrorCategory string

const (
	ErrorCategoryTimeout         ErrorCategory = "timeout"
	ErrorCategoryTransport       ErrorCategory = "transport"
	ErrorCategoryUnexpectedShape ErrorCategory = "unexpected_shape"
	ErrorCategoryDecode          ErrorCategory = "decode"
	ErrorCategoryAPI             ErrorCategory = "api_error"
	ErrorCategoryUnknown         ErrorCategory = "unknown"
)

// CategorizeError maps an error from Forecast to a stable ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAPI):
		return ErrorCategoryAPI
	case errors.Is(err, ErrUnexpectedShape):
		return ErrorCategoryUnexpectedShape
	case errors.Is(err, ErrDecode):
		return ErrorCategoryDecode
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrTransport):
		return ErrorCategoryTransport
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorCategoryTimeout
	}
	return ErrorCategoryUnknown
}

// ShouldLog reports whether a failure carries detail worth an error log line.
// Logical API errors and unexpected shapes reset the widget silently.
func (c ErrorCategory) ShouldLog() bool {
	switch c {
	case ErrorCategoryAPI, ErrorCategoryUnexpectedShape, "":
		return false
	}
	return true
}
