package ai

import (
	"errors"
	"strings"
)

// Category buckets gateway failures so each can surface a distinct
// user-facing message. Every category is terminal for the current send; the
// core never retries.
type Category string

const (
	CategoryConfiguration Category = "configuration"
	CategoryQuota         Category = "quota"
	CategoryRateLimit     Category = "rate_limit"
	CategoryMalformed     Category = "malformed"
	CategoryUnknown       Category = "unknown"
)

// GatewayError is a classified model-call failure. Error() is the text shown
// to the user; the underlying cause stays wrapped for logs.
type GatewayError struct {
	Category Category
	Message  string
	Err      error
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func newGatewayError(category Category, message string, err error) *GatewayError {
	return &GatewayError{Category: category, Message: message, Err: err}
}

// Classify maps a raw model-call error onto a category by inspecting its
// text, the only signal the upstream endpoints reliably give.
func Classify(err error) *GatewayError {
	if err == nil {
		return nil
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "insufficient balance"):
		return newGatewayError(CategoryQuota,
			"Model quota exceeded. Please check your billing settings.", err)
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "429"):
		return newGatewayError(CategoryRateLimit,
			"Rate limit exceeded. Please wait a moment before trying again.", err)
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") ||
		strings.Contains(msg, "invalid api key") || strings.Contains(msg, "authentication"):
		return newGatewayError(CategoryConfiguration,
			"Invalid or missing model credentials. Please check your configuration.", err)
	default:
		return newGatewayError(CategoryUnknown, err.Error(), err)
	}
}
