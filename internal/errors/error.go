// Package errors provides the error taxonomy shared by the storefront packages.
package errors

import (
	"errors"
	"fmt"
)

// Failure kinds. A RequestError unwraps to exactly one of them.
var ErrNetworkFailure = errors.New("network failure")
var ErrServerError = errors.New("server error")
var ErrValidationFailure = errors.New("validation failure")

var ErrUnknownResource = errors.New("unknown resource")
var ErrDecodePayload = errors.New("failed to decode payload")

var ErrCartLineNotFound = errors.New("cart line not found")
var ErrQuantityBelowMinimum = errors.New("quantity cannot drop below 1")
var ErrCartLineBusy = errors.New("cart line has a pending update")
var ErrNotIdentified = errors.New("shopper is not identified")
var ErrCartEmpty = errors.New("cart is empty")
var ErrCheckoutInProgress = errors.New("checkout is in progress")
var ErrNotSubmitting = errors.New("no checkout is being submitted")

// RequestError describes a failed call to the backend.
// Message is safe to show to shoppers.
type RequestError struct {
	Kind       error
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%v (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

// NetworkFailure builds a RequestError for a call that produced no response.
func NetworkFailure(message string) *RequestError {
	return &RequestError{Kind: ErrNetworkFailure, Message: message}
}

// ServerError builds a RequestError for a non-2xx response.
func ServerError(status int, message string) *RequestError {
	return &RequestError{Kind: ErrServerError, StatusCode: status, Message: message}
}

// Message extracts the shopper-facing description of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return err.Error()
}
