/*
Package errs provides custom error types and application-level error code constants.

This file defines CustomError, which implements the error interface and carries
a business code, a user-facing message and the HTTP status to respond with.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"epguest/internal/pkg/logx"
)

// CustomError is the error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code corresponding to this error.
	Status int

	// cause is the underlying error, if any. It is never sent to clients.
	cause error
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("error code %d (HTTP %d): %s: %v", e.Code, e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("error code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *CustomError) Unwrap() error {
	return e.cause
}

// NewError builds a *CustomError from a predefined code.
// details are printf arguments for messages that contain a verb; an unknown
// code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("unknown error code %d", code),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknown := errorMap[ErrUnknown]
		return &unknown
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn("Details provided for error without formatting placeholders. Details ignored.", "code", code)
		}
	}

	return &customErr
}

// Wrap builds a *CustomError from a predefined code and records err as its cause.
// The cause is logged and available through errors.Unwrap, but never rendered.
func Wrap(code int, err error) *CustomError {
	customErr := NewError(code)
	customErr.cause = err
	return customErr
}

// As extracts a *CustomError from err. Errors of any other type are wrapped as ErrUnknown.
func As(err error) *CustomError {
	if err == nil {
		return nil
	}
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}
	return Wrap(ErrUnknown, err)
}
