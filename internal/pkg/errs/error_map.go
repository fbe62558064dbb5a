/*
Package errs provides custom error types and application-level error code constants.

This file maps each error code to its client-facing message and HTTP status.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// A zero Status means 200 OK, mirroring the business-code style of the API.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Pad Errors
	ErrPadNotFound:       {Code: ErrPadNotFound, Message: "Pad not found.", Status: http.StatusNotFound},
	ErrPadIsFull:         {Code: ErrPadIsFull, Message: "This pad has too many editors."},
	ErrChangeTooLarge:    {Code: ErrChangeTooLarge, Message: "Change is too large (max %d bytes)."},
	ErrPadReadOnly:       {Code: ErrPadReadOnly, Message: "You are viewing this pad read-only. Log in to edit."},
	ErrDisplayNameLocked: {Code: ErrDisplayNameLocked, Message: "Your display name cannot be changed."},

	// 3xxx: Authentication, Session and Security Errors
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Authentication required.", Status: http.StatusUnauthorized},
	ErrForbidden:            {Code: ErrForbidden, Message: "You do not have permission to access this page.", Status: http.StatusForbidden},
	ErrSessionDestroyFailed: {Code: ErrSessionDestroyFailed, Message: "Could not end your session. Please try again.", Status: http.StatusInternalServerError},
	ErrSessionStoreFailed:   {Code: ErrSessionStoreFailed, Message: "Session storage is unavailable. Please try again.", Status: http.StatusInternalServerError},
	ErrSessionMissing:       {Code: ErrSessionMissing, Message: "Session is not available.", Status: http.StatusInternalServerError},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
