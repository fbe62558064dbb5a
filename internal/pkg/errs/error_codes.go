/*
Package errs provides custom error types and application-level error code constants.

The codes identify specific request, authentication and session failures both
in server logs and in the JSON bodies returned to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Pad Errors
const (
	// ErrPadNotFound indicates that the requested pad does not exist and cannot be created.
	ErrPadNotFound = 2103

	// ErrPadIsFull indicates that the pad has reached its maximum number of connected editors.
	ErrPadIsFull = 2104

	// ErrChangeTooLarge indicates that a submitted pad change exceeded the maximum size.
	ErrChangeTooLarge = 2201

	// ErrPadReadOnly indicates that the current identity may view the pad but not edit it.
	ErrPadReadOnly = 2202

	// ErrDisplayNameLocked indicates that the current identity may not change its display name.
	ErrDisplayNameLocked = 2203
)

// 3xxx: Authentication, Session and Security Errors
const (
	// ErrUnauthorized indicates that no authentication mechanism accepted the request.
	ErrUnauthorized = 3001

	// ErrForbidden indicates that the authenticated identity lacks permission for the resource.
	ErrForbidden = 3002

	// ErrSessionDestroyFailed indicates that the session store could not invalidate the session.
	ErrSessionDestroyFailed = 3003

	// ErrSessionStoreFailed indicates that the session store could not load or save the session.
	ErrSessionStoreFailed = 3004

	// ErrSessionMissing indicates that a handler requiring a session ran without the session middleware.
	ErrSessionMissing = 3005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
