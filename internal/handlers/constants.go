package handlers

const (
	ErrInvalidJSON         = "Invalid request body"
	ErrUnauthenticated     = "Not authenticated"
	ErrForbidden           = "Admin access required"
	ErrInvalidID           = "Invalid id"
	ErrCSRFInvalid         = "Invalid CSRF token"
	ErrTooManyRequests     = "Too many requests. Please try again later."
	ErrInternalServerError = "Internal server error"

	// maxBodyBytes bounds JSON request bodies
	maxBodyBytes = 1 << 20
)
