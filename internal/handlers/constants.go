package handlers

const (
	SessionCookieName = "session_id"
	CSRFHeaderName    = "X-CSRF-Token"
	CSRFFormField     = "csrf_token"
	AdminKeyHeader    = "X-Admin-Api-Key"

	ErrInvalidFormData     = "Invalid form data"
	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbiddenMsg        = "Forbidden"
	ErrInternalServerError = "Internal server error"
)
