// Package handlers defines HTTP-layer error codes used across all endpoints.
//
// Codes are lowercase snake_case and travel in the `code` field of every
// ErrorResponse. Clients branch on them instead of parsing messages.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_found",
//	  "message": "share not found"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeInvalidPayload   = "invalid_payload"
	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeInvalidPath      = "invalid_path"
	ErrCodeConfigFailed     = "config_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodePublishFailed    = "publish_failed"
	ErrCodeSearchFailed     = "search_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
