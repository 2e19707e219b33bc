package portalsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// APIError - typed error for HTTP and network failures
// ============================================================================

// APIError represents a failed portal API call. Status 0 is reserved for
// network-level failures where no HTTP response was received.
type APIError struct {
	// Status is the HTTP status code, or 0 for network failures.
	Status int

	// Message is a human-readable description suitable for display.
	Message string

	// Details carries the best-effort-parsed error body, when present.
	Details any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// ErrMissingCSRF is raised client-side, without a network call, when a
// mutation is attempted before login info has supplied a CSRF token.
var ErrMissingCSRF = &APIError{
	Status:  http.StatusUnauthorized,
	Message: "Authentication credentials are missing. Please log in again.",
}

// ============================================================================
// ValidationError - response body failed schema checks
// ============================================================================

// ValidationError reports a response body that parsed as JSON but failed
// schema validation. It is deliberately distinct from APIError so that a
// malformed success response is never coerced into a partially-populated
// value.
type ValidationError struct {
	// Operation names the API call whose response was rejected.
	Operation string

	// Err is the underlying validation failure.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s response: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying validation failure.
func (e *ValidationError) Unwrap() error { return e.Err }

// ============================================================================
// Pure mapping helpers
// ============================================================================

// MessageForStatus maps an HTTP status code to a canned user-facing message.
// It is total: every input yields a message.
func MessageForStatus(status int) string {
	switch status {
	case 0:
		return "Unable to reach the server. Check your connection and try again."
	case http.StatusUnauthorized:
		return "Your session is no longer valid. Please log in again."
	case http.StatusForbidden:
		return "You do not have permission to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusUnprocessableEntity:
		return "The request was invalid."
	case http.StatusInternalServerError:
		return "The server encountered an error. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}

// FormatValidationDetails flattens one or more structured validation errors
// into a single readable string. Entries are joined with "; " and an entry
// with no location reports "unknown". It is total and never panics.
func FormatValidationDetails(details []ValidationDetail) string {
	if len(details) == 0 {
		return MessageForStatus(http.StatusUnprocessableEntity)
	}

	parts := make([]string, 0, len(details))
	for _, d := range details {
		loc := "unknown"
		if len(d.Loc) > 0 {
			loc = strings.Join(d.Loc, ".")
		}
		msg := d.Msg
		if msg == "" {
			msg = "invalid value"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", loc, msg))
	}
	return strings.Join(parts, "; ")
}

// ============================================================================
// Error response parsing
// ============================================================================

// errorBody is the wire shape of a portal error response. The detail field
// holds a bare string, a single validation entry, or a list of entries.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// parseErrorResponse converts a non-2xx response body into an *APIError.
// The body is parsed best-effort: any shape it fails to recognize falls back
// to the canned message for the status code.
func parseErrorResponse(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:  status,
		Message: MessageForStatus(status),
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return apiErr
	}

	// detail: "plain message"
	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		if strings.TrimSpace(s) != "" {
			apiErr.Message = s
			apiErr.Details = s
		}
		return apiErr
	}

	// detail: {loc, msg, type} or [{...}, ...]
	var details []ValidationDetail
	var single ValidationDetail
	if err := json.Unmarshal(eb.Detail, &details); err != nil {
		if err := json.Unmarshal(eb.Detail, &single); err != nil || single.Msg == "" {
			return apiErr
		}
		details = []ValidationDetail{single}
	}

	if len(details) > 0 {
		apiErr.Details = details
		if status == http.StatusUnprocessableEntity {
			apiErr.Message = FormatValidationDetails(details)
		}
	}
	return apiErr
}
