package portalsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

// validate is the shared schema validator. Every response body passes
// through it before being handed to callers; this is the trust boundary
// between the wire and typed values.
var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterStructValidation(validateLoginInfo, LoginInfo{})
}

// validateLoginInfo enforces that granted scopes are a subset of the scope
// catalog the server says it defines.
func validateLoginInfo(sl validator.StructLevel) {
	info := sl.Current().Interface().(LoginInfo)

	known := make(map[string]struct{}, len(info.Config.Scopes))
	for _, s := range info.Config.Scopes {
		known[s.Name] = struct{}{}
	}
	for _, name := range info.Scopes {
		if _, ok := known[name]; !ok {
			sl.ReportError(info.Scopes, "Scopes", "scopes", "scopesubset", name)
			return
		}
	}
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// do performs one HTTP request. Each request carries a fresh ULID request ID
// so server logs can be correlated with client activity.
func (c *Client) do(
	ctx context.Context,
	method, rawurl string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, &APIError{Status: 0, Message: MessageForStatus(0), Details: err.Error()}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawurl, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", ulid.Make().String())
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if c.Logger != nil {
		c.Logger.LogAttrs(ctx, slog.LevelDebug, "portal request",
			slog.String("method", method),
			slog.String("url", rawurl),
			slog.String("req_id", req.Header.Get("X-Request-Id")),
		)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// No HTTP response at all: status 0 by convention.
		return nil, &APIError{Status: 0, Message: MessageForStatus(0), Details: err.Error()}
	}
	return resp, nil
}

// decodeJSON reads the response, maps non-expected statuses to *APIError,
// unmarshals the body into target, and runs schema validation on it.
// A body that fails validation raises *ValidationError, never a
// partially-populated target.
func decodeJSON(resp *http.Response, target any, operation string) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: 0, Message: MessageForStatus(0), Details: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(resp.StatusCode, body)
	}

	if err := unmarshalValidated(body, target, operation); err != nil {
		return err
	}
	return nil
}

// checkStatusNoBody maps a non-2xx response to *APIError and discards any
// body on success.
func checkStatusNoBody(resp *http.Response) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp.StatusCode, body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// unmarshalValidated parses body into target, normalizes blank optional
// strings to absent, and validates the result.
func unmarshalValidated(body []byte, target any, operation string) error {
	if err := json.Unmarshal(body, target); err != nil {
		return &ValidationError{Operation: operation, Err: err}
	}
	normalizeValue(target)
	if err := validateValue(target); err != nil {
		return &ValidationError{Operation: operation, Err: err}
	}
	return nil
}

// normalizeValue treats empty or whitespace-only optional strings as absent.
func normalizeValue(v any) {
	switch t := v.(type) {
	case *TokenInfo:
		t.TokenName = normalizeOptional(t.TokenName)
		t.Parent = normalizeOptional(t.Parent)
	case *[]TokenInfo:
		for i := range *t {
			normalizeValue(&(*t)[i])
		}
	case *TokenChangeHistoryEntry:
		t.TokenName = normalizeOptional(t.TokenName)
		t.Parent = normalizeOptional(t.Parent)
		t.OldTokenName = normalizeOptional(t.OldTokenName)
		t.IPAddress = normalizeOptional(t.IPAddress)
	case *[]TokenChangeHistoryEntry:
		for i := range *t {
			normalizeValue(&(*t)[i])
		}
	case *UserInfo:
		t.Name = normalizeOptional(t.Name)
		t.Email = normalizeOptional(t.Email)
	}
}

// normalizeOptional maps blank strings to nil.
func normalizeOptional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// validateValue validates a struct pointer or a slice of structs.
func validateValue(v any) error {
	switch t := v.(type) {
	case *[]TokenInfo:
		for i := range *t {
			if err := validate.Struct(&(*t)[i]); err != nil {
				return err
			}
		}
		return nil
	case *[]TokenChangeHistoryEntry:
		for i := range *t {
			if err := validate.Struct(&(*t)[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return validate.Struct(v)
	}
}
