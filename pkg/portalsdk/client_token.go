package portalsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// csrfHeader is the header carrying the CSRF token on mutating requests.
const csrfHeader = "X-CSRF-Token"

// tokensPath builds /users/{username}/tokens with the username
// percent-encoded.
func (c *Client) tokensPath(username string) string {
	return c.url("/users/" + url.PathEscape(username) + "/tokens")
}

// ListTokens fetches all active tokens belonging to username.
func (c *Client) ListTokens(ctx context.Context, username string) ([]TokenInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, c.tokensPath(username), nil, nil)
	if err != nil {
		return nil, err
	}

	var tokens []TokenInfo
	if err := decodeJSON(resp, &tokens, "token list"); err != nil {
		return nil, err
	}
	return tokens, nil
}

// TokenDetail fetches one token by its 22-character key.
func (c *Client) TokenDetail(ctx context.Context, username, key string) (*TokenInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, c.tokensPath(username)+"/"+url.PathEscape(key), nil, nil)
	if err != nil {
		return nil, err
	}

	var token TokenInfo
	if err := decodeJSON(resp, &token, "token detail"); err != nil {
		return nil, err
	}
	return &token, nil
}

// CreateToken creates a user token. The response carries the full secret,
// which the server returns exactly once; callers must hand it to the user
// immediately and never persist it.
//
// A 422 response reports the server's field-level complaints, flattened into
// the error message.
func (c *Client) CreateToken(
	ctx context.Context,
	username, csrf string,
	req CreateTokenRequest,
) (*CreateTokenResponse, error) {
	if csrf == "" {
		return nil, ErrMissingCSRF
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		csrfHeader:     csrf,
	}
	resp, err := c.do(ctx, http.MethodPost, c.tokensPath(username), bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}

	var created CreateTokenResponse
	if err := decodeJSON(resp, &created, "token create"); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteToken revokes a token. Deletion is irreversible: the token leaves
// the active list and appears subsequently only in the change history.
//
// A 404 maps to a distinct message, since "already deleted" warrants a
// different recovery hint than "forbidden".
func (c *Client) DeleteToken(ctx context.Context, username, csrf, key string) error {
	if csrf == "" {
		return ErrMissingCSRF
	}

	headers := map[string]string{csrfHeader: csrf}
	resp, err := c.do(ctx, http.MethodDelete, c.tokensPath(username)+"/"+url.PathEscape(key), nil, headers)
	if err != nil {
		return err
	}

	if err := checkStatusNoBody(resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return &APIError{
				Status:  http.StatusNotFound,
				Message: "Token not found. It may have already been deleted.",
				Details: apiErr.Details,
			}
		}
		return err
	}
	return nil
}
