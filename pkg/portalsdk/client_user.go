package portalsdk

import (
	"context"
	"net/http"
)

// UserInfo fetches the identity record for the authenticated user.
func (c *Client) UserInfo(ctx context.Context) (*UserInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, c.url("/user-info"), nil, nil)
	if err != nil {
		return nil, err
	}

	var info UserInfo
	if err := decodeJSON(resp, &info, "user-info"); err != nil {
		return nil, err
	}
	return &info, nil
}

// LoginInfo fetches the session credential bundle, including the CSRF token
// required for all mutating requests.
func (c *Client) LoginInfo(ctx context.Context) (*LoginInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, c.url("/login"), nil, nil)
	if err != nil {
		return nil, err
	}

	var info LoginInfo
	if err := decodeJSON(resp, &info, "login"); err != nil {
		return nil, err
	}
	return &info, nil
}
