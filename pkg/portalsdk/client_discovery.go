package portalsdk

import (
	"context"
	"net/http"
	"strings"
)

// ServiceDiscovery fetches the platform service directory from the
// repertoire service. Discovery lives on its own base URL and is requested
// without credentials and with caching disabled, so each navigation context
// sees a current directory.
//
// Errors are returned as usual here; the best-effort degradation to
// EmptyDiscovery is applied by the querycache descriptor, not the raw call,
// so programmatic callers can still tell an outage from an empty directory.
func (c *Client) ServiceDiscovery(ctx context.Context, repertoireURL string) (*ServiceDiscovery, error) {
	endpoint := strings.TrimRight(repertoireURL, "/") + "/discovery"

	headers := map[string]string{
		"Cache-Control": "no-cache",
		"Pragma":        "no-cache",
	}
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil, headers)
	if err != nil {
		return nil, err
	}

	var discovery ServiceDiscovery
	if err := decodeJSON(resp, &discovery, "service discovery"); err != nil {
		return nil, err
	}
	if discovery.Applications == nil {
		discovery.Applications = []string{}
	}
	return &discovery, nil
}
