package portalsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HistoryFilters narrows a token-change-history query. Zero-valued fields
// are omitted from the request.
type HistoryFilters struct {
	// TokenType restricts entries to one token type.
	TokenType TokenType

	// Token restricts entries to one token key.
	Token string

	// Since / Until bound the event-time window.
	Since time.Time
	Until time.Time

	// IPAddress restricts entries by source address.
	IPAddress string

	// Limit is the page size.
	Limit int

	// Cursor resumes a previous page. Opaque; obtained from
	// HistoryPage.NextCursor.
	Cursor string
}

// Values serializes the filters as query parameters.
func (f HistoryFilters) Values() url.Values {
	v := url.Values{}
	if f.TokenType != "" {
		v.Set("token_type", string(f.TokenType))
	}
	if f.Token != "" {
		v.Set("token", f.Token)
	}
	if !f.Since.IsZero() {
		v.Set("since", f.Since.UTC().Format(time.RFC3339))
	}
	if !f.Until.IsZero() {
		v.Set("until", f.Until.UTC().Format(time.RFC3339))
	}
	if f.IPAddress != "" {
		v.Set("ip_address", f.IPAddress)
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Cursor != "" {
		v.Set("cursor", f.Cursor)
	}
	return v
}

// HistoryPage is one page of change-history entries.
type HistoryPage struct {
	Entries []TokenChangeHistoryEntry

	// NextCursor resumes the next page, or "" when no further page exists.
	NextCursor string

	// TotalCount is the server-reported total matching entries, or -1 when
	// the server did not report one.
	TotalCount int
}

// TokenChangeHistory fetches one page of the append-only audit history for
// username. The next-page cursor comes from the Link response header
// (rel="next") and the total from X-Total-Count; both are optional and
// tolerated independently.
func (c *Client) TokenChangeHistory(
	ctx context.Context,
	username string,
	filters HistoryFilters,
) (*HistoryPage, error) {
	endpoint := c.url("/users/" + url.PathEscape(username) + "/token-change-history")
	if q := filters.Values().Encode(); q != "" {
		endpoint += "?" + q
	}

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{
		NextCursor: nextCursorFromLink(resp.Header.Get("Link")),
		TotalCount: totalFromHeader(resp.Header.Get("X-Total-Count")),
	}
	if err := decodeJSON(resp, &page.Entries, "token change history"); err != nil {
		return nil, err
	}
	return page, nil
}

// nextCursorFromLink extracts the cursor query parameter of the rel="next"
// target from a Link header, or "" when no next link is present.
func nextCursorFromLink(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}

		isNext := false
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if param == `rel="next"` || param == "rel=next" {
				isNext = true
				break
			}
		}
		if !isNext {
			continue
		}

		u, err := url.Parse(strings.Trim(target, "<>"))
		if err != nil {
			return ""
		}
		return u.Query().Get("cursor")
	}
	return ""
}

// totalFromHeader parses an X-Total-Count value; -1 means unknown.
func totalFromHeader(value string) int {
	if value == "" {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
