package querycache

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/helioscope/skyportal/pkg/portalsdk"
)

// Key is a hierarchical cache key. A key is an ancestor of every key that
// extends it, and invalidating an ancestor invalidates all of its
// extensions; that is how "delete token" reaches "list tokens" and "token
// history" without those operations knowing about each other.
//
// Two calls to the same factory with identical logical inputs produce
// deep-equal keys; any differing input produces a non-equal key.
type Key []string

// keySep never appears in key parts produced by the factories below, so the
// canonical form preserves the prefix relation.
const keySep = "\x1f"

// String returns the canonical form used for map lookups.
func (k Key) String() string {
	return strings.Join(k, keySep)
}

// HasPrefix reports whether p is an ancestor of (or equal to) k.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

// TokensKey is the ancestor of every token-related key.
func TokensKey() Key {
	return Key{"tokens"}
}

// TokenListKey identifies the active-token list for one user.
func TokenListKey(username string) Key {
	return Key{"tokens", "list", username}
}

// TokenDetailKey identifies one token's detail record.
func TokenDetailKey(username, key string) Key {
	return Key{"tokens", "detail", username, key}
}

// HistoryRootKey is the ancestor of every history page for one user.
func HistoryRootKey(username string) Key {
	return Key{"token-history", "list", username}
}

// HistoryKey identifies one filtered history page.
func HistoryKey(username string, filters portalsdk.HistoryFilters) Key {
	return append(HistoryRootKey(username), canonicalFilters(filters))
}

// UserInfoKey identifies the authenticated user's identity record.
func UserInfoKey() Key {
	return Key{"user-info"}
}

// LoginInfoKey identifies the session credential bundle.
func LoginInfoKey() Key {
	return Key{"login-info"}
}

// DiscoveryKey identifies the service directory for one repertoire URL.
func DiscoveryKey(repertoireURL string) Key {
	return Key{"discovery", strings.TrimRight(repertoireURL, "/")}
}

// canonicalFilters serializes a filter set deterministically. Struct fields
// marshal in declaration order, so identical filters always produce the same
// string.
func canonicalFilters(filters portalsdk.HistoryFilters) string {
	b, err := json.Marshal(struct {
		TokenType string `json:"token_type"`
		Token     string `json:"token"`
		Since     int64  `json:"since"`
		Until     int64  `json:"until"`
		IPAddress string `json:"ip_address"`
		Limit     int    `json:"limit"`
		Cursor    string `json:"cursor"`
	}{
		TokenType: string(filters.TokenType),
		Token:     filters.Token,
		Since:     unixOrZero(filters.Since),
		Until:     unixOrZero(filters.Until),
		IPAddress: filters.IPAddress,
		Limit:     filters.Limit,
		Cursor:    filters.Cursor,
	})
	if err != nil {
		// Cannot happen for this shape; keep the factory total.
		return "{}"
	}
	return string(b)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
