package portalsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validHistoryEntryJSON() map[string]any {
	return map[string]any{
		"username":   "testuser",
		"token_type": "user",
		"token":      validKey,
		"scopes":     []string{"read:tap"},
		"actor":      "testuser",
		"action":     "create",
		"event_time": 1_690_000_100,
	}
}

func TestTokenChangeHistory(t *testing.T) {
	t.Parallel()

	t.Run("parses Link cursor and total count", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/users/testuser/token-change-history", r.URL.Path)
			w.Header().Set("Link", `</users/testuser/token-change-history?cursor=abc123>; rel="next"`)
			w.Header().Set("X-Total-Count", "100")
			_, _ = w.Write([]byte("[]"))
		}))
		defer srv.Close()

		page, err := NewClient(srv.URL).TokenChangeHistory(t.Context(), "testuser", HistoryFilters{})
		require.NoError(t, err)
		require.Empty(t, page.Entries)
		require.Equal(t, "abc123", page.NextCursor)
		require.Equal(t, 100, page.TotalCount)
	})

	t.Run("absent headers yield empty cursor and unknown total", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode([]map[string]any{validHistoryEntryJSON()})
		}))
		defer srv.Close()

		page, err := NewClient(srv.URL).TokenChangeHistory(t.Context(), "testuser", HistoryFilters{})
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)
		require.Equal(t, ActionCreate, page.Entries[0].Action)
		require.Empty(t, page.NextCursor)
		require.Equal(t, -1, page.TotalCount)
	})

	t.Run("serializes filters as query parameters", func(t *testing.T) {
		var gotQuery map[string][]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			_, _ = w.Write([]byte("[]"))
		}))
		defer srv.Close()

		since := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
		_, err := NewClient(srv.URL).TokenChangeHistory(t.Context(), "testuser", HistoryFilters{
			TokenType: TokenTypeUser,
			Token:     validKey,
			Since:     since,
			IPAddress: "192.0.2.1",
			Limit:     50,
			Cursor:    "page-two",
		})
		require.NoError(t, err)
		require.Equal(t, []string{"user"}, gotQuery["token_type"])
		require.Equal(t, []string{validKey}, gotQuery["token"])
		require.Equal(t, []string{"2023-11-14T22:13:20Z"}, gotQuery["since"])
		require.Equal(t, []string{"192.0.2.1"}, gotQuery["ip_address"])
		require.Equal(t, []string{"50"}, gotQuery["limit"])
		require.Equal(t, []string{"page-two"}, gotQuery["cursor"])
		require.NotContains(t, gotQuery, "until")
	})

	t.Run("zero filters send no query string", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Empty(t, r.URL.RawQuery)
			_, _ = w.Write([]byte("[]"))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).TokenChangeHistory(t.Context(), "testuser", HistoryFilters{})
		require.NoError(t, err)
	})
}

func TestNextCursorFromLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		link string
		want string
	}{
		{
			"quoted rel",
			`</history?cursor=abc123>; rel="next"`,
			"abc123",
		},
		{
			"bare rel",
			`</history?cursor=abc123>; rel=next`,
			"abc123",
		},
		{
			"next among other relations",
			`</history?cursor=p1>; rel="prev", </history?cursor=p3>; rel="next"`,
			"p3",
		},
		{
			"absolute url",
			`<https://data.example.org/history?cursor=zzz&limit=10>; rel="next"`,
			"zzz",
		},
		{"no next relation", `</history?cursor=p1>; rel="prev"`, ""},
		{"empty header", "", ""},
		{"malformed target", `history?cursor=abc; rel="next"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, nextCursorFromLink(tt.link))
		})
	}
}

func TestTotalFromHeader(t *testing.T) {
	t.Parallel()

	require.Equal(t, 100, totalFromHeader("100"))
	require.Equal(t, 0, totalFromHeader("0"))
	require.Equal(t, -1, totalFromHeader(""))
	require.Equal(t, -1, totalFromHeader("many"))
	require.Equal(t, -1, totalFromHeader("-5"))
}
