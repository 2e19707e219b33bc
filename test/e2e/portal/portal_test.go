package portal_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
	"github.com/helioscope/skyportal/pkg/tokenflow"
)

// TestTokenLifecycle walks the full flow against a fake portal: log in,
// create a token, see it listed, watch the audit history grow, delete it,
// and confirm the deletion is reflected everywhere.
func TestTokenLifecycle(t *testing.T) {
	srv := newFakePortal().serve(t)
	client := portalsdk.NewClient(srv.URL)
	cache := querycache.New()

	// Log in and pick up the CSRF token.
	login, err := querycache.FetchAs[*portalsdk.LoginInfo](
		t.Context(), cache, querycache.LoginInfoQuery(client))
	require.NoError(t, err)
	require.Equal(t, testUsername, login.Username)
	require.Equal(t, testCSRF, login.CSRF)

	info, err := querycache.FetchAs[*portalsdk.UserInfo](
		t.Context(), cache, querycache.UserInfoQuery(client))
	require.NoError(t, err)
	require.Equal(t, testUsername, info.Username)

	// No tokens yet.
	tokens, err := querycache.FetchAs[[]portalsdk.TokenInfo](
		t.Context(), cache, querycache.TokenListQuery(client, login.Username))
	require.NoError(t, err)
	require.Empty(t, tokens)

	// Create a token and capture its one-time secret.
	creator := tokenflow.NewCreator(client, cache, nil)
	resp, err := creator.Create(t.Context(), login.Username, login.CSRF, portalsdk.CreateTokenRequest{
		TokenName: "E2E Token",
		Scopes:    []string{"read:tap"},
	})
	require.NoError(t, err)
	require.Equal(t, tokenflow.PhaseSuccess, creator.State().Phase)
	require.True(t, strings.HasPrefix(resp.Token, "gt-"))

	key := strings.SplitN(resp.Token, ".", 2)[0]
	require.Len(t, key, portalsdk.TokenKeyLength)

	// The creation invalidated the list; the refetch sees the new token.
	tokens, err = querycache.FetchAs[[]portalsdk.TokenInfo](
		t.Context(), cache, querycache.TokenListQuery(client, login.Username))
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, key, tokens[0].Token)
	require.NotNil(t, tokens[0].TokenName)
	require.Equal(t, "E2E Token", *tokens[0].TokenName)

	detail, err := querycache.FetchAs[*portalsdk.TokenInfo](
		t.Context(), cache, querycache.TokenDetailQuery(client, login.Username, key))
	require.NoError(t, err)
	require.Equal(t, []string{"read:tap"}, detail.Scopes)

	// History shows the creation.
	pager := tokenflow.NewHistoryPager(client, cache, login.Username, portalsdk.HistoryFilters{})
	require.NoError(t, pager.LoadMore(t.Context()))
	require.Len(t, pager.Entries(), 1)
	require.Equal(t, portalsdk.ActionCreate, pager.Entries()[0].Action)

	// Delete and confirm the refetched list is empty.
	deleter := tokenflow.NewDeleter(client, cache, nil)
	require.NoError(t, deleter.Delete(t.Context(), login.Username, login.CSRF, key))
	require.Equal(t, tokenflow.PhaseSuccess, deleter.State().Phase)

	tokens, err = querycache.FetchAs[[]portalsdk.TokenInfo](
		t.Context(), cache, querycache.TokenListQuery(client, login.Username))
	require.NoError(t, err)
	require.Empty(t, tokens)

	// A second delete surfaces the already-deleted message.
	err = deleter.Delete(t.Context(), login.Username, login.CSRF, key)
	require.Error(t, err)
	require.Equal(t, "Token not found. It may have already been deleted.", deleter.State().Message)

	// The history now carries both events, paged two at a time.
	pager = tokenflow.NewHistoryPager(client, cache, login.Username, portalsdk.HistoryFilters{})
	for pager.HasMore() {
		require.NoError(t, pager.LoadMore(t.Context()))
	}
	entries := pager.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, portalsdk.ActionRevoke, entries[0].Action)
	require.Equal(t, portalsdk.ActionCreate, entries[1].Action)
	require.Equal(t, 2, pager.TotalCount())
}

// TestDuplicateNameRejected exercises both the client-side pre-flight and the
// server-side rejection for a duplicate token name.
func TestDuplicateNameRejected(t *testing.T) {
	srv := newFakePortal().serve(t)
	client := portalsdk.NewClient(srv.URL)
	cache := querycache.New()

	creator := tokenflow.NewCreator(client, cache, nil)
	_, err := creator.Create(t.Context(), testUsername, testCSRF, portalsdk.CreateTokenRequest{
		TokenName: "My Token",
	})
	require.NoError(t, err)

	// Pre-flight: the checker sees the existing name case-insensitively.
	tokens, err := client.ListTokens(t.Context(), testUsername)
	require.NoError(t, err)
	names := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.TokenName != nil {
			names = append(names, *tok.TokenName)
		}
	}
	verdict := tokenflow.ValidateTokenName("MY TOKEN", names)
	require.False(t, verdict.Valid)
	require.Equal(t, tokenflow.NameTakenMessage, verdict.Message)

	// Server-side: submitting anyway returns the validation detail.
	_, err = creator.Create(t.Context(), testUsername, testCSRF, portalsdk.CreateTokenRequest{
		TokenName: "My Token",
	})
	require.Error(t, err)
	require.Equal(t, tokenflow.PhaseError, creator.State().Phase)
	require.Equal(t, "body.token_name: token name already in use", creator.State().Message)
}

// TestMutationWithoutCSRFRejected confirms the server-side CSRF gate for a
// client that bypasses the flow-level precondition.
func TestMutationWithoutCSRFRejected(t *testing.T) {
	srv := newFakePortal().serve(t)
	client := portalsdk.NewClient(srv.URL)

	_, err := client.CreateToken(t.Context(), testUsername, "wrong-csrf", portalsdk.CreateTokenRequest{
		TokenName: "x",
	})
	var apiErr *portalsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 403, apiErr.Status)
}

func TestDiscoveryEndToEnd(t *testing.T) {
	srv := newFakePortal().serve(t)
	client := portalsdk.NewClient("https://unused.example.org")
	cache := querycache.New()

	d, err := querycache.FetchAs[*portalsdk.ServiceDiscovery](
		t.Context(), cache, querycache.DiscoveryQuery(client, srv.URL))
	require.NoError(t, err)
	require.False(t, d.IsEmpty())
	require.Contains(t, d.Applications, "portal")
	require.Contains(t, d.Internal, "tap")
}
