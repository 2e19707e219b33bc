package tokenflow

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
)

func TestCreatorSuccessFlow(t *testing.T) {
	t.Parallel()

	var listFetches int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			require.Equal(t, "csrf", r.Header.Get("X-CSRF-Token"))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token": "gt-one-time-secret"}`))
		default:
			listFetches++
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	client := portalsdk.NewClient(srv.URL)
	cache := querycache.New()
	creator := NewCreator(client, cache, nil)

	// Warm the list so the post-create invalidation is observable.
	_, err := querycache.FetchAs[[]portalsdk.TokenInfo](
		t.Context(), cache, querycache.TokenListQuery(client, "alice"))
	require.NoError(t, err)
	require.Equal(t, 1, listFetches)

	var phases []Phase
	creator.Subscribe(func(s State) { phases = append(phases, s.Phase) })

	resp, err := creator.Create(t.Context(), "alice", "csrf", portalsdk.CreateTokenRequest{
		TokenName: "My Token",
		Scopes:    []string{"read:tap"},
	})
	require.NoError(t, err)
	require.Equal(t, "gt-one-time-secret", resp.Token)
	require.Equal(t, []Phase{PhaseSubmitting, PhaseSuccess}, phases)
	require.Equal(t, PhaseSuccess, creator.State().Phase)
	require.False(t, creator.State().InFlight())

	_, err = querycache.FetchAs[[]portalsdk.TokenInfo](
		t.Context(), cache, querycache.TokenListQuery(client, "alice"))
	require.NoError(t, err)
	require.Equal(t, 2, listFetches, "token list must refetch after creation")
}

func TestCreatorMissingCSRF(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server must not be reached")
	}))
	defer srv.Close()

	creator := NewCreator(portalsdk.NewClient(srv.URL), querycache.New(), nil)

	_, err := creator.Create(t.Context(), "alice", "", portalsdk.CreateTokenRequest{TokenName: "x"})
	require.ErrorIs(t, err, portalsdk.ErrMissingCSRF)

	state := creator.State()
	require.Equal(t, PhaseError, state.Phase)
	require.Equal(t, portalsdk.ErrMissingCSRF.Message, state.Message)
}

func TestCreatorServerErrorProducesDisplayMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail": [{"loc": ["body", "token_name"], "msg": "name already in use", "type": "value_error"}]}`))
	}))
	defer srv.Close()

	creator := NewCreator(portalsdk.NewClient(srv.URL), querycache.New(), nil)

	_, err := creator.Create(t.Context(), "alice", "csrf", portalsdk.CreateTokenRequest{TokenName: "dup"})
	require.Error(t, err)

	state := creator.State()
	require.Equal(t, PhaseError, state.Phase)
	require.Equal(t, "body.token_name: name already in use", state.Message)
	require.Error(t, state.Err)
}

func TestCreatorRetryClearsPriorError(t *testing.T) {
	t.Parallel()

	attempt := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt++
		if attempt == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token": "gt-second-attempt"}`))
	}))
	defer srv.Close()

	creator := NewCreator(portalsdk.NewClient(srv.URL), querycache.New(), nil)

	_, err := creator.Create(t.Context(), "alice", "csrf", portalsdk.CreateTokenRequest{TokenName: "x"})
	require.Error(t, err)
	require.Equal(t, PhaseError, creator.State().Phase)

	resp, err := creator.Create(t.Context(), "alice", "csrf", portalsdk.CreateTokenRequest{TokenName: "x"})
	require.NoError(t, err)
	require.Equal(t, "gt-second-attempt", resp.Token)

	state := creator.State()
	require.Equal(t, PhaseSuccess, state.Phase)
	require.Empty(t, state.Message)
	require.NoError(t, state.Err)
}
