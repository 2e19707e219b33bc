package portal_test

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/helioscope/skyportal/pkg/portalsdk"
)

const (
	testUsername = "testuser"
	testCSRF     = "e2e-csrf-token"
)

// fakePortal is an in-memory stand-in for the token API. It enforces the
// CSRF header on mutations, records history for every change, and pages
// history responses with Link headers.
type fakePortal struct {
	mu       sync.Mutex
	tokens   map[string]portalsdk.TokenInfo
	history  []portalsdk.TokenChangeHistoryEntry
	pageSize int
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		tokens:   make(map[string]portalsdk.TokenInfo),
		pageSize: 2,
	}
}

func newTokenKey() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 19)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return "gt-" + string(buf)
}

func (p *fakePortal) serve(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"csrf":     testCSRF,
			"username": testUsername,
			"scopes":   []string{"read:tap", "exec:notebook"},
			"config": map[string]any{
				"scopes": []map[string]string{
					{"name": "read:tap", "description": "query catalogs"},
					{"name": "exec:notebook", "description": "spawn notebooks"},
				},
			},
		})
	})
	mux.HandleFunc("GET /user-info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"username": testUsername, "name": "Test User"})
	})
	mux.HandleFunc("GET /users/{username}/tokens", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		list := make([]portalsdk.TokenInfo, 0, len(p.tokens))
		for _, tok := range p.tokens {
			list = append(list, tok)
		}
		writeJSON(w, list)
	})
	mux.HandleFunc("POST /users/{username}/tokens", func(w http.ResponseWriter, r *http.Request) {
		if !p.checkCSRF(w, r) {
			return
		}
		var req portalsdk.CreateTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"detail": "malformed body"}`, http.StatusBadRequest)
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		for _, tok := range p.tokens {
			if tok.TokenName != nil && strings.EqualFold(*tok.TokenName, req.TokenName) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				writeJSON(w, map[string]any{"detail": []map[string]any{{
					"loc":  []string{"body", "token_name"},
					"msg":  "token name already in use",
					"type": "value_error",
				}}})
				return
			}
		}

		key := newTokenKey()
		name := req.TokenName
		tok := portalsdk.TokenInfo{
			Username:  r.PathValue("username"),
			TokenType: portalsdk.TokenTypeUser,
			Token:     key,
			Scopes:    req.Scopes,
			Created:   time.Now().Unix(),
			Expires:   req.Expires,
			TokenName: &name,
		}
		p.tokens[key] = tok
		p.recordLocked(tok, portalsdk.ActionCreate)

		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]string{"token": key + ".secret-part"})
	})
	mux.HandleFunc("DELETE /users/{username}/tokens/{key}", func(w http.ResponseWriter, r *http.Request) {
		if !p.checkCSRF(w, r) {
			return
		}
		key := r.PathValue("key")

		p.mu.Lock()
		defer p.mu.Unlock()
		tok, ok := p.tokens[key]
		if !ok {
			http.Error(w, `{"detail": "token not found"}`, http.StatusNotFound)
			return
		}
		delete(p.tokens, key)
		p.recordLocked(tok, portalsdk.ActionRevoke)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /users/{username}/token-change-history", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		offset := 0
		if c := r.URL.Query().Get("cursor"); c != "" {
			fmt.Sscanf(c, "off%d", &offset)
		}

		// Newest first.
		entries := make([]portalsdk.TokenChangeHistoryEntry, len(p.history))
		for i, e := range p.history {
			entries[len(p.history)-1-i] = e
		}

		end := offset + p.pageSize
		if end > len(entries) {
			end = len(entries)
		}
		page := entries[offset:end]

		w.Header().Set("X-Total-Count", fmt.Sprintf("%d", len(entries)))
		if end < len(entries) {
			w.Header().Set("Link",
				fmt.Sprintf("<%s?cursor=off%d>; rel=\"next\"", r.URL.Path, end))
		}
		writeJSON(w, page)
	})
	mux.HandleFunc("GET /discovery", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"applications": []string{"portal", "nublado"},
			"internal": map[string]any{
				"tap": map[string]string{"url": "https://data.example.org/api/tap"},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (p *fakePortal) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-CSRF-Token") != testCSRF {
		http.Error(w, `{"detail": "missing or invalid CSRF token"}`, http.StatusForbidden)
		return false
	}
	return true
}

func (p *fakePortal) recordLocked(tok portalsdk.TokenInfo, action portalsdk.TokenAction) {
	ip := "192.0.2.1"
	p.history = append(p.history, portalsdk.TokenChangeHistoryEntry{
		Username:  tok.Username,
		TokenType: tok.TokenType,
		Token:     tok.Token,
		TokenName: tok.TokenName,
		Scopes:    tok.Scopes,
		Expires:   tok.Expires,
		Actor:     tok.Username,
		Action:    action,
		IPAddress: &ip,
		EventTime: int64(len(p.history)) + 1_700_000_000,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
