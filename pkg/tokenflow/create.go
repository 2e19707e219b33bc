package tokenflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
)

// Creator drives token creation through idle → submitting → success|error.
//
// A missing CSRF token fails immediately with an authentication error and no
// network call. On success the owner's token list and history are
// invalidated and the one-time secret is returned to the caller only; it is
// never retained in state or cache.
//
// Calling Create again resets any prior error. Overlapping calls for the
// same user are serialized by the cache's one-in-flight-per-key behavior,
// not re-implemented here.
type Creator struct {
	client *portalsdk.Client
	cache  *querycache.Cache
	logger *slog.Logger

	mu    sync.Mutex
	state State
	notifier
}

// NewCreator builds a Creator. logger may be nil.
func NewCreator(client *portalsdk.Client, cache *querycache.Cache, logger *slog.Logger) *Creator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Creator{client: client, cache: cache, logger: logger}
}

// State returns the current snapshot.
func (c *Creator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a callback for state transitions and returns an
// unsubscribe function. Callbacks must not block.
func (c *Creator) Subscribe(fn func(State)) func() {
	return c.subscribe(fn)
}

// Create submits a token-creation request. The returned response carries the
// one-time secret; errors are both stored in state for rendering and
// returned so awaiting callers can react.
func (c *Creator) Create(
	ctx context.Context,
	username, csrf string,
	req portalsdk.CreateTokenRequest,
) (*portalsdk.CreateTokenResponse, error) {
	c.transition(State{Phase: PhaseSubmitting})

	if csrf == "" {
		err := portalsdk.ErrMissingCSRF
		c.transition(State{Phase: PhaseError, Message: err.Message, Err: err})
		return nil, err
	}

	resp, err := querycache.Mutate(ctx, c.cache, querycache.CreateTokenMutation(c.client), querycache.CreateTokenInput{
		Username: username,
		CSRF:     csrf,
		Request:  req,
	})
	if err != nil {
		c.logger.Warn("token creation failed", "username", username, "error", err)
		c.transition(State{Phase: PhaseError, Message: displayMessage(err), Err: err})
		return nil, err
	}

	c.logger.Info("token created", "username", username, "token_name", req.TokenName)
	c.transition(State{Phase: PhaseSuccess})
	return resp, nil
}

// transition stores the new state and notifies subscribers outside the lock.
func (c *Creator) transition(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	for _, fn := range c.callbacks() {
		fn(s)
	}
}

// displayMessage extracts a human-readable message from a flow error,
// falling back to the generic mapping so a raw status code never leaks to
// the UI.
func displayMessage(err error) string {
	var apiErr *portalsdk.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var valErr *portalsdk.ValidationError
	if errors.As(err, &valErr) {
		return "The server returned an unexpected response. Please try again."
	}
	return portalsdk.MessageForStatus(-1)
}
