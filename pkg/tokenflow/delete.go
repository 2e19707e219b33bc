package tokenflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
)

// Deleter drives token deletion through the same phases as Creator. On
// success it additionally removes the token's detail cache entry outright:
// a deleted token must not be re-servable from a stale cache.
type Deleter struct {
	client *portalsdk.Client
	cache  *querycache.Cache
	logger *slog.Logger

	mu    sync.Mutex
	state State
	notifier
}

// NewDeleter builds a Deleter. logger may be nil.
func NewDeleter(client *portalsdk.Client, cache *querycache.Cache, logger *slog.Logger) *Deleter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Deleter{client: client, cache: cache, logger: logger}
}

// State returns the current snapshot.
func (d *Deleter) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Subscribe registers a callback for state transitions and returns an
// unsubscribe function.
func (d *Deleter) Subscribe(fn func(State)) func() {
	return d.subscribe(fn)
}

// Delete revokes the token with the given key. Deletion is irreversible.
func (d *Deleter) Delete(ctx context.Context, username, csrf, key string) error {
	d.transition(State{Phase: PhaseSubmitting})

	if csrf == "" {
		err := portalsdk.ErrMissingCSRF
		d.transition(State{Phase: PhaseError, Message: err.Message, Err: err})
		return err
	}

	_, err := querycache.Mutate(ctx, d.cache, querycache.DeleteTokenMutation(d.client), querycache.DeleteTokenInput{
		Username: username,
		CSRF:     csrf,
		Key:      key,
	})
	if err != nil {
		d.logger.Warn("token deletion failed", "username", username, "key", key, "error", err)
		d.transition(State{Phase: PhaseError, Message: displayMessage(err), Err: err})
		return err
	}

	d.logger.Info("token deleted", "username", username, "key", key)
	d.transition(State{Phase: PhaseSuccess})
	return nil
}

func (d *Deleter) transition(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()

	for _, fn := range d.callbacks() {
		fn(s)
	}
}
