package tokenflow

import (
	"context"
	"sync"

	"github.com/helioscope/skyportal/pkg/portalsdk"
	"github.com/helioscope/skyportal/pkg/querycache"
)

// HistoryPager wraps cursor-based history fetching into a flat, ever-growing
// sequence of entries. LoadMore is a no-op while a page is in flight or when
// no further cursor exists; HasMore derives purely from cursor presence.
type HistoryPager struct {
	client   *portalsdk.Client
	cache    *querycache.Cache
	username string
	filters  portalsdk.HistoryFilters

	mu         sync.Mutex
	entries    []portalsdk.TokenChangeHistoryEntry
	nextCursor string
	totalCount int
	loaded     bool
	inFlight   bool
	err        error
}

// NewHistoryPager builds a pager over one user's history with a fixed base
// filter set. The Cursor field of filters is managed by the pager and any
// caller-supplied value is ignored.
func NewHistoryPager(
	client *portalsdk.Client,
	cache *querycache.Cache,
	username string,
	filters portalsdk.HistoryFilters,
) *HistoryPager {
	filters.Cursor = ""
	return &HistoryPager{
		client:     client,
		cache:      cache,
		username:   username,
		filters:    filters,
		totalCount: -1,
	}
}

// Entries returns the entries accumulated so far.
func (p *HistoryPager) Entries() []portalsdk.TokenChangeHistoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]portalsdk.TokenChangeHistoryEntry(nil), p.entries...)
}

// HasMore reports whether a further page may exist: true before the first
// load, and afterwards exactly when the last page carried a next cursor.
func (p *HistoryPager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.loaded || p.nextCursor != ""
}

// TotalCount is the server-reported total, or -1 when never reported.
func (p *HistoryPager) TotalCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalCount
}

// Err returns the error from the most recent page load, if any. A
// subsequent successful LoadMore clears it.
func (p *HistoryPager) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// LoadMore fetches the next page and appends its entries. It returns
// immediately without fetching when a page is already in flight or when the
// history is exhausted.
func (p *HistoryPager) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.inFlight || (p.loaded && p.nextCursor == "") {
		p.mu.Unlock()
		return nil
	}
	p.inFlight = true
	filters := p.filters
	filters.Cursor = p.nextCursor
	p.mu.Unlock()

	page, err := querycache.FetchAs[*portalsdk.HistoryPage](
		ctx, p.cache, querycache.HistoryPageQuery(p.client, p.username, filters))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false
	if err != nil {
		p.err = err
		return err
	}

	p.err = nil
	p.loaded = true
	p.entries = append(p.entries, page.Entries...)
	p.nextCursor = page.NextCursor
	if page.TotalCount >= 0 {
		p.totalCount = page.TotalCount
	}
	return nil
}
