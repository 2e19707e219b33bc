package histstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/helioscope/skyportal/pkg/portalsdk"
)

// syncPageSize bounds each remote page during a sync.
const syncPageSize = 100

// Sync pages through the remote change history for username and mirrors new
// entries locally, resuming from the newest event already stored. Returns
// the number of entries added.
func Sync(
	ctx context.Context,
	client *portalsdk.Client,
	store *Store,
	username string,
	logger *slog.Logger,
) (int, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	latest, err := store.LatestEventTime(ctx, username)
	if err != nil {
		return 0, err
	}

	filters := portalsdk.HistoryFilters{Limit: syncPageSize}
	if latest > 0 {
		// Overlap by one second: entries sharing the boundary second may
		// have been half-mirrored; InsertEntries skips duplicates.
		filters.Since = time.Unix(latest, 0)
	}

	added := 0
	for {
		page, err := client.TokenChangeHistory(ctx, username, filters)
		if err != nil {
			return added, err
		}

		n, err := store.InsertEntries(ctx, page.Entries)
		if err != nil {
			return added, err
		}
		added += n

		logger.Debug("mirrored history page",
			"username", username,
			"entries", len(page.Entries),
			"new", n,
			"next_cursor", page.NextCursor != "",
		)

		if page.NextCursor == "" {
			return added, nil
		}
		filters.Cursor = page.NextCursor
	}
}
