package portalsdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExpirationChoiceRoundTrip(t *testing.T) {
	t.Parallel()

	choices := []ExpirationChoice{Expires1d, Expires7d, Expires30d, Expires90d, ExpiresNever}
	for _, c := range choices {
		parsed, ok := ParseExpirationChoice(FormatExpirationChoice(c))
		require.True(t, ok, "choice %q", c)
		require.Equal(t, c, parsed)
	}
}

func TestParseExpirationChoiceRejectsUnknown(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "2d", "1D", "forever", "30", "never "} {
		_, ok := ParseExpirationChoice(s)
		require.False(t, ok, "input %q", s)
	}
}

func TestExpirationChoiceEpoch(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	t.Run("never yields nil", func(t *testing.T) {
		require.Nil(t, ExpiresNever.Epoch(now))
	})

	t.Run("finite choices add their duration", func(t *testing.T) {
		ts := Expires7d.Epoch(now)
		require.NotNil(t, ts)
		require.Equal(t, now.Add(7*24*time.Hour).Unix(), *ts)
	})
}
