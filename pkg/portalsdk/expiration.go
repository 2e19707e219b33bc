package portalsdk

import "time"

// ExpirationChoice is a user-selectable token lifetime, as carried in query
// strings and form state.
type ExpirationChoice string

const (
	Expires1d    ExpirationChoice = "1d"
	Expires7d    ExpirationChoice = "7d"
	Expires30d   ExpirationChoice = "30d"
	Expires90d   ExpirationChoice = "90d"
	ExpiresNever ExpirationChoice = "never"
)

// FormatExpirationChoice renders a choice as its query-string value.
func FormatExpirationChoice(c ExpirationChoice) string {
	return string(c)
}

// ParseExpirationChoice parses a query-string value back into a choice.
// Any string outside the known set yields ok=false.
func ParseExpirationChoice(s string) (ExpirationChoice, bool) {
	switch ExpirationChoice(s) {
	case Expires1d, Expires7d, Expires30d, Expires90d, ExpiresNever:
		return ExpirationChoice(s), true
	default:
		return "", false
	}
}

// Epoch converts a choice into an expiration timestamp in epoch seconds
// relative to now, or nil for ExpiresNever.
func (c ExpirationChoice) Epoch(now time.Time) *int64 {
	var d time.Duration
	switch c {
	case Expires1d:
		d = 24 * time.Hour
	case Expires7d:
		d = 7 * 24 * time.Hour
	case Expires30d:
		d = 30 * 24 * time.Hour
	case Expires90d:
		d = 90 * 24 * time.Hour
	default:
		return nil
	}
	ts := now.Add(d).Unix()
	return &ts
}
