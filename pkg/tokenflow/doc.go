// Package tokenflow provides small state machines for the portal's token
// workflows: creation, deletion, name-uniqueness checking, and paginated
// change history.
//
// Each flow exposes an explicit state snapshot and a subscribe/notify
// mechanism instead of being tied to any UI framework's render cycle. Flows
// are re-entrant (invoking the primary action again clears a prior error)
// but rely on the querycache layer for at-most-one-in-flight-per-key
// behavior rather than duplicating it.
package tokenflow
