package portalsdk

// ============================================================================
// Token Types
// ============================================================================

// TokenType classifies how a token was issued.
type TokenType string

const (
	TokenTypeSession  TokenType = "session"
	TokenTypeUser     TokenType = "user"
	TokenTypeNotebook TokenType = "notebook"
	TokenTypeInternal TokenType = "internal"
	TokenTypeService  TokenType = "service"
	TokenTypeOIDC     TokenType = "oidc"
)

// TokenKeyLength is the fixed length of a token's opaque lookup key.
// The key identifies a token in API paths and is distinct from the raw
// secret, which is only shown once at creation.
const TokenKeyLength = 22

// TokenInfo describes an issued token.
type TokenInfo struct {
	// Username is the owning user.
	Username string `json:"username" validate:"required,max=64"`

	// TokenType classifies the token (session, user, notebook, ...).
	TokenType TokenType `json:"token_type" validate:"required,oneof=session user notebook internal service oidc"`

	// Token is the opaque 22-character lookup key, not the secret.
	Token string `json:"token" validate:"required,len=22"`

	// Scopes granted to the token.
	Scopes []string `json:"scopes"`

	// Created is the creation time in epoch seconds.
	Created int64 `json:"created" validate:"required"`

	// Expires is the expiration time in epoch seconds. Nil means the token
	// never expires.
	Expires *int64 `json:"expires,omitempty"`

	// TokenName is the optional human-assigned name, unique per user
	// (case-insensitive).
	TokenName *string `json:"token_name,omitempty" validate:"omitempty,max=64"`

	// Parent is the key of the token this one was derived from, if any.
	// The parent may have since been deleted.
	Parent *string `json:"parent,omitempty" validate:"omitempty,len=22"`

	// LastUsed is the last-use time in epoch seconds, if known.
	LastUsed *int64 `json:"last_used,omitempty"`
}

// CreateTokenRequest is the body of a token-creation request.
type CreateTokenRequest struct {
	// TokenName is the human-assigned name for the new token.
	TokenName string `json:"token_name"`

	// Scopes to grant the new token.
	Scopes []string `json:"scopes"`

	// Expires is the expiration in epoch seconds, or nil for never.
	Expires *int64 `json:"expires"`
}

// CreateTokenResponse carries the full token secret. It is returned exactly
// once at creation and must not be cached or persisted.
type CreateTokenResponse struct {
	Token string `json:"token" validate:"required"`
}

// ============================================================================
// Token Change History
// ============================================================================

// TokenAction is the kind of change recorded in a history entry.
type TokenAction string

const (
	ActionCreate TokenAction = "create"
	ActionRevoke TokenAction = "revoke"
	ActionExpire TokenAction = "expire"
	ActionEdit   TokenAction = "edit"
)

// TokenChangeHistoryEntry is one immutable audit record. Entries are
// append-only: they are never mutated or deleted server-side.
type TokenChangeHistoryEntry struct {
	Username  string    `json:"username" validate:"required,max=64"`
	TokenType TokenType `json:"token_type" validate:"required,oneof=session user notebook internal service oidc"`
	Token     string    `json:"token" validate:"required,len=22"`
	TokenName *string   `json:"token_name,omitempty" validate:"omitempty,max=64"`
	Parent    *string   `json:"parent,omitempty" validate:"omitempty,len=22"`
	Scopes    []string  `json:"scopes"`
	Expires   *int64    `json:"expires,omitempty"`

	// Actor is who performed the change.
	Actor string `json:"actor" validate:"required"`

	// Action is what happened (create, revoke, expire, edit).
	Action TokenAction `json:"action" validate:"required,oneof=create revoke expire edit"`

	// Old-value snapshots, present only for edits.
	OldTokenName *string  `json:"old_token_name,omitempty"`
	OldScopes    []string `json:"old_scopes,omitempty"`
	OldExpires   *int64   `json:"old_expires,omitempty"`

	// IPAddress is the source address of the request that made the change.
	IPAddress *string `json:"ip_address,omitempty"`

	// EventTime is when the change happened, in epoch seconds.
	EventTime int64 `json:"event_time" validate:"required"`
}

// ============================================================================
// User and Login Info
// ============================================================================

// Group is one group membership.
type Group struct {
	Name string `json:"name" validate:"required"`
	ID   int    `json:"id" validate:"required,gt=0"`
}

// NotebookQuota limits notebook spawning for a user.
type NotebookQuota struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Spawn  bool    `json:"spawn"`
}

// TAPQuota limits TAP service usage for a user.
type TAPQuota struct {
	Concurrent int `json:"concurrent"`
}

// Quota bundles a user's resource allowances.
type Quota struct {
	// API maps service names to request-rate allowances.
	API      map[string]int      `json:"api,omitempty"`
	Notebook *NotebookQuota      `json:"notebook,omitempty"`
	TAP      map[string]TAPQuota `json:"tap,omitempty"`
}

// UserInfo is the identity record for the authenticated user. It is an
// immutable snapshot until invalidated by a refetch.
type UserInfo struct {
	Username string  `json:"username" validate:"required,max=64"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	UID      *int    `json:"uid,omitempty"`
	GID      *int    `json:"gid,omitempty"`
	Groups   []Group `json:"groups,omitempty" validate:"omitempty,dive"`
	Quota    *Quota  `json:"quota,omitempty"`
}

// Scope is one permission the platform defines.
type Scope struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// LoginConfig is the catalog of scopes the platform defines.
type LoginConfig struct {
	Scopes []Scope `json:"scopes" validate:"dive"`
}

// LoginInfo is the session credential bundle. It is fetched on demand and
// consumed immediately before any mutation to supply the CSRF header.
// The granted Scopes are always a subset of Config.Scopes names; responses
// violating that fail validation.
type LoginInfo struct {
	// CSRF is the opaque token required in headers of all mutating requests.
	CSRF     string      `json:"csrf" validate:"required"`
	Username string      `json:"username" validate:"required,max=64"`
	Scopes   []string    `json:"scopes"`
	Config   LoginConfig `json:"config"`
}

// ============================================================================
// Service Discovery
// ============================================================================

// VersionedService is a backend service endpoint with optional OpenAPI spec
// and versioned sub-URLs.
type VersionedService struct {
	URL      string            `json:"url" validate:"required,url,max=2083"`
	OpenAPI  *string           `json:"openapi,omitempty" validate:"omitempty,url,max=2083"`
	Versions map[string]string `json:"versions,omitempty" validate:"omitempty,dive,url,max=2083"`
}

// UIService is a user-facing service endpoint.
type UIService struct {
	URL string `json:"url" validate:"required,url,max=2083"`
}

// Dataset describes one dataset and its data-access services.
type Dataset struct {
	ButlerConfig *string                     `json:"butler_config,omitempty" validate:"omitempty,url,max=2083"`
	DocsURL      *string                     `json:"docs_url,omitempty" validate:"omitempty,url,max=2083"`
	DataServices map[string]VersionedService `json:"data_services,omitempty" validate:"omitempty,dive"`
}

// InfluxDatabase is a time-series database connection. Credentials are never
// carried inline; CredentialsURL points at an indirection service.
type InfluxDatabase struct {
	URL            string `json:"url" validate:"required,url,max=2083"`
	Database       string `json:"database" validate:"required"`
	SchemaRegistry string `json:"schema_registry,omitempty" validate:"omitempty,url,max=2083"`
	CredentialsURL string `json:"credentials_url,omitempty" validate:"omitempty,url,max=2083"`
}

// ServiceDiscovery is the directory of platform services.
type ServiceDiscovery struct {
	Applications    []string                    `json:"applications"`
	Internal        map[string]VersionedService `json:"internal,omitempty" validate:"omitempty,dive"`
	UI              map[string]UIService        `json:"ui,omitempty" validate:"omitempty,dive"`
	Datasets        map[string]Dataset          `json:"datasets,omitempty" validate:"omitempty,dive"`
	InfluxDatabases map[string]InfluxDatabase   `json:"influxdb_databases,omitempty" validate:"omitempty,dive"`
}

// EmptyDiscovery returns the canonical "no services" value. Callers of the
// degraded discovery path cannot distinguish this from a real outage.
func EmptyDiscovery() *ServiceDiscovery {
	return &ServiceDiscovery{Applications: []string{}}
}

// IsEmpty reports whether the discovery result carries no services at all.
func (d *ServiceDiscovery) IsEmpty() bool {
	return d == nil || (len(d.Applications) == 0 && len(d.Internal) == 0 &&
		len(d.UI) == 0 && len(d.Datasets) == 0 && len(d.InfluxDatabases) == 0)
}

// ============================================================================
// Error Body Shape
// ============================================================================

// ValidationDetail is one entry of a structured error body:
// {"detail": {"loc": ["body", "token_name"], "msg": "...", "type": "..."}}.
// The detail field may hold a bare string, one of these, or a list.
type ValidationDetail struct {
	Loc  []string `json:"loc,omitempty"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}
