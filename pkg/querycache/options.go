package querycache

import (
	"context"
	"time"

	"github.com/helioscope/skyportal/pkg/portalsdk"
)

// Staleness windows per query family. Identity and token data tolerate a
// short window; login info is always refetched so the CSRF token is current
// when consumed.
const (
	userInfoStaleTime  = time.Minute
	tokenListStaleTime = 30 * time.Second
	historyStaleTime   = 30 * time.Second

	// DiscoveryStaleTime and DiscoveryCacheTime give the service directory
	// a 5-minute freshness window with 10-minute retention.
	DiscoveryStaleTime = 5 * time.Minute
	DiscoveryCacheTime = 10 * time.Minute
)

// UserInfoQuery binds the user-info fetch to its cache key.
func UserInfoQuery(client *portalsdk.Client) Query {
	return Query{
		Key:       UserInfoKey(),
		StaleTime: userInfoStaleTime,
		Fetch: func(ctx context.Context) (any, error) {
			return client.UserInfo(ctx)
		},
	}
}

// LoginInfoQuery binds the login-info fetch. StaleTime is zero: the CSRF
// token is consumed immediately before mutations and must be current.
func LoginInfoQuery(client *portalsdk.Client) Query {
	return Query{
		Key: LoginInfoKey(),
		Fetch: func(ctx context.Context) (any, error) {
			return client.LoginInfo(ctx)
		},
	}
}

// TokenListQuery binds the active-token list for one user.
func TokenListQuery(client *portalsdk.Client, username string) Query {
	return Query{
		Key:       TokenListKey(username),
		StaleTime: tokenListStaleTime,
		Fetch: func(ctx context.Context) (any, error) {
			return client.ListTokens(ctx, username)
		},
	}
}

// TokenDetailQuery binds one token's detail record.
func TokenDetailQuery(client *portalsdk.Client, username, key string) Query {
	return Query{
		Key:       TokenDetailKey(username, key),
		StaleTime: tokenListStaleTime,
		Fetch: func(ctx context.Context) (any, error) {
			return client.TokenDetail(ctx, username, key)
		},
	}
}

// HistoryPageQuery binds one filtered page of token change history.
func HistoryPageQuery(client *portalsdk.Client, username string, filters portalsdk.HistoryFilters) Query {
	return Query{
		Key:       HistoryKey(username, filters),
		StaleTime: historyStaleTime,
		Fetch: func(ctx context.Context) (any, error) {
			return client.TokenChangeHistory(ctx, username, filters)
		},
	}
}

// DiscoveryQuery binds the service directory fetch. Any failure (network,
// HTTP, or schema validation) resolves to the canonical empty directory
// instead of an error: discovery is best-effort and callers only perform an
// availability check against the result. The cost, inherited deliberately,
// is that a real outage is indistinguishable from "nothing configured".
func DiscoveryQuery(client *portalsdk.Client, repertoireURL string) Query {
	return Query{
		Key:       DiscoveryKey(repertoireURL),
		StaleTime: DiscoveryStaleTime,
		CacheTime: DiscoveryCacheTime,
		Fetch: func(ctx context.Context) (any, error) {
			d, err := client.ServiceDiscovery(ctx, repertoireURL)
			if err != nil {
				return portalsdk.EmptyDiscovery(), nil
			}
			return d, nil
		},
	}
}

// CreateTokenInput is the input of the token-creation mutation.
type CreateTokenInput struct {
	Username string
	CSRF     string
	Request  portalsdk.CreateTokenRequest
}

// CreateTokenMutation creates a token and invalidates the owner's token
// list and history. The returned secret is handed straight to the caller
// and never enters the cache.
func CreateTokenMutation(client *portalsdk.Client) Mutation[CreateTokenInput, *portalsdk.CreateTokenResponse] {
	return Mutation[CreateTokenInput, *portalsdk.CreateTokenResponse]{
		Run: func(ctx context.Context, in CreateTokenInput) (*portalsdk.CreateTokenResponse, error) {
			return client.CreateToken(ctx, in.Username, in.CSRF, in.Request)
		},
		Invalidates: func(in CreateTokenInput) []Key {
			return []Key{TokenListKey(in.Username), HistoryRootKey(in.Username)}
		},
	}
}

// DeleteTokenInput is the input of the token-deletion mutation.
type DeleteTokenInput struct {
	Username string
	CSRF     string
	Key      string
}

// DeleteTokenMutation deletes a token. Beyond invalidating the list and
// history, it removes the token's detail entry outright: the resource no
// longer exists and must not be re-served from a stale cache.
func DeleteTokenMutation(client *portalsdk.Client) Mutation[DeleteTokenInput, struct{}] {
	return Mutation[DeleteTokenInput, struct{}]{
		Run: func(ctx context.Context, in DeleteTokenInput) (struct{}, error) {
			return struct{}{}, client.DeleteToken(ctx, in.Username, in.CSRF, in.Key)
		},
		Invalidates: func(in DeleteTokenInput) []Key {
			return []Key{TokenListKey(in.Username), HistoryRootKey(in.Username)}
		},
		Removes: func(in DeleteTokenInput) []Key {
			return []Key{TokenDetailKey(in.Username, in.Key)}
		},
	}
}
