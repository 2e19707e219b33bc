// Package querycache layers a small query cache over the portal SDK.
//
// Keys are hierarchical: invalidating an ancestor key invalidates every key
// that extends it. Queries and mutations are plain descriptors binding a
// fetch function to a key, a staleness window, and (for mutations) the key
// lists to invalidate or remove on success; the Cache interprets them with
// at most one in-flight fetch per key.
package querycache
