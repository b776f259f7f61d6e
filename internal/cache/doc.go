// Package cache holds the track search cache: a mapping from lookup key to a resolved
// track (or the absence of one) plus an expiry instant.
//
// A [Cache] reads its [Store] once when opened and rewrites it in full on every
// [Cache.Save], purging expired entries first. Expiry is otherwise lazy: a resident
// expired entry is still returned by [Cache.Get] unless strict expiry is enabled.
//
// Three stores are available:
//   - [FileStore] : a JSON document written atomically through a temp file and rename
//   - [RedisStore] : one Redis key per entry with a native TTL
//   - repositories.TrackCacheStore : a SQLite table
//
// There is no locking across processes, so two concurrent runs can overwrite each other.
package cache
