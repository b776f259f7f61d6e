// Package repositories provides the SQLite persistence layer.
//
// [TrackCacheStore] implements cache.Store over the track_cache table created by the
// migrations embedded in the shared package. Each row holds one lookup key, the resolved
// track encoded as JSON (NULL when the search found nothing) and the expiry instant.
package repositories
