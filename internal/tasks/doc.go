// Package tasks turns a window of radio shows into playlists.
//
// # Pipeline
//
//  1. [CollectWindow] lists every station's shows day by day, fetches their playlists
//     with bounded concurrency and groups the episodes by station and title.
//  2. [SyncEngine.Run] walks the groups in order and hands each to a [PlaylistReconciler].
//  3. The reconciler refreshes its [OwnershipIndex], then either creates the group's
//     playlist or clears and refills the existing one through a [TrackBatcher].
//  4. The batcher resolves each track with a [TrackResolver], which consults the TTL
//     cache before searching, and submits references in chunks of at most 100.
//
// # Progress Reporting
//
// Collection and sync send [ProgressUpdate] values on an optional channel. Sends never
// block; a full channel drops the update.
package tasks
