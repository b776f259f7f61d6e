// Package grouping merges scraped episodes into per-show groups and derives everything
// the reconciler needs from a group: the deduplicated track list, the watermark, the
// canonical playlist name and the description that carries the ownership marker.
package grouping
