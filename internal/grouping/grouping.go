package grouping

import (
	"strings"

	"github.com/desertthunder/radiosync/internal/models"
)

// KeySeparator joins station and show title in a group key.
const KeySeparator = "-"

// GroupKey serializes the (station, title) pair.
func GroupKey(station, title string) string {
	return station + KeySeparator + title
}

// SplitGroupKey reverses [GroupKey]. The first segment is the station; every trailing
// segment is re-joined so titles containing the separator survive the round trip.
func SplitGroupKey(key string) (station, title string) {
	parts := strings.Split(key, KeySeparator)
	return parts[0], strings.Join(parts[1:], KeySeparator)
}

// Collector accumulates episodes per group key.
//
// Groups are emitted in the order their key was first seen and episodes keep arrival order.
type Collector struct {
	order    []string
	episodes map[string][]models.ShowEpisode
}

// NewCollector returns an empty [Collector].
func NewCollector() *Collector {
	return &Collector{episodes: make(map[string][]models.ShowEpisode)}
}

// Add appends ep to the group of (station, ep.Show.Title).
func (c *Collector) Add(station string, ep models.ShowEpisode) {
	key := GroupKey(station, ep.Show.Title)
	if _, ok := c.episodes[key]; !ok {
		c.order = append(c.order, key)
	}
	c.episodes[key] = append(c.episodes[key], ep)
}

// Len returns the number of distinct groups.
func (c *Collector) Len() int { return len(c.order) }

// Groups returns every collected group.
func (c *Collector) Groups() []models.ShowGroup {
	groups := make([]models.ShowGroup, 0, len(c.order))
	for _, key := range c.order {
		station, title := SplitGroupKey(key)
		groups = append(groups, models.ShowGroup{Station: station, Title: title, Episodes: c.episodes[key]})
	}
	return groups
}

// TrackKey is the dedup identity of a track: lowercase, trimmed "artist - song".
func TrackKey(t models.Track) string {
	return strings.ToLower(strings.TrimSpace(t.Artist)) + " - " + strings.ToLower(strings.TrimSpace(t.Song))
}

// Dedupe returns the first occurrence of every track across episodes, in first-seen order.
// Original casing and metadata of the first occurrence are kept.
func Dedupe(episodes []models.ShowEpisode) []models.Track {
	seen := make(map[string]struct{})
	var tracks []models.Track
	for _, ep := range episodes {
		for _, t := range ep.Tracks {
			key := TrackKey(t)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// Watermark returns the highest show ID across episodes, or 0 when there are none.
func Watermark(episodes []models.ShowEpisode) uint64 {
	var max uint64
	for _, ep := range episodes {
		if ep.Show.ID > max {
			max = ep.Show.ID
		}
	}
	return max
}

// Episodes counts distinct show IDs, so a show scraped twice is reported once.
func Episodes(episodes []models.ShowEpisode) int {
	ids := make(map[uint64]struct{}, len(episodes))
	for _, ep := range episodes {
		ids[ep.Show.ID] = struct{}{}
	}
	return len(ids)
}
