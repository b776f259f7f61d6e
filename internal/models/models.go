package models

import "time"

// Track is a song played during a show. Label and Time are empty when the source omits them.
type Track struct {
	Artist string `json:"artist"`
	Song   string `json:"song"`
	Album  string `json:"album"`
	Label  string `json:"label,omitempty"`
	Time   string `json:"time,omitempty"`
}

// Show is a single broadcast of a program on a station.
type Show struct {
	ID    uint64    `json:"id"`
	Title string    `json:"title"`
	URL   string    `json:"url"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ShowEpisode is one broadcast and the tracks played during it.
type ShowEpisode struct {
	Show   Show    `json:"show"`
	Tracks []Track `json:"tracks"`
}

// ShowGroup is every episode of one program inside the sync window, in arrival order.
type ShowGroup struct {
	Station  string
	Title    string
	Episodes []ShowEpisode
}

// TrackCount returns the number of tracks across all episodes before deduplication.
func (g ShowGroup) TrackCount() int {
	n := 0
	for _, ep := range g.Episodes {
		n += len(ep.Tracks)
	}
	return n
}

// ResolvedTrack is a track found by the remote search.
type ResolvedTrack struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	URI     string   `json:"uri"`
}

// PlaylistRecord is an owned remote playlist as seen in the latest listing.
type PlaylistRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ExternalURL string `json:"external_url"`
	TrackCount  int    `json:"track_count"`
	Watermark   uint64 `json:"watermark"`
}
