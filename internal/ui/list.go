package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/radiosync/internal/tasks"
)

var _ list.Item = resultItem{}

// resultItem wraps [tasks.GroupResult] to implement [list.Item].
type resultItem struct {
	result tasks.GroupResult
}

func (i resultItem) FilterValue() string { return i.result.Name }
func (i resultItem) Title() string       { return i.result.Name }
func (i resultItem) Description() string {
	r := i.result
	switch {
	case r.Err != nil:
		return fmt.Sprintf("failed • %v", r.Err)
	case r.Playlist == nil:
		return "skipped • no tracks"
	case r.State == tasks.UpToDate:
		return fmt.Sprintf("up to date • %d tracks", r.Playlist.TrackCount)
	default:
		return fmt.Sprintf("%s • %d added • %d unmatched • %d episodes", r.State, r.Added, r.Unresolved, r.Episodes)
	}
}

// url is the playlist link, empty when the group produced none.
func (i resultItem) url() string {
	if i.result.Playlist == nil {
		return ""
	}
	return i.result.Playlist.ExternalURL
}

func resultItems(summary *tasks.RunSummary) []list.Item {
	if summary == nil {
		return nil
	}
	items := make([]list.Item, len(summary.Results))
	for i, r := range summary.Results {
		items[i] = resultItem{result: r}
	}
	return items
}
