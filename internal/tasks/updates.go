package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, a *GroupResult for [ReconcileGroup]
}

// Operation phase enumeration
type Phase int

const (
	FetchShows Phase = iota
	FetchPlaylists
	ReconcileGroup
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchShows:
		return "fetch_shows"
	case FetchPlaylists:
		return "fetch_playlists"
	case ReconcileGroup:
		return "reconcile"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchShowsUpdate(step, total int, station string, day time.Time) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchShows,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetched shows for %s on %s", station, day.Format(time.DateOnly)),
	}
}

func fetchPlaylistUpdate(step, total int, station, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s", step, total, station, title),
	}
}

func reconcileStartUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcileGroup,
		Step:    step - 1,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Syncing %s...", step, total, name),
	}
}

func reconcileDoneUpdate(step, total int, res *GroupResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%s, %d tracks)", step, total, res.Name, res.State, res.Added)
	if res.Err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Name, res.Err)
	}
	return ProgressUpdate{Phase: ReconcileGroup, Step: step, Total: total, Message: msg, Data: res}
}

func completeUpdate(summary *RunSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    len(summary.Results),
		Total:   len(summary.Results),
		Message: summary.String(),
		Data:    summary,
	}
}
