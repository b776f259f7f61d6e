package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/grouping"
	"github.com/desertthunder/radiosync/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the parallel playlist fetches of [CollectWindow].
const DefaultConcurrency = 4

// ShowSource lists a station's shows and their episode playlists.
type ShowSource interface {
	ShowsForDate(ctx context.Context, station string, day time.Time) ([]models.Show, error)
	Playlist(ctx context.Context, show models.Show) ([]models.Track, error)
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the days-long window ending on end. days below 1 is treated as 1.
func NewWindow(end time.Time, days int) Window {
	days = max(days, 1)
	end = truncateDay(end)
	return Window{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// Days lists the window's days in chronological order.
func (w Window) Days() []time.Time {
	var out []time.Time
	for d := truncateDay(w.Start); !d.After(w.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StationFilter pairs a station with the filter choosing its shows.
type StationFilter struct {
	Name   string
	Filter *grouping.ShowFilter
}

type showRef struct {
	station string
	show    models.Show
}

// CollectWindow fetches every allowed show of every station over the window and groups
// the episodes by station and title.
//
// Failed listings or playlists are logged and skipped. Groups come out in station order,
// then in the order shows first appear in the calendar.
func CollectWindow(ctx context.Context, src ShowSource, stations []StationFilter, w Window, concurrency int, logger *log.Logger, progress chan<- ProgressUpdate) ([]models.ShowGroup, error) {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	days := w.Days()
	var refs []showRef
	step, total := 0, len(days)*len(stations)
	for _, st := range stations {
		seen := make(map[uint64]struct{})
		for _, day := range days {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			step++
			shows, err := src.ShowsForDate(ctx, st.Name, day)
			if err != nil {
				logger.Warn("failed to list shows", "station", st.Name, "date", day.Format(time.DateOnly), "err", err)
				continue
			}
			sendProgress(progress, fetchShowsUpdate(step, total, st.Name, day))
			for _, show := range shows {
				if _, ok := seen[show.ID]; ok {
					continue
				}
				seen[show.ID] = struct{}{}
				if st.Filter != nil && !st.Filter.Allow(show.Title) {
					logger.Debug("show filtered", "station", st.Name, "title", show.Title)
					continue
				}
				refs = append(refs, showRef{station: st.Name, show: show})
			}
		}
	}

	episodes := make([][]models.Track, len(refs))
	ok := make([]bool, len(refs))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			tracks, err := src.Playlist(gctx, ref.show)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("failed to fetch playlist", "station", ref.station, "show", ref.show.ID, "err", err)
				return nil
			}
			episodes[i], ok[i] = tracks, true

			mu.Lock()
			done++
			sendProgress(progress, fetchPlaylistUpdate(done, len(refs), ref.station, ref.show.Title))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	collector := grouping.NewCollector()
	for i, ref := range refs {
		if !ok[i] {
			continue
		}
		collector.Add(ref.station, models.ShowEpisode{Show: ref.show, Tracks: episodes[i]})
	}
	return collector.Groups(), nil
}
