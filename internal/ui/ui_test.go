package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/tasks"
)

func sampleSummary() *tasks.RunSummary {
	return &tasks.RunSummary{
		RunID: "run-1",
		Results: []tasks.GroupResult{
			{Name: "KALX - Morning", State: tasks.Created, Added: 10, Playlist: &models.PlaylistRecord{ID: "pl1", ExternalURL: "https://open.spotify.com/playlist/pl1"}},
			{Name: "KALX - Night", Err: errors.New("boom")},
			{Name: "KALX - Silent"},
		},
		Created: 1,
		Failed:  1,
		Skipped: 1,
	}
}

// drain runs the model's progress command until the run completes.
func drain(t *testing.T, m *Model) {
	t.Helper()
	cmd := m.startRun()
	for range 100 {
		msg := cmd()
		_, cmd = m.Update(msg)
		if m.view == SummaryView {
			return
		}
	}
	t.Fatal("run did not complete")
}

func TestModel(t *testing.T) {
	t.Run("follows progress to the summary", func(t *testing.T) {
		summary := sampleSummary()
		run := func(_ context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunSummary, error) {
			progress <- tasks.ProgressUpdate{Phase: tasks.FetchShows, Step: 1, Total: 7, Message: "Fetched shows"}
			progress <- tasks.ProgressUpdate{Phase: tasks.ReconcileGroup, Step: 1, Total: 3, Data: &summary.Results[0]}
			return summary, nil
		}
		m := NewModel(context.Background(), run)
		drain(t, m)

		if m.Summary() != summary || m.Err() != nil {
			t.Fatalf("unexpected outcome: %v, %v", m.Summary(), m.Err())
		}
		if len(m.lines) != 1 || !strings.Contains(m.lines[0], "KALX - Morning") {
			t.Errorf("expected one result line, got %v", m.lines)
		}
		view := m.View()
		if !strings.Contains(view, "1 created") || !strings.Contains(view, "1 failures") {
			t.Errorf("summary view missing counts: %s", view)
		}
	})

	t.Run("run error is shown", func(t *testing.T) {
		run := func(context.Context, chan<- tasks.ProgressUpdate) (*tasks.RunSummary, error) {
			return nil, errors.New("no credentials")
		}
		m := NewModel(context.Background(), run)
		drain(t, m)

		if !strings.Contains(m.View(), "Sync failed: no credentials") {
			t.Errorf("expected error in view: %s", m.View())
		}
	})

	t.Run("sync view shows phase and progress", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.FetchPlaylists, Step: 2, Total: 4, Message: "[2/4] KALX: Morning"}))

		if m.percent() != 0.5 {
			t.Errorf("expected 50%%, got %v", m.percent())
		}
		view := m.View()
		if !strings.Contains(view, "Fetching show playlists") || !strings.Contains(view, "2/4") {
			t.Errorf("unexpected view: %s", view)
		}
	})

	t.Run("result lines are bounded", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		for range maxLines + 5 {
			r := tasks.GroupResult{Name: "KALX - Show"}
			m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.ReconcileGroup, Data: &r}))
		}
		if len(m.lines) != maxLines {
			t.Errorf("expected %d lines, got %d", maxLines, len(m.lines))
		}
	})

	t.Run("enter opens the selected playlist", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		var opened string
		m.open = func(u string) error { opened = u; return nil }
		m.Update(runCompleteMsg(sampleSummary(), nil))

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil {
			t.Fatal("expected open command")
		}
		m.Update(cmd())
		if opened != "https://open.spotify.com/playlist/pl1" {
			t.Errorf("expected playlist url, got %q", opened)
		}
	})

	t.Run("open failure becomes a notice", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		m.Update(runCompleteMsg(sampleSummary(), nil))
		m.Update(openedMsg(errors.New("no display")))
		if !strings.Contains(m.View(), "could not open browser") {
			t.Errorf("expected notice: %s", m.View())
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestResultItem(t *testing.T) {
	tc := []struct {
		name   string
		result tasks.GroupResult
		want   string
	}{
		{name: "failed", result: tasks.GroupResult{Err: errors.New("boom")}, want: "failed • boom"},
		{name: "skipped", result: tasks.GroupResult{}, want: "skipped • no tracks"},
		{name: "up to date", result: tasks.GroupResult{State: tasks.UpToDate, Playlist: &models.PlaylistRecord{TrackCount: 4}}, want: "up to date • 4 tracks"},
		{name: "updated", result: tasks.GroupResult{State: tasks.Updated, Added: 3, Unresolved: 1, Episodes: 2, Playlist: &models.PlaylistRecord{}}, want: "updated • 3 added • 1 unmatched • 2 episodes"},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := (resultItem{result: tt.result}).Description(); got != tt.want {
				t.Errorf("Description() = %q, want %q", got, tt.want)
			}
		})
	}

	if items := resultItems(sampleSummary()); len(items) != 3 {
		t.Errorf("expected 3 items, got %d", len(items))
	}
}
