package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/desertthunder/radiosync/internal/tasks"
)

// maxLines is how many finished groups stay visible while syncing.
const maxLines = 12

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SyncView ViewState = iota
	SummaryView
)

// RunFunc performs a sync, reporting on progress. It must not close progress.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunSummary, error)

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	run  RunFunc
	open func(string) error
	view ViewState

	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    keyMap
	results list.Model

	progressChan chan tasks.ProgressUpdate
	done         chan runOutcome
	current      tasks.ProgressUpdate
	lines        []string
	summary      *tasks.RunSummary
	err          error
	notice       string
	width        int
	height       int
}

// NewModel creates a model that runs run once started.
func NewModel(ctx context.Context, run RunFunc) *Model {
	return &Model{
		ctx:     ctx,
		run:     run,
		open:    shared.OpenBrowser,
		view:    SyncView,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the run and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun())
}

// Summary returns the finished run, or nil while it is in progress.
func (m *Model) Summary() *tasks.RunSummary { return m.summary }

// Err returns the error the run ended with.
func (m *Model) Err() error { return m.err }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = min(max(msg.Width-20, 10), 60)
		if m.view == SummaryView {
			m.results.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == SummaryView {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.current = update
		if r, ok := update.Data.(*tasks.GroupResult); ok && update.Phase == tasks.ReconcileGroup {
			m.lines = append(m.lines, renderResultLine(*r))
			if len(m.lines) > maxLines {
				m.lines = m.lines[len(m.lines)-maxLines:]
			}
		}
		return m, m.waitForProgress()

	case MsgRunComplete:
		outcome := msg.data.(runOutcome)
		m.summary, m.err = outcome.summary, outcome.err
		m.view = SummaryView
		m.progressChan, m.done = nil, nil
		m.results = list.New(resultItems(m.summary), list.NewDefaultDelegate(), max(m.width-4, 20), max(m.height-10, 10))
		m.results.Title = "Synced playlists"
		m.results.SetShowHelp(false)
		return m, nil

	case MsgOpened:
		if err, _ := msg.data.(error); err != nil {
			m.notice = styles.warn.Render(fmt.Sprintf("could not open browser: %v", err))
		} else {
			m.notice = ""
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter", "o":
		if m.view != SummaryView {
			return m, nil
		}
		item, ok := m.results.SelectedItem().(resultItem)
		if !ok || item.url() == "" {
			return m, nil
		}
		url, open := item.url(), m.open
		return m, func() tea.Msg { return openedMsg(open(url)) }
	}

	if m.view == SummaryView {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.done = make(chan runOutcome, 1)
	progressChan, done := m.progressChan, m.done

	go func() {
		summary, err := m.run(m.ctx, progressChan)
		done <- runOutcome{summary: summary, err: err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, done := m.progressChan, m.done
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}
		update, ok := <-progressChan
		if !ok {
			outcome := <-done
			return runCompleteMsg(outcome.summary, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

// percent is the share of the current phase completed.
func (m *Model) percent() float64 {
	if m.current.Total <= 0 {
		return 0
	}
	return min(float64(m.current.Step)/float64(m.current.Total), 1)
}

func phaseLabel(p tasks.Phase) string {
	switch p {
	case tasks.FetchShows:
		return "Reading station calendars"
	case tasks.FetchPlaylists:
		return "Fetching show playlists"
	case tasks.ReconcileGroup:
		return "Syncing playlists"
	case tasks.Complete:
		return "Finishing"
	default:
		return "Starting"
	}
}

func renderResultLine(r tasks.GroupResult) string {
	mark := "✓"
	if r.Err != nil {
		mark = "✗"
	} else if r.Playlist == nil {
		mark = "-"
	}
	return styles.stateStyle(r).Render(mark) + " " + r.Name + " " + styles.help.Render(resultItem{result: r}.Description())
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SyncView:
		return m.renderSync()
	case SummaryView:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSync() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("radiosync"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), phaseLabel(m.current.Phase))
	fmt.Fprintf(&b, "%s %d/%d\n", m.bar.ViewAs(m.percent()), m.current.Step, m.current.Total)
	if m.current.Message != "" {
		b.WriteString(styles.help.Render(m.current.Message))
		b.WriteString("\n")
	}
	if len(m.lines) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(m.lines, "\n"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderSummary() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)))
		b.WriteString("\n\n")
	}
	if m.summary != nil {
		header := styles.ok.Render("✓ Sync complete")
		if m.summary.Failed > 0 {
			header = styles.warn.Render(fmt.Sprintf("Sync finished with %d failures", m.summary.Failed))
		}
		b.WriteString(styles.box.Render(header + "\n" + m.summary.String()))
		b.WriteString("\n\n")
		b.WriteString(m.results.View())
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}
