package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/radiosync/internal/tasks"
	"github.com/desertthunder/radiosync/internal/ui"
)

// runTUI drives run inside the progress UI and returns its outcome once the user quits.
//
// Logs should already be redirected away from the terminal.
func (r *Runner) runTUI(ctx context.Context, run ui.RunFunc) (*tasks.RunSummary, error) {
	model := ui.NewModel(ctx, run)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	m, ok := final.(*ui.Model)
	if !ok {
		return nil, fmt.Errorf("unexpected TUI model %T", final)
	}
	return m.Summary(), m.Err()
}
