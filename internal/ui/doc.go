// Package ui renders a running sync in the terminal with bubbletea.
//
// The [Model] starts the run in the background and follows its [tasks.ProgressUpdate]
// channel: a spinner and progress bar for the current phase, then one line per synced
// group. When the run ends the [SummaryView] lists every group; enter opens the selected
// playlist in the browser.
package ui
