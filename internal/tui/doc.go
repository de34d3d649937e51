// Package tui contains the interactive terminal views of screenreel.
//
// The recorder view drives an active recording: it shows the state, the
// elapsed time and the zoom markers, and maps keys onto pause, resume,
// zoom and stop. The config subpackage is the interactive settings editor
// and styles holds the shared lipgloss palette.
package tui
