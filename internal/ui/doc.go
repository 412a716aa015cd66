// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks one pack session through four views:
//  1. [TrackListView] : The current assignment, one row per track, short slots in red
//  2. [ConfirmView] : Confirm the build
//  3. [BuildView] : Monitor real-time progress updates
//  4. [ResultView] : Show the written pack or the failure
//
// From the list a track can be previewed through the external player, stopped, or removed from the session;
// removing a track recomputes the assignment.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the PackEngine, providing non-blocking status reporting during builds.
//
// Keyboard navigation uses vim-style bindings (j/k, p, s, x, b, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
