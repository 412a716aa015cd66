package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPreviewReady MsgKind = iota
	MsgProgressUpdate
	MsgBuildComplete
	MsgPlayback
)

type previewData struct {
	assignments []models.Assignment
	dropped     []models.Track
	err         error
}

type buildData struct {
	result *tasks.BuildResult
	err    error
}

// previewReadyMsg is the constructor for [MsgPreviewReady]
func previewReadyMsg(assignments []models.Assignment, dropped []models.Track, err error) Msg {
	return Msg{kind: MsgPreviewReady, data: previewData{assignments, dropped, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// buildCompleteMsg is the constructor for [MsgBuildComplete]
func buildCompleteMsg(result *tasks.BuildResult, err error) Msg {
	return Msg{kind: MsgBuildComplete, data: buildData{result, err}}
}

// playbackMsg is the constructor for [MsgPlayback]; a nil error means the status line should be refreshed.
func playbackMsg(err error) Msg {
	return Msg{kind: MsgPlayback, data: err}
}
