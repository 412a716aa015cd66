package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/session"
	"github.com/desertthunder/discpack/internal/shared"
	"github.com/desertthunder/discpack/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TrackListView ViewState = iota
	ConfirmView
	BuildView
	ResultView
)

// Engine is the part of [tasks.PackEngine] the TUI drives.
type Engine interface {
	Preview(ctx context.Context, progress chan<- tasks.ProgressUpdate, tracks []models.Track) ([]models.Assignment, []models.Track, error)
	Build(ctx context.Context, progress chan<- tasks.ProgressUpdate, req tasks.BuildRequest) (*tasks.BuildResult, error)
}

// Player previews a materialized track.
type Player interface {
	Play(path string) error
	Playing() string
	Stop()
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	session      *session.Session
	engine       Engine
	player       Player
	request      tasks.BuildRequest
	width        int
	height       int
	trackList    list.Model
	assignments  []models.Assignment
	dropped      []models.Track
	status       string
	progressChan chan tasks.ProgressUpdate
	done         chan Msg
	progress     tasks.ProgressUpdate
	result       *tasks.BuildResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model for sess. request carries the metadata and output settings of the build;
// its tracks and icon are taken from the session when the build starts.
func NewModel(ctx context.Context, sess *session.Session, engine Engine, player Player, request tasks.BuildRequest) *Model {
	m := &Model{
		ctx:     ctx,
		view:    TrackListView,
		session: sess,
		engine:  engine,
		player:  player,
		request: request,
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.trackList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.trackList.Title = "Disc Assignment"
	return m
}

// Init computes the first assignment.
func (m *Model) Init() tea.Cmd {
	return m.preview()
}

// Err is the last hard error, if any.
func (m *Model) Err() error { return m.err }

// Result is the finished build, if any.
func (m *Model) Result() *tasks.BuildResult { return m.result }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trackList.SetSize(shared.ClampInt(msg.Width-4, 0, msg.Width), shared.ClampInt(msg.Height-8, 0, msg.Height))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case BuildView:
			if key.Matches(msg, m.keys.quit) && msg.String() == "ctrl+c" {
				return m, m.quit()
			}
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPreviewReady:
		data := msg.data.(previewData)
		m.err = data.err
		m.assignments = data.assignments
		m.dropped = data.dropped
		m.trackList.SetItems(m.items())
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgBuildComplete:
		data := msg.data.(buildData)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.view = ResultView
		return m, nil

	case MsgPlayback:
		if err, _ := msg.data.(error); err != nil {
			m.status = styles.err.Render(err.Error())
		} else if playing := m.player.Playing(); playing != "" {
			m.status = styles.ok.Render("▶ playing")
		} else {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case BuildView:
		return m.renderBuild()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.play):
		return m, m.play()
	case key.Matches(msg, m.keys.stop):
		if m.player != nil {
			m.player.Stop()
		}
		m.status = ""
		return m, nil
	case key.Matches(msg, m.keys.remove):
		return m, m.removeSelected()
	case key.Matches(msg, m.keys.build):
		if len(m.assignments) == 0 {
			m.status = styles.warn.Render("nothing to build")
			return m, nil
		}
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = BuildView
		return m, m.startBuild()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = TrackListView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.back):
		m.view = TrackListView
		m.result = nil
		m.err = nil
		return m, m.preview()
	}
	return m, nil
}

func (m *Model) quit() tea.Cmd {
	if m.player != nil {
		m.player.Stop()
	}
	return tea.Quit
}

func (m *Model) items() []list.Item {
	items := make([]list.Item, 0, len(m.assignments)+len(m.dropped))
	for _, a := range m.assignments {
		items = append(items, assignmentItem{assignment: a})
	}
	for _, tr := range m.dropped {
		items = append(items, droppedItem{track: tr})
	}
	return items
}

func (m *Model) selected() (string, bool) {
	item := m.trackList.SelectedItem()
	if item == nil {
		return "", false
	}
	return trackName(item)
}

func (m *Model) preview() tea.Cmd {
	tracks := m.session.Tracks()
	return func() tea.Msg {
		if len(tracks) == 0 {
			return previewReadyMsg(nil, nil, nil)
		}
		assignments, dropped, err := m.engine.Preview(m.ctx, nil, tracks)
		return previewReadyMsg(assignments, dropped, err)
	}
}

func (m *Model) play() tea.Cmd {
	name, ok := m.selected()
	if !ok || m.player == nil {
		return nil
	}
	return func() tea.Msg {
		h, err := m.session.Handle(name)
		if err != nil {
			return playbackMsg(err)
		}
		path, err := h.Ref()
		if err != nil {
			return playbackMsg(err)
		}
		return playbackMsg(m.player.Play(path))
	}
}

func (m *Model) removeSelected() tea.Cmd {
	name, ok := m.selected()
	if !ok {
		return nil
	}
	if m.player != nil {
		m.player.Stop()
	}
	if err := m.session.Remove(name); err != nil {
		m.status = styles.err.Render(err.Error())
		return nil
	}
	m.status = fmt.Sprintf("removed %s", name)
	return m.preview()
}

func (m *Model) startBuild() tea.Cmd {
	req := m.request
	req.Tracks = m.session.Tracks()
	if icon := m.session.Icon(); icon != nil {
		req.Icon = icon
	}

	ch := make(chan tasks.ProgressUpdate, 50)
	m.progressChan = ch
	done := make(chan Msg, 1)

	go func() {
		result, err := m.engine.Build(m.ctx, ch, req)
		done <- buildCompleteMsg(result, err)
		close(ch)
	}()

	return m.waitFor(ch, done)
}

func (m *Model) waitForProgress() tea.Cmd {
	if m.progressChan == nil {
		return nil
	}
	return m.waitFor(m.progressChan, nil)
}

// waitFor relays the next progress update; once the channel closes the completion message is delivered.
func (m *Model) waitFor(ch chan tasks.ProgressUpdate, done chan Msg) tea.Cmd {
	if done != nil {
		m.done = done
	}
	final := m.done
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return <-final
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderTrackList() string {
	var b strings.Builder
	b.WriteString(m.trackList.View())

	if m.err != nil {
		b.WriteString("\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	if len(m.dropped) > 0 {
		b.WriteString("\n" + styles.warn.Render(fmt.Sprintf("%d tracks have no slot and will be left out", len(m.dropped))))
	}
	if m.status != "" {
		b.WriteString("\n" + m.status)
	}

	b.WriteString("\n\n" + m.helpView(m.keys.play, m.keys.stop, m.keys.remove, m.keys.build, m.keys.quit))
	return b.String()
}

func (m *Model) renderConfirm() string {
	meta := models.NormalizeMetadata(m.request.Metadata, "", "")
	name := meta.Name
	if name == "" {
		name = "pack"
	}
	title := styles.title.Render(fmt.Sprintf("Build '%s'?", name))
	info := fmt.Sprintf("\nTracks: %d\nLeft out: %d\n", len(m.assignments), len(m.dropped))

	return fmt.Sprintf("%s\n%s\n%s", title, info, m.helpView(m.keys.yes, m.keys.no))
}

func (m *Model) renderBuild() string {
	title := styles.title.Render("Building Pack")

	var phase string
	switch m.progress.Phase {
	case tasks.ProbeTracks:
		phase = fmt.Sprintf("Probing tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.AssignSlots:
		phase = "Assigning slots..."
	case tasks.ResolveIcon:
		phase = "Preparing icon..."
	case tasks.AssemblePack, tasks.WritePack:
		phase = "Writing pack..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.helpView(m.keys.back, m.keys.quit)

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Build failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Pack Built!")
	info := fmt.Sprintf("\nPack: %s v%s\nTracks: %d\nIcon: %v\nSize: %d bytes",
		m.result.Metadata.Name, m.result.Metadata.Version, len(m.result.Assignments), m.result.HasIcon, len(m.result.Archive))
	if m.result.OutputPath != "" {
		info += fmt.Sprintf("\nWritten to: %s", m.result.OutputPath)
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) helpView(bindings ...key.Binding) string {
	return styles.help.Render(m.help.ShortHelpView(bindings))
}
