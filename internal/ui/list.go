package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/discpack/internal/formatter"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
)

var (
	_ list.Item = assignmentItem{}
	_ list.Item = droppedItem{}
)

// assignmentItem wraps [models.Assignment] to implement [list.Item].
type assignmentItem struct {
	assignment models.Assignment
}

func (i assignmentItem) FilterValue() string { return i.assignment.Track.Name }
func (i assignmentItem) Title() string {
	return fmt.Sprintf("%s → %s", i.assignment.Track.DisplayName(), i.assignment.Slot.Name)
}
func (i assignmentItem) Description() string {
	a := i.assignment
	desc := fmt.Sprintf("track %s • slot %s • %s",
		shared.FormatDuration(a.TrackDuration),
		shared.FormatDuration(float64(a.SlotDuration)),
		formatter.SignedDuration(a.Difference))
	if a.Shortfall() {
		return styles.err.Render(desc)
	}
	return desc
}

// droppedItem is a track that found no slot.
type droppedItem struct {
	track models.Track
}

func (i droppedItem) FilterValue() string { return i.track.Name }
func (i droppedItem) Title() string       { return i.track.DisplayName() }
func (i droppedItem) Description() string {
	return styles.warn.Render(fmt.Sprintf("%s • no slot left", shared.FormatDuration(i.track.Duration)))
}

// trackName returns the session key of a list item.
func trackName(item list.Item) (string, bool) {
	switch it := item.(type) {
	case assignmentItem:
		return it.assignment.Track.Name, true
	case droppedItem:
		return it.track.Name, true
	default:
		return "", false
	}
}
