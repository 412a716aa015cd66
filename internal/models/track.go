package models

import (
	"path/filepath"
	"strings"
)

// Track is one user-supplied audio asset.
//
// Name is the de-duplication key within a session. Duration is zero until probed.
type Track struct {
	Name     string  `json:"name" yaml:"name"`
	Path     string  `json:"path,omitempty" yaml:"path,omitempty"`
	Title    string  `json:"title,omitempty" yaml:"title,omitempty"`
	Duration float64 `json:"duration" yaml:"duration"`
	Payload  []byte  `json:"-" yaml:"-"`
}

// NewTrack builds a Track named after the file's base name.
func NewTrack(path string, payload []byte) Track {
	return Track{Name: filepath.Base(path), Path: path, Payload: payload}
}

// DisplayName is the title from tags when known, else the file name without its .ogg extension.
func (t Track) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	name := t.Name
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".ogg") {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// Assignment pairs one track with one slot for a single build.
type Assignment struct {
	Track         Track   `json:"track" yaml:"track"`
	Slot          Slot    `json:"slot" yaml:"slot"`
	TrackDuration float64 `json:"track_duration" yaml:"track_duration"`
	SlotDuration  int     `json:"slot_duration" yaml:"slot_duration"`
	Difference    float64 `json:"difference" yaml:"difference"` // slot minus track
}

// NewAssignment computes the signed difference between slot and track.
func NewAssignment(t Track, s Slot) Assignment {
	return Assignment{
		Track:         t,
		Slot:          s,
		TrackDuration: t.Duration,
		SlotDuration:  s.Duration,
		Difference:    float64(s.Duration) - t.Duration,
	}
}

// Shortfall reports whether the slot is shorter than the track.
func (a Assignment) Shortfall() bool {
	return a.Difference < 0
}
