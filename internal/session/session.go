// Package session holds the working set of one interactive pack session.
//
// A [Session] owns the selected tracks and the custom icon. Preview handles for those assets live in a
// [Registry], which keeps at most one handle per asset and releases each exactly once: when the asset is
// removed, when the icon is replaced and when the session closes.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
)

const (
	trackKeyPrefix = "track:"
	iconKeyName    = "icon:pack_icon.png"
)

// CapacityWarning reports tracks dropped because the catalog is full. It wraps [shared.ErrCapacityExceeded].
type CapacityWarning struct {
	Requested int
	Kept      int
}

func (w *CapacityWarning) Error() string {
	return fmt.Sprintf("%v: only %d of %d new tracks added (max %d)",
		shared.ErrCapacityExceeded, w.Kept, w.Requested, models.MaxTracks)
}

func (w *CapacityWarning) Unwrap() error { return shared.ErrCapacityExceeded }

// Dropped is the number of tracks that did not fit.
func (w *CapacityWarning) Dropped() int { return w.Requested - w.Kept }

// Session is the mutable working set. All methods are safe for concurrent use.
//
// Registry keys are scoped to the session, so several sessions can share one [Registry].
type Session struct {
	registry *Registry
	scope    string

	mu     sync.Mutex
	tracks []models.Track
	icon   []byte
	keys   map[string]struct{}
	closed bool
}

// New creates an empty [Session] whose handles live in registry.
func New(registry *Registry) *Session {
	return &Session{
		registry: registry,
		scope:    "session-" + shared.GenerateID() + "/",
		keys:     make(map[string]struct{}),
	}
}

// AddTracks appends tracks whose names are not already present, up to [models.MaxTracks] in total.
//
// It returns the tracks actually added. When some had to be dropped the error is a *[CapacityWarning], and the
// kept tracks are still added.
func (s *Session) AddTracks(tracks []models.Track) ([]models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: session closed", shared.ErrReleased)
	}

	seen := make(map[string]struct{}, len(s.tracks)+len(tracks))
	for _, tr := range s.tracks {
		seen[tr.Name] = struct{}{}
	}

	var fresh []models.Track
	for _, tr := range tracks {
		if _, dup := seen[tr.Name]; dup {
			continue
		}
		seen[tr.Name] = struct{}{}
		fresh = append(fresh, tr)
	}

	var warn error
	if room := models.MaxTracks - len(s.tracks); len(fresh) > room {
		warn = &CapacityWarning{Requested: len(fresh), Kept: room}
		fresh = fresh[:room]
	}

	s.tracks = append(s.tracks, fresh...)
	return fresh, warn
}

// Tracks returns a copy of the working track list in insertion order.
func (s *Session) Tracks() []models.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Track(nil), s.tracks...)
}

// Len is the number of selected tracks.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracks)
}

// Remove drops the named track and releases its handle.
func (s *Session) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, name)
	}

	s.tracks = append(s.tracks[:idx:idx], s.tracks[idx+1:]...)
	return s.release(s.trackKey(name))
}

// Handle returns the preview handle of the named track, materializing it on first use.
func (s *Session) Handle(name string) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, name)
	}
	return s.acquire(s.trackKey(name), s.tracks[idx].Payload)
}

// SetIcon replaces the custom icon, releasing the handle of the previous one.
func (s *Session) SetIcon(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: session closed", shared.ErrReleased)
	}
	s.icon = append([]byte(nil), data...)
	return s.release(s.iconKey())
}

// ClearIcon removes the custom icon.
func (s *Session) ClearIcon() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.icon = nil
	return s.release(s.iconKey())
}

// Icon returns the custom icon bytes, or nil.
func (s *Session) Icon() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.icon
}

// IconHandle returns the preview handle of the custom icon.
func (s *Session) IconHandle() (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.icon == nil {
		return nil, fmt.Errorf("%w: no custom icon", shared.ErrTrackNotFound)
	}
	return s.acquire(s.iconKey(), s.icon)
}

// Close releases every handle the session acquired. The session accepts no further tracks.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.tracks = nil
	s.icon = nil

	var errs []error
	for key := range s.keys {
		if err := s.release(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) trackKey(name string) string { return s.scope + trackKeyPrefix + name }
func (s *Session) iconKey() string             { return s.scope + iconKeyName }

func (s *Session) acquire(key string, payload []byte) (*Handle, error) {
	h, err := s.registry.Acquire(key, payload)
	if err != nil {
		return nil, err
	}
	s.keys[key] = struct{}{}
	return h, nil
}

func (s *Session) release(key string) error {
	delete(s.keys, key)
	return s.registry.Release(key)
}

func (s *Session) indexOf(name string) int {
	for i, tr := range s.tracks {
		if tr.Name == name {
			return i
		}
	}
	return -1
}
