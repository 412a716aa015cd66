package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
	tu "github.com/desertthunder/discpack/internal/testing"
)

// countingMaterializer records every materialize and release call.
type countingMaterializer struct {
	mu          sync.Mutex
	n           int
	materialize map[string]int
	release     map[string]int
	failRelease bool
}

func newCounting() *countingMaterializer {
	return &countingMaterializer{materialize: map[string]int{}, release: map[string]int{}}
}

func (c *countingMaterializer) Materialize(key string, payload []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	c.materialize[key]++
	return fmt.Sprintf("ref-%d", c.n), nil
}

func (c *countingMaterializer) Release(ref string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release[ref]++
	if c.failRelease {
		return errors.New("release failed")
	}
	return nil
}

func quietLogger() *log.Logger { return log.New(&bytes.Buffer{}) }

func tracks(names ...string) []models.Track {
	out := make([]models.Track, len(names))
	for i, n := range names {
		out[i] = models.Track{Name: n, Payload: []byte(n)}
	}
	return out
}

func TestRegistry(t *testing.T) {
	t.Run("memoizes per key", func(t *testing.T) {
		m := newCounting()
		r := NewRegistry(m, quietLogger())

		a, err := r.Acquire("a", nil)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := r.Acquire("a", nil)
		if a != b || m.materialize["a"] != 1 {
			t.Errorf("expected one materialization, got %d", m.materialize["a"])
		}
		if r.Live() != 1 {
			t.Errorf("expected 1 live handle, got %d", r.Live())
		}
	})

	t.Run("release exactly once", func(t *testing.T) {
		m := newCounting()
		r := NewRegistry(m, quietLogger())

		h, _ := r.Acquire("a", nil)
		ref, _ := h.Ref()

		if err := r.Release("a"); err != nil {
			t.Fatal(err)
		}
		if err := r.Release("a"); err != nil {
			t.Fatal(err)
		}
		if err := r.ReleaseAll(); err != nil {
			t.Fatal(err)
		}

		if m.release[ref] != 1 {
			t.Errorf("expected one release, got %d", m.release[ref])
		}
		if _, err := h.Ref(); !errors.Is(err, shared.ErrReleased) {
			t.Errorf("expected ErrReleased, got %v", err)
		}
		if !h.Released() {
			t.Error("expected handle to report released")
		}
	})

	t.Run("reacquire after release gets a fresh handle", func(t *testing.T) {
		r := NewRegistry(newCounting(), quietLogger())
		first, _ := r.Acquire("a", nil)
		r.Release("a")
		second, _ := r.Acquire("a", nil)

		if first == second {
			t.Fatal("expected a new handle")
		}
		if _, err := second.Ref(); err != nil {
			t.Errorf("fresh handle unusable: %v", err)
		}
	})

	t.Run("release all joins errors", func(t *testing.T) {
		m := newCounting()
		m.failRelease = true
		r := NewRegistry(m, quietLogger())
		r.Acquire("a", nil)
		r.Acquire("b", nil)

		if err := r.ReleaseAll(); err == nil {
			t.Error("expected release errors")
		}
		if r.Live() != 0 {
			t.Error("expected no live handles")
		}
	})
}

func TestTempMaterializer(t *testing.T) {
	m := TempMaterializer{Dir: t.TempDir()}

	ref, err := m.Materialize("track:song.ogg", []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tu.MustReadFile(t, ref); string(got) != "audio" {
		t.Errorf("expected payload on disk, got %q", got)
	}

	if err := m.Release(ref); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(ref); !os.IsNotExist(err) {
		t.Error("expected temp file to be removed")
	}
	if err := m.Release(ref); err != nil {
		t.Errorf("second release should be a no-op, got %v", err)
	}
}

func TestSession(t *testing.T) {
	t.Run("dedupes by name", func(t *testing.T) {
		s := New(NewRegistry(newCounting(), quietLogger()))

		added, err := s.AddTracks(tracks("a", "b", "a"))
		if err != nil || len(added) != 2 {
			t.Fatalf("expected 2 added, got %d (%v)", len(added), err)
		}
		added, _ = s.AddTracks(tracks("b", "c"))
		if len(added) != 1 || added[0].Name != "c" {
			t.Errorf("expected only c added, got %+v", added)
		}
		if s.Len() != 3 {
			t.Errorf("expected 3 tracks, got %d", s.Len())
		}
	})

	t.Run("truncates to capacity with warning", func(t *testing.T) {
		s := New(NewRegistry(newCounting(), quietLogger()))
		s.AddTracks(tracks("x1", "x2", "x3", "x4", "x5"))

		var names []string
		for i := range 20 {
			names = append(names, fmt.Sprintf("t%02d", i))
		}
		added, err := s.AddTracks(tracks(names...))

		var warn *CapacityWarning
		if !errors.As(err, &warn) || !errors.Is(err, shared.ErrCapacityExceeded) {
			t.Fatalf("expected capacity warning, got %v", err)
		}
		if len(added) != 16 || warn.Kept != 16 || warn.Dropped() != 4 {
			t.Errorf("expected 16 kept and 4 dropped, got %d/%d", warn.Kept, warn.Dropped())
		}
		if s.Len() != models.MaxTracks {
			t.Errorf("expected %d tracks, got %d", models.MaxTracks, s.Len())
		}
		if added[len(added)-1].Name != "t15" {
			t.Errorf("expected the first tracks to be kept, last is %s", added[len(added)-1].Name)
		}
	})

	t.Run("remove releases the track handle", func(t *testing.T) {
		m := newCounting()
		s := New(NewRegistry(m, quietLogger()))
		s.AddTracks(tracks("a", "b"))

		h, err := s.Handle("a")
		if err != nil {
			t.Fatal(err)
		}
		ref, _ := h.Ref()

		if err := s.Remove("a"); err != nil {
			t.Fatal(err)
		}
		if m.release[ref] != 1 || !h.Released() {
			t.Error("expected handle release on removal")
		}
		if got := s.Tracks(); len(got) != 1 || got[0].Name != "b" {
			t.Errorf("unexpected tracks %+v", got)
		}
		if err := s.Remove("a"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("replacing the icon releases the old handle", func(t *testing.T) {
		m := newCounting()
		s := New(NewRegistry(m, quietLogger()))

		s.SetIcon([]byte("one"))
		old, err := s.IconHandle()
		if err != nil {
			t.Fatal(err)
		}
		if err := s.SetIcon([]byte("two")); err != nil {
			t.Fatal(err)
		}
		if !old.Released() {
			t.Error("expected old icon handle released")
		}

		fresh, _ := s.IconHandle()
		if fresh == old || string(s.Icon()) != "two" {
			t.Error("expected a new handle for the new icon")
		}

		s.ClearIcon()
		if !fresh.Released() || s.Icon() != nil {
			t.Error("expected clear to release the icon")
		}
		if _, err := s.IconHandle(); err == nil {
			t.Error("expected error without an icon")
		}
	})

	t.Run("close releases everything", func(t *testing.T) {
		m := newCounting()
		reg := NewRegistry(m, quietLogger())
		s := New(reg)
		s.AddTracks(tracks("a", "b"))
		s.SetIcon([]byte("icon"))
		s.Handle("a")
		s.Handle("b")
		s.IconHandle()

		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
		if reg.Live() != 0 || len(m.release) != 3 {
			t.Errorf("expected 3 releases, got %d", len(m.release))
		}
		if _, err := s.AddTracks(tracks("c")); !errors.Is(err, shared.ErrReleased) {
			t.Errorf("expected closed session to refuse tracks, got %v", err)
		}
	})

	t.Run("sessions sharing a registry stay isolated", func(t *testing.T) {
		reg := NewRegistry(TempMaterializer{Dir: t.TempDir()}, quietLogger())
		a, b := New(reg), New(reg)
		a.AddTracks([]models.Track{{Name: "song.ogg", Payload: []byte("AAAA")}})
		b.AddTracks([]models.Track{{Name: "song.ogg", Payload: []byte("BBBB")}})

		ha, err := a.Handle("song.ogg")
		if err != nil {
			t.Fatal(err)
		}
		hb, err := b.Handle("song.ogg")
		if err != nil {
			t.Fatal(err)
		}
		if ha == hb {
			t.Fatal("expected a separate handle per session")
		}

		refB, _ := hb.Ref()
		if got := string(tu.MustReadFile(t, refB)); got != "BBBB" {
			t.Errorf("expected session b payload, got %q", got)
		}

		if err := b.Close(); err != nil {
			t.Fatal(err)
		}
		if ha.Released() {
			t.Error("closing one session released another session's handle")
		}
		refA, err := ha.Ref()
		if err != nil {
			t.Fatalf("expected a's handle usable, got %v", err)
		}
		if got := string(tu.MustReadFile(t, refA)); got != "AAAA" {
			t.Errorf("expected session a payload, got %q", got)
		}
		if reg.Live() != 1 {
			t.Errorf("expected 1 live handle, got %d", reg.Live())
		}

		a.Close()
		if reg.Live() != 0 {
			t.Errorf("expected no live handles, got %d", reg.Live())
		}
	})

	t.Run("icon is replaced when the old handle fails to release", func(t *testing.T) {
		m := newCounting()
		s := New(NewRegistry(m, quietLogger()))
		s.SetIcon([]byte("one"))
		old, _ := s.IconHandle()

		m.failRelease = true
		if err := s.SetIcon([]byte("two")); err == nil {
			t.Error("expected the release error")
		}
		if string(s.Icon()) != "two" {
			t.Errorf("expected new icon, got %q", s.Icon())
		}
		if !old.Released() {
			t.Error("expected old handle marked released")
		}

		m.failRelease = false
		fresh, err := s.IconHandle()
		if err != nil || fresh == old {
			t.Errorf("expected a fresh handle, got %v", err)
		}
	})

	t.Run("returned tracks are a copy", func(t *testing.T) {
		s := New(NewRegistry(newCounting(), quietLogger()))
		s.AddTracks(tracks("a"))
		got := s.Tracks()
		got[0].Name = "changed"
		if s.Tracks()[0].Name != "a" {
			t.Error("session state leaked")
		}
	})
}
