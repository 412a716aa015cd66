package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discpack/internal/shared"
)

// Materializer turns an in-memory asset into something an external consumer can open, and tears it down.
type Materializer interface {
	Materialize(key string, payload []byte) (string, error)
	Release(ref string) error
}

// Handle is the live, materialized form of one asset.
type Handle struct {
	key string
	ref string

	mu       sync.Mutex
	released bool
}

// Key is the asset identity the handle was acquired for.
func (h *Handle) Key() string { return h.key }

// Ref returns the materialized reference, a file path for [TempMaterializer].
func (h *Handle) Ref() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return "", fmt.Errorf("%w: %s", shared.ErrReleased, h.key)
	}
	return h.ref, nil
}

// Released reports whether the handle has been released.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// markReleased flips the handle to released and reports whether this call did it.
func (h *Handle) markReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return false
	}
	h.released = true
	return true
}

// Registry memoizes at most one live [Handle] per asset key.
type Registry struct {
	m      Materializer
	logger *log.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates a [Registry] backed by m.
func NewRegistry(m Materializer, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{m: m, logger: logger, handles: make(map[string]*Handle)}
}

// Acquire returns the live handle for key, materializing payload on first use.
func (r *Registry) Acquire(key string, payload []byte) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[key]; ok {
		return h, nil
	}

	ref, err := r.m.Materialize(key, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize %s: %w", key, err)
	}

	h := &Handle{key: key, ref: ref}
	r.handles[key] = h
	r.logger.Debug("materialized", "key", key, "ref", ref)
	return h, nil
}

// Release tears down the handle for key. Unknown keys are ignored.
func (r *Registry) Release(key string) error {
	r.mu.Lock()
	h, ok := r.handles[key]
	delete(r.handles, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.release(h)
}

// ReleaseAll tears down every live handle.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := r.release(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Live returns the number of unreleased handles.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func (r *Registry) release(h *Handle) error {
	if !h.markReleased() {
		return nil
	}
	r.logger.Debug("released", "key", h.key)
	if err := r.m.Release(h.ref); err != nil {
		return fmt.Errorf("failed to release %s: %w", h.key, err)
	}
	return nil
}

// TempMaterializer writes assets to temporary files.
type TempMaterializer struct {
	Dir string // empty uses [os.TempDir]
}

// Materialize implements [Materializer].
func (t TempMaterializer) Materialize(key string, payload []byte) (string, error) {
	f, err := os.CreateTemp(t.Dir, "discpack-*-"+tempSuffix(key))
	if err != nil {
		return "", err
	}

	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Release implements [Materializer].
func (t TempMaterializer) Release(ref string) error {
	if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// tempSuffix keeps the extension of key so players can sniff the format from the file name.
func tempSuffix(key string) string {
	base := filepath.Base(key)
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '*' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, base)
}
