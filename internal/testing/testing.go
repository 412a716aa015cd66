// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
)

// MockProber is a test double for services.Prober returning canned durations keyed by track name.
type MockProber struct {
	Durations map[string]float64
	Errors    map[string]error

	mu    sync.Mutex
	calls []string
}

func (m *MockProber) Probe(ctx context.Context, track models.Track) (float64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, track.Name)
	m.mu.Unlock()

	if err, ok := m.Errors[track.Name]; ok {
		return 0, fmt.Errorf("%w: %s: %v", shared.ErrProbeFailed, track.Name, err)
	}
	if d, ok := m.Durations[track.Name]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("%w: %s: unknown track", shared.ErrProbeFailed, track.Name)
}

func (m *MockProber) Name() string { return "mock" }

// Calls returns the names probed so far.
func (m *MockProber) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.calls...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// OggVorbis builds a minimal Ogg Vorbis stream whose last granule position encodes seconds at rate.
//
// The stream has an identification page, a page with no finished packet (granule -1) and a final audio page.
// Page checksums are left zero.
func OggVorbis(seconds float64, rate int) []byte {
	id := make([]byte, 0, 30)
	id = append(id, 0x01)
	id = append(id, "vorbis"...)
	id = binary.LittleEndian.AppendUint32(id, 0)
	id = append(id, 2)
	id = binary.LittleEndian.AppendUint32(id, uint32(rate))
	id = append(id, make([]byte, 12)...)
	id = append(id, 0xB8, 0x01)

	var buf bytes.Buffer
	buf.Write(oggPage(0x02, 0, 0, id))
	buf.Write(oggPage(0x00, -1, 1, make([]byte, 16)))
	buf.Write(oggPage(0x04, int64(seconds*float64(rate)), 2, make([]byte, 16)))
	return buf.Bytes()
}

func oggPage(headerType byte, granule int64, seq uint32, body []byte) []byte {
	page := make([]byte, 0, 28+len(body))
	page = append(page, "OggS"...)
	page = append(page, 0, headerType)
	page = binary.LittleEndian.AppendUint64(page, uint64(granule))
	page = binary.LittleEndian.AppendUint32(page, 0x5eed)
	page = binary.LittleEndian.AppendUint32(page, seq)
	page = binary.LittleEndian.AppendUint32(page, 0)
	page = append(page, 1, byte(len(body)))
	return append(page, body...)
}

// SolidPNG encodes a w×h image filled with c.
func SolidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return content
}

func MustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

// ID3Tag builds an ID3v2.3 tag with an optional TIT2 title and APIC front cover, followed by mpeg frame sync bytes.
func ID3Tag(title string, artwork []byte, mime string) []byte {
	var frames []byte
	if title != "" {
		frames = append(frames, id3Frame("TIT2", append([]byte{0}, title...))...)
	}
	if len(artwork) > 0 {
		body := []byte{0}
		body = append(body, mime...)
		body = append(body, 0, 3, 0)
		body = append(body, artwork...)
		frames = append(frames, id3Frame("APIC", body)...)
	}

	size := len(frames)
	tag := []byte("ID3")
	tag = append(tag, 3, 0, 0, byte(size>>21&0x7f), byte(size>>14&0x7f), byte(size>>7&0x7f), byte(size&0x7f))
	tag = append(tag, frames...)
	return append(tag, 0xFF, 0xFB, 0x90, 0x64)
}

func id3Frame(id string, body []byte) []byte {
	frame := []byte(id)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(body)))
	frame = append(frame, 0, 0)
	return append(frame, body...)
}
