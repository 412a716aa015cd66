package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/desertthunder/discpack/internal/models"
)

// ffprobe invocation constants
const (
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	FFprobeStdin        = "pipe:0"
)

// ErrFFprobeNotFound is returned when the ffprobe executable cannot be located.
var ErrFFprobeNotFound = errors.New("ffprobe not found")

// FFProbe asks ffprobe for the container duration.
//
// Tracks with a readable Path are probed in place; others are streamed over stdin.
type FFProbe struct {
	path string
}

// NewFFProbe creates an [FFProbe] using the executable at path, or "ffprobe" from PATH when empty.
func NewFFProbe(path string) *FFProbe {
	if path == "" {
		path = FFprobeCommand
	}
	return &FFProbe{path: path}
}

func (p *FFProbe) Name() string { return "ffprobe" }

// Args builds the ffprobe arguments for input.
func (p *FFProbe) Args(input string) []string {
	return []string{
		"-v", FFprobeLogLevel,
		"-show_entries", FFprobeShowEntries,
		"-of", FFprobeOutputFormat,
		input,
	}
}

// Probe implements [Prober].
func (p *FFProbe) Probe(ctx context.Context, track models.Track) (float64, error) {
	input := FFprobeStdin
	if track.Path != "" {
		if _, err := os.Stat(track.Path); err == nil {
			input = track.Path
		}
	}

	cmd := exec.CommandContext(ctx, p.path, p.Args(input)...)
	if input == FFprobeStdin {
		cmd.Stdin = bytes.NewReader(track.Payload)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, probeError(track.Name, ErrFFprobeNotFound)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return 0, probeError(track.Name, fmt.Errorf("%w: %s", err, msg))
		}
		return 0, probeError(track.Name, err)
	}

	d, err := ParseFFprobeDuration(out)
	if err != nil {
		return 0, probeError(track.Name, err)
	}
	return checkDuration(track.Name, d)
}

// ParseFFprobeDuration reads the csv duration line printed by ffprobe.
func ParseFFprobeDuration(out []byte) (float64, error) {
	s := strings.TrimSpace(string(out))
	if s == "" || s == "N/A" {
		return 0, errors.New("ffprobe reported no duration")
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return d, nil
}
