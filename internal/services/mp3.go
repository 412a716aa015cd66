package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/tcolgate/mp3"
)

// MP3Prober sums the durations of every MPEG audio frame in the payload.
type MP3Prober struct{}

// NewMP3Prober creates an [MP3Prober].
func NewMP3Prober() *MP3Prober { return &MP3Prober{} }

func (p *MP3Prober) Name() string { return "mp3" }

// Probe implements [Prober].
func (p *MP3Prober) Probe(ctx context.Context, track models.Track) (float64, error) {
	d, err := mp3Duration(ctx, bytes.NewReader(track.Payload))
	if err != nil {
		return 0, probeError(track.Name, err)
	}
	return checkDuration(track.Name, d.Seconds())
}

// IsMP3 reports whether data starts with an ID3v2 tag or an MPEG frame sync.
func IsMP3(data []byte) bool {
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}
	return len(data) > 1 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func mp3Duration(ctx context.Context, r io.Reader) (time.Duration, error) {
	d := mp3.NewDecoder(r)
	var (
		frame    mp3.Frame
		skipped  int
		duration time.Duration
		frames   int
	)

	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		frames++
		duration += frame.Duration()

		if frames%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
	}

	if frames == 0 {
		return 0, errors.New("no mpeg frames found")
	}
	return duration, nil
}
