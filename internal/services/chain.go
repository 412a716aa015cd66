package services

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discpack/internal/models"
)

// Compile-time interface implementation checks.
var (
	_ Prober = (*OggProber)(nil)
	_ Prober = (*MP3Prober)(nil)
	_ Prober = (*FFProbe)(nil)
	_ Prober = (*ChainProber)(nil)
)

// ChainProber dispatches on the container signature and falls back to ffprobe when the native parser fails.
type ChainProber struct {
	ogg      Prober
	mp3      Prober
	fallback Prober
	logger   *log.Logger
}

// NewChainProber wires the native probers in front of fallback. A nil fallback disables it.
func NewChainProber(fallback Prober, logger *log.Logger) *ChainProber {
	if logger == nil {
		logger = log.Default()
	}
	return &ChainProber{
		ogg:      NewOggProber(),
		mp3:      NewMP3Prober(),
		fallback: fallback,
		logger:   logger,
	}
}

func (c *ChainProber) Name() string { return "chain" }

// Probe implements [Prober].
func (c *ChainProber) Probe(ctx context.Context, track models.Track) (float64, error) {
	var native Prober
	switch {
	case IsOgg(track.Payload):
		native = c.ogg
	case IsMP3(track.Payload):
		native = c.mp3
	}

	if native != nil {
		d, err := native.Probe(ctx, track)
		if err == nil || c.fallback == nil {
			return d, err
		}
		c.logger.Debug("native probe failed, trying fallback", "track", track.Name, "prober", native.Name(), "err", err)
	}

	if c.fallback == nil {
		return 0, probeError(track.Name, errUnknownContainer)
	}
	return c.fallback.Probe(ctx, track)
}
