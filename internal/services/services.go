package services

import (
	"context"
	"fmt"
	"math"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
)

// Prober determines the playback duration of a track in seconds.
type Prober interface {
	// Probe returns the duration of the track or an error wrapping [shared.ErrProbeFailed].
	Probe(ctx context.Context, track models.Track) (float64, error)

	// Name identifies the prober in logs.
	Name() string
}

// checkDuration rejects durations that cannot be assigned to a slot.
func checkDuration(name string, d float64) (float64, error) {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, fmt.Errorf("%w: %s: invalid duration %v", shared.ErrProbeFailed, name, d)
	}
	return d, nil
}

func probeError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrProbeFailed, name, err)
}
