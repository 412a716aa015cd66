package imaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/services"
	"github.com/desertthunder/discpack/internal/shared"
)

// Fetcher retrieves a remote asset.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*services.AssetResponse, error)
}

// IconSource resolves the icon bytes for a build.
//
// Icon problems never fail a build. They surface as errors wrapping [shared.ErrIconUnavailable] from
// [IconSource.Load] and as warnings from [IconSource.Resolve].
type IconSource struct {
	fetcher Fetcher
	config  shared.IconConfig
	logger  *log.Logger
}

// NewIconSource creates an [IconSource]. A nil fetcher uses a default [services.AssetClient].
func NewIconSource(cfg shared.IconConfig, fetcher Fetcher, logger *log.Logger) *IconSource {
	if fetcher == nil {
		fetcher = services.NewAssetClient(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IconSource{fetcher: fetcher, config: cfg, logger: logger}
}

// Load returns the normalized icon for custom, or for the track artwork or default URL when custom is empty.
//
// A nil icon with a nil error means no icon is wanted.
func (s *IconSource) Load(ctx context.Context, custom []byte, tracks []models.Track) ([]byte, error) {
	raw := custom
	if len(raw) == 0 && s.config.UseArtwork {
		raw = Artwork(tracks)
	}

	if len(raw) == 0 {
		if !s.config.Enabled || s.config.DefaultURL == "" {
			return nil, nil
		}

		fetched, err := s.fetchDefault(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrIconUnavailable, err)
		}
		raw = fetched
	}

	icon, err := Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrIconUnavailable, err)
	}
	return icon, nil
}

// Resolve is [IconSource.Load] with failures logged and discarded.
func (s *IconSource) Resolve(ctx context.Context, custom []byte, tracks []models.Track) []byte {
	icon, err := s.Load(ctx, custom, tracks)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("icon lookup canceled")
		} else {
			s.logger.Warn("continuing without pack icon", "err", err)
		}
		return nil
	}
	return icon
}

func (s *IconSource) fetchDefault(ctx context.Context) ([]byte, error) {
	if timeout := s.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.logger.Debug("fetching default icon", "url", s.config.DefaultURL)
	resp, err := s.fetcher.Fetch(ctx, s.config.DefaultURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Artwork returns the first embedded cover art found in tracks, or nil.
func Artwork(tracks []models.Track) []byte {
	for _, tr := range tracks {
		tags, err := services.ReadTags(tr.Payload)
		if err != nil {
			continue
		}
		if len(tags.Artwork) > 0 {
			return tags.Artwork
		}
	}
	return nil
}
