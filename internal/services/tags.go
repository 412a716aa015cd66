package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/dhowden/tag"
)

// TrackTags is the subset of embedded metadata used for display and icons.
type TrackTags struct {
	Title       string
	Artist      string
	Artwork     []byte
	ArtworkMIME string
}

// ReadTags parses ID3, MP4, FLAC or Vorbis comment tags from payload.
func ReadTags(payload []byte) (*TrackTags, error) {
	m, err := tag.ReadFrom(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	tags := &TrackTags{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		tags.Artwork = pic.Data
		tags.ArtworkMIME = pic.MIMEType
		if tags.ArtworkMIME == "" {
			tags.ArtworkMIME = "image/jpeg"
		}
	}
	return tags, nil
}

// LoadTrack builds a track from raw bytes, taking its display title from embedded tags when present.
func LoadTrack(name string, payload []byte) models.Track {
	tr := models.NewTrack(name, payload)
	if tags, err := ReadTags(payload); err == nil {
		tr.Title = tags.Title
	}
	return tr
}
