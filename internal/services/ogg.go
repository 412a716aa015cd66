package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/desertthunder/discpack/internal/models"
)

const (
	oggPageHeaderSize = 27
	opusSampleRate    = 48000
)

var (
	oggCapture      = []byte("OggS")
	vorbisIDHeader  = []byte("\x01vorbis")
	opusIDHeader    = []byte("OpusHead")
	errNotOgg       = errors.New("not an ogg stream")
	errTruncatedOgg = errors.New("truncated ogg page")

	errUnknownContainer = errors.New("unrecognized audio container")
)

// OggProber computes Ogg Vorbis and Ogg Opus durations from the stream headers.
//
// The duration is the granule position of the last page of the first logical stream divided by the codec sample
// rate, less the Opus pre-skip.
type OggProber struct{}

// NewOggProber creates an [OggProber].
func NewOggProber() *OggProber { return &OggProber{} }

func (p *OggProber) Name() string { return "ogg" }

// Probe implements [Prober].
func (p *OggProber) Probe(ctx context.Context, track models.Track) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, probeError(track.Name, err)
	}

	d, err := OggDuration(track.Payload)
	if err != nil {
		return 0, probeError(track.Name, err)
	}
	return checkDuration(track.Name, d)
}

// IsOgg reports whether data starts with an Ogg capture pattern.
func IsOgg(data []byte) bool {
	return bytes.HasPrefix(data, oggCapture)
}

type oggPage struct {
	granule int64
	serial  uint32
	body    []byte
}

// readOggPage parses the page at data[off:] and returns it with the offset of the next page.
func readOggPage(data []byte, off int) (oggPage, int, error) {
	if len(data)-off < oggPageHeaderSize {
		return oggPage{}, 0, errTruncatedOgg
	}
	hdr := data[off : off+oggPageHeaderSize]
	if !bytes.Equal(hdr[:4], oggCapture) {
		return oggPage{}, 0, fmt.Errorf("missing capture pattern at offset %d", off)
	}

	segments := int(hdr[26])
	tableEnd := off + oggPageHeaderSize + segments
	if tableEnd > len(data) {
		return oggPage{}, 0, errTruncatedOgg
	}

	bodyLen := 0
	for _, lace := range data[off+oggPageHeaderSize : tableEnd] {
		bodyLen += int(lace)
	}
	if tableEnd+bodyLen > len(data) {
		return oggPage{}, 0, errTruncatedOgg
	}

	return oggPage{
		granule: int64(binary.LittleEndian.Uint64(hdr[6:14])),
		serial:  binary.LittleEndian.Uint32(hdr[14:18]),
		body:    data[tableEnd : tableEnd+bodyLen],
	}, tableEnd + bodyLen, nil
}

// OggDuration returns the length in seconds of the first logical stream in an Ogg container.
func OggDuration(data []byte) (float64, error) {
	if !IsOgg(data) {
		return 0, errNotOgg
	}

	first, next, err := readOggPage(data, 0)
	if err != nil {
		return 0, err
	}

	var rate, preSkip int64
	switch body := first.body; {
	case bytes.HasPrefix(body, vorbisIDHeader):
		if len(body) < 16 {
			return 0, errors.New("short vorbis identification header")
		}
		rate = int64(binary.LittleEndian.Uint32(body[12:16]))
	case bytes.HasPrefix(body, opusIDHeader):
		if len(body) < 12 {
			return 0, errors.New("short opus identification header")
		}
		rate = opusSampleRate
		preSkip = int64(binary.LittleEndian.Uint16(body[10:12]))
	default:
		return 0, errors.New("unsupported ogg codec")
	}
	if rate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", rate)
	}

	last := first.granule
	for off := next; off < len(data); {
		page, n, err := readOggPage(data, off)
		if err != nil {
			return 0, err
		}
		// -1 marks pages on which no packet ends.
		if page.serial == first.serial && page.granule >= 0 {
			last = page.granule
		}
		off = n
	}

	samples := last - preSkip
	if samples <= 0 {
		return 0, errors.New("stream has no audio samples")
	}
	return float64(samples) / float64(rate), nil
}
