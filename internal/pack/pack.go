// Package pack writes and reads .mcpack resource pack archives.
//
// # Layout
//
//	sounds/music/game/records/<slot>.ogg   one per assignment, payload stored verbatim
//	pack_icon.png                          optional
//	manifest.json                          two-space indented
//
// Entries are deflated at [CompressionLevel] and stamped with [EntryTime], so the same assignments, metadata,
// icon and identifiers always produce the same bytes.
package pack

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
)

const (
	IconPath     = "pack_icon.png"
	ManifestPath = "manifest.json"

	// CompressionLevel is the deflate level of every entry.
	CompressionLevel = 6
)

// EntryTime is the modification time written on every entry (the zip epoch).
var EntryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Assembler builds pack archives.
type Assembler struct {
	newID func() string
}

// NewAssembler creates an [Assembler] that draws manifest identifiers from newID.
// A nil newID uses [shared.GenerateID].
func NewAssembler(newID func() string) *Assembler {
	if newID == nil {
		newID = shared.GenerateID
	}
	return &Assembler{newID: newID}
}

// Assemble writes every assignment, the optional icon and a fresh manifest into a single archive.
//
// Any failure wraps [shared.ErrAssemblyFailed] and no archive bytes are returned.
func (a *Assembler) Assemble(assignments []models.Assignment, meta models.Metadata, icon []byte) ([]byte, *models.Manifest, error) {
	headerID, moduleID := a.newID(), a.newID()
	if headerID == "" || headerID == moduleID {
		return nil, nil, fmt.Errorf("%w: manifest identifiers must be distinct and non-empty", shared.ErrAssemblyFailed)
	}
	manifest := models.NewManifest(meta, headerID, moduleID)

	data, err := a.write(assignments, manifest, icon)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", shared.ErrAssemblyFailed, err)
	}
	return data, manifest, nil
}

func (a *Assembler) write(assignments []models.Assignment, manifest *models.Manifest, icon []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, CompressionLevel)
	})

	seen := make(map[string]struct{}, len(assignments))
	for _, asg := range assignments {
		if _, dup := seen[asg.Slot.Name]; dup {
			return nil, fmt.Errorf("slot %s assigned twice", asg.Slot.Name)
		}
		seen[asg.Slot.Name] = struct{}{}

		if err := writeEntry(zw, asg.Slot.RecordPath(), asg.Track.Payload); err != nil {
			return nil, err
		}
	}

	if len(icon) > 0 {
		if err := writeEntry(zw, IconPath, icon); err != nil {
			return nil, err
		}
	}

	doc, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestPath, doc); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: EntryTime,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
