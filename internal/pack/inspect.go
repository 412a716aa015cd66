package pack

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
)

// TexturePath is the icon name used by packs that predate pack_icon.png.
const TexturePath = "texture.png"

// Record is one .ogg entry found in an existing pack.
type Record struct {
	Path  string       `json:"path" yaml:"path"`
	Slot  string       `json:"slot" yaml:"slot"`
	Track models.Track `json:"track" yaml:"track"`
}

// Contents is what [Inspect] recovers from an archive.
type Contents struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Version     *[3]int  `json:"version,omitempty" yaml:"version,omitempty"`
	HeaderUUID  string   `json:"header_uuid,omitempty" yaml:"header_uuid,omitempty"`
	Modules     int      `json:"modules" yaml:"modules"`
	Records     []Record `json:"records" yaml:"records"`
	Icon        []byte   `json:"-" yaml:"-"`
	HasManifest bool     `json:"has_manifest" yaml:"has_manifest"`
}

// Tracks returns the recorded tracks in archive order.
func (c *Contents) Tracks() []models.Track {
	out := make([]models.Track, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.Track
	}
	return out
}

// MetadataInput returns the manifest metadata as raw input, leaving absent fields blank.
func (c *Contents) MetadataInput() models.MetadataInput {
	in := models.MetadataInput{Name: c.Name, Description: c.Description}
	if c.Version != nil {
		for i := range c.Version {
			v := c.Version[i]
			in.Version[i] = &v
		}
	}
	return in
}

type looseManifest struct {
	Header struct {
		UUID        string `json:"uuid"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Version     []int  `json:"version"`
	} `json:"header"`
	Modules []json.RawMessage `json:"modules"`
}

// Inspect reads an existing pack archive.
//
// Every .ogg entry becomes a record named after its base name. The manifest is optional; a version is only
// reported when it has exactly three components. The icon is pack_icon.png, else texture.png.
func Inspect(data []byte) (*Contents, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a pack archive: %w", shared.ErrInvalidInput, err)
	}

	c := &Contents{}
	var texture []byte
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		switch name := f.Name; {
		case strings.EqualFold(path.Ext(name), ".ogg"):
			payload, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			base := path.Base(name)
			c.Records = append(c.Records, Record{
				Path:  name,
				Slot:  strings.TrimSuffix(base, path.Ext(base)),
				Track: models.Track{Name: base, Payload: payload},
			})
		case path.Base(name) == ManifestPath:
			raw, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			if err := c.readManifest(raw); err != nil {
				return nil, err
			}
		case name == IconPath:
			if c.Icon, err = readEntry(f); err != nil {
				return nil, err
			}
		case name == TexturePath:
			if texture, err = readEntry(f); err != nil {
				return nil, err
			}
		}
	}

	if c.Icon == nil {
		c.Icon = texture
	}
	return c, nil
}

func (c *Contents) readManifest(raw []byte) error {
	var m looseManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("%w: malformed manifest: %w", shared.ErrInvalidInput, err)
	}

	c.HasManifest = true
	c.Name = m.Header.Name
	c.Description = m.Header.Description
	c.HeaderUUID = m.Header.UUID
	c.Modules = len(m.Modules)
	if len(m.Header.Version) == 3 {
		v := [3]int(m.Header.Version)
		c.Version = &v
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return data, nil
}
