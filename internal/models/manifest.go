package models

// Manifest format constants. MinEngineVersion ties the pack to the slot catalog.
const (
	ManifestFormatVersion = 2
	ModuleTypeResources   = "resources"
)

// MinEngineVersion is the oldest game version that understands every slot in the catalog.
var MinEngineVersion = Version{1, 21, 0}

// Manifest is the manifest.json document of a resource pack.
type Manifest struct {
	FormatVersion int              `json:"format_version" yaml:"format_version"`
	Header        ManifestHeader   `json:"header" yaml:"header"`
	Modules       []ManifestModule `json:"modules" yaml:"modules"`
}

// ManifestHeader identifies the pack.
type ManifestHeader struct {
	UUID             string  `json:"uuid" yaml:"uuid"`
	Name             string  `json:"name" yaml:"name"`
	Version          Version `json:"version" yaml:"version"`
	Description      string  `json:"description" yaml:"description"`
	MinEngineVersion Version `json:"min_engine_version" yaml:"min_engine_version"`
}

// ManifestModule declares the resources module.
type ManifestModule struct {
	Description string  `json:"description" yaml:"description"`
	Version     Version `json:"version" yaml:"version"`
	UUID        string  `json:"uuid" yaml:"uuid"`
	Type        string  `json:"type" yaml:"type"`
}

// NewManifest builds a manifest with one resources module.
func NewManifest(m Metadata, headerUUID, moduleUUID string) *Manifest {
	return &Manifest{
		FormatVersion: ManifestFormatVersion,
		Header: ManifestHeader{
			UUID:             headerUUID,
			Name:             m.Name,
			Version:          m.Version,
			Description:      m.Description,
			MinEngineVersion: MinEngineVersion,
		},
		Modules: []ManifestModule{{
			Description: m.Description,
			Version:     m.Version,
			UUID:        moduleUUID,
			Type:        ModuleTypeResources,
		}},
	}
}
