package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// BuildRecord is one disc written into a recorded build.
type BuildRecord struct {
	Position      int     `json:"position"`
	Slot          string  `json:"slot"`
	TrackName     string  `json:"track_name"`
	TrackDuration float64 `json:"track_duration"`
	SlotDuration  int     `json:"slot_duration"`
}

// PersistedBuild is a pack build saved to the history database.
type PersistedBuild struct {
	id          string
	sequence    int
	name        string
	description string
	version     string
	headerUUID  string
	moduleUUID  string
	hasIcon     bool
	outputPath  string
	sizeBytes   int64
	records     []BuildRecord
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewPersistedBuild captures a finished build from its manifest and assignments.
func NewPersistedBuild(manifest *Manifest, assignments []Assignment, hasIcon bool, outputPath string, size int64) *PersistedBuild {
	now := time.Now()
	records := make([]BuildRecord, len(assignments))
	for i, a := range assignments {
		records[i] = BuildRecord{
			Position:      i,
			Slot:          a.Slot.Name,
			TrackName:     a.Track.Name,
			TrackDuration: a.TrackDuration,
			SlotDuration:  a.SlotDuration,
		}
	}

	b := &PersistedBuild{
		hasIcon:    hasIcon,
		outputPath: outputPath,
		sizeBytes:  size,
		records:    records,
		createdAt:  now,
		updatedAt:  now,
	}
	if manifest != nil {
		b.name = manifest.Header.Name
		b.description = manifest.Header.Description
		b.version = manifest.Header.Version.String()
		b.headerUUID = manifest.Header.UUID
		if len(manifest.Modules) > 0 {
			b.moduleUUID = manifest.Modules[0].UUID
		}
	}
	return b
}

// RestorePersistedBuild rebuilds a PersistedBuild from stored columns.
func RestorePersistedBuild(
	id string, sequence int,
	name, description, version, headerUUID, moduleUUID string,
	hasIcon bool, outputPath string, size int64,
	createdAt, updatedAt time.Time, deletedAt *time.Time,
) *PersistedBuild {
	return &PersistedBuild{
		id:          id,
		sequence:    sequence,
		name:        name,
		description: description,
		version:     version,
		headerUUID:  headerUUID,
		moduleUUID:  moduleUUID,
		hasIcon:     hasIcon,
		outputPath:  outputPath,
		sizeBytes:   size,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		deletedAt:   deletedAt,
	}
}

func (b *PersistedBuild) ID() string { return b.id }
func (b *PersistedBuild) Sequence() int { return b.sequence }
func (b *PersistedBuild) Name() string { return b.name }
func (b *PersistedBuild) Description() string { return b.description }
func (b *PersistedBuild) Version() string { return b.version }
func (b *PersistedBuild) HeaderUUID() string { return b.headerUUID }
func (b *PersistedBuild) ModuleUUID() string { return b.moduleUUID }
func (b *PersistedBuild) HasIcon() bool { return b.hasIcon }
func (b *PersistedBuild) OutputPath() string { return b.outputPath }
func (b *PersistedBuild) SizeBytes() int64 { return b.sizeBytes }
func (b *PersistedBuild) Records() []BuildRecord { return b.records }
func (b *PersistedBuild) TrackCount() int { return len(b.records) }
func (b *PersistedBuild) CreatedAt() time.Time { return b.createdAt }
func (b *PersistedBuild) UpdatedAt() time.Time { return b.updatedAt }
func (b *PersistedBuild) DeletedAt() *time.Time { return b.deletedAt }
func (b *PersistedBuild) SetID(id string) { b.id = id }
func (b *PersistedBuild) SetSequence(seq int) { b.sequence = seq }
func (b *PersistedBuild) SetOutputPath(p string) { b.outputPath = p }
func (b *PersistedBuild) SetUpdatedAt(t time.Time) { b.updatedAt = t }

// SetRecords replaces the disc records, used when loading from the database.
func (b *PersistedBuild) SetRecords(records []BuildRecord) { b.records = records }

// Validate checks the fields required by the builds table.
func (b *PersistedBuild) Validate() error {
	if b.id == "" {
		return fmt.Errorf("build id is required")
	}
	if b.name == "" {
		return fmt.Errorf("build name is required")
	}
	if b.headerUUID == "" || b.moduleUUID == "" {
		return fmt.Errorf("build %s is missing manifest identifiers", b.id)
	}
	if b.headerUUID == b.moduleUUID {
		return fmt.Errorf("build %s reuses the header uuid for its module", b.id)
	}
	if len(b.records) > MaxTracks {
		return fmt.Errorf("build %s has %d records, catalog holds %d", b.id, len(b.records), MaxTracks)
	}
	return nil
}

// MarshalJSON exposes the build for `discpack history --json`.
func (b *PersistedBuild) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string        `json:"id"`
		Sequence    int           `json:"sequence"`
		Name        string        `json:"name"`
		Description string        `json:"description,omitempty"`
		Version     string        `json:"version"`
		HeaderUUID  string        `json:"header_uuid"`
		ModuleUUID  string        `json:"module_uuid"`
		HasIcon     bool          `json:"has_icon"`
		OutputPath  string        `json:"output_path,omitempty"`
		SizeBytes   int64         `json:"size_bytes"`
		Records     []BuildRecord `json:"records"`
		CreatedAt   time.Time     `json:"created_at"`
	}{
		b.id, b.sequence, b.name, b.description, b.version, b.headerUUID, b.moduleUUID,
		b.hasIcon, b.outputPath, b.sizeBytes, b.records, b.createdAt,
	})
}
