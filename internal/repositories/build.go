package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
)

// ErrBuildNotFound is returned when a build does not exist or was deleted.
var ErrBuildNotFound = errors.New("build not found")

const buildColumns = `id, sequence, name, description, version, header_uuid, module_uuid, has_icon, output_path, size_bytes, created_at, updated_at, deleted_at`

var _ models.Repository[*models.PersistedBuild] = (*BuildRepository)(nil)

// BuildRepository implements models.Repository[*models.PersistedBuild] for the build history.
//
// A build row and its disc records are written in one transaction.
type BuildRepository struct {
	db *sql.DB
}

// NewBuildRepository creates a new BuildRepository with the given database connection
func NewBuildRepository(db *sql.DB) *BuildRepository {
	return &BuildRepository{db: db}
}

// Create inserts a new [models.PersistedBuild] and its records with generated ID and sequence
func (r *BuildRepository) Create(build *models.PersistedBuild) error {
	sequence, err := NextSequence(r.db, "builds")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	build.SetID(shared.GenerateID())
	build.SetSequence(sequence)

	if err := build.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO builds (id, sequence, name, description, version, header_uuid, module_uuid, track_count, has_icon, output_path, size_bytes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		build.ID(),
		build.Sequence(),
		build.Name(),
		build.Description(),
		build.Version(),
		build.HeaderUUID(),
		build.ModuleUUID(),
		build.TrackCount(),
		build.HasIcon(),
		build.OutputPath(),
		build.SizeBytes(),
		build.CreatedAt(),
		build.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert build: %w", err)
	}

	for _, rec := range build.Records() {
		_, err := tx.Exec(`
			INSERT INTO build_records (build_id, position, slot, track_name, track_duration, slot_duration)
			VALUES (?, ?, ?, ?, ?, ?)
		`, build.ID(), rec.Position, rec.Slot, rec.TrackName, rec.TrackDuration, rec.SlotDuration)
		if err != nil {
			return fmt.Errorf("failed to insert record %d: %w", rec.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit build: %w", err)
	}
	return nil
}

// Get retrieves a build and its records by ID, excluding soft-deleted builds
func (r *BuildRepository) Get(id string) (*models.PersistedBuild, error) {
	query := `SELECT ` + buildColumns + ` FROM builds WHERE id = ? AND deleted_at IS NULL`

	build, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	records, err := r.records(build.ID())
	if err != nil {
		return nil, err
	}
	build.SetRecords(records)
	return build, nil
}

// GetBySequence retrieves a build by its history number
func (r *BuildRepository) GetBySequence(sequence int) (*models.PersistedBuild, error) {
	var id string
	err := r.db.QueryRow(`SELECT id FROM builds WHERE sequence = ? AND deleted_at IS NULL`, sequence).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: #%d", ErrBuildNotFound, sequence)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query build: %w", err)
	}
	return r.Get(id)
}

// Update modifies the mutable fields of an existing build
func (r *BuildRepository) Update(build *models.PersistedBuild) error {
	if err := build.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	build.SetUpdatedAt(now)

	result, err := r.db.Exec(`
		UPDATE builds
		SET output_path = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, build.OutputPath(), now, build.ID())
	if err != nil {
		return fmt.Errorf("failed to update build: %w", err)
	}

	return requireRow(result, build.ID())
}

// Delete soft-deletes a build by ID
func (r *BuildRepository) Delete(id string) error {
	result, err := r.db.Exec(`
		UPDATE builds
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete build: %w", err)
	}

	return requireRow(result, id)
}

// List retrieves builds newest first, excluding soft-deleted builds.
//
// Supported criteria: "name" (exact match) and "limit" (int).
func (r *BuildRepository) List(criteria map[string]any) ([]*models.PersistedBuild, error) {
	query := `SELECT ` + buildColumns + ` FROM builds WHERE deleted_at IS NULL`
	args := []any{}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer rows.Close()

	var builds []*models.PersistedBuild
	for rows.Next() {
		build, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, build)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, build := range builds {
		records, err := r.records(build.ID())
		if err != nil {
			return nil, err
		}
		build.SetRecords(records)
	}

	return builds, nil
}

func (r *BuildRepository) records(buildID string) ([]models.BuildRecord, error) {
	rows, err := r.db.Query(`
		SELECT position, slot, track_name, track_duration, slot_duration
		FROM build_records
		WHERE build_id = ?
		ORDER BY position ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.BuildRecord
	for rows.Next() {
		var rec models.BuildRecord
		if err := rows.Scan(&rec.Position, &rec.Slot, &rec.TrackName, &rec.TrackDuration, &rec.SlotDuration); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one builds row into a [models.PersistedBuild]
func (r *BuildRepository) scan(row scanner) (*models.PersistedBuild, error) {
	var (
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
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &name, &description, &version, &headerUUID, &moduleUUID, &hasIcon, &outputPath, &sizeBytes, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan build: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestorePersistedBuild(
		id, sequence,
		name, description, version, headerUUID, moduleUUID,
		hasIcon, outputPath, sizeBytes,
		createdAt, updatedAt, deleted,
	), nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}
	return nil
}
