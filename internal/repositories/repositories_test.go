package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newBuild(name string, tracks int) *models.PersistedBuild {
	manifest := models.NewManifest(models.Metadata{Name: name, Description: "d", Version: models.Version{1, 2, 3}},
		shared.GenerateID(), shared.GenerateID())

	slots := models.Slots()
	var assignments []models.Assignment
	for i := range tracks {
		tr := models.Track{Name: fmt.Sprintf("track-%d.ogg", i), Duration: float64(60 + i)}
		assignments = append(assignments, models.NewAssignment(tr, slots[i]))
	}
	return models.NewPersistedBuild(manifest, assignments, true, "/tmp/"+name+".mcpack", 2048)
}

func TestBuildRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBuildRepository(db)
		build := newBuild("Pack", 3)

		if err := repo.Create(build); err != nil {
			t.Fatalf("failed to create build: %v", err)
		}

		if build.ID() == "" {
			t.Error("build ID should be set after creation")
		}
		if build.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", build.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBuildRepository(db)
		build := newBuild("Pack", 3)
		if err := repo.Create(build); err != nil {
			t.Fatalf("failed to create build: %v", err)
		}

		retrieved, err := repo.Get(build.ID())
		if err != nil {
			t.Fatalf("failed to get build: %v", err)
		}

		if retrieved.Name() != "Pack" || retrieved.Version() != "1.2.3" || !retrieved.HasIcon() {
			t.Errorf("unexpected build %s %s icon=%v", retrieved.Name(), retrieved.Version(), retrieved.HasIcon())
		}
		if retrieved.HeaderUUID() != build.HeaderUUID() || retrieved.SizeBytes() != 2048 {
			t.Error("manifest identifiers or size not persisted")
		}

		records := retrieved.Records()
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		if records[0].Slot != "13" || records[2].TrackName != "track-2.ogg" || records[1].TrackDuration != 61 {
			t.Errorf("unexpected records %+v", records)
		}
	})

	t.Run("GetBySequence", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBuildRepository(db)
		repo.Create(newBuild("First", 1))
		second := newBuild("Second", 2)
		repo.Create(second)

		got, err := repo.GetBySequence(2)
		if err != nil {
			t.Fatalf("failed to get build by sequence: %v", err)
		}
		if got.ID() != second.ID() || got.TrackCount() != 2 {
			t.Errorf("expected second build, got %s", got.Name())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBuildRepository(db)
		build := newBuild("Pack", 1)
		repo.Create(build)

		build.SetOutputPath("/elsewhere/Pack.mcpack")
		if err := repo.Update(build); err != nil {
			t.Fatalf("failed to update build: %v", err)
		}

		retrieved, _ := repo.Get(build.ID())
		if retrieved.OutputPath() != "/elsewhere/Pack.mcpack" {
			t.Errorf("expected updated path, got %s", retrieved.OutputPath())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBuildRepository(db)
		build := newBuild("Pack", 1)
		repo.Create(build)

		if err := repo.Delete(build.ID()); err != nil {
			t.Fatalf("failed to delete build: %v", err)
		}

		if _, err := repo.Get(build.ID()); !errors.Is(err, ErrBuildNotFound) {
			t.Errorf("expected ErrBuildNotFound, got %v", err)
		}

		builds, _ := repo.List(nil)
		if len(builds) != 0 {
			t.Errorf("expected deleted build to be hidden, got %d", len(builds))
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBuildRepository(db)
		for i, name := range []string{"A", "B", "A"} {
			if err := repo.Create(newBuild(name, i+1)); err != nil {
				t.Fatal(err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list builds: %v", err)
		}
		if len(all) != 3 || all[0].Sequence() != 3 || all[0].TrackCount() != 3 {
			t.Errorf("expected newest first with records, got %d builds", len(all))
		}

		named, _ := repo.List(map[string]any{"name": "A"})
		if len(named) != 2 {
			t.Errorf("expected 2 builds named A, got %d", len(named))
		}

		limited, _ := repo.List(map[string]any{"limit": 1})
		if len(limited) != 1 {
			t.Errorf("expected 1 build, got %d", len(limited))
		}
	})
}

func TestBuildRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			build := models.NewPersistedBuild(nil, nil, false, "", 0)
			if err := NewBuildRepository(db).Create(build); err == nil {
				t.Fatal("expected validation error for build without manifest")
			}
		})

		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			db.Close()

			if err := NewBuildRepository(db).Create(newBuild("Pack", 1)); err == nil {
				t.Fatal("expected error on closed database")
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			build := newBuild("Pack", 1)
			build.SetID("nonexistent-id")
			if err := NewBuildRepository(db).Update(build); !errors.Is(err, ErrBuildNotFound) {
				t.Fatalf("expected ErrBuildNotFound, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if err := NewBuildRepository(db).Delete("nonexistent-id"); !errors.Is(err, ErrBuildNotFound) {
				t.Fatalf("expected ErrBuildNotFound, got %v", err)
			}
		})
	})

	t.Run("GetBySequence", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if _, err := NewBuildRepository(db).GetBySequence(7); !errors.Is(err, ErrBuildNotFound) {
				t.Fatalf("expected ErrBuildNotFound, got %v", err)
			}
		})
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "builds")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("NextSequence() = %d, want %d", got, want)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for unknown table")
	}
}
