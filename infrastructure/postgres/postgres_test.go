//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
	"eventfaces/pkg/config"
)

func setupTestContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Driver:   "postgres",
		Host:     host,
		Port:     port.Port(),
		User:     "test",
		Password: "test",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	db, err := NewDatabase(cfg, true)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to connect: %v", err)
	}
	if err := Migrate(db); err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		container.Terminate(ctx)
	}
	return db, cleanup
}

func TestIdentityStore(t *testing.T) {
	db, cleanup := setupTestContainer(t)
	if db == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	events := NewEventRepository(db)
	photos := NewPhotoRepository(db)
	faces := NewFaceRepository(db)
	persons := NewPersonRepository(db)

	event := &models.Event{Name: "Wedding"}
	if err := events.Create(ctx, event); err != nil {
		t.Fatalf("Create event: %v", err)
	}

	photo := &models.Photo{EventID: event.ID, ImageURL: "https://example.com/a.jpg"}
	if err := photos.Create(ctx, photo); err != nil {
		t.Fatalf("Create photo: %v", err)
	}

	var claimID uuid.UUID
	t.Run("Claim", func(t *testing.T) {
		id, ok, err := photos.ClaimForDetection(ctx, photo.ID, 3)
		if err != nil || !ok {
			t.Fatalf("first claim = %v, %v; want true", ok, err)
		}
		claimID = id
		_, ok, err = photos.ClaimForDetection(ctx, photo.ID, 3)
		if err != nil || ok {
			t.Fatalf("second claim = %v, %v; want false", ok, err)
		}

		// A claim from another run cannot write
		ok, err = faces.SaveDetections(ctx, photo.ID, uuid.New(), nil)
		if err != nil || ok {
			t.Fatalf("foreign claim save = %v, %v; want false", ok, err)
		}
		_, err = photos.RecordFailure(ctx, photo.ID, repositories.DetectionFailure{ClaimID: uuid.New(), Reason: "x", MaxRetries: 3})
		if !errors.Is(err, repositories.ErrClaimLost) {
			t.Fatalf("foreign claim RecordFailure err = %v, want ErrClaimLost", err)
		}
	})

	var saved []*models.Face
	t.Run("SaveDetections", func(t *testing.T) {
		saved = []*models.Face{
			{Embedding: pgvector.NewVector([]float32{1, 0, 0}), BboxWidth: 0.2, BboxHeight: 0.2, Confidence: 0.9},
			{Embedding: pgvector.NewVector([]float32{0, 1, 0}), BboxWidth: 0.1, BboxHeight: 0.1, Confidence: 0.8},
		}
		ok, err := faces.SaveDetections(ctx, photo.ID, claimID, saved)
		if err != nil || !ok {
			t.Fatalf("SaveDetections = %v, %v", ok, err)
		}
		got, err := photos.GetByID(ctx, photo.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.FaceStatus != models.FaceStatusFacesFound || got.FaceCount != 2 || got.FaceClaimedAt != nil {
			t.Errorf("photo after save = %s/%d/%v", got.FaceStatus, got.FaceCount, got.FaceClaimedAt)
		}

		// Not detecting anymore, so a late duplicate write is ignored
		ok, err = faces.SaveDetections(ctx, photo.ID, claimID, nil)
		if err != nil || ok {
			t.Errorf("duplicate SaveDetections = %v, %v; want false", ok, err)
		}
	})

	t.Run("Search", func(t *testing.T) {
		results, err := faces.SearchSimilarByEvent(ctx, event.ID, pgvector.NewVector([]float32{0.9, 0.1, 0}), 0.5)
		if err != nil {
			t.Fatalf("SearchSimilarByEvent: %v", err)
		}
		if len(results) != 1 || results[0].Face.ID != saved[0].ID {
			t.Fatalf("results = %+v", results)
		}
		if results[0].Photo.ID != photo.ID {
			t.Errorf("photo = %s, want %s", results[0].Photo.ID, photo.ID)
		}

		// Other dimensions never match
		results, err = faces.SearchSimilarByEvent(ctx, event.ID, pgvector.NewVector([]float32{1, 0}), -1)
		if err != nil || len(results) != 0 {
			t.Errorf("mismatched dims = %d results, %v", len(results), err)
		}
	})

	t.Run("ApplyClustering", func(t *testing.T) {
		a := &models.Person{ID: uuid.Must(uuid.NewV7()), PhotoCount: 1, FaceCount: 1, Centroid: pgvector.NewVector([]float32{1, 0, 0})}
		b := &models.Person{ID: uuid.Must(uuid.NewV7()), PhotoCount: 1, FaceCount: 1, Centroid: pgvector.NewVector([]float32{0, 1, 0})}
		ok, err := persons.ApplyClustering(ctx, &repositories.ClusteringChange{
			EventID:         event.ID,
			Upserts:         []*models.Person{a, b},
			Assignments:     map[uuid.UUID]uuid.UUID{saved[0].ID: a.ID, saved[1].ID: b.ID},
			AppliedPhotoIDs: []uuid.UUID{photo.ID},
		})
		if err != nil || !ok {
			t.Fatalf("ApplyClustering = %v, %v", ok, err)
		}

		got, _ := photos.GetByID(ctx, photo.ID)
		if got.FaceStatus != models.FaceStatusClusteringApplied {
			t.Errorf("photo status = %s", got.FaceStatus)
		}

		a.FaceCount = 2
		ok, err = persons.ApplyClustering(ctx, &repositories.ClusteringChange{
			EventID:  event.ID,
			Upserts:  []*models.Person{a},
			Absorbed: map[uuid.UUID]uuid.UUID{b.ID: a.ID},
		})
		if err != nil || !ok {
			t.Fatalf("merge ApplyClustering = %v, %v", ok, err)
		}
		if _, err := persons.GetByID(ctx, b.ID); err != repositories.ErrNotFound {
			t.Errorf("absorbed person still present: %v", err)
		}
		members, err := faces.GetByPerson(ctx, a.ID)
		if err != nil || len(members) != 2 {
			t.Errorf("survivor faces = %d, %v", len(members), err)
		}
	})

	t.Run("DeleteEventCascades", func(t *testing.T) {
		if err := events.Delete(ctx, event.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		n, err := faces.CountByEvent(ctx, event.ID)
		if err != nil || n != 0 {
			t.Errorf("faces left = %d, %v", n, err)
		}

		ok, err := persons.ApplyClustering(ctx, &repositories.ClusteringChange{
			EventID: event.ID,
			Upserts: []*models.Person{{Centroid: pgvector.NewVector([]float32{1, 0, 0})}},
		})
		if err != nil || ok {
			t.Errorf("ApplyClustering after delete = %v, %v; want no-op", ok, err)
		}
	})
}
