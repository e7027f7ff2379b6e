package serviceimpl

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"eventfaces/domain/services"
)

func TestSearchByFace_NoMatchIsEmpty(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	eventID := env.createEvent(t)
	photos := env.addPhotos(t, eventID, "1.jpg")
	env.saveFaces(t, photos[0], e1)

	matches, err := env.faces.SearchByFace(ctx, eventID, e3, 10)
	if err != nil {
		t.Fatalf("SearchByFace: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("matches = %v, want empty slice", matches)
	}

	// Event with no faces yet
	matches, err = env.faces.SearchByFace(ctx, env.createEvent(t), e1, 10)
	if err != nil || len(matches) != 0 {
		t.Errorf("empty event = %v, %v", matches, err)
	}
}

func TestSearchByFace_DedupesByPhoto(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	eventID := env.createEvent(t)
	photos := env.addPhotos(t, eventID, "1.jpg", "2.jpg")

	first := env.saveFaces(t, photos[0], e2, e1)
	env.saveFaces(t, photos[1], e2)

	matches, err := env.faces.SearchByFace(ctx, eventID, e1, 0)
	if err != nil {
		t.Fatalf("SearchByFace: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].Photo.ID != photos[0].ID || matches[0].Face.ID != first[1].ID {
		t.Errorf("best match = photo %s face %s", matches[0].Photo.ID, matches[0].Face.ID)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Error("matches not sorted")
	}

	limited, _ := env.faces.SearchByFace(ctx, eventID, e1, 1)
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d", len(limited))
	}
}

func TestSearchByFace_EventIsolation(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	a, b := env.createEvent(t), env.createEvent(t)
	env.saveFaces(t, env.addPhotos(t, a, "a.jpg")[0], e1)

	matches, err := env.faces.SearchByFace(ctx, b, e1, 0)
	if err != nil || len(matches) != 0 {
		t.Errorf("cross event matches = %v, %v", matches, err)
	}
	if _, err := env.faces.SearchByFace(ctx, uuid.New(), e1, 0); !errors.Is(err, services.ErrEventNotFound) {
		t.Errorf("err = %v, want ErrEventNotFound", err)
	}
}

func TestFindYourself_UsesLargestFace(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	eventID := env.createEvent(t)
	photos := env.addPhotos(t, eventID, "1.jpg", "2.jpg")
	env.saveFaces(t, photos[0], e1)
	env.saveFaces(t, photos[1], e3)

	env.provider.selfie = []services.DetectedFace{
		detected(e3, 0.1, 0.9),
		detected(e1, 0.4, 0.9),
	}

	matches, err := env.faces.FindYourself(ctx, eventID, []byte("jpeg"), "image/jpeg", 10)
	if err != nil {
		t.Fatalf("FindYourself: %v", err)
	}
	if len(matches) != 1 || matches[0].Photo.ID != photos[0].ID {
		t.Errorf("matches = %+v, want photo 1 only", matches)
	}
}

func TestFindYourself_Errors(t *testing.T) {
	ctx := context.Background()

	disabled := newTestEnv(t, false)
	if _, err := disabled.faces.FindYourself(ctx, disabled.createEvent(t), nil, "image/jpeg", 10); !errors.Is(err, services.ErrProviderUnavailable) {
		t.Errorf("disabled err = %v", err)
	}

	env := newTestEnv(t, true)
	eventID := env.createEvent(t)
	if _, err := env.faces.FindYourself(ctx, eventID, []byte("x"), "image/jpeg", 10); !errors.Is(err, services.ErrNoFaceInSelfie) {
		t.Errorf("no face err = %v", err)
	}

	env.provider.selfie = []services.DetectedFace{detected([]float32{0, 0, 0}, 0.3, 0.9)}
	if _, err := env.faces.FindYourself(ctx, eventID, []byte("x"), "image/jpeg", 10); !errors.Is(err, services.ErrNoFaceInSelfie) {
		t.Errorf("zero embedding err = %v", err)
	}

	if _, err := env.faces.FindYourself(ctx, uuid.New(), []byte("x"), "image/jpeg", 10); !errors.Is(err, services.ErrEventNotFound) {
		t.Errorf("unknown event err = %v", err)
	}
}
