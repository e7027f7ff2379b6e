package serviceimpl

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"eventfaces/domain/services"
)

func TestMergePersons_KeepsNameAndUnionsPhotos(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	eventID := env.createEvent(t)
	photos := env.addPhotos(t, eventID, "1.jpg", "2.jpg", "3.jpg", "4.jpg")

	f1 := env.saveFaces(t, photos[0], e1)
	f2 := env.saveFaces(t, photos[1], e1)
	shared := env.saveFaces(t, photos[2], e1, e3)
	f4 := env.saveFaces(t, photos[3], e3)

	mom := env.seedPerson(t, eventID, strPtr("Mom"), f1[0], f2[0], shared[0])
	other := env.seedPerson(t, eventID, nil, shared[1], f4[0])

	merged, err := env.persons.MergePersons(ctx, mom, other)
	if err != nil {
		t.Fatalf("MergePersons: %v", err)
	}
	if merged.ID != other {
		t.Errorf("survivor = %s, want target %s", merged.ID, other)
	}
	if merged.Name == nil || *merged.Name != "Mom" {
		t.Errorf("name = %v, want Mom", merged.Name)
	}
	if merged.PhotoCount != 4 || merged.FaceCount != 5 {
		t.Errorf("photos=%d faces=%d, want 4/5", merged.PhotoCount, merged.FaceCount)
	}

	if _, err := env.persons.GetPerson(ctx, mom); !errors.Is(err, services.ErrPersonNotFound) {
		t.Error("source person still present")
	}
	faces, _ := env.persons.GetPersonFaces(ctx, other)
	if len(faces) != 5 {
		t.Errorf("survivor faces = %d, want 5", len(faces))
	}
	if env.notifier.count(services.NotifyPersonsUpdated) == 0 {
		t.Error("persons:updated not sent")
	}
}

func TestMergePersons_Errors(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	a, b := env.createEvent(t), env.createEvent(t)
	pa := env.seedPerson(t, a, nil, env.saveFaces(t, env.addPhotos(t, a, "a.jpg")[0], e1)...)
	pb := env.seedPerson(t, b, nil, env.saveFaces(t, env.addPhotos(t, b, "b.jpg")[0], e1)...)

	if _, err := env.persons.MergePersons(ctx, pa, pb); !errors.Is(err, services.ErrCrossEventMerge) {
		t.Errorf("cross event err = %v", err)
	}
	if _, err := env.persons.MergePersons(ctx, uuid.New(), pb); !errors.Is(err, services.ErrPersonNotFound) {
		t.Errorf("unknown source err = %v", err)
	}

	same, err := env.persons.MergePersons(ctx, pa, pa)
	if err != nil || same.ID != pa {
		t.Errorf("self merge = %v, %v", same, err)
	}
}

func TestNamePerson(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	eventID := env.createEvent(t)
	id := env.seedPerson(t, eventID, nil, env.saveFaces(t, env.addPhotos(t, eventID, "1.jpg")[0], e1)...)

	person, err := env.persons.NamePerson(ctx, id, "  Grandpa ")
	if err != nil {
		t.Fatalf("NamePerson: %v", err)
	}
	if person.Name == nil || *person.Name != "Grandpa" {
		t.Errorf("name = %v", person.Name)
	}

	person, err = env.persons.NamePerson(ctx, id, "")
	if err != nil || person.Name != nil {
		t.Errorf("clear = %v, %v", person.Name, err)
	}

	if _, err := env.persons.NamePerson(ctx, uuid.New(), "x"); !errors.Is(err, services.ErrPersonNotFound) {
		t.Errorf("unknown err = %v", err)
	}
	if held := env.locker.Held(eventID); held != 0 {
		t.Errorf("event lock still held: %d", held)
	}
}
