package serviceimpl

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"eventfaces/domain/models"
	"eventfaces/domain/services"
	"eventfaces/infrastructure/memstore"
)

func TestEventService(t *testing.T) {
	store := memstore.New()
	var woken []uuid.UUID
	svc := NewEventService(store.Events(), store.Photos(), func(id uuid.UUID) { woken = append(woken, id) })
	ctx := context.Background()

	if _, err := svc.CreateEvent(ctx, "   "); !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("blank name err = %v", err)
	}

	event, err := svc.CreateEvent(ctx, "Company Party")
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	photos, err := svc.AddPhotos(ctx, event.ID, []services.NewPhoto{{ImageURL: "https://cdn/1.jpg"}, {ImageURL: "https://cdn/2.jpg"}})
	if err != nil {
		t.Fatalf("AddPhotos: %v", err)
	}
	if len(photos) != 2 || photos[0].FaceStatus != models.FaceStatusUnprocessed {
		t.Errorf("photos = %+v", photos)
	}
	if len(woken) != 1 || woken[0] != event.ID {
		t.Errorf("worker wake-ups = %v", woken)
	}

	if _, err := svc.AddPhotos(ctx, event.ID, []services.NewPhoto{{ImageURL: ""}}); !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("missing url err = %v", err)
	}
	if _, err := svc.AddPhotos(ctx, uuid.New(), []services.NewPhoto{{ImageURL: "x"}}); !errors.Is(err, services.ErrEventNotFound) {
		t.Errorf("unknown event err = %v", err)
	}

	list, total, err := svc.ListPhotos(ctx, event.ID, 1, 1)
	if err != nil || total != 2 || len(list) != 1 {
		t.Errorf("ListPhotos = %d/%d, %v", len(list), total, err)
	}

	if err := svc.DeleteEvent(ctx, event.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := svc.GetEvent(ctx, event.ID); !errors.Is(err, services.ErrEventNotFound) {
		t.Errorf("GetEvent after delete = %v", err)
	}
	if err := svc.DeleteEvent(ctx, event.ID); !errors.Is(err, services.ErrEventNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		page, limit      int
		wantOff, wantLim int
	}{
		{1, 20, 0, 20},
		{3, 10, 20, 10},
		{0, 0, 0, 20},
		{2, 500, 20, 20},
	}
	for _, tt := range tests {
		off, lim := pageBounds(tt.page, tt.limit)
		if off != tt.wantOff || lim != tt.wantLim {
			t.Errorf("pageBounds(%d, %d) = %d, %d; want %d, %d", tt.page, tt.limit, off, lim, tt.wantOff, tt.wantLim)
		}
	}
}
