package services

import "github.com/google/uuid"

// Progress message types sent to an event's room
const (
	NotifyPhotoUpdated   = "photo:updated"
	NotifyPersonsUpdated = "persons:updated"
	NotifyProcessingDone = "processing:done"
)

// Notifier pushes processing progress to clients watching an event
type Notifier interface {
	Notify(eventID uuid.UUID, msgType string, data interface{})
}

// NopNotifier discards every notification
type NopNotifier struct{}

func (NopNotifier) Notify(uuid.UUID, string, interface{}) {}
