package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event groups the photos, faces and persons of one gathering.
// Every face identity query is scoped to a single event.
type Event struct {
	ID   uuid.UUID `gorm:"primaryKey;type:uuid"`
	Name string    `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations. Deleting an event removes everything below it.
	Photos  []Photo  `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	Persons []Person `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	Faces   []Face   `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

func (Event) TableName() string {
	return "events"
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.Must(uuid.NewV7())
	}
	return nil
}
