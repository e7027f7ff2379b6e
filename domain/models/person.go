package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Person is one identity cluster within an event.
// Centroid, PhotoCount, FaceCount and RepresentativeFaceID are derived from the member faces.
type Person struct {
	ID      uuid.UUID `gorm:"primaryKey;type:uuid"`
	EventID uuid.UUID `gorm:"type:uuid;not null;index"`

	// Host assigned name, nil until named
	Name *string

	// Stats (cached)
	PhotoCount int `gorm:"default:0"`
	FaceCount  int `gorm:"default:0"`

	RepresentativeFaceID *uuid.UUID      `gorm:"type:uuid"`
	Centroid             pgvector.Vector `gorm:"type:vector"`

	// CreatedAt together with ID defines cluster creation order
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	// Relations
	Faces []Face `gorm:"foreignKey:PersonID;constraint:OnDelete:SET NULL"`
}

func (Person) TableName() string {
	return "persons"
}

func (p *Person) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.Must(uuid.NewV7())
	}
	return nil
}
