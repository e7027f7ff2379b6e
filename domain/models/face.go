package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Face struct {
	ID      uuid.UUID `gorm:"primaryKey;type:uuid"`
	EventID uuid.UUID `gorm:"type:uuid;not null;index"` // For event scoped queries
	PhotoID uuid.UUID `gorm:"type:uuid;not null;index"`

	// Face embedding vector. The dimension is fixed by the provider model.
	Embedding pgvector.Vector `gorm:"type:vector;not null"`

	// Bounding box (x, y, width, height as fraction of image)
	BboxX      float64 `gorm:"not null"`
	BboxY      float64 `gorm:"not null"`
	BboxWidth  float64 `gorm:"not null"`
	BboxHeight float64 `gorm:"not null"`

	// Detection confidence (0-1)
	Confidence float64 `gorm:"not null"`

	// Optional facial landmarks as returned by the provider
	Landmarks datatypes.JSON `gorm:"type:jsonb"`

	// Person cluster, set by the clustering engine
	PersonID *uuid.UUID `gorm:"type:uuid;index"`

	// Set when clustering refused the face. Such faces are left out of later passes.
	ClusterError string `gorm:"not null;default:''"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Face) TableName() string {
	return "faces"
}

func (f *Face) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.Must(uuid.NewV7())
	}
	return nil
}

// BboxArea returns the bounding box area as a fraction of the image
func (f *Face) BboxArea() float64 {
	return f.BboxWidth * f.BboxHeight
}
