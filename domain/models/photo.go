package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FaceProcessingStatus string

const (
	FaceStatusUnprocessed       FaceProcessingStatus = "unprocessed"
	FaceStatusDetecting         FaceProcessingStatus = "detecting"
	FaceStatusFacesFound        FaceProcessingStatus = "faces_found"
	FaceStatusNoFaces           FaceProcessingStatus = "no_faces"
	FaceStatusClusteringApplied FaceProcessingStatus = "clustering_applied"
	FaceStatusFailed            FaceProcessingStatus = "faces_failed"
)

// Terminal reports whether no further processing is expected for the status
func (s FaceProcessingStatus) Terminal() bool {
	return s == FaceStatusNoFaces || s == FaceStatusClusteringApplied || s == FaceStatusFailed
}

type Photo struct {
	ID      uuid.UUID `gorm:"primaryKey;type:uuid"`
	EventID uuid.UUID `gorm:"type:uuid;not null;index"`

	// Where the provider fetches the image from
	ImageURL string `gorm:"not null"`
	FileName string
	MimeType string
	FileSize int64
	Width    int
	Height   int

	// Face processing
	FaceStatus      FaceProcessingStatus `gorm:"default:'unprocessed';index"`
	FaceCount       int                  `gorm:"default:0"`
	FaceRetryCount  int                  `gorm:"default:0"`
	FaceError       string
	FaceClaimedAt   *time.Time `gorm:"index"`     // Set while a detection call is in flight
	FaceClaimID     *uuid.UUID `gorm:"type:uuid"` // Token of the current claim; writes from older claims are dropped
	FaceRetryAfter  *time.Time // Earliest time a failed photo may be claimed again
	FaceProcessedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations
	Faces []Face `gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE"`
}

func (Photo) TableName() string {
	return "photos"
}

func (p *Photo) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.Must(uuid.NewV7())
	}
	if p.FaceStatus == "" {
		p.FaceStatus = FaceStatusUnprocessed
	}
	return nil
}
