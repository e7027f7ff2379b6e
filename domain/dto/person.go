package dto

import (
	"time"

	"github.com/google/uuid"
)

type NamePersonRequest struct {
	// Empty clears the name
	Name string `json:"name" validate:"max=100"`
}

type MergePersonRequest struct {
	TargetID string `json:"target_id" validate:"required,uuid"`
}

type PersonResponse struct {
	ID                   uuid.UUID  `json:"id"`
	EventID              uuid.UUID  `json:"event_id"`
	Name                 *string    `json:"name"`
	PhotoCount           int        `json:"photo_count"`
	FaceCount            int        `json:"face_count"`
	RepresentativeFaceID *uuid.UUID `json:"representative_face_id"`
	CreatedAt            time.Time  `json:"created_at"`
}

type FaceResponse struct {
	ID         uuid.UUID  `json:"id"`
	PhotoID    uuid.UUID  `json:"photo_id"`
	PersonID   *uuid.UUID `json:"person_id"`
	BboxX      float64    `json:"bbox_x"`
	BboxY      float64    `json:"bbox_y"`
	BboxWidth  float64    `json:"bbox_width"`
	BboxHeight float64    `json:"bbox_height"`
	Confidence float64    `json:"confidence"`
}

// PhotoMatchResponse is one find-yourself result
type PhotoMatchResponse struct {
	Photo      PhotoResponse `json:"photo"`
	FaceID     uuid.UUID     `json:"face_id"`
	BboxX      float64       `json:"bbox_x"`
	BboxY      float64       `json:"bbox_y"`
	BboxWidth  float64       `json:"bbox_width"`
	BboxHeight float64       `json:"bbox_height"`
	Similarity float64       `json:"similarity"`
}

type FindYourselfResponse struct {
	Enabled bool                 `json:"enabled"`
	Matches []PhotoMatchResponse `json:"matches"`
	Count   int                  `json:"count"`
}
