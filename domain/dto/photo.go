package dto

import (
	"time"

	"github.com/google/uuid"
)

// AddPhotoRequest registers one uploaded photo by URL
type AddPhotoRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
	FileName string `json:"file_name" validate:"max=255"`
	MimeType string `json:"mime_type" validate:"omitempty,max=100"`
	FileSize int64  `json:"file_size" validate:"gte=0"`
	Width    int    `json:"width" validate:"gte=0"`
	Height   int    `json:"height" validate:"gte=0"`
}

type AddPhotosRequest struct {
	Photos []AddPhotoRequest `json:"photos" validate:"required,min=1,max=500,dive"`
}

// PhotoResponse is the DTO for photo API responses
type PhotoResponse struct {
	ID              uuid.UUID  `json:"id"`
	EventID         uuid.UUID  `json:"event_id"`
	ImageURL        string     `json:"image_url"`
	FileName        string     `json:"file_name"`
	MimeType        string     `json:"mime_type"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	FaceStatus      string     `json:"face_status"`
	FaceCount       int        `json:"face_count"`
	FaceError       string     `json:"face_error,omitempty"`
	FaceProcessedAt *time.Time `json:"face_processed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PhotoListResponse is the DTO for paginated photo list
type PhotoListResponse struct {
	Photos []PhotoResponse `json:"photos"`
	Total  int64           `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}
