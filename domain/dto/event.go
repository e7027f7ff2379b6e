package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateEventRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

type EventResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int64           `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}
