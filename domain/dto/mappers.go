package dto

import (
	"eventfaces/domain/models"
	"eventfaces/domain/services"
)

func EventToResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Name:      e.Name,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func EventsToResponse(events []models.Event) []EventResponse {
	out := make([]EventResponse, len(events))
	for i := range events {
		out[i] = EventToResponse(&events[i])
	}
	return out
}

func PhotoToResponse(p *models.Photo) PhotoResponse {
	return PhotoResponse{
		ID:              p.ID,
		EventID:         p.EventID,
		ImageURL:        p.ImageURL,
		FileName:        p.FileName,
		MimeType:        p.MimeType,
		Width:           p.Width,
		Height:          p.Height,
		FaceStatus:      string(p.FaceStatus),
		FaceCount:       p.FaceCount,
		FaceError:       p.FaceError,
		FaceProcessedAt: p.FaceProcessedAt,
		CreatedAt:       p.CreatedAt,
	}
}

func PhotosToResponse(photos []models.Photo) []PhotoResponse {
	out := make([]PhotoResponse, len(photos))
	for i := range photos {
		out[i] = PhotoToResponse(&photos[i])
	}
	return out
}

// AddPhotosRequestToNewPhotos converts the request body into service input
func AddPhotosRequestToNewPhotos(req *AddPhotosRequest) []services.NewPhoto {
	out := make([]services.NewPhoto, len(req.Photos))
	for i, p := range req.Photos {
		out[i] = services.NewPhoto{
			ImageURL: p.ImageURL,
			FileName: p.FileName,
			MimeType: p.MimeType,
			FileSize: p.FileSize,
			Width:    p.Width,
			Height:   p.Height,
		}
	}
	return out
}

func PersonToResponse(p *models.Person) PersonResponse {
	return PersonResponse{
		ID:                   p.ID,
		EventID:              p.EventID,
		Name:                 p.Name,
		PhotoCount:           p.PhotoCount,
		FaceCount:            p.FaceCount,
		RepresentativeFaceID: p.RepresentativeFaceID,
		CreatedAt:            p.CreatedAt,
	}
}

func PersonsToResponse(persons []models.Person) []PersonResponse {
	out := make([]PersonResponse, len(persons))
	for i := range persons {
		out[i] = PersonToResponse(&persons[i])
	}
	return out
}

func FacesToResponse(faces []models.Face) []FaceResponse {
	out := make([]FaceResponse, len(faces))
	for i, f := range faces {
		out[i] = FaceResponse{
			ID:         f.ID,
			PhotoID:    f.PhotoID,
			PersonID:   f.PersonID,
			BboxX:      f.BboxX,
			BboxY:      f.BboxY,
			BboxWidth:  f.BboxWidth,
			BboxHeight: f.BboxHeight,
			Confidence: f.Confidence,
		}
	}
	return out
}

func MatchesToResponse(matches []services.PhotoMatch) []PhotoMatchResponse {
	out := make([]PhotoMatchResponse, len(matches))
	for i := range matches {
		m := &matches[i]
		out[i] = PhotoMatchResponse{
			Photo:      PhotoToResponse(&m.Photo),
			FaceID:     m.Face.ID,
			BboxX:      m.Face.BboxX,
			BboxY:      m.Face.BboxY,
			BboxWidth:  m.Face.BboxWidth,
			BboxHeight: m.Face.BboxHeight,
			Similarity: m.Similarity,
		}
	}
	return out
}
