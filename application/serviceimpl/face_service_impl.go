package serviceimpl

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"eventfaces/domain/repositories"
	"eventfaces/domain/services"
	"eventfaces/pkg/logger"
	"eventfaces/pkg/similarity"
)

type FaceServiceImpl struct {
	eventRepo repositories.EventRepository
	faceRepo  repositories.FaceRepository
	provider  services.EmbeddingProvider
	threshold float64
}

// NewFaceService creates the search service. A nil provider disables selfie search.
func NewFaceService(
	eventRepo repositories.EventRepository,
	faceRepo repositories.FaceRepository,
	provider services.EmbeddingProvider,
	matchThreshold float64,
) services.FaceService {
	return &FaceServiceImpl{
		eventRepo: eventRepo,
		faceRepo:  faceRepo,
		provider:  provider,
		threshold: matchThreshold,
	}
}

// SearchByFace matches the embedding against individual faces, not person centroids
func (s *FaceServiceImpl) SearchByFace(ctx context.Context, eventID uuid.UUID, embedding []float32, limit int) ([]services.PhotoMatch, error) {
	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return nil, services.ErrEventNotFound
	}

	// A zero vector is similar to nothing
	if similarity.IsZero(embedding) {
		return []services.PhotoMatch{}, nil
	}

	searchResults, err := s.faceRepo.SearchSimilarByEvent(ctx, eventID, pgvector.NewVector(embedding), s.threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar faces: %w", err)
	}

	// Results are sorted, so the first face seen per photo is its best
	matches := make([]services.PhotoMatch, 0, len(searchResults))
	seen := make(map[uuid.UUID]bool, len(searchResults))
	for _, r := range searchResults {
		if seen[r.Photo.ID] {
			continue
		}
		seen[r.Photo.ID] = true
		matches = append(matches, services.PhotoMatch{
			Photo:      r.Photo,
			Face:       r.Face,
			Similarity: r.Similarity,
		})
		if limit > 0 && len(matches) == limit {
			break
		}
	}

	return matches, nil
}

// FindYourself searches the event with the largest face of the selfie
func (s *FaceServiceImpl) FindYourself(ctx context.Context, eventID uuid.UUID, selfie []byte, mimeType string, limit int) ([]services.PhotoMatch, error) {
	if s.provider == nil {
		return nil, services.ErrProviderUnavailable
	}

	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return nil, services.ErrEventNotFound
	}

	detected, err := s.provider.DetectFacesFromBytes(ctx, selfie, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to extract faces from selfie: %w", err)
	}

	best := -1
	for i, f := range detected {
		if similarity.IsZero(f.Embedding) {
			continue
		}
		if best < 0 || f.Area() > detected[best].Area() {
			best = i
		}
	}
	if best < 0 {
		return nil, services.ErrNoFaceInSelfie
	}

	matches, err := s.SearchByFace(ctx, eventID, detected[best].Embedding, limit)
	if err != nil {
		return nil, err
	}

	logger.Search("find_yourself", "Selfie search completed", map[string]interface{}{
		"event_id":     eventID.String(),
		"selfie_faces": len(detected),
		"matches":      len(matches),
	})
	return matches, nil
}
