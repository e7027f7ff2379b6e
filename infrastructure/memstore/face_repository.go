package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
	"eventfaces/pkg/similarity"
)

type faceRepository struct {
	s *Store
}

func (r *faceRepository) SaveDetections(ctx context.Context, photoID, claimID uuid.UUID, faces []*models.Face) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	photo, ok := r.s.photos[photoID]
	if !ok || !r.s.eventExists(photo.EventID) || photo.FaceStatus != models.FaceStatusDetecting || !holdsClaim(photo, claimID) {
		return false, nil
	}

	for id, f := range r.s.faces {
		if f.PhotoID == photoID {
			delete(r.s.faces, id)
		}
	}

	now := r.s.now()
	for _, face := range faces {
		if face.ID == uuid.Nil {
			face.ID = newID()
		}
		face.EventID = photo.EventID
		face.PhotoID = photoID
		if face.CreatedAt.IsZero() {
			face.CreatedAt = now
		}
		face.UpdatedAt = now
		f := copyFace(face)
		r.s.faces[face.ID] = &f
	}

	photo.FaceCount = len(faces)
	photo.FaceStatus = models.FaceStatusNoFaces
	if len(faces) > 0 {
		photo.FaceStatus = models.FaceStatusFacesFound
	}
	photo.FaceError = ""
	photo.FaceClaimedAt = nil
	photo.FaceClaimID = nil
	photo.FaceRetryAfter = nil
	photo.FaceProcessedAt = &now
	photo.UpdatedAt = now
	return true, nil
}

func (r *faceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Face, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.faces[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyFace(f)
	return &out, nil
}

func (r *faceRepository) GetByPhoto(ctx context.Context, photoID uuid.UUID) ([]models.Face, error) {
	return r.filter(func(f *models.Face) bool { return f.PhotoID == photoID }), nil
}

func (r *faceRepository) GetByPerson(ctx context.Context, personID uuid.UUID) ([]models.Face, error) {
	return r.filter(func(f *models.Face) bool { return f.PersonID != nil && *f.PersonID == personID }), nil
}

func (r *faceRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Face, error) {
	return r.filter(func(f *models.Face) bool { return f.EventID == eventID }), nil
}

func (r *faceRepository) ListUnassignedByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Face, error) {
	return r.filter(func(f *models.Face) bool {
		return f.EventID == eventID && f.PersonID == nil && f.ClusterError == ""
	}), nil
}

func (r *faceRepository) SearchSimilarByEvent(ctx context.Context, eventID uuid.UUID, embedding pgvector.Vector, threshold float64) ([]repositories.FaceSearchResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	query := embedding.Slice()
	results := make([]repositories.FaceSearchResult, 0)
	for _, f := range r.s.faces {
		if f.EventID != eventID {
			continue
		}
		sim, err := similarity.CosineSimilarity(query, f.Embedding.Slice())
		if err != nil || sim < threshold {
			continue
		}
		photo, ok := r.s.photos[f.PhotoID]
		if !ok {
			continue
		}
		results = append(results, repositories.FaceSearchResult{
			Face:       copyFace(f),
			Photo:      copyPhoto(photo),
			Similarity: sim,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		a, b := results[i].Face, results[j].Face
		return before(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return results, nil
}

func (r *faceRepository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	return int64(len(r.filter(func(f *models.Face) bool { return f.EventID == eventID }))), nil
}

func (r *faceRepository) DeleteByEvent(ctx context.Context, eventID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, f := range r.s.faces {
		if f.EventID == eventID {
			delete(r.s.faces, id)
		}
	}
	return nil
}

// filter returns matching faces in arrival order
func (r *faceRepository) filter(keep func(*models.Face) bool) []models.Face {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	faces := make([]models.Face, 0)
	for _, f := range r.s.faces {
		if keep(f) {
			faces = append(faces, copyFace(f))
		}
	}
	sortFaces(faces)
	return faces
}
