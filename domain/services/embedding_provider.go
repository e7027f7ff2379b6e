package services

import (
	"context"
	"encoding/json"
)

// DetectedFace is one face returned by an embedding provider
type DetectedFace struct {
	// Bounding box (normalized 0-1)
	BboxX      float64
	BboxY      float64
	BboxWidth  float64
	BboxHeight float64

	Confidence float64
	Embedding  []float32

	// Landmarks is passed through unchanged when the provider returns it
	Landmarks json.RawMessage
}

// Area returns the bounding box area as a fraction of the image
func (f DetectedFace) Area() float64 {
	return f.BboxWidth * f.BboxHeight
}

// EmbeddingProvider detects faces and computes their embeddings.
// Implementations return ErrProviderTimeout or ErrProviderError on failure and an
// empty slice when the image has no faces or the provider output is unusable.
type EmbeddingProvider interface {
	DetectFaces(ctx context.Context, imageURL string) ([]DetectedFace, error)
	DetectFacesFromBytes(ctx context.Context, imageData []byte, mimeType string) ([]DetectedFace, error)
	Health(ctx context.Context) error
}
