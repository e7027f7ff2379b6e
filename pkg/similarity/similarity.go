package similarity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultMatchThreshold is the minimum cosine similarity for two faces to be the same person
	DefaultMatchThreshold = 0.6

	// DefaultMergeMargin is added to the match threshold to get the merge threshold
	DefaultMergeMargin = 0.1
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyInput        = errors.New("no embeddings to average")
)

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// A zero-norm vector has similarity 0 with everything, itself included.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	va, vb := toFloat64(a), toFloat64(b)
	normA := floats.Norm(va, 2)
	normB := floats.Norm(vb, 2)
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := floats.Dot(va, vb) / (normA * normB)
	// Clamp to [-1, 1] to handle floating point errors
	return math.Max(-1, math.Min(1, sim)), nil
}

// AverageEmbeddings returns the element-wise mean of the given embeddings
func AverageEmbeddings(embeddings [][]float32) ([]float32, error) {
	if len(embeddings) == 0 {
		return nil, ErrEmptyInput
	}

	dim := len(embeddings[0])
	sum := make([]float64, dim)
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(e), dim)
		}
		floats.Add(sum, toFloat64(e))
	}
	floats.Scale(1/float64(len(embeddings)), sum)

	mean := make([]float32, dim)
	for i, v := range sum {
		mean[i] = float32(v)
	}
	return mean, nil
}

// IsSamePerson reports whether two embeddings are at least threshold similar
func IsSamePerson(e1, e2 []float32, threshold float64) (bool, error) {
	sim, err := CosineSimilarity(e1, e2)
	if err != nil {
		return false, err
	}
	return sim >= threshold, nil
}

// Norm returns the L2 norm of an embedding
func Norm(e []float32) float64 {
	if len(e) == 0 {
		return 0
	}
	return floats.Norm(toFloat64(e), 2)
}

// IsZero reports whether an embedding has zero norm
func IsZero(e []float32) bool {
	for _, v := range e {
		if v != 0 {
			return false
		}
	}
	return true
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
