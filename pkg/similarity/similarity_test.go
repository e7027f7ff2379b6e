package similarity

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func randomEmbedding(r *rand.Rand, dim int) []float32 {
	e := make([]float32, dim)
	for i := range e {
		e[i] = float32(r.NormFloat64())
	}
	return e
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "identical",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 1.0,
		},
		{
			name:     "scaled copy",
			a:        []float32{1, 2, 3},
			b:        []float32{2, 4, 6},
			expected: 1.0,
		},
		{
			name:     "orthogonal",
			a:        []float32{1, 0},
			b:        []float32{0, 1},
			expected: 0.0,
		},
		{
			name:     "opposite",
			a:        []float32{1, 1},
			b:        []float32{-1, -1},
			expected: -1.0,
		},
		{
			name:     "zero vector",
			a:        []float32{0, 0, 0},
			b:        []float32{1, 2, 3},
			expected: 0.0,
		},
		{
			name:     "both zero",
			a:        []float32{0, 0},
			b:        []float32{0, 0},
			expected: 0.0,
		},
		{
			name:     "empty",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(result-tt.expected) > 1e-6 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosineSimilarity_SymmetryAndSelf(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		a := randomEmbedding(r, 512)
		b := randomEmbedding(r, 512)

		ab, err := CosineSimilarity(a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ba, _ := CosineSimilarity(b, a)
		if ab != ba {
			t.Errorf("similarity not symmetric: %v != %v", ab, ba)
		}
		if ab < -1 || ab > 1 {
			t.Errorf("similarity out of range: %v", ab)
		}

		aa, _ := CosineSimilarity(a, a)
		if math.Abs(aa-1) > 1e-6 {
			t.Errorf("self similarity = %v, want 1", aa)
		}
	}
}

func TestAverageEmbeddings(t *testing.T) {
	result, err := AverageEmbeddings([][]float32{
		{1, 2, 3},
		{3, 4, 5},
		{5, 0, -2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []float32{3, 2, 2}
	if len(result) != len(expected) {
		t.Fatalf("len = %d, want %d", len(result), len(expected))
	}
	for i := range expected {
		if math.Abs(float64(result[i]-expected[i])) > 1e-6 {
			t.Errorf("result[%d] = %v, want %v", i, result[i], expected[i])
		}
	}
}

func TestAverageEmbeddings_CoordinateMean(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 1; n <= 10; n++ {
		list := make([][]float32, n)
		for i := range list {
			list[i] = randomEmbedding(r, 16)
		}

		mean, err := AverageEmbeddings(list)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mean) != 16 {
			t.Fatalf("dimension = %d, want 16", len(mean))
		}
		for d := 0; d < 16; d++ {
			var sum float64
			for _, e := range list {
				sum += float64(e[d])
			}
			want := sum / float64(n)
			if math.Abs(float64(mean[d])-want) > 1e-5 {
				t.Errorf("n=%d mean[%d] = %v, want %v", n, d, mean[d], want)
			}
		}
	}
}

func TestAverageEmbeddings_Errors(t *testing.T) {
	if _, err := AverageEmbeddings(nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}

	_, err := AverageEmbeddings([][]float32{{1, 2}, {1, 2, 3}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIsSamePerson(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0.8, 0.6} // cos = 0.8

	same, err := IsSamePerson(a, b, DefaultMatchThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !same {
		t.Error("expected match at default threshold")
	}

	same, _ = IsSamePerson(a, b, 0.9)
	if same {
		t.Error("expected no match at threshold 0.9")
	}

	if _, err := IsSamePerson(a, []float32{1}, 0.5); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIsZero(t *testing.T) {
	if !IsZero([]float32{0, 0}) {
		t.Error("expected zero vector")
	}
	if IsZero([]float32{0, 0.001}) {
		t.Error("expected non-zero vector")
	}
	if Norm([]float32{3, 4}) != 5 {
		t.Errorf("Norm = %v, want 5", Norm([]float32{3, 4}))
	}
}
