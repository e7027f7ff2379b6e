package clustering

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"eventfaces/pkg/similarity"
)

// sequentialIDs returns an id generator producing increasing ids
func sequentialIDs() func() uuid.UUID {
	var n byte
	return func() uuid.UUID {
		n++
		var id uuid.UUID
		id[15] = n
		return id
	}
}

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func newTestEngine(t *testing.T, match float64) *Engine {
	t.Helper()
	e, err := NewEngine(Config{
		MatchThreshold: match,
		NewID:          sequentialIDs(),
		Now:            fixedClock(),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func face(photo uuid.UUID, emb ...float32) Face {
	return Face{ID: uuid.New(), PhotoID: photo, Embedding: emb}
}

// identityFaces generates n noisy faces around each of k random unit directions
func identityFaces(seed int64, k, n, dim int, noise float64) []Face {
	r := rand.New(rand.NewSource(seed))
	bases := make([][]float64, k)
	for i := range bases {
		b := make([]float64, dim)
		var norm float64
		for d := range b {
			b[d] = r.NormFloat64()
			norm += b[d] * b[d]
		}
		norm = math.Sqrt(norm)
		for d := range b {
			b[d] /= norm
		}
		bases[i] = b
	}

	var faces []Face
	for j := 0; j < n; j++ {
		for i := 0; i < k; i++ {
			emb := make([]float32, dim)
			for d := range emb {
				emb[d] = float32(bases[i][d] + r.NormFloat64()*noise)
			}
			faces = append(faces, Face{ID: uuid.New(), PhotoID: uuid.New(), Embedding: emb})
		}
	}
	return faces
}

func TestNewEngine_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}, wantErr: false},
		{name: "explicit", cfg: Config{MatchThreshold: 0.5, MergeThreshold: 0.65}, wantErr: false},
		{name: "merge equal to match", cfg: Config{MatchThreshold: 0.6, MergeThreshold: 0.6}, wantErr: true},
		{name: "merge below match", cfg: Config{MatchThreshold: 0.6, MergeThreshold: 0.5}, wantErr: true},
		{name: "match out of range", cfg: Config{MatchThreshold: 1.5, MergeThreshold: 1.6}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEngine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && e.MergeThreshold() <= e.MatchThreshold() {
				t.Errorf("merge threshold %v not above match threshold %v", e.MergeThreshold(), e.MatchThreshold())
			}
		})
	}

	e, _ := NewEngine(Config{})
	if math.Abs(e.MergeThreshold()-0.7) > 1e-9 {
		t.Errorf("default merge threshold = %v, want 0.7", e.MergeThreshold())
	}
}

func TestAssign_ThreeFaceScenario(t *testing.T) {
	e := newTestEngine(t, 0.6)

	// e2 is 0.9 similar to e1, e3 is 0.2 similar to e1 and 0.25 to e2
	e1 := face(uuid.New(), 1, 0, 0)
	e2 := face(uuid.New(), 0.9, 0.43589, 0)
	e3 := face(uuid.New(), 0.2, 0.16061, 0.96654)

	sim12, _ := similarity.CosineSimilarity(e1.Embedding, e2.Embedding)
	sim13, _ := similarity.CosineSimilarity(e1.Embedding, e3.Embedding)
	sim23, _ := similarity.CosineSimilarity(e2.Embedding, e3.Embedding)
	if math.Abs(sim12-0.9) > 1e-3 || math.Abs(sim13-0.2) > 1e-3 || math.Abs(sim23-0.25) > 1e-3 {
		t.Fatalf("fixture similarities off: %v %v %v", sim12, sim13, sim23)
	}

	result, err := e.Assign(nil, []Face{e1, e2, e3})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	if len(result.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(result.Clusters))
	}
	if result.Assignments[e1.ID] != result.Assignments[e2.ID] {
		t.Error("e1 and e2 should share a cluster")
	}
	if result.Assignments[e3.ID] == result.Assignments[e1.ID] {
		t.Error("e3 should be alone")
	}
	if len(result.Created) != 2 || len(result.Updated) != 0 {
		t.Errorf("created=%d updated=%d, want 2 and 0", len(result.Created), len(result.Updated))
	}

	first := result.Clusters[0]
	if first.PhotoCount != 2 {
		t.Errorf("photo count = %d, want 2", first.PhotoCount)
	}
	want, _ := similarity.AverageEmbeddings([][]float32{e1.Embedding, e2.Embedding})
	for i := range want {
		if math.Abs(float64(first.Centroid[i]-want[i])) > 1e-6 {
			t.Errorf("centroid[%d] = %v, want %v", i, first.Centroid[i], want[i])
		}
	}
}

func TestAssign_NewClusterIsItsOwnRepresentative(t *testing.T) {
	e := newTestEngine(t, 0.6)
	f := face(uuid.New(), 0.3, 0.4, 0.5)

	result, err := e.Assign(nil, []Face{f})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	c := result.Clusters[0]
	if c.RepresentativeFaceID != f.ID {
		t.Errorf("representative = %s, want %s", c.RepresentativeFaceID, f.ID)
	}
	for i := range f.Embedding {
		if c.Centroid[i] != f.Embedding[i] {
			t.Errorf("centroid[%d] = %v, want %v", i, c.Centroid[i], f.Embedding[i])
		}
	}
	if c.PhotoCount != 1 {
		t.Errorf("photo count = %d, want 1", c.PhotoCount)
	}
}

func TestAssign_PhotoCountCountsDistinctPhotos(t *testing.T) {
	e := newTestEngine(t, 0.6)
	photo := uuid.New()

	// Same person twice in one photo plus once in another
	faces := []Face{
		face(photo, 1, 0.01, 0),
		face(photo, 1, 0, 0.01),
		face(uuid.New(), 1, 0.02, 0.01),
	}

	result, err := e.Assign(nil, faces)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(result.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(result.Clusters))
	}
	if result.Clusters[0].PhotoCount != 2 {
		t.Errorf("photo count = %d, want 2", result.Clusters[0].PhotoCount)
	}
	if len(result.Clusters[0].Members) != 3 {
		t.Errorf("members = %d, want 3", len(result.Clusters[0].Members))
	}
}

func TestAssign_TieBreaksToEarliestCluster(t *testing.T) {
	e := newTestEngine(t, 0.6)

	early := &Cluster{ID: uuid.New(), CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	early.Members = []Face{face(uuid.New(), 1, 1, 0)}
	late := &Cluster{ID: uuid.New(), CreatedAt: early.CreatedAt.Add(time.Hour)}
	late.Members = []Face{face(uuid.New(), 1, 0, 1)}
	for _, c := range []*Cluster{early, late} {
		if err := c.Recompute(); err != nil {
			t.Fatal(err)
		}
	}

	// Equidistant from both centroids
	f := face(uuid.New(), 1, 0.5, 0.5)

	// Pass the later cluster first to prove input order does not matter
	result, err := e.Assign([]*Cluster{late, early}, []Face{f})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if result.Assignments[f.ID] != early.ID {
		t.Errorf("assigned to %s, want earliest cluster %s", result.Assignments[f.ID], early.ID)
	}
	if len(result.Updated) != 1 || result.Updated[0] != early.ID {
		t.Errorf("updated = %v, want [%s]", result.Updated, early.ID)
	}
}

func TestAssign_PicksStrictlyHighestSimilarity(t *testing.T) {
	e := newTestEngine(t, 0.6)

	a := &Cluster{ID: uuid.New(), CreatedAt: time.Unix(100, 0)}
	a.Members = []Face{face(uuid.New(), 1, 0.6, 0)}
	b := &Cluster{ID: uuid.New(), CreatedAt: time.Unix(200, 0)}
	b.Members = []Face{face(uuid.New(), 1, 0.1, 0)}
	for _, c := range []*Cluster{a, b} {
		if err := c.Recompute(); err != nil {
			t.Fatal(err)
		}
	}

	f := face(uuid.New(), 1, 0, 0)
	result, err := e.Assign([]*Cluster{a, b}, []Face{f})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if result.Assignments[f.ID] != b.ID {
		t.Errorf("assigned to %s, want closer cluster %s", result.Assignments[f.ID], b.ID)
	}
}

func TestAssign_DoesNotMutateInput(t *testing.T) {
	e := newTestEngine(t, 0.6)
	c := &Cluster{ID: uuid.New(), CreatedAt: time.Unix(1, 0)}
	c.Members = []Face{face(uuid.New(), 1, 0, 0)}
	if err := c.Recompute(); err != nil {
		t.Fatal(err)
	}

	_, err := e.Assign([]*Cluster{c}, []Face{face(uuid.New(), 1, 0.1, 0)})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(c.Members) != 1 {
		t.Errorf("input cluster mutated: %d members", len(c.Members))
	}
}

func TestAssign_SkipsAlreadyAssignedFaces(t *testing.T) {
	e := newTestEngine(t, 0.6)
	f := face(uuid.New(), 1, 0, 0)

	first, err := e.Assign(nil, []Face{f})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	second, err := e.Assign(first.Clusters, []Face{f})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(second.Assignments) != 0 || len(second.Clusters[0].Members) != 1 {
		t.Error("re-feeding an assigned face must not change clusters")
	}
}

func TestAssign_DimensionMismatchSkipsFace(t *testing.T) {
	e := newTestEngine(t, 0.6)

	good := face(uuid.New(), 1, 0, 0)
	bad := face(uuid.New(), 1, 0)

	result, err := e.Assign(nil, []Face{good, bad})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].FaceID != bad.ID {
		t.Fatalf("skipped = %v, want the 2-d face", result.Skipped)
	}
	if !errors.Is(result.Skipped[0].Err, similarity.ErrDimensionMismatch) {
		t.Errorf("skip reason = %v, want ErrDimensionMismatch", result.Skipped[0].Err)
	}
	if _, ok := result.Assignments[bad.ID]; ok {
		t.Error("mismatched face must not be assigned")
	}
}

func TestAssign_EventWideMismatchIsFatal(t *testing.T) {
	e := newTestEngine(t, 0.6)
	existing, err := e.Assign(nil, []Face{face(uuid.New(), 1, 0, 0)})
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.Assign(existing.Clusters, []Face{face(uuid.New(), 1, 0), face(uuid.New(), 0, 1)})
	if !errors.Is(err, ErrEventDimensionMismatch) {
		t.Errorf("expected ErrEventDimensionMismatch, got %v", err)
	}

	// Clusters disagreeing with each other also halt the run
	a := &Cluster{ID: uuid.New(), Centroid: []float32{1, 0}}
	b := &Cluster{ID: uuid.New(), Centroid: []float32{1, 0, 0}}
	if _, err := e.Assign([]*Cluster{a, b}, nil); !errors.Is(err, ErrEventDimensionMismatch) {
		t.Errorf("expected ErrEventDimensionMismatch, got %v", err)
	}
}

func TestAssign_CreationOrderIsStrict(t *testing.T) {
	e := newTestEngine(t, 0.99)
	faces := []Face{
		face(uuid.New(), 1, 0, 0),
		face(uuid.New(), 0, 1, 0),
		face(uuid.New(), 0, 0, 1),
	}

	result, err := e.Assign(nil, faces)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(result.Clusters); i++ {
		if !result.Clusters[i-1].CreatedAt.Before(result.Clusters[i].CreatedAt) {
			t.Errorf("cluster %d not created strictly after cluster %d", i, i-1)
		}
	}
}

func TestAssign_ThresholdMonotonicity(t *testing.T) {
	faces := identityFaces(3, 4, 6, 128, 0.01)
	thresholds := []float64{-0.5, 0.3, 0.5, 0.7, 0.8, 0.9, 0.999}

	prev := 0
	for _, th := range thresholds {
		e, err := NewEngine(Config{MatchThreshold: th, MergeThreshold: math.Min(th+0.005, 1.0001)})
		if err != nil {
			t.Fatalf("NewEngine(%v): %v", th, err)
		}
		result, err := e.Assign(nil, faces)
		if err != nil {
			t.Fatalf("Assign: %v", err)
		}
		if len(result.Clusters) < prev {
			t.Errorf("threshold %v produced %d clusters, fewer than %d at a lower threshold", th, len(result.Clusters), prev)
		}
		prev = len(result.Clusters)
	}

	if prev != len(faces) {
		t.Errorf("near-identity threshold produced %d clusters, want one per face (%d)", prev, len(faces))
	}
}

func TestAssign_SeparatedIdentities(t *testing.T) {
	faces := identityFaces(11, 5, 8, 128, 0.0265)
	e := newTestEngine(t, 0.6)

	result, err := e.Assign(nil, faces)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Clusters) != 5 {
		t.Errorf("expected 5 clusters, got %d", len(result.Clusters))
	}
	for _, c := range result.Clusters {
		if len(c.Members) != 8 {
			t.Errorf("cluster %s has %d members, want 8", c.ID, len(c.Members))
		}
	}
}
