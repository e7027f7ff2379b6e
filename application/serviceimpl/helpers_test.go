package serviceimpl

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"eventfaces/domain/models"
	"eventfaces/domain/repositories"
	"eventfaces/domain/services"
	"eventfaces/infrastructure/memstore"
	"eventfaces/pkg/clustering"
	"eventfaces/pkg/eventlock"
)

var (
	e1 = []float32{1, 0, 0}
	e2 = []float32{0.9, 0.43589, 0} // similarity to e1 = 0.9
	e3 = []float32{0.2, 0.16061, 0.96654}
)

// fakeProvider returns canned faces per image url
type fakeProvider struct {
	mu      sync.Mutex
	faces   map[string][]services.DetectedFace
	errs    map[string]error
	selfie  []services.DetectedFace
	onCall  func(url string)
	calls   int32
	byImage map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		faces:   make(map[string][]services.DetectedFace),
		errs:    make(map[string]error),
		byImage: make(map[string]int),
	}
}

func (p *fakeProvider) set(url string, faces ...services.DetectedFace) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faces[url] = faces
}

func (p *fakeProvider) fail(url string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.errs, url)
		return
	}
	p.errs[url] = err
}

func (p *fakeProvider) DetectFaces(ctx context.Context, imageURL string) ([]services.DetectedFace, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.byImage[imageURL]++
	onCall := p.onCall
	faces, err := p.faces[imageURL], p.errs[imageURL]
	p.mu.Unlock()

	if onCall != nil {
		onCall(imageURL)
	}
	if err != nil {
		return nil, err
	}
	return faces, nil
}

func (p *fakeProvider) DetectFacesFromBytes(ctx context.Context, imageData []byte, mimeType string) ([]services.DetectedFace, error) {
	return p.selfie, nil
}

func (p *fakeProvider) Health(ctx context.Context) error { return nil }

func detected(embedding []float32, size, confidence float64) services.DetectedFace {
	return services.DetectedFace{
		BboxX:      0.1,
		BboxY:      0.1,
		BboxWidth:  size,
		BboxHeight: size,
		Confidence: confidence,
		Embedding:  embedding,
	}
}

// recordingNotifier keeps every message type it receives
type recordingNotifier struct {
	mu    sync.Mutex
	types []string
}

func (n *recordingNotifier) Notify(eventID uuid.UUID, msgType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, msgType)
}

func (n *recordingNotifier) count(msgType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, t := range n.types {
		if t == msgType {
			c++
		}
	}
	return c
}

type testEnv struct {
	store      *memstore.Store
	provider   *fakeProvider
	engine     *clustering.Engine
	locker     *eventlock.Local
	notifier   *recordingNotifier
	processing services.ProcessingService
	faces      services.FaceService
	persons    services.PersonService
	events     services.EventService
}

func newTestEnv(t *testing.T, withProvider bool) *testEnv {
	t.Helper()

	engine, err := clustering.NewEngine(clustering.Config{MatchThreshold: 0.6})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	env := &testEnv{
		store:    memstore.New(),
		provider: newFakeProvider(),
		engine:   engine,
		locker:   eventlock.NewLocal(),
		notifier: &recordingNotifier{},
	}

	var provider services.EmbeddingProvider
	if withProvider {
		provider = env.provider
	}

	s := env.store
	env.processing = NewProcessingService(s.Events(), s.Photos(), s.Faces(), s.Persons(), provider, engine, env.locker, env.notifier, ProcessingConfig{
		MinConfidence:     0.7,
		MaxRetries:        2,
		DetectConcurrency: 3,
		LockTimeout:       time.Second,
	})
	env.faces = NewFaceService(s.Events(), s.Faces(), provider, 0.6)
	env.persons = NewPersonService(s.Events(), s.Faces(), s.Persons(), engine, env.locker, env.notifier, time.Second)
	env.events = NewEventService(s.Events(), s.Photos(), nil)
	return env
}

func (env *testEnv) createEvent(t *testing.T) uuid.UUID {
	t.Helper()
	event, err := env.events.CreateEvent(context.Background(), "Reunion")
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return event.ID
}

func (env *testEnv) addPhotos(t *testing.T, eventID uuid.UUID, urls ...string) []models.Photo {
	t.Helper()
	batch := make([]services.NewPhoto, len(urls))
	for i, u := range urls {
		batch[i] = services.NewPhoto{ImageURL: u, FileName: u}
	}
	photos, err := env.events.AddPhotos(context.Background(), eventID, batch)
	if err != nil {
		t.Fatalf("AddPhotos: %v", err)
	}
	return photos
}

// saveFaces runs a photo through claim and save with one face per embedding
func (env *testEnv) saveFaces(t *testing.T, photo models.Photo, embeddings ...[]float32) []*models.Face {
	t.Helper()
	ctx := context.Background()

	claimID, ok, err := env.store.Photos().ClaimForDetection(ctx, photo.ID, 5)
	if err != nil || !ok {
		t.Fatalf("ClaimForDetection = %v, %v", ok, err)
	}
	faces := make([]*models.Face, len(embeddings))
	for i, e := range embeddings {
		faces[i] = &models.Face{Embedding: pgvector.NewVector(e), Confidence: 0.9, BboxWidth: 0.2, BboxHeight: 0.2}
	}
	if ok, err := env.store.Faces().SaveDetections(ctx, photo.ID, claimID, faces); err != nil || !ok {
		t.Fatalf("SaveDetections = %v, %v", ok, err)
	}
	return faces
}

// seedPerson stores a person owning the given faces, bypassing the engine
func (env *testEnv) seedPerson(t *testing.T, eventID uuid.UUID, name *string, faces ...*models.Face) uuid.UUID {
	t.Helper()

	members := make([]clustering.Face, len(faces))
	assignments := make(map[uuid.UUID]uuid.UUID, len(faces))
	c := &clustering.Cluster{ID: uuid.Must(uuid.NewV7()), CreatedAt: time.Now(), Name: name}
	for i, f := range faces {
		members[i] = clustering.Face{ID: f.ID, PhotoID: f.PhotoID, Embedding: f.Embedding.Slice()}
		assignments[f.ID] = c.ID
	}
	c.Members = members
	if err := c.Recompute(); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	ok, err := env.store.Persons().ApplyClustering(context.Background(), &repositories.ClusteringChange{
		EventID:     eventID,
		Upserts:     []*models.Person{toPerson(eventID, c)},
		Assignments: assignments,
	})
	if err != nil || !ok {
		t.Fatalf("ApplyClustering = %v, %v", ok, err)
	}
	// Keep creation order strictly increasing
	time.Sleep(2 * time.Millisecond)
	return c.ID
}

func strPtr(s string) *string { return &s }
