// Package clustering groups face embeddings of one event into person clusters.
//
// Assign is an online, single-pass, greedy assignment: faces are taken in
// arrival order and the result depends on that order. MergePass is the
// correctness backstop that consolidates clusters which drifted apart; it is
// idempotent, so running it again without new faces changes nothing.
//
// Every function works on one event's clusters only. Callers must never pass
// clusters from different events in the same call.
package clustering

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventfaces/pkg/similarity"
)

// ErrEventDimensionMismatch means the event's embeddings cannot be compared at all,
// usually because the provider model changed. The clustering run must halt.
var ErrEventDimensionMismatch = errors.New("event embeddings have inconsistent dimensions")

// Config controls engine thresholds
type Config struct {
	// MatchThreshold is the minimum similarity to join an existing cluster (default 0.6)
	MatchThreshold float64

	// MergeThreshold is the minimum centroid similarity to merge two clusters.
	// Must be strictly higher than MatchThreshold (default MatchThreshold + 0.1).
	MergeThreshold float64

	// NewID generates cluster ids (default uuid.NewV7)
	NewID func() uuid.UUID

	// Now is the clock used for CreatedAt (default time.Now)
	Now func() time.Time
}

// Engine runs clustering passes. It holds no cluster state between calls.
type Engine struct {
	matchThreshold float64
	mergeThreshold float64
	newID          func() uuid.UUID
	now            func() time.Time
}

// NewEngine creates an engine, filling defaults and validating thresholds
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.MatchThreshold == 0 {
		cfg.MatchThreshold = similarity.DefaultMatchThreshold
	}
	if cfg.MergeThreshold == 0 {
		cfg.MergeThreshold = cfg.MatchThreshold + similarity.DefaultMergeMargin
	}
	if cfg.MatchThreshold < -1 || cfg.MatchThreshold > 1 {
		return nil, fmt.Errorf("match threshold %.3f out of range [-1, 1]", cfg.MatchThreshold)
	}
	if cfg.MergeThreshold <= cfg.MatchThreshold {
		return nil, fmt.Errorf("merge threshold %.3f must be higher than match threshold %.3f", cfg.MergeThreshold, cfg.MatchThreshold)
	}
	if cfg.NewID == nil {
		cfg.NewID = func() uuid.UUID { return uuid.Must(uuid.NewV7()) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		matchThreshold: cfg.MatchThreshold,
		mergeThreshold: cfg.MergeThreshold,
		newID:          cfg.NewID,
		now:            cfg.Now,
	}, nil
}

// MatchThreshold returns the configured match threshold
func (e *Engine) MatchThreshold() float64 { return e.matchThreshold }

// MergeThreshold returns the configured merge threshold
func (e *Engine) MergeThreshold() float64 { return e.mergeThreshold }

// SkippedFace is a face the engine refused to cluster
type SkippedFace struct {
	FaceID uuid.UUID
	Err    error
}

// AssignResult is the outcome of an incremental clustering pass
type AssignResult struct {
	// Clusters is the full cluster set of the event, earliest first
	Clusters []*Cluster

	// Created and Updated list cluster ids touched by this pass
	Created []uuid.UUID
	Updated []uuid.UUID

	// Assignments maps each newly clustered face to its cluster
	Assignments map[uuid.UUID]uuid.UUID

	Skipped []SkippedFace
}

// Changed returns the clusters created or updated by the pass
func (r *AssignResult) Changed() []*Cluster {
	touched := make(map[uuid.UUID]struct{}, len(r.Created)+len(r.Updated))
	for _, id := range r.Created {
		touched[id] = struct{}{}
	}
	for _, id := range r.Updated {
		touched[id] = struct{}{}
	}

	changed := make([]*Cluster, 0, len(touched))
	for _, c := range r.Clusters {
		if _, ok := touched[c.ID]; ok {
			changed = append(changed, c)
		}
	}
	return changed
}

// Assign places each face into the most similar existing cluster or a new one.
// Faces already belonging to a cluster are ignored. Faces whose dimension does
// not match the event are skipped and reported; if no face can be compared
// with the existing clusters the whole pass fails with ErrEventDimensionMismatch.
func (e *Engine) Assign(existing []*Cluster, faces []Face) (*AssignResult, error) {
	clusters := make([]*Cluster, len(existing))
	for i, c := range existing {
		clusters[i] = c.Clone()
	}
	SortByCreation(clusters)

	dim, err := eventDimension(clusters)
	if err != nil {
		return nil, err
	}

	assigned := make(map[uuid.UUID]struct{})
	for _, c := range clusters {
		for _, m := range c.Members {
			assigned[m.ID] = struct{}{}
		}
	}

	result := &AssignResult{
		Assignments: make(map[uuid.UUID]uuid.UUID),
	}
	created := make(map[uuid.UUID]bool)
	updated := make(map[uuid.UUID]bool)

	if dim > 0 && len(faces) > 0 && !anyDimension(faces, dim) {
		return nil, fmt.Errorf("%w: event clusters have %d dimensions, none of %d new faces match (first has %d)",
			ErrEventDimensionMismatch, dim, len(faces), len(faces[0].Embedding))
	}

	for _, face := range faces {
		if _, ok := assigned[face.ID]; ok {
			continue
		}
		if dim == 0 {
			dim = len(face.Embedding)
		}
		if len(face.Embedding) != dim || dim == 0 {
			result.Skipped = append(result.Skipped, SkippedFace{
				FaceID: face.ID,
				Err:    fmt.Errorf("%w: face %s has %d dimensions, event uses %d", similarity.ErrDimensionMismatch, face.ID, len(face.Embedding), dim),
			})
			continue
		}

		best, err := e.nearest(clusters, face.Embedding)
		if err != nil {
			return nil, err
		}

		if best != nil {
			best.Members = append(best.Members, face)
			if err := best.Recompute(); err != nil {
				return nil, err
			}
			if !created[best.ID] {
				updated[best.ID] = true
			}
		} else {
			best = e.newCluster(clusters, face)
			if err := best.Recompute(); err != nil {
				return nil, err
			}
			clusters = append(clusters, best)
			created[best.ID] = true
		}

		assigned[face.ID] = struct{}{}
		result.Assignments[face.ID] = best.ID
	}

	result.Clusters = clusters
	for _, c := range clusters {
		if created[c.ID] {
			result.Created = append(result.Created, c.ID)
		} else if updated[c.ID] {
			result.Updated = append(result.Updated, c.ID)
		}
	}
	return result, nil
}

// nearest returns the cluster whose centroid is most similar to the embedding,
// or nil when none reaches the match threshold. Clusters must be in creation
// order so that ties resolve to the earliest cluster.
func (e *Engine) nearest(clusters []*Cluster, embedding []float32) (*Cluster, error) {
	var best *Cluster
	bestSim := -2.0
	for _, c := range clusters {
		if c.Dimension() == 0 {
			continue
		}
		sim, err := similarity.CosineSimilarity(embedding, c.Centroid)
		if err != nil {
			return nil, err
		}
		if sim >= e.matchThreshold && sim > bestSim {
			best = c
			bestSim = sim
		}
	}
	return best, nil
}

func (e *Engine) newCluster(clusters []*Cluster, face Face) *Cluster {
	createdAt := e.now().UTC().Truncate(time.Microsecond)
	// Keep creation order strict even when the clock does not advance
	for _, c := range clusters {
		if !createdAt.After(c.CreatedAt) {
			createdAt = c.CreatedAt.Add(time.Microsecond)
		}
	}

	return &Cluster{
		ID:        e.newID(),
		CreatedAt: createdAt,
		Members:   []Face{face},
	}
}

// eventDimension returns the shared centroid dimension of the clusters
func eventDimension(clusters []*Cluster) (int, error) {
	dim := 0
	var first *Cluster
	for _, c := range clusters {
		if c.Dimension() == 0 {
			continue
		}
		if dim == 0 {
			dim = c.Dimension()
			first = c
			continue
		}
		if c.Dimension() != dim {
			return 0, fmt.Errorf("%w: cluster %s has %d dimensions, cluster %s has %d",
				ErrEventDimensionMismatch, first.ID, dim, c.ID, c.Dimension())
		}
	}
	return dim, nil
}

func anyDimension(faces []Face, dim int) bool {
	for _, f := range faces {
		if len(f.Embedding) == dim {
			return true
		}
	}
	return false
}
