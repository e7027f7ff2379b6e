package clustering

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"

	"eventfaces/pkg/similarity"
)

// Face is a detected face as seen by the clustering engine
type Face struct {
	ID        uuid.UUID
	PhotoID   uuid.UUID
	Embedding []float32
}

// Cluster is one person identity within an event.
// Centroid, PhotoCount and RepresentativeFaceID are derived from Members.
type Cluster struct {
	ID                   uuid.UUID
	CreatedAt            time.Time
	Name                 *string
	Members              []Face
	Centroid             []float32
	RepresentativeFaceID uuid.UUID
	PhotoCount           int
}

// Before reports whether c was created before o. Ties on CreatedAt fall back to the id bytes.
func (c *Cluster) Before(o *Cluster) bool {
	if !c.CreatedAt.Equal(o.CreatedAt) {
		return c.CreatedAt.Before(o.CreatedAt)
	}
	return bytes.Compare(c.ID[:], o.ID[:]) < 0
}

// HasName reports whether the cluster carries a non-empty host-assigned name
func (c *Cluster) HasName() bool {
	return c.Name != nil && *c.Name != ""
}

// Dimension returns the embedding dimension of the cluster, or 0 when it has no centroid
func (c *Cluster) Dimension() int {
	return len(c.Centroid)
}

// Clone returns a deep copy so the engine never mutates caller state
func (c *Cluster) Clone() *Cluster {
	out := &Cluster{
		ID:                   c.ID,
		CreatedAt:            c.CreatedAt,
		RepresentativeFaceID: c.RepresentativeFaceID,
		PhotoCount:           c.PhotoCount,
	}
	if c.Name != nil {
		name := *c.Name
		out.Name = &name
	}
	out.Members = make([]Face, len(c.Members))
	copy(out.Members, c.Members)
	out.Centroid = make([]float32, len(c.Centroid))
	copy(out.Centroid, c.Centroid)
	return out
}

// MemberIDs returns the face ids of the cluster in membership order
func (c *Cluster) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.ID
	}
	return ids
}

// Recompute refreshes the centroid, photo count and representative face from Members.
// The representative scan is O(cluster size), fine for events up to a few thousand faces.
func (c *Cluster) Recompute() error {
	if len(c.Members) == 0 {
		c.Centroid = nil
		c.PhotoCount = 0
		c.RepresentativeFaceID = uuid.Nil
		return nil
	}

	embeddings := make([][]float32, len(c.Members))
	photos := make(map[uuid.UUID]struct{}, len(c.Members))
	for i, m := range c.Members {
		embeddings[i] = m.Embedding
		photos[m.PhotoID] = struct{}{}
	}

	centroid, err := similarity.AverageEmbeddings(embeddings)
	if err != nil {
		return err
	}
	c.Centroid = centroid
	c.PhotoCount = len(photos)

	best := -2.0
	for _, m := range c.Members {
		sim, err := similarity.CosineSimilarity(m.Embedding, centroid)
		if err != nil {
			return err
		}
		if sim > best {
			best = sim
			c.RepresentativeFaceID = m.ID
		}
	}
	return nil
}

// SortByCreation orders clusters earliest first
func SortByCreation(clusters []*Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Before(clusters[j])
	})
}

// resolveName picks the surviving name for a set of clusters being combined.
// Clusters must be in creation order: the earliest named cluster wins.
func resolveName(ordered []*Cluster) *string {
	for _, c := range ordered {
		if c.HasName() {
			name := *c.Name
			return &name
		}
	}
	return nil
}
