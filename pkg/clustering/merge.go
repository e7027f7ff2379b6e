package clustering

import (
	"fmt"

	"github.com/google/uuid"

	"eventfaces/pkg/similarity"
)

// MergeResult is the outcome of a merge pass
type MergeResult struct {
	// Clusters is the surviving cluster set, earliest first
	Clusters []*Cluster

	// Absorbed maps every deleted cluster to the cluster that absorbed it
	Absorbed map[uuid.UUID]uuid.UUID

	// Survivors lists clusters whose membership grew, earliest first
	Survivors []*Cluster
}

// MergePass consolidates clusters whose centroids are at least MergeThreshold similar.
// Merging is transitive and the earliest cluster of each group survives. The pass
// repeats until no pair clears the threshold, so a second run is a no-op.
func (e *Engine) MergePass(existing []*Cluster) (*MergeResult, error) {
	clusters := make([]*Cluster, len(existing))
	for i, c := range existing {
		clusters[i] = c.Clone()
	}
	SortByCreation(clusters)

	if _, err := eventDimension(clusters); err != nil {
		return nil, err
	}

	absorbed := make(map[uuid.UUID]uuid.UUID)
	grown := make(map[uuid.UUID]bool)

	for {
		groups, err := e.mergeGroups(clusters)
		if err != nil {
			return nil, err
		}

		next := make([]*Cluster, 0, len(clusters))
		merged := false
		for _, group := range groups {
			if len(group) == 1 {
				next = append(next, group[0])
				continue
			}

			survivor, err := combine(group)
			if err != nil {
				return nil, err
			}
			for _, c := range group[1:] {
				absorbed[c.ID] = survivor.ID
				delete(grown, c.ID)
			}
			grown[survivor.ID] = true
			next = append(next, survivor)
			merged = true
		}

		clusters = next
		if !merged {
			break
		}
	}

	// Point chains (a -> b, b -> c) at the final survivor
	for from, to := range absorbed {
		for {
			further, ok := absorbed[to]
			if !ok {
				break
			}
			to = further
		}
		absorbed[from] = to
	}

	SortByCreation(clusters)
	result := &MergeResult{
		Clusters: clusters,
		Absorbed: absorbed,
	}
	for _, c := range clusters {
		if grown[c.ID] {
			result.Survivors = append(result.Survivors, c)
		}
	}
	return result, nil
}

// MergeInto combines source into target. Target keeps its id and creation time.
// The name follows the merge-pass rule: the named side wins, and when both are
// named the earlier cluster's name is kept.
func (e *Engine) MergeInto(target, source *Cluster) (*Cluster, error) {
	if target.ID == source.ID {
		return target.Clone(), nil
	}
	if target.Dimension() != 0 && source.Dimension() != 0 && target.Dimension() != source.Dimension() {
		return nil, fmt.Errorf("%w: cluster %s has %d dimensions, cluster %s has %d",
			ErrEventDimensionMismatch, target.ID, target.Dimension(), source.ID, source.Dimension())
	}

	ordered := []*Cluster{target, source}
	if source.Before(target) {
		ordered = []*Cluster{source, target}
	}

	out := target.Clone()
	out.Name = resolveName(ordered)
	out.Members = append(out.Members, source.Members...)
	if err := out.Recompute(); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeGroups partitions clusters into connected components of the
// "centroid similarity >= merge threshold" graph. Groups and their members
// keep creation order, so group[0] is the survivor.
func (e *Engine) mergeGroups(clusters []*Cluster) ([][]*Cluster, error) {
	parent := make([]int, len(clusters))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			if clusters[i].Dimension() == 0 || clusters[j].Dimension() == 0 {
				continue
			}
			sim, err := similarity.CosineSimilarity(clusters[i].Centroid, clusters[j].Centroid)
			if err != nil {
				return nil, err
			}
			if sim < e.mergeThreshold {
				continue
			}
			ri, rj := find(i), find(j)
			if ri == rj {
				continue
			}
			// The earlier index is always the root so the survivor is the earliest cluster
			if rj < ri {
				ri, rj = rj, ri
			}
			parent[rj] = ri
		}
	}

	order := make([]int, 0)
	byRoot := make(map[int][]*Cluster)
	for i, c := range clusters {
		root := find(i)
		if _, ok := byRoot[root]; !ok {
			order = append(order, root)
		}
		byRoot[root] = append(byRoot[root], c)
	}

	groups := make([][]*Cluster, len(order))
	for i, root := range order {
		groups[i] = byRoot[root]
	}
	return groups, nil
}

// combine folds a creation-ordered group into its first cluster
func combine(group []*Cluster) (*Cluster, error) {
	survivor := group[0].Clone()
	survivor.Name = resolveName(group)
	for _, c := range group[1:] {
		survivor.Members = append(survivor.Members, c.Members...)
	}
	if err := survivor.Recompute(); err != nil {
		return nil, err
	}
	return survivor, nil
}
