// cluster groups embedded posts into candidate events with single-pass
// leader clustering over cosine similarity, and matches the resulting
// clusters against previously detected events by centroid similarity.
package cluster

import (
	"fmt"
	"sort"
)

type Config struct {
	// MinClusterSize is the minimum member count for a candidate cluster to
	// be kept.
	MinClusterSize int
	// SimilarityThreshold is the minimum cosine similarity to the seed for
	// a post to join a cluster.
	SimilarityThreshold float64
	// MaxClusters caps the number of clusters produced per run.
	MaxClusters int
	// EventMatchThreshold is the minimum centroid similarity for a cluster
	// to be treated as an update to an existing event.
	EventMatchThreshold float64
}

// Cluster is a transient grouping of posts produced by one clustering run.
// It is never persisted directly; its effect is persisted via an event.
type Cluster struct {
	Id string
	// Posts are the members, seed first.
	Posts []*Post
	// Similarities[i] is Posts[i]'s cosine similarity to the seed. The seed
	// itself is always 1.0.
	Similarities []float64
	// Centroid is the unit-normalized mean embedding of the members.
	Centroid []float64
	Size     int
}

// ClusterPosts groups the posts by leader clustering: posts are walked in
// descending engagement order (ties keep arrival order) so that
// high-signal posts become cluster seeds; each unassigned seed collects
// every unassigned post within the similarity threshold. Deterministic
// given fixed input order. An empty input yields an empty result.
// Embeddings are assumed to share one dimension; that is the caller's
// contract.
//
// When a candidate cluster is below MinClusterSize only its non-seed
// members are released back to the pool. The seed stays consumed for the
// rest of the run, so a high-engagement post that seeds a failed cluster
// is never reconsidered as a member of a later one. Documented quirk,
// covered by a test.
func ClusterPosts(posts []*Post, config Config) []*Cluster {
	if len(posts) == 0 {
		return []*Cluster{}
	}

	order := seedOrder(posts)
	assigned := make([]bool, len(posts))
	clusters := []*Cluster{}

	for _, seedIdx := range order {
		if assigned[seedIdx] {
			continue
		}
		if len(clusters) >= config.MaxClusters {
			break
		}

		seed := posts[seedIdx]
		members := []*Post{seed}
		memberIdx := []int{seedIdx}
		similarities := []float64{1.0}
		assigned[seedIdx] = true

		for i, post := range posts {
			if assigned[i] {
				continue
			}
			similarity := CosineSimilarity(seed.Embedding, post.Embedding)
			if similarity >= config.SimilarityThreshold {
				members = append(members, post)
				memberIdx = append(memberIdx, i)
				similarities = append(similarities, similarity)
				assigned[i] = true
			}
		}

		if len(members) < config.MinClusterSize {
			// Release the non-seed members for later seeds; the seed itself
			// remains consumed.
			for _, i := range memberIdx[1:] {
				assigned[i] = false
			}
			continue
		}

		embeddings := make([][]float64, len(members))
		for i, m := range members {
			embeddings[i] = m.Embedding
		}

		clusters = append(clusters, &Cluster{
			Id:           fmt.Sprintf("cluster-%d", len(clusters)),
			Posts:        members,
			Similarities: similarities,
			Centroid:     Centroid(embeddings),
			Size:         len(members),
		})
	}

	return clusters
}

// seedOrder returns post indices sorted by descending engagement, stable on
// the original arrival order.
func seedOrder(posts []*Post) []int {
	order := make([]int, len(posts))
	for i := range posts {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return posts[order[i]].EngagementSum() > posts[order[j]].EngagementSum()
	})
	return order
}
