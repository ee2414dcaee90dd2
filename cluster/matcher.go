package cluster

// EventCentroid is an existing event's identity plus its stored centroid,
// as read back from the event store.
type EventCentroid struct {
	EventId  string
	Centroid []float64
}

// MatchClustersToEvents maps each cluster to the existing event whose
// centroid is most similar to the cluster's, provided the similarity meets
// the threshold. Clusters without a qualifying event are absent from the
// result and will be persisted as new events.
//
// Selection is per-cluster independent: two clusters in the same run may
// both match the same existing event, and both updates are applied.
func MatchClustersToEvents(clusters []*Cluster, existing []EventCentroid, threshold float64) map[string]string {
	matches := make(map[string]string)

	for _, c := range clusters {
		bestEventId := ""
		bestSimilarity := 0.0

		for _, event := range existing {
			similarity := CosineSimilarity(c.Centroid, event.Centroid)
			if similarity < threshold {
				continue
			}
			if bestEventId == "" || similarity > bestSimilarity {
				bestEventId = event.EventId
				bestSimilarity = similarity
			}
		}

		if bestEventId != "" {
			matches[c.Id] = bestEventId
		}
	}

	return matches
}
