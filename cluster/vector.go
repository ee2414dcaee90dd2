package cluster

import "gonum.org/v1/gonum/floats"

// CosineSimilarity is 1 minus cosine distance: 1.0 means identical
// direction. A zero-magnitude operand yields 0 rather than NaN.
func CosineSimilarity(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

// Centroid computes the component-wise mean of the embeddings, L2-normalized
// to unit length. When the mean has zero magnitude (degenerate all-zero
// embeddings) the un-normalized mean is returned as-is: deterministic and
// finite, never NaN.
func Centroid(embeddings [][]float64) []float64 {
	if len(embeddings) == 0 {
		return nil
	}

	centroid := make([]float64, len(embeddings[0]))
	for _, embedding := range embeddings {
		floats.Add(centroid, embedding)
	}
	floats.Scale(1/float64(len(embeddings)), centroid)

	norm := floats.Norm(centroid, 2)
	if norm == 0 {
		return centroid
	}
	floats.Scale(1/norm, centroid)
	return centroid
}
