package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, 5, cfg.Pipeline.Quality.MinEngagement)
	assert.Equal(t, 100, cfg.Pipeline.Quality.MinFollowers)
	assert.Equal(t, 30, cfg.Pipeline.Quality.MinAccountAgeDays)
	assert.True(t, cfg.Pipeline.Quality.EnableContentScoring)
	assert.Equal(t, 0.3, cfg.Pipeline.Quality.MinContentScore)

	assert.Equal(t, 3, cfg.Pipeline.Cluster.MinClusterSize)
	assert.Equal(t, 0.75, cfg.Pipeline.Cluster.SimilarityThreshold)
	assert.Equal(t, 50, cfg.Pipeline.Cluster.MaxClusters)
	assert.Equal(t, 0.85, cfg.Pipeline.Cluster.EventMatchThreshold)

	assert.Equal(t, 1000, cfg.Pipeline.MaxPostsPerBatch)
	assert.Equal(t, 7, cfg.Pipeline.RetentionDays)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MIN_CLUSTER_SIZE", "5")
	t.Setenv("SIMILARITY_THRESHOLD", "0.8")
	t.Setenv("ENABLE_CONTENT_SCORING", "false")
	t.Setenv("X_API_BEARER_TOKEN", "test-token")

	cfg := FromEnv()

	assert.Equal(t, 5, cfg.Pipeline.Cluster.MinClusterSize)
	assert.Equal(t, 0.8, cfg.Pipeline.Cluster.SimilarityThreshold)
	assert.False(t, cfg.Pipeline.Quality.EnableContentScoring)
	assert.Equal(t, "test-token", cfg.XApiBearerToken)
}

func TestFromEnvMalformedValueFallsBack(t *testing.T) {
	t.Setenv("MAX_CLUSTERS", "many")
	t.Setenv("EVENT_MATCH_THRESHOLD", "very high")

	cfg := FromEnv()

	assert.Equal(t, 50, cfg.Pipeline.Cluster.MaxClusters)
	assert.Equal(t, 0.85, cfg.Pipeline.Cluster.EventMatchThreshold)
}
