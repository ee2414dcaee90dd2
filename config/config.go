// config assembles the worker configuration from environment variables,
// falling back to defaults tuned for the production monitors.
package config

import (
	"os"
	"strconv"

	"github.com/mlens/eventpulse/cluster"
	"github.com/mlens/eventpulse/pipeline"
	"github.com/mlens/eventpulse/quality"
	Logger "github.com/mlens/eventpulse/utils/log"
)

// Config is the full worker configuration: provider credentials plus the
// pipeline tuning knobs.
type Config struct {
	XApiBearerToken      string
	GrokApiKey           string
	GrokBaseUrl          string
	MapboxGeocodingToken string

	Pipeline pipeline.Config
}

// FromEnv reads the configuration from the environment. Credentials have
// no defaults; a malformed numeric value falls back to its default with a
// warning rather than failing startup.
func FromEnv() Config {
	return Config{
		XApiBearerToken:      os.Getenv("X_API_BEARER_TOKEN"),
		GrokApiKey:           os.Getenv("GROK_API_KEY"),
		GrokBaseUrl:          getEnvString("GROK_BASE_URL", ""),
		MapboxGeocodingToken: os.Getenv("MAPBOX_GEOCODING_TOKEN"),

		Pipeline: pipeline.Config{
			Quality: quality.Config{
				MinEngagement:        getEnvInt("MIN_ENGAGEMENT", 5),
				MinFollowers:         getEnvInt("MIN_FOLLOWERS", 100),
				MinAccountAgeDays:    getEnvInt("MIN_ACCOUNT_AGE_DAYS", 30),
				EnableContentScoring: getEnvBool("ENABLE_CONTENT_SCORING", true),
				MinContentScore:      getEnvFloat("MIN_CONTENT_SCORE", 0.3),
			},
			Cluster: cluster.Config{
				MinClusterSize:      getEnvInt("MIN_CLUSTER_SIZE", 3),
				SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.75),
				MaxClusters:         getEnvInt("MAX_CLUSTERS", 50),
				EventMatchThreshold: getEnvFloat("EVENT_MATCH_THRESHOLD", 0.85),
			},
			MaxPostsPerBatch: getEnvInt("MAX_POSTS_PER_BATCH", 1000),
			RetentionDays:    getEnvInt("RETENTION_DAYS", 7),
		},
	}
}

func getEnvString(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		Logger.Log.Warnf("invalid %s=%q, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		Logger.Log.Warnf("invalid %s=%q, using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		Logger.Log.Warnf("invalid %s=%q, using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}
