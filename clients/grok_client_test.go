package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestParseContentScore(t *testing.T) {
	require.InDelta(t, 0.7, ParseContentScore("0.7"), 1e-9)
	require.InDelta(t, 0.7, ParseContentScore(" 0.7\n"), 1e-9)
	// Clamped into [0,1].
	require.Equal(t, 1.0, ParseContentScore("3.5"))
	require.Equal(t, 0.0, ParseContentScore("-0.2"))
	// Non-numeric replies default to 0.5.
	require.Equal(t, 0.5, ParseContentScore("I would rate this 0.7"))
	require.Equal(t, 0.5, ParseContentScore(""))
}

func TestParseEventSummary(t *testing.T) {
	summary, err := ParseEventSummary(`{
		"title": "Flooding in coastal district",
		"summary": "Multiple posts report street flooding after heavy rain.",
		"eventType": "humanitarian",
		"confidence": 0.82,
		"location": "Jakarta, Indonesia"
	}`)
	require.NoError(t, err)
	require.Equal(t, "Flooding in coastal district", summary.Title)
	require.Equal(t, "humanitarian", summary.EventType)
	require.InDelta(t, 0.82, summary.Confidence, 1e-9)
	require.Equal(t, "Jakarta, Indonesia", summary.Location)
}

func TestParseEventSummaryNullLocation(t *testing.T) {
	summary, err := ParseEventSummary(`{"title": "t", "summary": "s", "eventType": "other", "confidence": 0.5, "location": null}`)
	require.NoError(t, err)
	require.Empty(t, summary.Location)

	summary, err = ParseEventSummary(`{"title": "t", "summary": "s", "eventType": "other", "confidence": 0.5, "location": "None"}`)
	require.NoError(t, err)
	require.Empty(t, summary.Location)
}

func TestParseEventSummaryMalformed(t *testing.T) {
	_, err := ParseEventSummary("the event seems to be a protest")
	require.Error(t, err)

	var parseErr *ResponseParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseEventSummaryMissingTitle(t *testing.T) {
	_, err := ParseEventSummary(`{"summary": "s"}`)

	var parseErr *ResponseParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestCreateEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer key123", r.Header.Get("Authorization"))

		var req grokEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"some post"}, req.Input)

		w.Write([]byte(`{"data": [{"embedding": [0.1, 0.2, 0.3]}]}`))
	}))
	defer server.Close()

	client := NewGrokClient("key123", server.URL)

	embedding, err := client.CreateEmbedding(context.Background(), "some post")
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, 0.2, 0.3}, embedding)
}

func TestSummarizeClusterRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		var req grokChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.ResponseFormat)
		require.Equal(t, "json_object", req.ResponseFormat.Type)

		w.Write([]byte(`{"choices": [{"message": {"content": "{\"title\": \"Protest at parliament\", \"summary\": \"s\", \"eventType\": \"protest\", \"confidence\": 0.9, \"location\": null}"}}]}`))
	}))
	defer server.Close()

	client := NewGrokClient("key123", server.URL)

	summary, err := client.SummarizeCluster(context.Background(), []string{"post one", "post two"})
	require.NoError(t, err)
	require.Equal(t, "Protest at parliament", summary.Title)
	require.Equal(t, "protest", summary.EventType)
}

func TestScoreContentProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewGrokClient("key123", server.URL)

	_, err := client.ScoreContent(context.Background(), "text")
	require.Error(t, err)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	require.Equal(t, "short", truncate("short", 500))
	require.Equal(t, "abcde", truncate("abcdefgh", 5))

	// "é" is two bytes; a byte-index cut at 3 would split it.
	cut := truncate("abécd", 3)
	require.Equal(t, "ab", cut)
	require.True(t, utf8.ValidString(cut))

	cut = truncate("земетресение в София", 11)
	require.True(t, utf8.ValidString(cut))
	require.LessOrEqual(t, len(cut), 11)
}
