package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	DefaultGrokBaseUrl = "https://api.x.ai/v1"

	grokChatModel      = "grok-2"
	grokEmbeddingModel = "grok-embedding"
)

// EventSummary is the summarizer's structured verdict over one cluster.
type EventSummary struct {
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	EventType  string  `json:"eventType"`
	Confidence float64 `json:"confidence"`
	// Location is a free-text place description, empty when the cluster
	// mentions no discernible location.
	Location string `json:"location"`
}

// ResponseParseError reports a summarizer reply that was not the requested
// structured JSON.
type ResponseParseError struct {
	Raw string
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("malformed summarizer response: %s", e.Raw)
}

// GrokClient calls the Grok API for embeddings, content scoring and
// cluster summarization.
type GrokClient struct {
	http    *HttpClient
	baseUrl string
}

func NewGrokClient(apiKey string, baseUrl string) *GrokClient {
	if baseUrl == "" {
		baseUrl = DefaultGrokBaseUrl
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)

	return &GrokClient{
		http:    NewHttpClient(header),
		baseUrl: strings.TrimRight(baseUrl, "/"),
	}
}

type grokChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type grokResponseFormat struct {
	Type string `json:"type"`
}

type grokChatRequest struct {
	Model          string              `json:"model"`
	Messages       []grokChatMessage   `json:"messages"`
	MaxTokens      int                 `json:"max_tokens"`
	ResponseFormat *grokResponseFormat `json:"response_format,omitempty"`
}

type grokChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type grokEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type grokEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// CreateEmbedding generates the embedding vector for one text.
func (c *GrokClient) CreateEmbedding(ctx context.Context, text string) ([]float64, error) {
	res, err := c.http.PostJson(ctx, c.baseUrl+"/embeddings", &grokEmbeddingRequest{
		Model: grokEmbeddingModel,
		Input: []string{text},
	})
	if err != nil {
		return nil, errors.Wrap(err, "grok embedding request failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "fail to read grok embedding response")
	}

	parsed := &grokEmbeddingResponse{}
	if err := json.Unmarshal(body, parsed); err != nil {
		return nil, errors.Wrap(err, "fail to parse grok embedding response")
	}
	if len(parsed.Data) == 0 {
		return nil, errors.New("grok embedding response contains no data")
	}

	return parsed.Data[0].Embedding, nil
}

func (c *GrokClient) chat(ctx context.Context, prompt string, maxTokens int, wantJson bool) (string, error) {
	req := &grokChatRequest{
		Model:     grokChatModel,
		Messages:  []grokChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}
	if wantJson {
		req.ResponseFormat = &grokResponseFormat{Type: "json_object"}
	}

	res, err := c.http.PostJson(ctx, c.baseUrl+"/chat/completions", req)
	if err != nil {
		return "", errors.Wrap(err, "grok chat request failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "fail to read grok chat response")
	}

	parsed := &grokChatResponse{}
	if err := json.Unmarshal(body, parsed); err != nil {
		return "", errors.Wrap(err, "fail to parse grok chat response")
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("grok chat response contains no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// ScoreContent rates the text's quality for news event detection in [0,1].
func (c *GrokClient) ScoreContent(ctx context.Context, text string) (float64, error) {
	prompt := fmt.Sprintf(`You are evaluating social media content quality for news event detection.
Rate this content on a scale of 0 to 1 based on:
- Informational value (is it reporting something newsworthy?)
- Credibility (does it seem factual vs opinion/spam?)
- Clarity (is the message clear and understandable?)

Content: "%s"

Respond with ONLY a number between 0 and 1, nothing else.`, truncate(text, 500))

	response, err := c.chat(ctx, prompt, 10, false)
	if err != nil {
		return 0, err
	}

	return ParseContentScore(response), nil
}

// ParseContentScore turns the model's free-text reply into a score,
// clamping into [0,1] and defaulting to 0.5 when the reply is not a
// number.
func ParseContentScore(response string) float64 {
	score, err := strconv.ParseFloat(strings.TrimSpace(response), 64)
	if err != nil || math.IsNaN(score) {
		return 0.5
	}
	return math.Min(1, math.Max(0, score))
}

// SummarizeCluster asks the model for a structured summary of the
// cluster's posts. A reply that is not the requested JSON shape yields a
// ResponseParseError.
func (c *GrokClient) SummarizeCluster(ctx context.Context, texts []string) (*EventSummary, error) {
	numbered := make([]string, len(texts))
	for i, t := range texts {
		numbered[i] = fmt.Sprintf("[%d] %s", i+1, t)
	}

	prompt := fmt.Sprintf(`Analyze the following collection of social media posts about a potential news event.
Generate a structured summary with:

1. TITLE: A concise headline (max 100 chars)
2. SUMMARY: 2-3 sentence description of the event
3. EVENT_TYPE: One of [conflict, humanitarian, political, military, protest, other]
4. CONFIDENCE: Your confidence score (0-1) that this represents a real, coherent event
5. LOCATION: If a specific location is mentioned, extract it. Format: "City, Country" or "Region, Country"
   - Return null if no location is discernible

Posts:
%s

Respond in JSON format with this exact structure:
{
  "title": "string",
  "summary": "string",
  "eventType": "string",
  "confidence": number,
  "location": "string or null"
}`, strings.Join(numbered, "\n\n"))

	response, err := c.chat(ctx, prompt, 1024, true)
	if err != nil {
		return nil, err
	}

	return ParseEventSummary(response)
}

// ParseEventSummary decodes the summarizer's JSON reply. A null or "none"
// location normalizes to the empty string.
func ParseEventSummary(response string) (*EventSummary, error) {
	var raw struct {
		Title      string  `json:"title"`
		Summary    string  `json:"summary"`
		EventType  string  `json:"eventType"`
		Confidence float64 `json:"confidence"`
		Location   *string `json:"location"`
	}
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, &ResponseParseError{Raw: response}
	}
	if raw.Title == "" {
		return nil, &ResponseParseError{Raw: response}
	}

	summary := &EventSummary{
		Title:      raw.Title,
		Summary:    raw.Summary,
		EventType:  raw.EventType,
		Confidence: raw.Confidence,
	}
	if raw.Location != nil && strings.ToLower(*raw.Location) != "none" {
		summary.Location = *raw.Location
	}
	return summary, nil
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
