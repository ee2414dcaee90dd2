// quality scores individual posts and decides whether they are worth
// clustering. The score is additive over three independently capped
// components: engagement, account reputation and LLM-judged content
// quality.
package quality

import (
	"context"
	"math"
	"time"

	Logger "github.com/mlens/eventpulse/utils/log"
)

const (
	engagementWeight = 0.3
	followerWeight   = 0.15
	accountAgeWeight = 0.10
	verifiedBonus    = 0.05
	contentWeight    = 0.4

	// Substituted for the content component when content scoring is
	// disabled or the provider call fails, so a provider outage degrades
	// score confidence instead of hard-failing ingestion.
	defaultContentScore = 0.2
)

type Config struct {
	MinEngagement        int
	MinFollowers         int
	MinAccountAgeDays    int
	EnableContentScoring bool
	// MinContentScore is the minimum total score for a post to pass.
	MinContentScore float64
}

// Candidate carries the post signals the filter needs.
type Candidate struct {
	Text     string
	Likes    int
	Retweets int
	Replies  int
}

// Author carries the author metadata from the user lookup. A nil author
// (lookup miss) zeroes the account component.
type Author struct {
	FollowersCount int
	Verified       bool
	CreatedAt      *time.Time
}

// Result is ephemeral: computed, used to admit or reject, and only the
// score survives on the persisted post.
type Result struct {
	Score     float64
	Passed    bool
	Breakdown Breakdown
}

type Breakdown struct {
	Engagement float64
	Account    float64
	Content    float64
}

// ContentScorer rates text in [0,1] for informational value. Implemented
// by the LLM provider client.
type ContentScorer interface {
	ScoreContent(ctx context.Context, text string) (float64, error)
}

// Score computes the quality result for one candidate post. Synchronous
// except for the single content-scoring call.
func Score(ctx context.Context, candidate Candidate, author *Author, config Config, scorer ContentScorer) Result {
	breakdown := Breakdown{
		Engagement: engagementComponent(candidate, config),
		Account:    accountComponent(author, config),
		Content:    contentComponent(ctx, candidate.Text, config, scorer),
	}

	score := breakdown.Engagement + breakdown.Account + breakdown.Content
	return Result{
		Score:     score,
		Passed:    score >= config.MinContentScore,
		Breakdown: breakdown,
	}
}

func engagementComponent(candidate Candidate, config Config) float64 {
	engagement := candidate.Likes + candidate.Retweets + candidate.Replies
	return math.Min(float64(engagement)/float64(config.MinEngagement), 1) * engagementWeight
}

func accountComponent(author *Author, config Config) float64 {
	if author == nil {
		return 0
	}

	component := math.Min(float64(author.FollowersCount)/float64(config.MinFollowers), 1) * followerWeight
	component += math.Min(daysSince(author.CreatedAt)/float64(config.MinAccountAgeDays), 1) * accountAgeWeight
	if author.Verified {
		component += verifiedBonus
	}
	return component
}

func contentComponent(ctx context.Context, text string, config Config, scorer ContentScorer) float64 {
	if !config.EnableContentScoring || scorer == nil {
		return defaultContentScore
	}

	score, err := scorer.ScoreContent(ctx, text)
	if err != nil {
		Logger.Log.Errorf("content scoring failed, using default score: %v", err)
		return defaultContentScore
	}
	return score * contentWeight
}

func daysSince(t *time.Time) float64 {
	if t == nil {
		return 0
	}
	return math.Floor(time.Since(*t).Hours() / 24)
}
