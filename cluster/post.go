package cluster

import "time"

// Post is the in-memory form of an ingested post after quality filtering
// and embedding, as consumed by the clustering engine. The persisted row
// lives in model.Post; this type carries the raw embedding so that vector
// math does not round-trip through JSON.
type Post struct {
	XPostId          string
	AuthorId         string
	AuthorUsername   string
	AuthorFollowers  int
	AuthorVerified   bool
	AccountCreatedAt *time.Time
	Content          string
	MediaUrls        []string
	Likes            int
	Retweets         int
	Replies          int
	PostedAt         time.Time
	Embedding        []float64
	QualityScore     float64
}

// EngagementSum is the post's total engagement, used both for quality
// scoring and for ordering cluster seed candidates.
func (p *Post) EngagementSum() int {
	return p.Likes + p.Retweets + p.Replies
}
