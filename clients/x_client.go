package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"

	"github.com/mlens/eventpulse/ratelimit"
	Logger "github.com/mlens/eventpulse/utils/log"
)

const XApiBaseUrl = "https://api.twitter.com/2"

// X API v2 Pro tier quotas. Recent search and user lookup share one
// budget; full-archive search has its own.
const (
	recentSearchMaxRequests = 300
	recentSearchWindow      = 15 * time.Minute
	fullArchiveMaxRequests  = 1
	fullArchiveWindow       = time.Second

	// User lookup accepts at most this many ids per request.
	userLookupChunkSize = 100
)

const (
	tweetFields = "id,text,author_id,created_at,public_metrics,attachments"
	userFields  = "id,username,public_metrics,verified,created_at"
)

type SearchParams struct {
	Query      string
	MaxResults int
	// SinceId is the ingestion cursor: only posts newer than this id are
	// returned. Empty means no cursor.
	SinceId   string
	StartTime string
	EndTime   string
}

type XPost struct {
	Id             string
	Text           string
	AuthorId       string
	AuthorUsername string
	PostedAt       time.Time
	Likes          int
	Retweets       int
	Replies        int
	MediaUrls      []string
}

type XUser struct {
	Id             string
	Username       string
	FollowersCount int
	Verified       bool
	CreatedAt      *time.Time
}

type SearchResponse struct {
	Posts       []XPost
	NextToken   string
	ResultCount int
}

// XClient calls the X API v2 search and user lookup endpoints. Every call
// acquires the matching rate limiter before going out.
type XClient struct {
	http    *HttpClient
	baseUrl string

	recentSearchLimiter *ratelimit.Limiter
	fullArchiveLimiter  *ratelimit.Limiter
}

func NewXClient(bearerToken string) *XClient {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+bearerToken)

	return &XClient{
		http:                NewHttpClient(header),
		baseUrl:             XApiBaseUrl,
		recentSearchLimiter: ratelimit.NewLimiter(recentSearchMaxRequests, recentSearchWindow),
		fullArchiveLimiter:  ratelimit.NewLimiter(fullArchiveMaxRequests, fullArchiveWindow),
	}
}

// SearchRecentPosts searches posts from the last 7 days.
func (c *XClient) SearchRecentPosts(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	c.recentSearchLimiter.Acquire()
	return c.search(ctx, c.baseUrl+"/tweets/search/recent", params)
}

// SearchFullArchive searches the full post archive.
func (c *XClient) SearchFullArchive(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	c.fullArchiveLimiter.Acquire()
	return c.search(ctx, c.baseUrl+"/tweets/search/all", params)
}

func (c *XClient) search(ctx context.Context, uri string, params SearchParams) (*SearchResponse, error) {
	query := map[string]string{
		"query":        params.Query,
		"max_results":  strconv.Itoa(params.MaxResults),
		"tweet.fields": tweetFields,
		"user.fields":  userFields,
		"expansions":   "author_id,attachments.media_keys",
		"media.fields": "url,preview_image_url,type",
	}
	if params.SinceId != "" {
		query["since_id"] = params.SinceId
	}
	if params.StartTime != "" {
		query["start_time"] = params.StartTime
	}
	if params.EndTime != "" {
		query["end_time"] = params.EndTime
	}

	res, err := c.http.Get(ctx, uri, query)
	if err != nil {
		return nil, errors.Wrap(err, "x api search failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "fail to read x api search response")
	}

	return ParseSearchResponse(body)
}

// GetUsers looks up user details for quality filtering, chunked by the API
// limit. A failed chunk is logged and skipped; the remaining users are
// still returned.
func (c *XClient) GetUsers(ctx context.Context, userIds []string) (map[string]XUser, error) {
	users := make(map[string]XUser)

	for start := 0; start < len(userIds); start += userLookupChunkSize {
		end := start + userLookupChunkSize
		if end > len(userIds) {
			end = len(userIds)
		}
		chunk := userIds[start:end]

		c.recentSearchLimiter.Acquire()
		res, err := c.http.Get(ctx, c.baseUrl+"/users", map[string]string{
			"ids":         strings.Join(chunk, ","),
			"user.fields": userFields,
		})
		if err != nil {
			Logger.Log.Errorf("fail to fetch user chunk: %v", err)
			continue
		}

		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			Logger.Log.Errorf("fail to read user chunk response: %v", err)
			continue
		}

		var raw struct {
			Data []xRawUser `json:"data"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			Logger.Log.Errorf("fail to parse user chunk response: %v", err)
			continue
		}

		for _, u := range raw.Data {
			users[u.Id] = u.toXUser()
		}
	}

	return users, nil
}

type xRawTweet struct {
	Id            string `json:"id"`
	Text          string `json:"text"`
	AuthorId      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
	Attachments struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
}

type xRawUser struct {
	Id            string `json:"id"`
	Username      string `json:"username"`
	Verified      bool   `json:"verified"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
	} `json:"public_metrics"`
}

func (u xRawUser) toXUser() XUser {
	user := XUser{
		Id:             u.Id,
		Username:       u.Username,
		FollowersCount: u.PublicMetrics.FollowersCount,
		Verified:       u.Verified,
	}
	if t, err := dateparse.ParseAny(u.CreatedAt); err == nil {
		user.CreatedAt = &t
	}
	return user
}

type xRawMedia struct {
	MediaKey        string `json:"media_key"`
	Url             string `json:"url"`
	PreviewImageUrl string `json:"preview_image_url"`
	Type            string `json:"type"`
}

type xRawSearchResponse struct {
	Data     []xRawTweet `json:"data"`
	Includes struct {
		Users []xRawUser  `json:"users"`
		Media []xRawMedia `json:"media"`
	} `json:"includes"`
	Meta struct {
		NextToken   string `json:"next_token"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

// ParseSearchResponse flattens a raw X search payload: author usernames
// and media urls from the includes section are resolved onto each post.
func ParseSearchResponse(body []byte) (*SearchResponse, error) {
	raw := &xRawSearchResponse{}
	if err := json.Unmarshal(body, raw); err != nil {
		return nil, errors.Wrap(err, "fail to parse x api search response")
	}

	usersById := make(map[string]xRawUser, len(raw.Includes.Users))
	for _, u := range raw.Includes.Users {
		usersById[u.Id] = u
	}
	mediaByKey := make(map[string]xRawMedia, len(raw.Includes.Media))
	for _, m := range raw.Includes.Media {
		mediaByKey[m.MediaKey] = m
	}

	posts := []XPost{}
	for _, tweet := range raw.Data {
		post := XPost{
			Id:        tweet.Id,
			Text:      tweet.Text,
			AuthorId:  tweet.AuthorId,
			Likes:     tweet.PublicMetrics.LikeCount,
			Retweets:  tweet.PublicMetrics.RetweetCount,
			Replies:   tweet.PublicMetrics.ReplyCount,
			MediaUrls: []string{},
		}
		if author, ok := usersById[tweet.AuthorId]; ok {
			post.AuthorUsername = author.Username
		}
		if t, err := dateparse.ParseAny(tweet.CreatedAt); err == nil {
			post.PostedAt = t
		}
		for _, key := range tweet.Attachments.MediaKeys {
			m, ok := mediaByKey[key]
			if !ok {
				continue
			}
			if m.Url != "" {
				post.MediaUrls = append(post.MediaUrls, m.Url)
			} else if m.PreviewImageUrl != "" {
				post.MediaUrls = append(post.MediaUrls, m.PreviewImageUrl)
			}
		}
		posts = append(posts, post)
	}

	return &SearchResponse{
		Posts:       posts,
		NextToken:   raw.Meta.NextToken,
		ResultCount: raw.Meta.ResultCount,
	}, nil
}
