// pipeline sequences one batch of the event detection worker through its
// fixed linear stages: ingest, filter and embed, cluster, match against
// existing events, enrich with summaries and geocoded locations, persist.
// One mutable State value is threaded through the stages; recoverable
// stage errors are accumulated on it, anything else fails the batch.
package pipeline

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mlens/eventpulse/clients"
	"github.com/mlens/eventpulse/cluster"
	"github.com/mlens/eventpulse/model"
	"github.com/mlens/eventpulse/quality"
	"github.com/mlens/eventpulse/store"
	"github.com/mlens/eventpulse/utils"
	Logger "github.com/mlens/eventpulse/utils/log"
)

// SocialSearchProvider is the post search boundary (the X API client in
// production).
type SocialSearchProvider interface {
	SearchRecentPosts(ctx context.Context, params clients.SearchParams) (*clients.SearchResponse, error)
	GetUsers(ctx context.Context, userIds []string) (map[string]clients.XUser, error)
}

// LanguageModelProvider is the LLM boundary used for embeddings, content
// scoring and cluster summarization (the Grok client in production).
type LanguageModelProvider interface {
	CreateEmbedding(ctx context.Context, text string) ([]float64, error)
	ScoreContent(ctx context.Context, text string) (float64, error)
	SummarizeCluster(ctx context.Context, texts []string) (*clients.EventSummary, error)
}

// GeocodingProvider resolves free-text place descriptions (the Mapbox
// client in production).
type GeocodingProvider interface {
	Geocode(ctx context.Context, place string) (*clients.GeocodedLocation, error)
}

// EventStore is the persistence boundary the pipeline drives. Implemented
// by store.Store in production.
type EventStore interface {
	ActiveMonitorConfig() (*model.MonitorConfig, error)
	CreateBatch() (*model.Batch, error)
	FinalizeBatchCompleted(batchId string, counters store.BatchCounters) error
	FinalizeBatchFailed(batchId string, message string) error
	LatestXPostId() (string, error)
	UpsertPosts(posts []*cluster.Post, batchId string) error
	EventCentroids() ([]cluster.EventCentroid, error)
	CreateEventFromCluster(c *cluster.Cluster, summary *clients.EventSummary, location *clients.GeocodedLocation, batchId string, retentionDays int) (*model.Event, error)
	UpdateEventFromCluster(eventId string, c *cluster.Cluster, summary *clients.EventSummary) (*model.Event, error)
}

type Config struct {
	Quality          quality.Config
	Cluster          cluster.Config
	MaxPostsPerBatch int
	RetentionDays    int
}

// State is the shared mutable pipeline state for one batch. Stages mutate
// it in order; per-cluster enrichment results are keyed by cluster id.
type State struct {
	BatchId      string
	MonitorQuery string

	// PostsFetched counts everything the search returned, before quality
	// filtering.
	PostsFetched int
	// Posts are the quality-passed, embedded posts.
	Posts    []*cluster.Post
	Clusters []*cluster.Cluster

	Summaries    map[string]*clients.EventSummary
	Locations    map[string]*clients.GeocodedLocation
	EventMatches map[string]string

	// Errors accumulates non-fatal stage errors; they are surfaced in the
	// batch log but do not fail the run.
	Errors []string
}

func newState(batchId string, monitorQuery string) *State {
	return &State{
		BatchId:      batchId,
		MonitorQuery: monitorQuery,
		Summaries:    map[string]*clients.EventSummary{},
		Locations:    map[string]*clients.GeocodedLocation{},
		EventMatches: map[string]string{},
		Errors:       []string{},
	}
}

func (s *State) recordError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	Logger.Log.Errorln(msg)
	s.Errors = append(s.Errors, msg)
}

type Pipeline struct {
	search   SocialSearchProvider
	llm      LanguageModelProvider
	geocoder GeocodingProvider
	store    EventStore
	config   Config
}

func New(search SocialSearchProvider, llm LanguageModelProvider, geocoder GeocodingProvider, eventStore EventStore, config Config) *Pipeline {
	return &Pipeline{
		search:   search,
		llm:      llm,
		geocoder: geocoder,
		store:    eventStore,
		config:   config,
	}
}

// Run executes one batch end to end and finalizes its status exactly once.
// It returns an error only when the batch could not complete: no active
// monitor configuration, batch bookkeeping failure, or a fatal stage
// error (which also marks the batch "failed").
func (p *Pipeline) Run(ctx context.Context) error {
	monitorConfig, err := p.store.ActiveMonitorConfig()
	if err != nil {
		return err
	}

	batch, err := p.store.CreateBatch()
	if err != nil {
		return err
	}
	Logger.Log.Infof("created batch %s for monitor %q", batch.Id, monitorConfig.Name)

	state := newState(batch.Id, monitorConfig.XQuery)
	if err := p.runStages(ctx, state); err != nil {
		Logger.Log.Errorf("batch %s failed: %v", batch.Id, err)
		if ferr := p.store.FinalizeBatchFailed(batch.Id, err.Error()); ferr != nil {
			Logger.Log.Errorf("fail to mark batch %s failed: %v", batch.Id, ferr)
		}
		return err
	}

	counters := store.BatchCounters{
		PostsIngested:      state.PostsFetched,
		PostsPassedQuality: len(state.Posts),
		ClustersCreated:    len(state.Clusters),
	}
	if err := p.store.FinalizeBatchCompleted(batch.Id, counters); err != nil {
		return errors.Wrapf(err, "fail to finalize batch %s", batch.Id)
	}

	Logger.Log.Infof("batch %s completed: %d posts ingested, %d passed quality, %d clusters", batch.Id, counters.PostsIngested, counters.PostsPassedQuality, counters.ClustersCreated)
	if len(state.Errors) > 0 {
		Logger.Log.Warnf("batch %s recovered from %d errors: %v", batch.Id, len(state.Errors), state.Errors)
	}
	return nil
}

func (p *Pipeline) runStages(ctx context.Context, state *State) error {
	p.ingestPosts(ctx, state)
	p.clusterPosts(state)
	if err := p.matchExistingEvents(state); err != nil {
		return err
	}
	p.summarizeClusters(ctx, state)
	p.geocodeLocations(ctx, state)
	p.persistEvents(state)
	return nil
}

// ingestPosts fetches new posts since the cursor, quality filters them,
// embeds the survivors and upserts them. Every failure in this stage is
// recoverable: it is recorded and the stage short-circuits with an empty
// post set, leaving the rest of the run a no-op.
func (p *Pipeline) ingestPosts(ctx context.Context, state *State) {
	cursor, err := p.store.LatestXPostId()
	if err != nil {
		state.recordError("fail to read ingestion cursor: %v", err)
		return
	}

	response, err := p.search.SearchRecentPosts(ctx, clients.SearchParams{
		Query:      state.MonitorQuery,
		MaxResults: p.config.MaxPostsPerBatch,
		SinceId:    cursor,
	})
	if err != nil {
		state.recordError("fail to load posts: %v", err)
		return
	}

	state.PostsFetched = len(response.Posts)
	if len(response.Posts) == 0 {
		Logger.Log.Infoln("no new posts found")
		return
	}
	Logger.Log.Infof("found %d posts", len(response.Posts))

	authorIds := make([]string, 0, len(response.Posts))
	for _, post := range response.Posts {
		authorIds = append(authorIds, post.AuthorId)
	}
	users, err := p.search.GetUsers(ctx, utils.UniqueStrings(authorIds))
	if err != nil {
		state.recordError("fail to load users: %v", err)
		return
	}

	embedded := []*cluster.Post{}
	for _, post := range response.Posts {
		var author *quality.Author
		user, hasUser := users[post.AuthorId]
		if hasUser {
			author = &quality.Author{
				FollowersCount: user.FollowersCount,
				Verified:       user.Verified,
				CreatedAt:      user.CreatedAt,
			}
		}

		result := quality.Score(ctx, quality.Candidate{
			Text:     post.Text,
			Likes:    post.Likes,
			Retweets: post.Retweets,
			Replies:  post.Replies,
		}, author, p.config.Quality, p.llm)
		if !result.Passed {
			continue
		}

		embedding, err := p.llm.CreateEmbedding(ctx, post.Text)
		if err != nil {
			state.recordError("fail to embed posts: %v", err)
			return
		}

		embedded = append(embedded, &cluster.Post{
			XPostId:          post.Id,
			AuthorId:         post.AuthorId,
			AuthorUsername:   post.AuthorUsername,
			AuthorFollowers:  user.FollowersCount,
			AuthorVerified:   user.Verified,
			AccountCreatedAt: user.CreatedAt,
			Content:          post.Text,
			MediaUrls:        post.MediaUrls,
			Likes:            post.Likes,
			Retweets:         post.Retweets,
			Replies:          post.Replies,
			PostedAt:         post.PostedAt,
			Embedding:        embedding,
			QualityScore:     result.Score,
		})
	}
	Logger.Log.Infof("%d posts passed quality filter", len(embedded))

	if len(embedded) > 0 {
		if err := p.store.UpsertPosts(embedded, state.BatchId); err != nil {
			state.recordError("fail to store posts: %v", err)
			return
		}
	}

	state.Posts = embedded
}

func (p *Pipeline) clusterPosts(state *State) {
	if len(state.Posts) == 0 {
		return
	}
	state.Clusters = cluster.ClusterPosts(state.Posts, p.config.Cluster)
	Logger.Log.Infof("created %d clusters", len(state.Clusters))
}

// matchExistingEvents reads existing centroids from the store and maps
// each cluster to its best-matching event. A store read failure here is
// fatal: proceeding would duplicate every matched event.
func (p *Pipeline) matchExistingEvents(state *State) error {
	if len(state.Clusters) == 0 {
		return nil
	}

	centroids, err := p.store.EventCentroids()
	if err != nil {
		return errors.Wrap(err, "fail to read existing event centroids")
	}

	state.EventMatches = cluster.MatchClustersToEvents(state.Clusters, centroids, p.config.Cluster.EventMatchThreshold)
	Logger.Log.Infof("matched %d clusters to existing events", len(state.EventMatches))
	return nil
}

// summarizeClusters asks the LLM for a structured summary per cluster. A
// failed cluster is recorded and dropped; the rest continue.
func (p *Pipeline) summarizeClusters(ctx context.Context, state *State) {
	for _, c := range state.Clusters {
		texts := make([]string, len(c.Posts))
		for i, post := range c.Posts {
			texts[i] = post.Content
		}

		summary, err := p.llm.SummarizeCluster(ctx, texts)
		if err != nil {
			state.recordError("fail to summarize cluster %s: %v", c.Id, err)
			continue
		}
		state.Summaries[c.Id] = summary
	}
}

// geocodeLocations resolves each summarized cluster's location text. A
// geocoding failure drops that one cluster from persistence; a cluster
// without location text simply stays location-less.
func (p *Pipeline) geocodeLocations(ctx context.Context, state *State) {
	for _, c := range state.Clusters {
		summary, ok := state.Summaries[c.Id]
		if !ok {
			continue
		}
		if summary.Location == "" {
			state.Locations[c.Id] = nil
			continue
		}

		location, err := p.geocoder.Geocode(ctx, summary.Location)
		if err != nil {
			state.recordError("fail to geocode cluster %s: %v", c.Id, err)
			delete(state.Summaries, c.Id)
			continue
		}
		state.Locations[c.Id] = location
	}
}

// persistEvents saves each enriched cluster: matched clusters update their
// event in place with a history snapshot, unmatched clusters become new
// events. Each cluster's save is independent; a failure is recorded and
// the remaining clusters still persist.
func (p *Pipeline) persistEvents(state *State) {
	for _, c := range state.Clusters {
		summary, ok := state.Summaries[c.Id]
		if !ok {
			// Enrichment failed for this cluster; already recorded.
			continue
		}

		if eventId, matched := state.EventMatches[c.Id]; matched {
			if _, err := p.store.UpdateEventFromCluster(eventId, c, summary); err != nil {
				state.recordError("fail to update event %s from cluster %s: %v", eventId, c.Id, err)
			}
			continue
		}

		if _, err := p.store.CreateEventFromCluster(c, summary, state.Locations[c.Id], state.BatchId, p.config.RetentionDays); err != nil {
			state.recordError("fail to create event from cluster %s: %v", c.Id, err)
		}
	}
}
