// store is the persistence boundary of the worker. It owns the
// create-or-update-with-history semantics for events: updates are in-place
// version bumps with an append-only snapshot taken beforehand, never new
// rows. Per-cluster saves are independent and best-effort; there is no
// cross-cluster transaction.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mlens/eventpulse/clients"
	"github.com/mlens/eventpulse/cluster"
	"github.com/mlens/eventpulse/model"
	Logger "github.com/mlens/eventpulse/utils/log"
)

// ErrNoActiveMonitor is returned when no monitor configuration is active.
// The caller must abort the run without creating a batch.
var ErrNoActiveMonitor = errors.New("no active monitor configuration")

type BatchCounters struct {
	PostsIngested      int
	PostsPassedQuality int
	ClustersCreated    int
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ActiveMonitorConfig reads the single active monitor configuration.
func (s *Store) ActiveMonitorConfig() (*model.MonitorConfig, error) {
	config := &model.MonitorConfig{}
	err := s.db.Where("is_active = ?", true).First(config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveMonitor
	}
	if err != nil {
		return nil, errors.Wrap(err, "fail to read monitor configuration")
	}
	return config, nil
}

// CreateBatch opens a new batch in "processing" state.
func (s *Store) CreateBatch() (*model.Batch, error) {
	now := time.Now()
	batch := &model.Batch{
		Id:        uuid.New().String(),
		Status:    model.BatchStatusProcessing,
		StartedAt: &now,
	}
	if err := s.db.Create(batch).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create batch")
	}
	return batch, nil
}

// FinalizeBatchCompleted marks the batch "completed" with its counters.
func (s *Store) FinalizeBatchCompleted(batchId string, counters BatchCounters) error {
	now := time.Now()
	return errors.Wrap(s.db.Model(&model.Batch{}).Where("id = ?", batchId).Updates(map[string]interface{}{
		"status":               model.BatchStatusCompleted,
		"posts_ingested":       counters.PostsIngested,
		"posts_passed_quality": counters.PostsPassedQuality,
		"clusters_created":     counters.ClustersCreated,
		"completed_at":         now,
	}).Error, "fail to finalize batch")
}

// FinalizeBatchFailed marks the batch "failed" with the fatal error.
func (s *Store) FinalizeBatchFailed(batchId string, message string) error {
	now := time.Now()
	return errors.Wrap(s.db.Model(&model.Batch{}).Where("id = ?", batchId).Updates(map[string]interface{}{
		"status":        model.BatchStatusFailed,
		"error_message": message,
		"completed_at":  now,
	}).Error, "fail to finalize batch")
}

// LatestXPostId returns the ingestion cursor: the provider post id of the
// most recently posted row, empty when no posts exist yet.
func (s *Store) LatestXPostId() (string, error) {
	post := &model.Post{}
	err := s.db.Order("posted_at desc").First(post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "fail to read ingestion cursor")
	}
	return post.XPostId, nil
}

// UpsertPosts writes the quality-passed, embedded posts of one batch,
// deduplicating on the provider post id.
func (s *Store) UpsertPosts(posts []*cluster.Post, batchId string) error {
	for _, p := range posts {
		row, err := postRow(p, batchId)
		if err != nil {
			return err
		}
		err = s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "x_post_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"likes", "retweets", "replies", "quality_score", "batch_id"}),
		}).Create(row).Error
		if err != nil {
			return errors.Wrapf(err, "fail to upsert post %s", p.XPostId)
		}
	}
	return nil
}

func postRow(p *cluster.Post, batchId string) (*model.Post, error) {
	mediaUrls, err := json.Marshal(p.MediaUrls)
	if err != nil {
		return nil, errors.Wrap(err, "fail to marshal media urls")
	}
	embedding, err := json.Marshal(p.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "fail to marshal embedding")
	}

	return &model.Post{
		Id:               uuid.New().String(),
		XPostId:          p.XPostId,
		AuthorId:         p.AuthorId,
		AuthorUsername:   p.AuthorUsername,
		AuthorFollowers:  p.AuthorFollowers,
		AuthorVerified:   p.AuthorVerified,
		AccountCreatedAt: p.AccountCreatedAt,
		Content:          p.Content,
		MediaUrls:        mediaUrls,
		Likes:            p.Likes,
		Retweets:         p.Retweets,
		Replies:          p.Replies,
		PostedAt:         p.PostedAt,
		Embedding:        embedding,
		QualityScore:     p.QualityScore,
		QualityPassed:    true,
		BatchId:          batchId,
	}, nil
}

// EventCentroids reads every existing event that has a stored centroid,
// for matching new clusters against. Rows with malformed centroids are
// logged and skipped.
func (s *Store) EventCentroids() ([]cluster.EventCentroid, error) {
	var events []model.Event
	err := s.db.Where("centroid_embedding IS NOT NULL").Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "fail to read event centroids")
	}

	centroids := []cluster.EventCentroid{}
	for _, event := range events {
		var centroid []float64
		if err := json.Unmarshal(event.CentroidEmbedding, &centroid); err != nil {
			Logger.Log.Warnf("skipping event %s with malformed centroid: %v", event.Id, err)
			continue
		}
		centroids = append(centroids, cluster.EventCentroid{EventId: event.Id, Centroid: centroid})
	}
	return centroids, nil
}

// GetEvent reads a single event by id.
func (s *Store) GetEvent(eventId string) (*model.Event, error) {
	event := &model.Event{}
	if err := s.db.First(event, "id = ?", eventId).Error; err != nil {
		return nil, errors.Wrapf(err, "fail to read event %s", eventId)
	}
	return event, nil
}

// CreateEventFromCluster persists an unmatched cluster as a brand new
// event at version 1, with its initial history row and post links.
func (s *Store) CreateEventFromCluster(c *cluster.Cluster, summary *clients.EventSummary, location *clients.GeocodedLocation, batchId string, retentionDays int) (*model.Event, error) {
	centroid, err := json.Marshal(c.Centroid)
	if err != nil {
		return nil, errors.Wrap(err, "fail to marshal centroid")
	}

	now := time.Now()
	earliest, latest := postTimeRange(c.Posts)
	expiresAt := now.AddDate(0, 0, retentionDays)

	event := &model.Event{
		Id:                uuid.New().String(),
		Version:           1,
		Title:             summary.Title,
		Summary:           summary.Summary,
		EventType:         summary.EventType,
		ConfidenceScore:   summary.Confidence,
		PostCount:         c.Size,
		CentroidEmbedding: centroid,
		EarliestPostAt:    &earliest,
		LatestPostAt:      &latest,
		BatchId:           batchId,
		ExpiresAt:         &expiresAt,
	}
	if location != nil {
		event.HasLocation = true
		event.LocationName = &location.Name
		event.Country = location.Country
		event.Latitude = &location.Latitude
		event.Longitude = &location.Longitude
		event.H3IndexRes4 = &location.H3IndexRes4
		event.H3IndexRes6 = &location.H3IndexRes6
		event.H3IndexRes8 = &location.H3IndexRes8
	}

	if err := s.db.Create(event).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create event")
	}

	// From here on the save is best-effort: a failed history or link write
	// is logged, not rolled back.
	s.insertHistory(event, model.ChangeTypeCreated)
	s.linkClusterPosts(event.Id, c)

	return event, nil
}

// UpdateEventFromCluster applies a matched cluster to an existing event:
// snapshot the current state into history, then bump the version in place.
// The centroid is replaced by the new cluster's, not merged, so it tracks
// the most recent contributing cluster.
func (s *Store) UpdateEventFromCluster(eventId string, c *cluster.Cluster, summary *clients.EventSummary) (*model.Event, error) {
	event, err := s.GetEvent(eventId)
	if err != nil {
		return nil, err
	}

	centroid, err := json.Marshal(c.Centroid)
	if err != nil {
		return nil, errors.Wrap(err, "fail to marshal centroid")
	}

	// Snapshot before touching the row, so history always holds the
	// superseded version.
	s.insertHistory(event, model.ChangeTypeUpdated)

	_, latest := postTimeRange(c.Posts)
	err = s.db.Model(event).Updates(map[string]interface{}{
		"version":            event.Version + 1,
		"title":              summary.Title,
		"summary":            summary.Summary,
		"event_type":         summary.EventType,
		"confidence_score":   summary.Confidence,
		"post_count":         event.PostCount + c.Size,
		"centroid_embedding": centroid,
		"latest_post_at":     latest,
	}).Error
	if err != nil {
		return nil, errors.Wrapf(err, "fail to update event %s", eventId)
	}

	s.linkClusterPosts(eventId, c)

	return event, nil
}

// insertHistory appends a snapshot of the event's current values.
// Best-effort: failure is logged, the save continues.
func (s *Store) insertHistory(event *model.Event, changeType string) {
	history := &model.EventHistory{
		Id:         uuid.New().String(),
		EventId:    event.Id,
		Version:    event.Version,
		Title:      event.Title,
		Summary:    event.Summary,
		PostCount:  event.PostCount,
		ChangedAt:  time.Now(),
		ChangeType: changeType,
	}
	if err := s.db.Create(history).Error; err != nil {
		Logger.Log.Errorf("fail to insert history for event %s: %v", event.Id, err)
	}
}

// linkClusterPosts upserts the event/post links for every cluster member.
// A member whose post row is missing is skipped, not fatal to the save.
func (s *Store) linkClusterPosts(eventId string, c *cluster.Cluster) {
	for i, member := range c.Posts {
		post := &model.Post{}
		err := s.db.Select("id").First(post, "x_post_id = ?", member.XPostId).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Logger.Log.Warnf("skipping link for missing post %s on event %s", member.XPostId, eventId)
			continue
		}
		if err != nil {
			Logger.Log.Errorf("fail to look up post %s for linking: %v", member.XPostId, err)
			continue
		}

		link := &model.EventPost{
			EventId:         eventId,
			PostId:          post.Id,
			SimilarityScore: c.Similarities[i],
		}
		err = s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "post_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"similarity_score"}),
		}).Create(link).Error
		if err != nil {
			Logger.Log.Errorf("fail to link post %s to event %s: %v", member.XPostId, eventId, err)
		}
	}
}

func postTimeRange(posts []*cluster.Post) (earliest, latest time.Time) {
	for _, p := range posts {
		if earliest.IsZero() || p.PostedAt.Before(earliest) {
			earliest = p.PostedAt
		}
		if latest.IsZero() || p.PostedAt.After(latest) {
			latest = p.PostedAt
		}
	}
	return
}
