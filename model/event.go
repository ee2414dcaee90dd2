package model

import (
	"time"

	"gorm.io/datatypes"
)

/*

Event is the durable entity representing a detected real-world occurrence

Id: primary key
CreatedAt: time when the event was first detected

Version: monotonically increasing, starts at 1, bumped on every update.
	At most one live row exists per event identity: updates are in-place
	version bumps, never new rows.
Title: headline produced by the summarizer
Summary: short description produced by the summarizer
EventType: classification, one of conflict/humanitarian/political/military/protest/other
ConfidenceScore: summarizer confidence in [0,1] that this is a real, coherent event
PostCount: cumulative number of posts across all contributing clusters

CentroidEmbedding: JSON array of float64, the unit-normalized centroid of the
	most recent contributing cluster. Replaced on update, not merged.

HasLocation: whether geocoding resolved a location for this event
LocationName/Country/Latitude/Longitude: resolved location, nil when unresolved
H3IndexRes4/6/8: H3 cells of the location at resolutions 4, 6 and 8,
	used to bucket events for map aggregation

EarliestPostAt/LatestPostAt: timestamp range of contributing posts
BatchId: the batch that created the event
ExpiresAt: creation time plus the retention window

Posts: contributing posts, "many-to-many" relation through EventPost
*/

type Event struct {
	Id                string `gorm:"primaryKey"`
	CreatedAt         time.Time
	Version           int
	Title             string
	Summary           string
	EventType         string
	ConfidenceScore   float64
	PostCount         int
	CentroidEmbedding datatypes.JSON
	HasLocation       bool
	LocationName      *string
	Country           *string
	Latitude          *float64
	Longitude         *float64
	H3IndexRes4       *string
	H3IndexRes6       *string
	H3IndexRes8       *string
	EarliestPostAt    *time.Time
	LatestPostAt      *time.Time
	BatchId           string
	ExpiresAt         *time.Time
	Posts             []*Post `gorm:"many2many:event_posts;"`
}
