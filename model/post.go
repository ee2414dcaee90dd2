package model

import (
	"time"

	"gorm.io/datatypes"
)

/*

Post is one ingested social media post

Id: primary key
CreatedAt: time when the row is created (ingestion time)

XPostId: the post id assigned by the X API, unique, used as the dedup key on upsert
AuthorId: X user id of the author
AuthorUsername: handle of the author at ingestion time
AuthorFollowers: author follower count at ingestion time
AuthorVerified: whether the author account is verified
AccountCreatedAt: when the author account was created, nil when the user lookup missed

Content: post text in plain text
MediaUrls: JSON array of media urls attached to the post
Likes/Retweets/Replies: engagement counters at ingestion time

PostedAt: time the post was published on X
Embedding: JSON array of float64, fixed-dimension embedding of Content
QualityScore: score assigned by the quality filter, in [0,1]
QualityPassed: whether the post passed the quality filter

BatchId: the batch that ingested this post
Events: events this post contributed to, "many-to-many" relation through EventPost

A Post row is written once at ingestion and never mutated afterwards,
except for its linkage to events.
*/

type Post struct {
	Id               string `gorm:"primaryKey"`
	CreatedAt        time.Time
	XPostId          string `gorm:"uniqueIndex"`
	AuthorId         string
	AuthorUsername   string
	AuthorFollowers  int
	AuthorVerified   bool
	AccountCreatedAt *time.Time
	Content          string
	MediaUrls        datatypes.JSON
	Likes            int
	Retweets         int
	Replies          int
	PostedAt         time.Time
	Embedding        datatypes.JSON
	QualityScore     float64
	QualityPassed    bool
	BatchId          string
	Events           []*Event `gorm:"many2many:event_posts;"`
}
