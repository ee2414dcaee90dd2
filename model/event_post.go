package model

import "time"

/*

EventPost is a "many-to-many" relation of a post contributing to an event

EventId: event id
PostId: post id
SimilarityScore: the post's cosine similarity to its cluster seed at
	assignment time
CreatedAt: time when relation is created

Rows are upserted, never deleted.
*/

type EventPost struct {
	EventId         string `gorm:"primaryKey"`
	PostId          string `gorm:"primaryKey"`
	SimilarityScore float64
	CreatedAt       time.Time
}
