package model

import "time"

// Change types recorded in EventHistory rows.
const (
	ChangeTypeCreated = "created"
	ChangeTypeUpdated = "updated"
)

/*

EventHistory is an append-only snapshot of an event taken before each update

EventId: the event this snapshot belongs to
Version: the version being superseded (for a "created" row, version 1)
Title/Summary/PostCount: the event's values at snapshot time
ChangedAt: time when the snapshot was taken
ChangeType: "created" for the initial row, "updated" for every bump after

Invariant: the number of history rows for an event equals the event's
current version.
*/

type EventHistory struct {
	Id         string `gorm:"primaryKey"`
	EventId    string `gorm:"index"`
	Version    int
	Title      string
	Summary    string
	PostCount  int
	ChangedAt  time.Time
	ChangeType string
}
