package model

import "time"

// Terminal and non-terminal batch statuses.
const (
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

/*

Batch is one discrete run of the ingest-cluster-match-persist pipeline

Id: primary key
CreatedAt: time when the row is created
Status: "processing" while the run is in flight, finalized exactly once to
	"completed" or "failed"
PostsIngested: number of posts fetched from the search provider
PostsPassedQuality: number of posts that passed the quality filter
ClustersCreated: number of clusters produced by this run
StartedAt/CompletedAt: run boundary timestamps
ErrorMessage: the fatal error when Status is "failed", empty otherwise.
	Non-fatal errors recovered during the run are logged, not stored here.
*/

type Batch struct {
	Id                 string `gorm:"primaryKey"`
	CreatedAt          time.Time
	Status             string
	PostsIngested      int
	PostsPassedQuality int
	ClustersCreated    int
	StartedAt          *time.Time
	CompletedAt        *time.Time
	ErrorMessage       string
}
