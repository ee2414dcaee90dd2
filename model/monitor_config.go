package model

import "time"

/*

MonitorConfig is the query/topic configuration driving ingestion

Id: primary key
Name: display name of the monitor
Description: free-text description
XQuery: the X API search query for this monitor
IsActive: whether this configuration drives batches. The worker reads the
	single active configuration at batch start; it never writes this table.
*/

type MonitorConfig struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string
	Description string
	XQuery      string
	IsActive    bool
}
