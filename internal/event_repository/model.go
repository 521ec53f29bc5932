package event_repository

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEvent struct {
	ID             string `gorm:"primaryKey"`
	Provider       string
	Type           string
	SourceAccount  string
	ObjectType     string
	ObjectID       string
	ObjectParentID string
	Payload        datatypes.JSON
	Processed      bool
	ProcessedAt    *time.Time
	Error          *string
	RetryCount     int
	ReceivedAt     time.Time
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

type SyncRun struct {
	ID             string `gorm:"primaryKey"`
	Provider       string
	RequestedTypes datatypes.JSON
	Stats          datatypes.JSON
	Errors         datatypes.JSON
	StartedAt      time.Time
	FinishedAt     time.Time
	DurationMs     int64
	Success        bool
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
