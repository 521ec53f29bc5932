package record_repository

import (
	"time"

	"gorm.io/datatypes"
)

// SyncedRecord is one row of the local mirror.  The composite primary key is
// the upsert conflict target.
type SyncedRecord struct {
	Provider     string `gorm:"primaryKey"`
	ResourceType string `gorm:"primaryKey"`
	ExternalID   string `gorm:"primaryKey"`
	ParentID     string
	Data         datatypes.JSON
	FetchedAt    time.Time
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (SyncedRecord) TableName() string {
	return "synced_records"
}
