package models

import (
	"time"
)

// Data type keys for SyncMetadata rows
const (
	DataTypeStarredRepos = "starred_repos"
)

// SyncMetadata records how far synchronization of one data category has
// progressed. There is at most one row per DataType.
type SyncMetadata struct {
	DataType              string    `gorm:"primaryKey;size:50" json:"data_type"`
	LastSyncTimestamp     time.Time `json:"last_sync_timestamp"`
	LastItemCreatedAt     *string   `gorm:"size:50" json:"last_item_created_at,omitempty"` // legacy, never advanced
	IsInitialSyncComplete bool      `gorm:"default:false" json:"is_initial_sync_complete"`
	NewestStarredAt       *int64    `json:"newest_starred_at,omitempty"` // epoch millis
}

// TableName specifies the table name for SyncMetadata
func (SyncMetadata) TableName() string {
	return "sync_metadata"
}

// NewestStarredTime returns the recorded high-water mark as a time, if any.
func (m *SyncMetadata) NewestStarredTime() (time.Time, bool) {
	if m == nil || m.NewestStarredAt == nil {
		return time.Time{}, false
	}
	return FromMillis(*m.NewestStarredAt), true
}
