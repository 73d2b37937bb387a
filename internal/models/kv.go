package models

import "time"

// KVEntry is a generic key-value row for persisted explorer state.
type KVEntry struct {
	ID        uint      `json:"-"     gorm:"primaryKey;autoIncrement"`
	Key       string    `json:"key"   gorm:"column:name;size:191;uniqueIndex;not null"`
	Value     string    `json:"value" gorm:"type:longtext"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string { return "kv_entries" }
