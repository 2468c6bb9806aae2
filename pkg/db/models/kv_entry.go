package models

import "time"

// KVEntry is one namespaced key of shopper state in the SQL store backend.
type KVEntry struct {
	Key       string    `gorm:"column:entry_key;primaryKey;size:255"`
	Value     []byte    `gorm:"column:entry_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName pins the table created by the kv_entries migration.
func (KVEntry) TableName() string {
	return "kv_entries"
}
