package models

import (
	"time"

	"gorm.io/datatypes"
)

// LocalStorageEntry is a namespaced JSON document kept by the SQL fallback store.
type LocalStorageEntry struct {
	Key       string         `gorm:"column:storage_key;primaryKey;size:191" json:"key"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName pins the table name independent of the naming strategy.
func (LocalStorageEntry) TableName() string {
	return "local_storage_entries"
}
