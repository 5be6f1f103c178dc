package repository

import "time"

// KVEntry is one row of kv_entries.
type KVEntry struct {
	Scope     string
	Key       string
	Value     []byte
	UpdatedAt time.Time
}
