package models

import "time"

type ChangeAction string

const (
	ChangeActionCreate ChangeAction = "create"
	ChangeActionUpdate ChangeAction = "update"
	ChangeActionDelete ChangeAction = "delete"
)

// ChangeLogEntry records intent to replicate one local mutation. Entries
// are appended in mutation order with synced=false and flipped to true once
// the corresponding remote operation has been confirmed. Multiple updates
// to the same record produce multiple entries, each replayed in order.
type ChangeLogEntry struct {
	ID        uint         `gorm:"primary_key" json:"id"`
	Table     string       `gorm:"column:table_name;index;size:50;not null" json:"table_name"`
	RecordId  string       `gorm:"index;size:36;not null" json:"record_id"`
	Action    ChangeAction `gorm:"size:10;not null" json:"action"`
	Timestamp time.Time    `gorm:"index;not null" json:"timestamp"`
	Synced    bool         `gorm:"index;not null;default:false" json:"synced"`
}

func (ChangeLogEntry) TableName() string { return "sync_metadata" }

const (
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual    = "manual"
	SyncTriggeredReconnect = "reconnect"
	SyncTriggeredCli       = "cli"
)

// SyncRun is the audit record of one Push-then-Pull cycle, kept in the
// local mirror.
type SyncRun struct {
	ID            uint       `gorm:"primary_key" json:"id"`
	ProfileId     string     `gorm:"index;size:36" json:"profile_id"`
	Status        string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy   string     `gorm:"size:20" json:"triggered_by"`
	RecordsSynced int        `json:"records_synced"`
	ErrorCount    int        `json:"error_count"`
	Message       string     `gorm:"type:text" json:"message"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// SyncError is one failed per-record replay within a run. The entry it
// belongs to stays unsynced and is retried on the next cycle.
type SyncError struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	SyncRunId uint      `gorm:"index;not null" json:"sync_run_id"`
	Table     string    `gorm:"column:table_name;size:50" json:"table_name"`
	RecordId  string    `gorm:"size:36" json:"record_id"`
	ErrorCode string    `gorm:"size:50" json:"error_code"`
	Message   string    `gorm:"type:text" json:"message"`
	Retryable bool      `json:"retryable"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
