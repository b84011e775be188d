package model

import "time"

// Audit log categories.
const (
	LogCategoryInventory  = "Inventory"
	LogCategoryCalendar   = "Calendar"
	LogCategoryAttendance = "Attendance"
	LogCategoryAuth       = "Auth"
	LogCategoryOptions    = "Options"
	LogCategorySystem     = "System"
)

// LogEntry mirrors the 'logs' table: an immutable append-only audit record.
// Entries older than the retention window are swept, never edited.
type LogEntry struct {
	ID        uint64    `json:"id"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	TargetID  string    `json:"targetId,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
