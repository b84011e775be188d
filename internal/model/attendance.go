package model

import "time"

// Attendance mirrors the 'attendance' table: one row per (user, civil day).
// Date is the YYYY-MM-DD string of the configured business timezone, kept
// as a string for prefix queries ("2025-12" matches the whole month).
type Attendance struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"userId"`
	Username  string     `json:"username"`
	Nickname  string     `json:"nickname"`
	Date      string     `json:"date"`
	ClockIn   time.Time  `json:"clockIn"`
	ClockOut  *time.Time `json:"clockOut,omitempty"`
	Duration  int64      `json:"duration"` // worked seconds, set on clock-out
	CreatedAt time.Time  `json:"createdAt"`
}
