package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Activity log events.
const (
	ActivityEventStatusChanged = "status_changed"
	ActivityEventCreated       = "created"
	ActivityEventUpdated       = "updated"
)

// Subject types recorded on activity log entries.
const (
	SubjectTypeApplication = "application"
	SubjectTypePayment     = "payment"
)

// ActivityLog is an immutable audit record of a state change.
type ActivityLog struct {
	ID          string         `db:"id" json:"id"`
	ActorID     int64          `db:"actor_id" json:"actor_id"`
	SubjectType string         `db:"subject_type" json:"subject_type"`
	SubjectID   int64          `db:"subject_id" json:"subject_id"`
	Event       string         `db:"event" json:"event"`
	OldValues   types.JSONText `db:"old_values" json:"old_values,omitempty"`
	NewValues   types.JSONText `db:"new_values" json:"new_values,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// ActivityLogFilter constrains activity log queries.
type ActivityLogFilter struct {
	SubjectType string
	SubjectID   int64
	Limit       int
	Offset      int
}
