package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Bandit policy labels attached to every event.
const (
	PolicyExploit  = "exploit"
	PolicyExplore  = "explore"
	PolicyFallback = "fallback"
)

// Run outcome labels.
const (
	StatusOK              = "ok"
	StatusValidationError = "validation_error"
	StatusCancelled       = "cancelled"
	StatusError           = "error"
)

// Explicit user feedback labels.
const (
	FeedbackHelpful   = "helpful"
	FeedbackUnhelpful = "unhelpful"
)

// AutofillEvent is one completed autofill run. Rows are append-only except
// for the feedback columns, which arrive later.
type AutofillEvent struct {
	ID         string `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Host       string `gorm:"column:host;not null;index:idx_autofill_events_form,priority:1" json:"host"`
	SchemaHash string `gorm:"column:schema_hash;not null;index:idx_autofill_events_form,priority:2" json:"schema_hash"`

	// Derived once at write time and never recomputed.
	FamilyKey  *string `gorm:"column:family_key;index" json:"family_key"`
	SegmentKey *string `gorm:"column:segment_key" json:"segment_key"`
	JobTitle   *string `gorm:"column:job_title" json:"job_title,omitempty"`

	SuggestedMap datatypes.JSONMap `gorm:"column:suggested_map;type:jsonb" json:"suggested_map"`
	FinalMap     datatypes.JSONMap `gorm:"column:final_map;type:jsonb" json:"final_map"`
	FieldMap     datatypes.JSONMap `gorm:"column:field_map;type:jsonb" json:"field_map,omitempty"`

	CharsAdded   int               `gorm:"column:chars_added;not null;default:0" json:"chars_added"`
	CharsDeleted int               `gorm:"column:chars_deleted;not null;default:0" json:"chars_deleted"`
	PerField     datatypes.JSONMap `gorm:"column:per_field;type:jsonb" json:"per_field"`
	DurationMs   int               `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`

	GenStyleID *string `gorm:"column:gen_style_id;index" json:"gen_style_id"`
	Policy     string  `gorm:"column:policy;not null" json:"policy"`
	Status     string  `gorm:"column:status;not null" json:"status"`

	FeedbackStatus *string    `gorm:"column:feedback_status" json:"feedback_status"`
	FeedbackAt     *time.Time `gorm:"column:feedback_at" json:"feedback_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (AutofillEvent) TableName() string {
	return "autofill_events"
}

// FormID identifies the form an event belongs to.
func (e AutofillEvent) FormID() string {
	return FormID(e.Host, e.SchemaHash)
}

// EditChars is the total edit volume of the run.
func (e AutofillEvent) EditChars() int {
	return e.CharsAdded + e.CharsDeleted
}

// FormID joins host and schema hash into the form identifier.
func FormID(host, schemaHash string) string {
	return host + "|" + schemaHash
}
