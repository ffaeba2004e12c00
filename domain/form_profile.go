package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Granularity that supplied a style recommendation.
const (
	SourceForm    = "form"
	SourceSegment = "segment"
	SourceFamily  = "family"
)

// StyleStats is the per-style performance summary at one granularity.
type StyleStats struct {
	StyleID        string  `json:"style_id"`
	TotalRuns      int     `json:"total_runs"`
	HelpfulCount   int     `json:"helpful_count"`
	UnhelpfulCount int     `json:"unhelpful_count"`
	HelpfulRatio   float64 `json:"helpful_ratio"`
	AvgEditChars   float64 `json:"avg_edit_chars"`
}

// StyleHint is the recommendation attached to a form profile.
type StyleHint struct {
	PreferredStyleID string                `json:"preferred_style_id"`
	Source           string                `json:"source"`
	SegmentKey       *string               `json:"segment_key"`
	StyleStats       map[string]StyleStats `json:"style_stats"`
	Competitors      []string              `json:"competitors"`
}

// FormProfile is the per-form recommendation, replaced wholesale by each
// aggregation pass.
type FormProfile struct {
	Host       string `gorm:"column:host;primaryKey" json:"host"`
	SchemaHash string `gorm:"column:schema_hash;primaryKey" json:"schema_hash"`

	CanonicalMap datatypes.JSONMap `gorm:"column:canonical_map;type:jsonb" json:"canonical_map"`

	StyleHintRaw datatypes.JSON `gorm:"column:style_hint;type:jsonb" json:"-"`
	StyleHint    *StyleHint     `gorm:"-" json:"style_hint"`

	// Quality metrics over the lookback window, read by the quality gate.
	TotalRuns    int     `gorm:"column:total_runs;not null;default:0" json:"total_runs"`
	SuccessRuns  int     `gorm:"column:success_runs;not null;default:0" json:"success_runs"`
	SuccessRate  float64 `gorm:"column:success_rate;not null;default:0" json:"success_rate"`
	AvgEditChars float64 `gorm:"column:avg_edit_chars;not null;default:0" json:"avg_edit_chars"`

	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (FormProfile) TableName() string {
	return "form_profiles"
}

func (p FormProfile) FormID() string {
	return FormID(p.Host, p.SchemaHash)
}
