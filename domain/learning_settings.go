package domain

import "time"

const SettingsScopeGlobal = "global"

// LearningSettings overrides the environment thresholds at runtime. Nil
// fields fall back to the configured defaults.
type LearningSettings struct {
	Scope string `gorm:"column:scope;primaryKey" json:"scope"`

	MinFormRuns     *int     `gorm:"column:min_form_runs" json:"min_form_runs"`
	MinSegmentRuns  *int     `gorm:"column:min_segment_runs" json:"min_segment_runs"`
	MinFamilyRuns   *int     `gorm:"column:min_family_runs" json:"min_family_runs"`
	MinSuccessRate  *float64 `gorm:"column:min_success_rate" json:"min_success_rate"`
	MaxAvgEditChars *float64 `gorm:"column:max_avg_edit_chars" json:"max_avg_edit_chars"`
	BanditEpsilon   *float64 `gorm:"column:bandit_epsilon" json:"bandit_epsilon"`
	BanditEnabled   *bool    `gorm:"column:bandit_enabled" json:"bandit_enabled"`
	LookbackDays    *int     `gorm:"column:lookback_days" json:"lookback_days"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (LearningSettings) TableName() string {
	return "learning_settings"
}
