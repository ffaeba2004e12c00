package learning

import (
	"context"
	"fmt"

	"autofillTuner/business/bandit"
	"autofillTuner/domain"
	"autofillTuner/pkg/config"
	"autofillTuner/pkg/logger"
)

// Thresholds gate both style selection (run floors) and profile reads
// (quality limits).
type Thresholds struct {
	MinFormRuns     int     `json:"min_form_runs"`
	MinSegmentRuns  int     `json:"min_segment_runs"`
	MinFamilyRuns   int     `json:"min_family_runs"`
	MinSuccessRate  float64 `json:"min_success_rate"`
	MaxAvgEditChars float64 `json:"max_avg_edit_chars"`
}

type Settings struct {
	Thresholds
	BanditEpsilon float64 `json:"bandit_epsilon"`
	BanditEnabled bool    `json:"bandit_enabled"`
	LookbackDays  int     `json:"lookback_days"`
}

const (
	defaultMinFormRuns     = 5
	defaultMinSegmentRuns  = 5
	defaultMinFamilyRuns   = 10
	defaultMinSuccessRate  = 0.6
	defaultMaxAvgEditChars = 500
	defaultBanditEpsilon   = 0.15
	defaultLookbackDays    = 30
)

func DefaultSettings() Settings {
	return Settings{
		Thresholds: Thresholds{
			MinFormRuns:     defaultMinFormRuns,
			MinSegmentRuns:  defaultMinSegmentRuns,
			MinFamilyRuns:   defaultMinFamilyRuns,
			MinSuccessRate:  defaultMinSuccessRate,
			MaxAvgEditChars: defaultMaxAvgEditChars,
		},
		BanditEpsilon: defaultBanditEpsilon,
		BanditEnabled: true,
		LookbackDays:  defaultLookbackDays,
	}
}

// SettingsFromConfig lifts the environment values into Settings.
func SettingsFromConfig(c config.LearningConfig) Settings {
	return Settings{
		Thresholds: Thresholds{
			MinFormRuns:     c.MinFormRuns,
			MinSegmentRuns:  c.MinSegmentRuns,
			MinFamilyRuns:   c.MinFamilyRuns,
			MinSuccessRate:  c.MinSuccessRate,
			MaxAvgEditChars: c.MaxAvgEditChars,
		},
		BanditEpsilon: c.BanditEpsilon,
		BanditEnabled: c.BanditEnabled,
		LookbackDays:  c.LookbackDays,
	}
}

// SettingsRepository reads and writes runtime overrides.
type SettingsRepository interface {
	GetSettings(ctx context.Context, scope string) (domain.LearningSettings, bool, error)
	UpsertSettings(ctx context.Context, s domain.LearningSettings) error
}

// SettingsLoader merges stored overrides on top of the configured defaults.
type SettingsLoader struct {
	repo          SettingsRepository
	defaultCfg    Settings
	retentionDays int
}

func NewSettingsLoader(repo SettingsRepository, defaultCfg Settings) *SettingsLoader {
	return &SettingsLoader{repo: repo, defaultCfg: defaultCfg}
}

// WithRetention bounds lookback_days overrides by the event retention
// window. Zero means events are kept forever and leaves lookback unbounded.
func (l *SettingsLoader) WithRetention(days int) *SettingsLoader {
	l.retentionDays = days
	return l
}

// Load never fails: a missing row or an unreachable store yields defaults.
func (l *SettingsLoader) Load(ctx context.Context) Settings {
	if l.repo == nil {
		return l.defaultCfg
	}

	row, ok, err := l.repo.GetSettings(ctx, domain.SettingsScopeGlobal)
	if err != nil {
		logger.Warn("failed to load learning settings, using defaults", "trace_id", bandit.TraceIDFromContext(ctx), err)
		return l.defaultCfg
	}
	if !ok {
		return l.defaultCfg
	}

	return mergeSettings(l.defaultCfg, row)
}

// PolicyOptions exposes the bandit knobs to the decision service.
func (l *SettingsLoader) PolicyOptions(ctx context.Context) bandit.Options {
	s := l.Load(ctx)
	return bandit.Options{Epsilon: s.BanditEpsilon, Enabled: s.BanditEnabled}
}

// Overrides returns the stored row, or an empty global row when none exists.
func (l *SettingsLoader) Overrides(ctx context.Context) (domain.LearningSettings, error) {
	row, ok, err := l.repo.GetSettings(ctx, domain.SettingsScopeGlobal)
	if err != nil {
		return domain.LearningSettings{}, upstreamError("get settings", err)
	}
	if !ok {
		return domain.LearningSettings{Scope: domain.SettingsScopeGlobal}, nil
	}
	return row, nil
}

// SaveOverrides validates and stores a new override row.
func (l *SettingsLoader) SaveOverrides(ctx context.Context, row domain.LearningSettings) (Settings, error) {
	row.Scope = domain.SettingsScopeGlobal

	if err := validateOverrides(row, l.retentionDays); err != nil {
		return Settings{}, err
	}

	if err := l.repo.UpsertSettings(ctx, row); err != nil {
		return Settings{}, upstreamError("upsert settings", err)
	}

	logger.Info("learning settings updated", "trace_id", bandit.TraceIDFromContext(ctx))

	return mergeSettings(l.defaultCfg, row), nil
}

func mergeSettings(base Settings, row domain.LearningSettings) Settings {
	out := base
	if row.MinFormRuns != nil {
		out.MinFormRuns = *row.MinFormRuns
	}
	if row.MinSegmentRuns != nil {
		out.MinSegmentRuns = *row.MinSegmentRuns
	}
	if row.MinFamilyRuns != nil {
		out.MinFamilyRuns = *row.MinFamilyRuns
	}
	if row.MinSuccessRate != nil {
		out.MinSuccessRate = *row.MinSuccessRate
	}
	if row.MaxAvgEditChars != nil {
		out.MaxAvgEditChars = *row.MaxAvgEditChars
	}
	if row.BanditEpsilon != nil {
		out.BanditEpsilon = *row.BanditEpsilon
	}
	if row.BanditEnabled != nil {
		out.BanditEnabled = *row.BanditEnabled
	}
	if row.LookbackDays != nil {
		out.LookbackDays = *row.LookbackDays
	}
	return out
}

func validateOverrides(row domain.LearningSettings, retentionDays int) error {
	for name, v := range map[string]*int{
		"min_form_runs":    row.MinFormRuns,
		"min_segment_runs": row.MinSegmentRuns,
		"min_family_runs":  row.MinFamilyRuns,
	} {
		if v != nil && *v < 1 {
			return validationError(name + " must be at least 1")
		}
	}
	if row.LookbackDays != nil && *row.LookbackDays < 1 {
		return validationError("lookback_days must be at least 1")
	}
	if row.LookbackDays != nil && retentionDays > 0 && *row.LookbackDays > retentionDays {
		return validationError(fmt.Sprintf("lookback_days must not exceed the %d day event retention", retentionDays))
	}
	if row.MinSuccessRate != nil && (*row.MinSuccessRate < 0 || *row.MinSuccessRate > 1) {
		return validationError("min_success_rate must be within [0, 1]")
	}
	if row.MaxAvgEditChars != nil && *row.MaxAvgEditChars < 0 {
		return validationError("max_avg_edit_chars must not be negative")
	}
	if row.BanditEpsilon != nil && (*row.BanditEpsilon < 0 || *row.BanditEpsilon > 1) {
		return validationError("bandit_epsilon must be within [0, 1]")
	}
	return nil
}
