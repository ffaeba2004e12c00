package learning

import (
	"context"
	"errors"
	"testing"

	"autofillTuner/domain"
	"autofillTuner/pkg/config"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.LearningConfig{
		MinFormRuns:     3,
		MinSegmentRuns:  4,
		MinFamilyRuns:   9,
		MinSuccessRate:  0.5,
		MaxAvgEditChars: 250,
		BanditEpsilon:   0.2,
		BanditEnabled:   false,
		LookbackDays:    7,
	})

	assert.Equal(t, 3, s.MinFormRuns)
	assert.Equal(t, 4, s.MinSegmentRuns)
	assert.Equal(t, 9, s.MinFamilyRuns)
	assert.InDelta(t, 0.5, s.MinSuccessRate, 1e-9)
	assert.InDelta(t, 250, s.MaxAvgEditChars, 1e-9)
	assert.InDelta(t, 0.2, s.BanditEpsilon, 1e-9)
	assert.False(t, s.BanditEnabled)
	assert.Equal(t, 7, s.LookbackDays)
}

func TestSettingsLoader_DefaultsWithoutRow(t *testing.T) {
	loader := NewSettingsLoader(&memSettingsRepo{}, DefaultSettings())
	assert.Equal(t, DefaultSettings(), loader.Load(context.Background()))

	overrides, err := loader.Overrides(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SettingsScopeGlobal, overrides.Scope)
	assert.Nil(t, overrides.MinFormRuns)
}

func TestSettingsLoader_DefaultsOnStoreError(t *testing.T) {
	repo := &memSettingsRepo{getErr: errors.New("down")}
	loader := NewSettingsLoader(repo, DefaultSettings())

	assert.Equal(t, DefaultSettings(), loader.Load(context.Background()))

	_, err := loader.Overrides(context.Background())
	assert.True(t, eris.Is(err, ErrUpstreamUnavailable))
}

func TestSettingsLoader_MergesOverrides(t *testing.T) {
	repo := &memSettingsRepo{}
	loader := NewSettingsLoader(repo, DefaultSettings())

	effective, err := loader.SaveOverrides(context.Background(), domain.LearningSettings{
		Scope:         "ignored",
		MinFormRuns:   intPtr(3),
		BanditEpsilon: floatPtr(0.3),
		BanditEnabled: boolPtr(false),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, effective.MinFormRuns)
	assert.InDelta(t, 0.3, effective.BanditEpsilon, 1e-9)
	assert.False(t, effective.BanditEnabled)
	// untouched knobs keep their defaults
	assert.Equal(t, 10, effective.MinFamilyRuns)
	assert.Equal(t, domain.SettingsScopeGlobal, repo.row.Scope)

	assert.Equal(t, effective, loader.Load(context.Background()))

	opts := loader.PolicyOptions(context.Background())
	assert.InDelta(t, 0.3, opts.Epsilon, 1e-9)
	assert.False(t, opts.Enabled)
}

func TestSettingsLoader_RejectsInvalidOverrides(t *testing.T) {
	tests := []struct {
		name string
		row  domain.LearningSettings
	}{
		{"zero form runs", domain.LearningSettings{MinFormRuns: intPtr(0)}},
		{"negative family runs", domain.LearningSettings{MinFamilyRuns: intPtr(-1)}},
		{"success rate above one", domain.LearningSettings{MinSuccessRate: floatPtr(1.5)}},
		{"negative edit limit", domain.LearningSettings{MaxAvgEditChars: floatPtr(-1)}},
		{"epsilon above one", domain.LearningSettings{BanditEpsilon: floatPtr(1.01)}},
		{"zero lookback", domain.LearningSettings{LookbackDays: intPtr(0)}},
		{"lookback beyond retention", domain.LearningSettings{LookbackDays: intPtr(91)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memSettingsRepo{}
			_, err := NewSettingsLoader(repo, DefaultSettings()).WithRetention(90).SaveOverrides(context.Background(), tt.row)

			assert.True(t, eris.Is(err, ErrValidation))
			assert.Nil(t, repo.row)
		})
	}
}

func TestSettingsLoader_LookbackWithinRetention(t *testing.T) {
	effective, err := NewSettingsLoader(&memSettingsRepo{}, DefaultSettings()).WithRetention(90).
		SaveOverrides(context.Background(), domain.LearningSettings{LookbackDays: intPtr(90)})
	require.NoError(t, err)
	assert.Equal(t, 90, effective.LookbackDays)

	// no retention means events are never pruned
	effective, err = NewSettingsLoader(&memSettingsRepo{}, DefaultSettings()).
		SaveOverrides(context.Background(), domain.LearningSettings{LookbackDays: intPtr(365)})
	require.NoError(t, err)
	assert.Equal(t, 365, effective.LookbackDays)
}

func TestSettingsLoader_SaveStoreError(t *testing.T) {
	repo := &memSettingsRepo{putErr: errors.New("read only")}
	_, err := NewSettingsLoader(repo, DefaultSettings()).SaveOverrides(context.Background(), domain.LearningSettings{})
	assert.True(t, eris.Is(err, ErrUpstreamUnavailable))
}

func TestSettingsLoader_NilRepo(t *testing.T) {
	loader := NewSettingsLoader(nil, DefaultSettings())
	assert.Equal(t, DefaultSettings(), loader.Load(context.Background()))
}
