package postgres

import (
	"context"
	"errors"

	"autofillTuner/business/learning"
	"autofillTuner/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LearningSettingsRepository struct {
	DB *gorm.DB
}

var _ learning.SettingsRepository = (*LearningSettingsRepository)(nil)

func NewLearningSettingsRepository(db *gorm.DB) *LearningSettingsRepository {
	return &LearningSettingsRepository{DB: db}
}

func (r *LearningSettingsRepository) GetSettings(ctx context.Context, scope string) (domain.LearningSettings, bool, error) {
	var row domain.LearningSettings

	err := r.DB.WithContext(ctx).
		Where("scope = ?", scope).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.LearningSettings{}, false, nil
	}
	if err != nil {
		return domain.LearningSettings{}, false, err
	}

	return row, true, nil
}

func (r *LearningSettingsRepository) UpsertSettings(ctx context.Context, s domain.LearningSettings) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"min_form_runs",
				"min_segment_runs",
				"min_family_runs",
				"min_success_rate",
				"max_avg_edit_chars",
				"bandit_epsilon",
				"bandit_enabled",
				"lookback_days",
				"updated_at",
			}),
		}).
		Create(&s).Error
}
