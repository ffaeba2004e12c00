package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"autofillTuner/business/learning"
	"autofillTuner/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FormProfileRepository struct {
	DB *gorm.DB
}

var (
	_ learning.FormProfileRepository = (*FormProfileRepository)(nil)
	_ learning.ProfileWriter         = (*FormProfileRepository)(nil)
)

func NewFormProfileRepository(db *gorm.DB) *FormProfileRepository {
	return &FormProfileRepository{DB: db}
}

func (r *FormProfileRepository) FindProfile(ctx context.Context, host, schemaHash string) (domain.FormProfile, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.FormProfile{}, false, fmt.Errorf("context error: %w", err)
	}

	var row domain.FormProfile
	err := r.DB.WithContext(ctx).
		Where("host = ? AND schema_hash = ?", host, schemaHash).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.FormProfile{}, false, nil
	}
	if err != nil {
		return domain.FormProfile{}, false, fmt.Errorf("failed to query form_profiles: %w", err)
	}

	if len(row.StyleHintRaw) > 0 && string(row.StyleHintRaw) != "null" {
		var hint domain.StyleHint
		if err := json.Unmarshal(row.StyleHintRaw, &hint); err != nil {
			return domain.FormProfile{}, false, fmt.Errorf("failed to unmarshal style_hint: %w", err)
		}
		row.StyleHint = &hint
	}
	if row.CanonicalMap == nil {
		row.CanonicalMap = datatypes.JSONMap{}
	}

	return row, true, nil
}

// ReplaceProfile overwrites every column of the form's row in one upsert.
func (r *FormProfileRepository) ReplaceProfile(ctx context.Context, profile domain.FormProfile) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	// JSON null rather than SQL NULL keeps the column scannable
	profile.StyleHintRaw = datatypes.JSON("null")
	if profile.StyleHint != nil {
		raw, err := json.Marshal(profile.StyleHint)
		if err != nil {
			return fmt.Errorf("failed to marshal style_hint: %w", err)
		}
		profile.StyleHintRaw = datatypes.JSON(raw)
	}
	if profile.CanonicalMap == nil {
		profile.CanonicalMap = datatypes.JSONMap{}
	}

	if err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "host"}, {Name: "schema_hash"}},
			UpdateAll: true,
		},
	).Create(&profile).Error; err != nil {
		return fmt.Errorf("failed to upsert form_profiles: %w", err)
	}

	return nil
}

// StaleProfiles returns the keys of profiles with runs that were written
// before the given time. Emptied profiles have no runs and are not listed
// again.
func (r *FormProfileRepository) StaleProfiles(ctx context.Context, before time.Time) ([]domain.FormProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.FormProfile
	err := r.DB.WithContext(ctx).
		Select("host", "schema_hash", "updated_at").
		Where("updated_at < ? AND total_runs > 0", before).
		Order("host, schema_hash").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stale form_profiles: %w", err)
	}

	return rows, nil
}
