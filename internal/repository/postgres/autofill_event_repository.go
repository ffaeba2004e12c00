package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"autofillTuner/business/learning"
	"autofillTuner/domain"

	"gorm.io/gorm"
)

const (
	insertBatchSize = 100
	scanBatchSize   = 1000
)

type AutofillEventRepository struct {
	DB *gorm.DB
}

var (
	_ learning.AutofillEventRepository = (*AutofillEventRepository)(nil)
	_ learning.EventPruner             = (*AutofillEventRepository)(nil)
)

func NewAutofillEventRepository(db *gorm.DB) *AutofillEventRepository {
	return &AutofillEventRepository{DB: db}
}

func (r *AutofillEventRepository) AppendBatch(ctx context.Context, events []domain.AutofillEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&events, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert autofill events: %w", err)
	}

	return nil
}

func (r *AutofillEventRepository) UpdateFeedback(ctx context.Context, eventID, status string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).
		Model(&domain.AutofillEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"feedback_status": status,
			"feedback_at":     at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update feedback: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// ScanRecent pages through events in primary-key order. On Postgres the
// pages are read inside one read-only repeatable-read transaction, so the
// whole scan sees a single snapshot.
func (r *AutofillEventRepository) ScanRecent(ctx context.Context, since time.Time, fn func(domain.AutofillEvent) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	var txOpts []*sql.TxOptions
	if r.DB.Dialector.Name() == "postgres" {
		txOpts = append(txOpts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var page []domain.AutofillEvent
		return tx.Where("created_at >= ?", since).
			FindInBatches(&page, scanBatchSize, func(_ *gorm.DB, _ int) error {
				for _, ev := range page {
					if err := fn(ev); err != nil {
						return err
					}
				}
				return nil
			}).Error
	}, txOpts...)
	if err != nil {
		return fmt.Errorf("failed to scan autofill events: %w", err)
	}

	return nil
}

func (r *AutofillEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	oldest := r.DB.Model(&domain.AutofillEvent{}).
		Select("id").
		Where("created_at < ?", cutoff).
		Order("created_at").
		Limit(limit)

	result := r.DB.WithContext(ctx).
		Where("id IN (?)", oldest).
		Delete(&domain.AutofillEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old autofill events: %w", result.Error)
	}

	return result.RowsAffected, nil
}
