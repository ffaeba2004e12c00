package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"autofillTuner/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var baseTime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func storedEvent(createdAt time.Time) domain.AutofillEvent {
	return domain.AutofillEvent{
		ID:           uuid.NewString(),
		Host:         "boards.greenhouse.io",
		SchemaHash:   "s1",
		FamilyKey:    strPtr("greenhouse"),
		SegmentKey:   strPtr("senior"),
		SuggestedMap: datatypes.JSONMap{"#name": "Ada"},
		FinalMap:     datatypes.JSONMap{"#name": "Ada L."},
		FieldMap:     datatypes.JSONMap{"#name": "full_name"},
		CharsAdded:   3,
		PerField:     datatypes.JSONMap{"#name": 3},
		DurationMs:   900,
		GenStyleID:   strPtr("concise"),
		Policy:       domain.PolicyExploit,
		Status:       domain.StatusOK,
		CreatedAt:    createdAt,
	}
}

func TestAutofillEventRepository_AppendAndScan(t *testing.T) {
	repo := NewAutofillEventRepository(newTestDB(t))
	ctx := context.Background()

	old := storedEvent(baseTime.AddDate(0, 0, -40))
	recent := []domain.AutofillEvent{storedEvent(baseTime), storedEvent(baseTime.Add(-time.Hour)), old}
	require.NoError(t, repo.AppendBatch(ctx, recent))

	var got []domain.AutofillEvent
	err := repo.ScanRecent(ctx, baseTime.AddDate(0, 0, -30), func(ev domain.AutofillEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	for _, ev := range got {
		assert.NotEqual(t, old.ID, ev.ID)
		assert.Equal(t, "greenhouse", *ev.FamilyKey)
		assert.Equal(t, "full_name", ev.FieldMap["#name"])
		assert.Equal(t, "Ada L.", ev.FinalMap["#name"])
		assert.Equal(t, 3, ev.CharsAdded)
		assert.Nil(t, ev.FeedbackStatus)
	}
}

func TestAutofillEventRepository_AppendIsAllOrNothing(t *testing.T) {
	repo := NewAutofillEventRepository(newTestDB(t))
	ctx := context.Background()

	first := storedEvent(baseTime)
	require.NoError(t, repo.AppendBatch(ctx, []domain.AutofillEvent{first}))

	// the duplicate id fails the second insert and rolls back the fresh one
	err := repo.AppendBatch(ctx, []domain.AutofillEvent{storedEvent(baseTime), first})
	require.Error(t, err)

	count := 0
	require.NoError(t, repo.ScanRecent(ctx, time.Time{}, func(domain.AutofillEvent) error {
		count++
		return nil
	}))
	assert.Equal(t, 1, count)
}

func TestAutofillEventRepository_UpdateFeedback(t *testing.T) {
	repo := NewAutofillEventRepository(newTestDB(t))
	ctx := context.Background()

	ev := storedEvent(baseTime)
	require.NoError(t, repo.AppendBatch(ctx, []domain.AutofillEvent{ev}))

	found, err := repo.UpdateFeedback(ctx, ev.ID, domain.FeedbackHelpful, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.UpdateFeedback(ctx, uuid.NewString(), domain.FeedbackHelpful, baseTime)
	require.NoError(t, err)
	assert.False(t, found)

	var got domain.AutofillEvent
	require.NoError(t, repo.ScanRecent(ctx, time.Time{}, func(e domain.AutofillEvent) error {
		got = e
		return nil
	}))
	require.NotNil(t, got.FeedbackStatus)
	assert.Equal(t, domain.FeedbackHelpful, *got.FeedbackStatus)
	require.NotNil(t, got.FeedbackAt)
}

func TestAutofillEventRepository_ScanStopsOnCallbackError(t *testing.T) {
	repo := NewAutofillEventRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.AppendBatch(ctx, []domain.AutofillEvent{storedEvent(baseTime), storedEvent(baseTime)}))

	stop := errors.New("stop")
	calls := 0
	err := repo.ScanRecent(ctx, time.Time{}, func(domain.AutofillEvent) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestAutofillEventRepository_CancelledContext(t *testing.T) {
	repo := NewAutofillEventRepository(newTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, repo.AppendBatch(ctx, []domain.AutofillEvent{storedEvent(baseTime)}))
}

func TestAutofillEventRepository_DeleteOlderThan(t *testing.T) {
	repo := NewAutofillEventRepository(newTestDB(t))
	ctx := context.Background()

	cutoff := baseTime.AddDate(0, 0, -90)
	events := []domain.AutofillEvent{
		storedEvent(cutoff.AddDate(0, 0, -3)),
		storedEvent(cutoff.AddDate(0, 0, -2)),
		storedEvent(cutoff.AddDate(0, 0, -1)),
		storedEvent(baseTime),
	}
	require.NoError(t, repo.AppendBatch(ctx, events))

	n, err := repo.DeleteOlderThan(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.DeleteOlderThan(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left []string
	require.NoError(t, repo.ScanRecent(ctx, time.Time{}, func(ev domain.AutofillEvent) error {
		left = append(left, ev.ID)
		return nil
	}))
	assert.Equal(t, []string{events[3].ID}, left)
}
