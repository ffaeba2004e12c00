package learning

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"autofillTuner/domain"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileServiceGetProfile(t *testing.T) {
	repo := newMemProfileRepo()
	stored := storedProfile(0.9, 12)
	repo.profiles[stored.FormID()] = stored

	svc := NewProfileService(repo, staticSettings(DefaultSettings()))

	got, err := svc.GetProfile(context.Background(), "BOARDS.greenhouse.io", formSchema)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestProfileServiceGetProfile_QualityRejected(t *testing.T) {
	repo := newMemProfileRepo()
	stored := storedProfile(0.2, 12)
	repo.profiles[stored.FormID()] = stored

	svc := NewProfileService(repo, staticSettings(DefaultSettings()))

	got, err := svc.GetProfile(context.Background(), formHost, formSchema)
	require.NoError(t, err)
	assert.Empty(t, got.CanonicalMap)
	assert.Nil(t, got.StyleHint)

	// the stored row is untouched and a looser threshold serves it again
	loose := DefaultSettings()
	loose.MinSuccessRate = 0.1
	got, err = NewProfileService(repo, staticSettings(loose)).GetProfile(context.Background(), formHost, formSchema)
	require.NoError(t, err)
	require.NotNil(t, got.StyleHint)
	assert.Equal(t, "X", got.StyleHint.PreferredStyleID)
}

func TestProfileServiceGetProfile_Errors(t *testing.T) {
	svc := NewProfileService(newMemProfileRepo(), staticSettings(DefaultSettings()))

	_, err := svc.GetProfile(context.Background(), formHost, formSchema)
	assert.True(t, eris.Is(err, ErrProfileNotFound))

	_, err = svc.GetProfile(context.Background(), "", formSchema)
	assert.True(t, eris.Is(err, ErrValidation))

	broken := newMemProfileRepo()
	broken.findErr = errors.New("timeout")
	_, err = NewProfileService(broken, staticSettings(DefaultSettings())).GetProfile(context.Background(), formHost, formSchema)
	assert.True(t, eris.Is(err, ErrUpstreamUnavailable))
}

func TestProfileServiceGetProfile_KeepsStoreCause(t *testing.T) {
	slow := newMemProfileRepo()
	slow.findErr = fmt.Errorf("failed to query form_profiles: %w", context.DeadlineExceeded)

	_, err := NewProfileService(slow, staticSettings(DefaultSettings())).GetProfile(context.Background(), formHost, formSchema)

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUpstreamUnavailable))
	assert.True(t, eris.Is(err, context.DeadlineExceeded))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "find profile")
}

func TestProfileServiceLookupStyleHint(t *testing.T) {
	repo := newMemProfileRepo()
	stored := storedProfile(0.9, 12)
	repo.profiles[stored.FormID()] = stored
	svc := NewProfileService(repo, staticSettings(DefaultSettings()))

	hint, err := svc.LookupStyleHint(context.Background(), formHost, formSchema)
	require.NoError(t, err)
	require.NotNil(t, hint)
	assert.Equal(t, "X", hint.PreferredStyleID)

	hint, err = svc.LookupStyleHint(context.Background(), "jobs.lever.co", "missing")
	require.NoError(t, err)
	assert.Nil(t, hint)
}

func TestProfileServiceEndToEnd(t *testing.T) {
	events := &memEventRepo{}
	profiles := newMemProfileRepo()
	settings := staticSettings(DefaultSettings())

	ingest := NewEventService(events, nil)
	for i := 0; i < 6; i++ {
		e := okEvent("concise")
		e.FieldMap = map[string]string{"#email": "email"}
		e.Job = &JobContext{Title: strPtr("Junior Analyst")}
		_, err := ingest.Sync(context.Background(), SyncBatch{Host: "acme.wd5.myworkdayjobs.com", SchemaHash: "h1", Events: []SyncEvent{e}})
		require.NoError(t, err)
	}

	agg := NewAggregator(events, profiles, &fakeLocker{}, settings, AggregatorOptions{})
	summary, err := agg.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FormsProcessed)

	got, err := NewProfileService(profiles, settings).GetProfile(context.Background(), "acme.wd5.myworkdayjobs.com", "h1")
	require.NoError(t, err)
	assert.Equal(t, "email", got.CanonicalMap["#email"])
	require.NotNil(t, got.StyleHint)
	assert.Equal(t, "concise", got.StyleHint.PreferredStyleID)
	assert.Equal(t, domain.SourceForm, got.StyleHint.Source)
	require.NotNil(t, got.StyleHint.SegmentKey)
	assert.Equal(t, SegmentJunior, *got.StyleHint.SegmentKey)
}
