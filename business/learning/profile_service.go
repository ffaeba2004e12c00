package learning

import (
	"context"

	"autofillTuner/business/bandit"
	"autofillTuner/domain"
	"autofillTuner/pkg/logger"

	"github.com/rotisserie/eris"
)

// FormProfileRepository stores one profile per form. ReplaceProfile swaps
// the whole row in a single statement so readers never see a partial write.
type FormProfileRepository interface {
	FindProfile(ctx context.Context, host, schemaHash string) (domain.FormProfile, bool, error)
	ReplaceProfile(ctx context.Context, profile domain.FormProfile) error
}

// SettingsSource yields the effective settings for one operation.
type SettingsSource interface {
	Load(ctx context.Context) Settings
}

type ProfileService struct {
	repo     FormProfileRepository
	settings SettingsSource
}

func NewProfileService(repo FormProfileRepository, settings SettingsSource) *ProfileService {
	return &ProfileService{repo: repo, settings: settings}
}

// LookupProfile returns the quality-gated profile for a form; found is false
// when no aggregation pass has produced one yet.
func (s *ProfileService) LookupProfile(ctx context.Context, host, schemaHash string) (domain.FormProfile, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.FormProfile{}, false, eris.Wrap(err, "context error")
	}
	if host == "" || schemaHash == "" {
		return domain.FormProfile{}, false, validationError("host and schema_hash are required")
	}

	host = normalizeHost(host)

	profile, ok, err := s.repo.FindProfile(ctx, host, schemaHash)
	if err != nil {
		logger.Error("failed to read form profile", "trace_id", bandit.TraceIDFromContext(ctx), "host", host, err)
		return domain.FormProfile{}, false, upstreamError("find profile", err)
	}
	if !ok {
		ProfileReadsTotal.WithLabelValues("not_found").Inc()
		return domain.FormProfile{}, false, nil
	}

	th := s.settings.Load(ctx).Thresholds
	gated, rejected := ApplyQualityGate(profile, th)
	if rejected {
		ProfileReadsTotal.WithLabelValues("quality_rejected").Inc()
		logger.Debug("form profile withheld by quality gate",
			"trace_id", bandit.TraceIDFromContext(ctx),
			"host", host,
			"schema_hash", schemaHash,
			"success_rate", profile.SuccessRate,
			"avg_edit_chars", profile.AvgEditChars,
		)
	} else {
		ProfileReadsTotal.WithLabelValues("served").Inc()
	}

	return gated, true, nil
}

// GetProfile is LookupProfile with a missing profile reported as
// ErrProfileNotFound.
func (s *ProfileService) GetProfile(ctx context.Context, host, schemaHash string) (domain.FormProfile, error) {
	profile, ok, err := s.LookupProfile(ctx, host, schemaHash)
	if err != nil {
		return domain.FormProfile{}, err
	}
	if !ok {
		return domain.FormProfile{}, ErrProfileNotFound
	}
	return profile, nil
}

// LookupStyleHint adapts the profile store for the bandit decision service.
func (s *ProfileService) LookupStyleHint(ctx context.Context, host, schemaHash string) (*domain.StyleHint, error) {
	profile, ok, err := s.LookupProfile(ctx, host, schemaHash)
	if err != nil || !ok {
		return nil, err
	}
	return profile.StyleHint, nil
}
