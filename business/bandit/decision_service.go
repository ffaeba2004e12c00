package bandit

import (
	"context"
	"fmt"

	"autofillTuner/domain"
	"autofillTuner/pkg/logger"
)

// StyleHintLookup returns the quality-gated style hint for a form, nil when
// there is no profile or no recommendation.
type StyleHintLookup interface {
	LookupStyleHint(ctx context.Context, host, schemaHash string) (*domain.StyleHint, error)
}

// OptionsSource yields the current epsilon and kill switch.
type OptionsSource interface {
	PolicyOptions(ctx context.Context) Options
}

// DecisionResult is a decision plus the hint it was based on.
type DecisionResult struct {
	Decision
	Source string `json:"source,omitempty"`
}

// DecisionService runs the policy server-side for clients that cannot.
type DecisionService struct {
	hints   StyleHintLookup
	options OptionsSource
	rng     Source
}

func NewDecisionService(hints StyleHintLookup, options OptionsSource, rng Source) *DecisionService {
	return &DecisionService{hints: hints, options: options, rng: rng}
}

func (s *DecisionService) Decide(ctx context.Context, host, schemaHash string) (DecisionResult, error) {
	if err := ctx.Err(); err != nil {
		return DecisionResult{}, fmt.Errorf("context error: %w", err)
	}

	hint, err := s.hints.LookupStyleHint(ctx, host, schemaHash)
	if err != nil {
		return DecisionResult{}, err
	}

	opts := s.options.PolicyOptions(ctx)
	decision := NewPolicy(opts, s.rng).DecideHint(hint)

	result := DecisionResult{Decision: decision}
	if hint != nil {
		result.Source = hint.Source
	}

	BanditDecisionsTotal.WithLabelValues(decision.Policy).Inc()

	styleID := ""
	if decision.StyleID != nil {
		styleID = *decision.StyleID
	}
	logger.Debug("bandit_decision",
		"trace_id", TraceIDFromContext(ctx),
		"host", host,
		"schema_hash", schemaHash,
		"style_id", styleID,
		"policy", decision.Policy,
		"source", result.Source,
		"epsilon", opts.Epsilon,
		"enabled", opts.Enabled,
	)

	return result, nil
}
