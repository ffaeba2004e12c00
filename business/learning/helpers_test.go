package learning

import (
	"time"

	"autofillTuner/domain"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type eventOpt func(*domain.AutofillEvent)

func withFamily(f string) eventOpt {
	return func(e *domain.AutofillEvent) { e.FamilyKey = strPtr(f) }
}

func withSegment(s string) eventOpt {
	return func(e *domain.AutofillEvent) { e.SegmentKey = strPtr(s) }
}

func withFeedback(f string) eventOpt {
	return func(e *domain.AutofillEvent) { e.FeedbackStatus = strPtr(f) }
}

func withStatus(s string) eventOpt {
	return func(e *domain.AutofillEvent) { e.Status = s }
}

func withEdits(added, deleted int) eventOpt {
	return func(e *domain.AutofillEvent) {
		e.CharsAdded = added
		e.CharsDeleted = deleted
	}
}

func withFieldMap(m map[string]any) eventOpt {
	return func(e *domain.AutofillEvent) { e.FieldMap = m }
}

func newEvent(host, schemaHash, style string, opts ...eventOpt) domain.AutofillEvent {
	ev := domain.AutofillEvent{
		ID:         "ev",
		Host:       host,
		SchemaHash: schemaHash,
		Policy:     domain.PolicyExploit,
		Status:     domain.StatusOK,
		CreatedAt:  testNow.Add(-time.Hour),
	}
	if style != "" {
		ev.GenStyleID = strPtr(style)
	}
	for _, o := range opts {
		o(&ev)
	}
	return ev
}

// styleRuns returns n events for one style, the first helpful of them marked
// helpful and the rest unhelpful.
func styleRuns(host, schemaHash, style string, n, helpful int, opts ...eventOpt) []domain.AutofillEvent {
	out := make([]domain.AutofillEvent, 0, n)
	for i := 0; i < n; i++ {
		fb := domain.FeedbackUnhelpful
		if i < helpful {
			fb = domain.FeedbackHelpful
		}
		out = append(out, newEvent(host, schemaHash, style, append(opts, withFeedback(fb))...))
	}
	return out
}

func defaultThresholds() Thresholds {
	return DefaultSettings().Thresholds
}
