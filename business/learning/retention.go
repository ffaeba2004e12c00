package learning

import (
	"context"
	"time"

	"autofillTuner/business/bandit"
	"autofillTuner/pkg/logger"

	"github.com/rotisserie/eris"
)

const defaultPruneBatch = 5000

// EventPruner deletes old rows from the event log.
type EventPruner interface {
	// DeleteOlderThan removes at most limit events created before cutoff
	// and reports how many went.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Pruner caps the event log by age. The window never drops below the
// effective lookback, so aggregation keeps every event it counts.
type Pruner struct {
	events        EventPruner
	settings      SettingsSource
	retentionDays int
	batch         int
	now           func() time.Time
}

func NewPruner(events EventPruner, settings SettingsSource, retentionDays, batch int) *Pruner {
	if batch <= 0 {
		batch = defaultPruneBatch
	}
	return &Pruner{
		events:        events,
		settings:      settings,
		retentionDays: retentionDays,
		batch:         batch,
		now:           time.Now,
	}
}

// Enabled is false when retention is zero or negative; the log then grows
// without bound.
func (p *Pruner) Enabled() bool {
	return p.retentionDays > 0
}

// Prune deletes events older than the retention window in batches until a
// batch comes back short.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if !p.Enabled() {
		return 0, nil
	}

	days := p.retentionDays
	if p.settings != nil {
		if lookback := p.settings.Load(ctx).LookbackDays; lookback > days {
			logger.Warn("event retention shorter than lookback, keeping the lookback window",
				"trace_id", bandit.TraceIDFromContext(ctx),
				"retention_days", days,
				"lookback_days", lookback,
			)
			days = lookback
		}
	}

	cutoff := p.now().UTC().AddDate(0, 0, -days)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, eris.Wrap(err, "context error")
		}

		n, err := p.events.DeleteOlderThan(ctx, cutoff, p.batch)
		total += n
		EventsPrunedTotal.Add(float64(n))
		if err != nil {
			return total, upstreamError("prune events", err)
		}
		if n < int64(p.batch) {
			break
		}
	}

	logger.Info("event retention pass complete",
		"trace_id", bandit.TraceIDFromContext(ctx),
		"cutoff", cutoff,
		"deleted", total,
	)
	return total, nil
}
