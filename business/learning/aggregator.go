package learning

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"autofillTuner/business/bandit"
	"autofillTuner/domain"
	"autofillTuner/pkg/logger"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

const aggregationLockKey = "learning:aggregation:lock"

// EventScanner reads the event log for aggregation.
type EventScanner interface {
	ScanRecent(ctx context.Context, since time.Time, fn func(domain.AutofillEvent) error) error
}

// ProfileWriter replaces a form profile wholesale.
type ProfileWriter interface {
	ReplaceProfile(ctx context.Context, profile domain.FormProfile) error
	// StaleProfiles lists profiles that still carry runs and were last
	// written before the given time.
	StaleProfiles(ctx context.Context, before time.Time) ([]domain.FormProfile, error)
}

// Locker hands out a lock shared by every process that can run a pass.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lock, bool, error)
}

type Lock interface {
	Release(ctx context.Context) error
}

type AggregatorOptions struct {
	LockTTL time.Duration
	Workers int
}

// RunSummary reports one aggregation pass. Skipped means another pass held
// the lock and nothing was done.
type RunSummary struct {
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
	EventsScanned  int           `json:"events_scanned"`
	EventsSkipped  int           `json:"events_skipped"`
	FormsProcessed int           `json:"forms_processed"`
	FormsFailed    int           `json:"forms_failed"`
	FormsCleared   int           `json:"forms_cleared"`
	Skipped        bool          `json:"skipped"`
}

// Aggregator rebuilds every form profile from the recent event log.
type Aggregator struct {
	events   EventScanner
	profiles ProfileWriter
	locker   Locker
	settings SettingsSource
	opts     AggregatorOptions
	now      func() time.Time
}

func NewAggregator(
	events EventScanner,
	profiles ProfileWriter,
	locker Locker,
	settings SettingsSource,
	opts AggregatorOptions,
) *Aggregator {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Aggregator{
		events:   events,
		profiles: profiles,
		locker:   locker,
		settings: settings,
		opts:     opts,
		now:      time.Now,
	}
}

// Run performs one full pass. A pass already running anywhere makes this
// call return immediately with Skipped set. Per-form failures are counted in
// the summary and never fail the pass.
func (a *Aggregator) Run(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{StartedAt: a.now().UTC()}
	tid := bandit.TraceIDFromContext(ctx)

	lock, ok, err := a.locker.TryLock(ctx, aggregationLockKey, a.opts.LockTTL)
	if err != nil {
		AggregationRunsTotal.WithLabelValues("error").Inc()
		logger.Error("failed to acquire aggregation lock", "trace_id", tid, err)
		return summary, upstreamError("acquire aggregation lock", err)
	}
	if !ok {
		summary.Skipped = true
		AggregationRunsTotal.WithLabelValues("skipped").Inc()
		logger.Info("aggregation pass skipped, another pass is running", "trace_id", tid)
		return summary, nil
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			logger.Warn("failed to release aggregation lock", "trace_id", tid, err)
		}
	}()

	settings := a.settings.Load(ctx)
	since := summary.StartedAt.AddDate(0, 0, -settings.LookbackDays)

	pass := newAggregationPass()
	if err := a.events.ScanRecent(ctx, since, func(ev domain.AutofillEvent) error {
		pass.add(ev)
		return nil
	}); err != nil {
		AggregationRunsTotal.WithLabelValues("error").Inc()
		logger.Error("failed to scan autofill events", "trace_id", tid, err)
		return summary, upstreamError("scan events", err)
	}
	summary.EventsScanned = pass.scanned
	summary.EventsSkipped = pass.skipped

	profiles, buildFailed := pass.buildProfiles(settings.Thresholds, summary.StartedAt)
	writeFailed := a.writeProfiles(ctx, profiles)

	cleared, clearFailed, staleErr := a.clearStaleProfiles(ctx, pass, summary.StartedAt)
	if staleErr != nil {
		logger.Error("failed to list stale form profiles", "trace_id", tid, staleErr)
	}

	summary.FormsFailed = buildFailed + writeFailed + clearFailed
	summary.FormsProcessed = len(profiles) - writeFailed
	summary.FormsCleared = cleared
	summary.Duration = a.now().UTC().Sub(summary.StartedAt)

	result := "ok"
	if summary.FormsFailed > 0 || staleErr != nil {
		result = "partial"
		AggregationFormsFailedTotal.Add(float64(summary.FormsFailed))
	}
	AggregationRunsTotal.WithLabelValues(result).Inc()
	AggregationDuration.Observe(summary.Duration.Seconds())

	logger.Info("aggregation pass complete",
		"trace_id", tid,
		"events_scanned", summary.EventsScanned,
		"events_skipped", summary.EventsSkipped,
		"forms_processed", summary.FormsProcessed,
		"forms_failed", summary.FormsFailed,
		"forms_cleared", summary.FormsCleared,
		"duration", summary.Duration.String(),
	)

	return summary, nil
}

func (a *Aggregator) writeProfiles(ctx context.Context, profiles []domain.FormProfile) int {
	var failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(a.opts.Workers)

	for _, p := range profiles {
		g.Go(func() error {
			if err := a.profiles.ReplaceProfile(ctx, p); err != nil {
				failed.Add(1)
				logger.Error("failed to write form profile",
					"trace_id", bandit.TraceIDFromContext(ctx),
					"host", p.Host,
					"schema_hash", p.SchemaHash,
					err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(failed.Load())
}

// clearStaleProfiles empties the profiles of forms with no events left in
// the window. Forms seen by this pass keep theirs, including the ones that
// were skipped or failed to write.
func (a *Aggregator) clearStaleProfiles(ctx context.Context, pass *aggregationPass, startedAt time.Time) (cleared, failed int, err error) {
	stale, err := a.profiles.StaleProfiles(ctx, startedAt)
	if err != nil {
		return 0, 0, upstreamError("list stale profiles", err)
	}

	empty := make([]domain.FormProfile, 0, len(stale))
	for _, p := range stale {
		if _, seen := pass.forms[p.FormID()]; seen {
			continue
		}
		empty = append(empty, domain.FormProfile{
			Host:         p.Host,
			SchemaHash:   p.SchemaHash,
			CanonicalMap: datatypes.JSONMap{},
			UpdatedAt:    startedAt,
		})
	}

	failed = a.writeProfiles(ctx, empty)
	return len(empty) - failed, failed, nil
}

type formAccumulator struct {
	host       string
	schemaHash string

	families map[string]int
	segments map[string]int
	// selector -> field id -> occurrences
	fields map[string]map[string]int

	total   int
	success int
	editSum int

	err error
}

type aggregationPass struct {
	tables  StatTables
	forms   map[string]*formAccumulator
	scanned int
	skipped int
}

func newAggregationPass() *aggregationPass {
	return &aggregationPass{
		tables: NewStatTables(),
		forms:  make(map[string]*formAccumulator),
	}
}

func (p *aggregationPass) add(ev domain.AutofillEvent) {
	p.scanned++

	if ev.Host == "" || ev.SchemaHash == "" {
		p.skipped++
		logger.Debug("skipping autofill event without form identity", "event_id", ev.ID)
		return
	}

	form, ok := p.forms[ev.FormID()]
	if !ok {
		form = &formAccumulator{
			host:       ev.Host,
			schemaHash: ev.SchemaHash,
			families:   make(map[string]int),
			segments:   make(map[string]int),
			fields:     make(map[string]map[string]int),
		}
		p.forms[ev.FormID()] = form
	}

	if err := checkStoredEvent(ev); err != nil {
		p.skipped++
		if form.err == nil {
			form.err = err
		}
		return
	}

	p.tables.Add(ev)

	form.total++
	form.editSum += ev.EditChars()
	if ev.Status == domain.StatusOK && !isUnhelpful(ev) {
		form.success++
	}
	if ev.FamilyKey != nil {
		form.families[*ev.FamilyKey]++
	}
	if ev.SegmentKey != nil {
		form.segments[*ev.SegmentKey]++
	}
	if ev.Status == domain.StatusOK {
		for selector, v := range ev.FieldMap {
			fieldID, ok := v.(string)
			if !ok || fieldID == "" {
				continue
			}
			byField, ok := form.fields[selector]
			if !ok {
				byField = make(map[string]int)
				form.fields[selector] = byField
			}
			byField[fieldID]++
		}
	}
}

// buildProfiles resolves every form in form-id order. Forms that saw a
// malformed event are logged and left out.
func (p *aggregationPass) buildProfiles(th Thresholds, now time.Time) ([]domain.FormProfile, int) {
	ids := make([]string, 0, len(p.forms))
	for id := range p.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	profiles := make([]domain.FormProfile, 0, len(ids))
	failed := 0
	for _, id := range ids {
		form := p.forms[id]
		if form.err != nil {
			failed++
			logger.Warn("skipping form during aggregation",
				"host", form.host,
				"schema_hash", form.schemaHash,
				form.err,
			)
			continue
		}
		profiles = append(profiles, p.resolveForm(id, form, th, now))
	}

	return profiles, failed
}

func (p *aggregationPass) resolveForm(formID string, form *formAccumulator, th Thresholds, now time.Time) domain.FormProfile {
	identity := FormIdentity{
		FormID:     formID,
		FamilyKey:  dominantKey(form.families),
		SegmentKey: dominantKey(form.segments),
	}

	profile := domain.FormProfile{
		Host:         form.host,
		SchemaHash:   form.schemaHash,
		CanonicalMap: canonicalMap(form.fields),
		TotalRuns:    form.total,
		SuccessRuns:  form.success,
		UpdatedAt:    now,
	}
	if form.total > 0 {
		profile.SuccessRate = float64(form.success) / float64(form.total)
		profile.AvgEditChars = float64(form.editSum) / float64(form.total)
	}

	best, meta := SelectStyle(p.tables, identity, th)
	if best != nil {
		formStats := p.tables.Form.Stats(formID)
		if formStats == nil {
			formStats = map[string]domain.StyleStats{}
		}
		profile.StyleHint = &domain.StyleHint{
			PreferredStyleID: best.StyleID,
			Source:           meta.Source,
			SegmentKey:       meta.SegmentKey,
			StyleStats:       formStats,
			Competitors:      meta.Competitors,
		}
	}

	return profile
}

// dominantKey returns the most frequent key, breaking ties lexically.
func dominantKey(counts map[string]int) *string {
	var best string
	bestCount := 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	if bestCount == 0 {
		return nil
	}
	return &best
}

func canonicalMap(fields map[string]map[string]int) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(fields))
	for selector, byField := range fields {
		if fieldID := dominantKey(byField); fieldID != nil {
			out[selector] = *fieldID
		}
	}
	return out
}

func isUnhelpful(ev domain.AutofillEvent) bool {
	return ev.FeedbackStatus != nil && *ev.FeedbackStatus == domain.FeedbackUnhelpful
}

// checkStoredEvent catches rows that could not have passed ingestion, such
// as ones written by older clients or edited by hand.
func checkStoredEvent(ev domain.AutofillEvent) error {
	switch {
	case ev.DurationMs < 0:
		return eris.Errorf("event %s: negative duration", ev.ID)
	case ev.CharsAdded < 0 || ev.CharsDeleted < 0:
		return eris.Errorf("event %s: negative edit stats", ev.ID)
	}

	switch ev.Status {
	case domain.StatusOK, domain.StatusValidationError, domain.StatusCancelled, domain.StatusError:
	default:
		return eris.Errorf("event %s: unknown status %q", ev.ID, ev.Status)
	}

	switch ev.Policy {
	case domain.PolicyExploit, domain.PolicyExplore, domain.PolicyFallback:
	default:
		return eris.Errorf("event %s: unknown policy %q", ev.ID, ev.Policy)
	}

	if ev.FeedbackStatus != nil {
		switch *ev.FeedbackStatus {
		case domain.FeedbackHelpful, domain.FeedbackUnhelpful:
		default:
			return eris.Errorf("event %s: unknown feedback status %q", ev.ID, *ev.FeedbackStatus)
		}
	}

	return nil
}
