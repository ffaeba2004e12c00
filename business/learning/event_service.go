package learning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autofillTuner/business/bandit"
	"autofillTuner/domain"
	"autofillTuner/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/datatypes"
)

// AutofillEventRepository is the durable event log.
type AutofillEventRepository interface {
	// AppendBatch writes all events or none.
	AppendBatch(ctx context.Context, events []domain.AutofillEvent) error
	// UpdateFeedback sets the feedback columns; found is false when no row
	// has the given id.
	UpdateFeedback(ctx context.Context, eventID, status string, at time.Time) (found bool, err error)
	// ScanRecent calls fn for every event created at or after since, from a
	// single consistent snapshot.
	ScanRecent(ctx context.Context, since time.Time, fn func(domain.AutofillEvent) error) error
}

type (
	SyncBatch struct {
		Host       string      `validate:"required,max=255"`
		SchemaHash string      `validate:"required,max=128"`
		Events     []SyncEvent `validate:"required,min=1,max=500,dive"`
	}

	SyncEvent struct {
		SuggestedMap   map[string]any    `validate:"-"`
		FinalMap       map[string]any    `validate:"-"`
		FieldMap       map[string]string `validate:"-"`
		EditStats      *EditStats        `validate:"omitempty"`
		DurationMs     int               `validate:"gte=0"`
		GenStyleID     *string           `validate:"omitempty,min=1,max=64"`
		Policy         string            `validate:"required,oneof=exploit explore fallback"`
		Status         string            `validate:"required,oneof=ok validation_error cancelled error"`
		FeedbackStatus *string           `validate:"omitempty,oneof=helpful unhelpful"`
		Job            *JobContext       `validate:"omitempty"`
	}

	JobContext struct {
		Title *string `validate:"omitempty,max=512"`
	}
)

type EventService struct {
	repo     AutofillEventRepository
	validate *validator.Validate
	now      func() time.Time
}

func NewEventService(repo AutofillEventRepository, validate *validator.Validate) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{
		repo:     repo,
		validate: validate,
		now:      time.Now,
	}
}

// Sync validates and stores a batch of events for one form. The batch is
// rejected as a whole on the first invalid event. It returns the generated
// event ids in input order.
func (s *EventService) Sync(ctx context.Context, batch SyncBatch) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "context error")
	}

	batch.Host = normalizeHost(batch.Host)
	batch.SchemaHash = strings.TrimSpace(batch.SchemaHash)

	if err := s.validate.Struct(&batch); err != nil {
		logger.Debug("rejected learning sync batch", "trace_id", bandit.TraceIDFromContext(ctx), "host", batch.Host, err)
		return nil, validationError(err.Error())
	}

	if err := checkStyleConsistency(batch.Events); err != nil {
		return nil, err
	}

	// resolved once per batch and frozen onto every event
	family := ResolveFamily(batch.Host)
	now := s.now().UTC()

	events := make([]domain.AutofillEvent, 0, len(batch.Events))
	ids := make([]string, 0, len(batch.Events))
	for _, in := range batch.Events {
		ev := s.buildEvent(batch, in, family, now)
		events = append(events, ev)
		ids = append(ids, ev.ID)
	}

	if err := s.repo.AppendBatch(ctx, events); err != nil {
		logger.Error("failed to append autofill events", "trace_id", bandit.TraceIDFromContext(ctx), "host", batch.Host, err)
		return nil, upstreamError("append events", err)
	}

	for _, ev := range events {
		AutofillEventsTotal.WithLabelValues(ev.Status, ev.Host).Inc()
	}

	logger.Debug("learning sync stored",
		"trace_id", bandit.TraceIDFromContext(ctx),
		"host", batch.Host,
		"schema_hash", batch.SchemaHash,
		"events", len(events),
	)

	return ids, nil
}

func (s *EventService) buildEvent(batch SyncBatch, in SyncEvent, family *string, now time.Time) domain.AutofillEvent {
	var title *string
	if in.Job != nil && in.Job.Title != nil {
		t := strings.TrimSpace(*in.Job.Title)
		title = &t
	}

	stats := in.EditStats
	if stats.empty() {
		derived := DiffMaps(in.SuggestedMap, in.FinalMap)
		stats = &derived
	}

	ev := domain.AutofillEvent{
		ID:           uuid.NewString(),
		Host:         batch.Host,
		SchemaHash:   batch.SchemaHash,
		FamilyKey:    family,
		SegmentKey:   ClassifySegment(title),
		JobTitle:     title,
		SuggestedMap: datatypes.JSONMap(in.SuggestedMap),
		FinalMap:     datatypes.JSONMap(in.FinalMap),
		FieldMap:     fieldMapJSON(in.FieldMap),
		CharsAdded:   stats.CharsAdded,
		CharsDeleted: stats.CharsDeleted,
		PerField:     datatypes.JSONMap(stats.PerField),
		DurationMs:   in.DurationMs,
		GenStyleID:   in.GenStyleID,
		Policy:       in.Policy,
		Status:       in.Status,
		CreatedAt:    now,
	}

	if in.FeedbackStatus != nil {
		fs := *in.FeedbackStatus
		ev.FeedbackStatus = &fs
		ev.FeedbackAt = &now
	}

	return ev
}

// RecordFeedback attaches an explicit helpful/unhelpful signal to a stored
// event. Repeating the call with the same values is a no-op.
func (s *EventService) RecordFeedback(ctx context.Context, eventID, status string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "context error")
	}

	if _, err := uuid.Parse(eventID); err != nil {
		return validationError("event_id must be a uuid")
	}
	if status != domain.FeedbackHelpful && status != domain.FeedbackUnhelpful {
		return validationError("feedback_status must be helpful or unhelpful")
	}

	found, err := s.repo.UpdateFeedback(ctx, eventID, status, s.now().UTC())
	if err != nil {
		logger.Error("failed to record feedback", "trace_id", bandit.TraceIDFromContext(ctx), "event_id", eventID, err)
		return upstreamError("update feedback", err)
	}
	if !found {
		return ErrEventNotFound
	}

	FeedbackEventsTotal.WithLabelValues(status).Inc()

	return nil
}

// Exploit and explore runs must name the style they generated with.
func checkStyleConsistency(events []SyncEvent) error {
	for i, ev := range events {
		if ev.Policy == domain.PolicyExplore && ev.GenStyleID == nil {
			return validationError(fmt.Sprintf("events[%d]: explore policy requires gen_style_id", i))
		}
		if ev.Policy == domain.PolicyExploit && ev.GenStyleID == nil {
			return validationError(fmt.Sprintf("events[%d]: exploit policy requires gen_style_id", i))
		}
	}
	return nil
}

func fieldMapJSON(m map[string]string) datatypes.JSONMap {
	if len(m) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
