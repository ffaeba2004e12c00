package rest

import (
	"context"
	"net/http"
	"time"

	"autofillTuner/business/bandit"
	"autofillTuner/business/learning"
	"autofillTuner/domain"
	"autofillTuner/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/rotisserie/eris"
)

type ResponseError struct {
	Message string `json:"message"`
}

type (
	LearningHandler struct {
		events    LearningEventService
		profiles  LearningProfileService
		decisions LearningDecisionService
		timeout   time.Duration
	}

	LearningEventService interface {
		Sync(ctx context.Context, batch learning.SyncBatch) ([]string, error)
		RecordFeedback(ctx context.Context, eventID, status string) error
	}

	LearningProfileService interface {
		GetProfile(ctx context.Context, host, schemaHash string) (domain.FormProfile, error)
	}

	LearningDecisionService interface {
		Decide(ctx context.Context, host, schemaHash string) (bandit.DecisionResult, error)
	}

	SyncRequest struct {
		Host       string             `json:"host"`
		SchemaHash string             `json:"schema_hash"`
		Events     []SyncEventRequest `json:"events"`
	}

	SyncEventRequest struct {
		SuggestedMap   map[string]any     `json:"suggested_map"`
		FinalMap       map[string]any     `json:"final_map"`
		FieldMap       map[string]string  `json:"field_map"`
		EditStats      *EditStatsRequest  `json:"edit_stats"`
		DurationMs     int                `json:"duration_ms"`
		GenStyleID     *string            `json:"gen_style_id"`
		Policy         string             `json:"policy"`
		Status         string             `json:"status"`
		FeedbackStatus *string            `json:"feedback_status"`
		Job            *JobContextRequest `json:"job"`
	}

	EditStatsRequest struct {
		TotalCharsAdded   int            `json:"total_chars_added"`
		TotalCharsDeleted int            `json:"total_chars_deleted"`
		PerField          map[string]any `json:"per_field"`
	}

	JobContextRequest struct {
		Title *string `json:"title"`
	}

	SyncResponse struct {
		Synced   bool     `json:"synced"`
		EventIDs []string `json:"event_ids"`
	}

	FormQuery struct {
		Host       string `query:"host"`
		SchemaHash string `query:"schema_hash"`
	}

	ProfileResponse struct {
		Host         string            `json:"host"`
		SchemaHash   string            `json:"schema_hash"`
		CanonicalMap map[string]any    `json:"canonical_map"`
		StyleHint    *domain.StyleHint `json:"style_hint"`
	}

	FeedbackRequest struct {
		EventID        string `json:"event_id"`
		FeedbackStatus string `json:"feedback_status"`
	}
)

func NewLearningHandler(
	events LearningEventService,
	profiles LearningProfileService,
	decisions LearningDecisionService,
) *LearningHandler {
	return &LearningHandler{
		events:    events,
		profiles:  profiles,
		decisions: decisions,
		timeout:   10 * time.Second,
	}
}

// POST /learning/sync
func (h *LearningHandler) Sync(c echo.Context) error {
	var req SyncRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	ids, err := h.events.Sync(ctx, req.toBatch())
	if err != nil {
		return writeServiceError(c, "learning sync failed", err)
	}

	return c.JSON(http.StatusAccepted, SyncResponse{Synced: true, EventIDs: ids})
}

// GET /learning/profile?host=&schema_hash=
func (h *LearningHandler) Profile(c echo.Context) error {
	var q FormQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	profile, err := h.profiles.GetProfile(ctx, q.Host, q.SchemaHash)
	if err != nil {
		return writeServiceError(c, "learning profile read failed", err)
	}

	canonical := map[string]any(profile.CanonicalMap)
	if canonical == nil {
		canonical = map[string]any{}
	}

	return c.JSON(http.StatusOK, ProfileResponse{
		Host:         profile.Host,
		SchemaHash:   profile.SchemaHash,
		CanonicalMap: canonical,
		StyleHint:    profile.StyleHint,
	})
}

// POST /learning/feedback
func (h *LearningHandler) Feedback(c echo.Context) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.events.RecordFeedback(ctx, req.EventID, req.FeedbackStatus); err != nil {
		return writeServiceError(c, "learning feedback failed", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"recorded": true})
}

// GET /learning/decision?host=&schema_hash=
func (h *LearningHandler) Decision(c echo.Context) error {
	var q FormQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	result, err := h.decisions.Decide(ctx, q.Host, q.SchemaHash)
	if err != nil {
		return writeServiceError(c, "learning decision failed", err)
	}

	return c.JSON(http.StatusOK, result)
}

func (r SyncRequest) toBatch() learning.SyncBatch {
	batch := learning.SyncBatch{
		Host:       r.Host,
		SchemaHash: r.SchemaHash,
		Events:     make([]learning.SyncEvent, 0, len(r.Events)),
	}

	for _, e := range r.Events {
		ev := learning.SyncEvent{
			SuggestedMap:   e.SuggestedMap,
			FinalMap:       e.FinalMap,
			FieldMap:       e.FieldMap,
			DurationMs:     e.DurationMs,
			GenStyleID:     e.GenStyleID,
			Policy:         e.Policy,
			Status:         e.Status,
			FeedbackStatus: e.FeedbackStatus,
		}
		if e.EditStats != nil {
			ev.EditStats = &learning.EditStats{
				CharsAdded:   e.EditStats.TotalCharsAdded,
				CharsDeleted: e.EditStats.TotalCharsDeleted,
				PerField:     e.EditStats.PerField,
			}
		}
		if e.Job != nil {
			ev.Job = &learning.JobContext{Title: e.Job.Title}
		}
		batch.Events = append(batch.Events, ev)
	}

	return batch
}

// statusFor maps service errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case eris.Is(err, learning.ErrValidation):
		return http.StatusBadRequest
	case eris.Is(err, learning.ErrEventNotFound), eris.Is(err, learning.ErrProfileNotFound):
		return http.StatusNotFound
	case eris.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case eris.Is(err, learning.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(c echo.Context, msg string, err error) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error(msg, "trace_id", bandit.TraceIDFromContext(c.Request().Context()), err)
	} else {
		logger.Debug(msg, "trace_id", bandit.TraceIDFromContext(c.Request().Context()), err)
	}

	message := err.Error()
	if code == http.StatusInternalServerError {
		message = http.StatusText(code)
	}
	return c.JSON(code, ResponseError{Message: message})
}
