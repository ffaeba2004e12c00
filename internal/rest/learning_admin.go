package rest

import (
	"context"
	"net/http"

	"autofillTuner/business/learning"
	"autofillTuner/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type (
	LearningAdminHandler struct {
		settings   SettingsService
		aggregator AggregationRunner
	}

	SettingsService interface {
		Load(ctx context.Context) learning.Settings
		Overrides(ctx context.Context) (domain.LearningSettings, error)
		SaveOverrides(ctx context.Context, row domain.LearningSettings) (learning.Settings, error)
	}

	AggregationRunner interface {
		Run(ctx context.Context) (learning.RunSummary, error)
	}

	SettingsResponse struct {
		Effective learning.Settings       `json:"effective"`
		Overrides domain.LearningSettings `json:"overrides"`
	}
)

func NewLearningAdminHandler(settings SettingsService, aggregator AggregationRunner) *LearningAdminHandler {
	return &LearningAdminHandler{
		settings:   settings,
		aggregator: aggregator,
	}
}

// GET /learning/admin/settings
func (h *LearningAdminHandler) GetSettings(c echo.Context) error {
	ctx := c.Request().Context()

	overrides, err := h.settings.Overrides(ctx)
	if err != nil {
		return writeServiceError(c, "failed to read learning settings", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(SettingsResponse{
		Effective: h.settings.Load(ctx),
		Overrides: overrides,
	}))
}

// PUT /learning/admin/settings
// body: LearningSettings JSON; omitted fields fall back to the environment.
func (h *LearningAdminHandler) UpsertSettings(c echo.Context) error {
	ctx := c.Request().Context()

	var body domain.LearningSettings
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}

	effective, err := h.settings.SaveOverrides(ctx, body)
	if err != nil {
		return writeServiceError(c, "failed to save learning settings", err)
	}

	body.Scope = domain.SettingsScopeGlobal
	return c.JSON(http.StatusOK, fres.Response.StatusOK(SettingsResponse{
		Effective: effective,
		Overrides: body,
	}))
}

// POST /learning/admin/aggregate
// Runs one pass synchronously. 409 when another pass holds the lock.
func (h *LearningAdminHandler) Aggregate(c echo.Context) error {
	// a dropped connection must not abort a pass halfway through its writes
	ctx := context.WithoutCancel(c.Request().Context())

	summary, err := h.aggregator.Run(ctx)
	if err != nil {
		return writeServiceError(c, "manual aggregation failed", err)
	}
	if summary.Skipped {
		return c.JSON(http.StatusConflict, ResponseError{Message: "aggregation already running"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}
