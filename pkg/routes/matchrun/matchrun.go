package matchrun

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/matchrun"
	clovercontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/processor"
)

// Register registers match run routes
func Register(g *echo.Group) {
	g.GET("", ListMatchRuns)
	g.GET("/:id", GetMatchRun)
	g.GET("/:id/diagnostics", GetMatchRunDiagnostics)
	g.POST("", CreateMatchRun)
}

// ListMatchRuns lists match runs for the tenant, most recent first
func ListMatchRuns(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := clovercontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var namespace *string
	if ns := c.QueryParam("namespace"); ns != "" {
		namespace = &ns
	}

	page := 1
	pageSize := 20
	if err := echo.QueryParamsBinder(c).Int("page", &page).Int("page_size", &pageSize).BindError(); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid pagination parameters")
	}

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	runs, total, err := repo.List(ctx, tenantID, namespace, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"runs":        runs,
		"total_count": total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// GetMatchRun gets a match run by ID
func GetMatchRun(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := clovercontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	run, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, run)
}

// GetMatchRunDiagnostics returns just the diagnostics payload of a run
func GetMatchRunDiagnostics(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := clovercontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	run, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if run.Status != models.MatchRunStatusCompleted {
		return httperror.NewHTTPError(http.StatusConflict, "match run has no diagnostics yet").
			AddMetaValue("status", string(run.Status))
	}

	return c.JSONBlob(http.StatusOK, run.Diagnostics)
}

// CreateMatchRun creates a match run and executes it inline. Runs for the
// same namespace are serialized by running within the request.
func CreateMatchRun(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := clovercontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateMatchRunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if len(req.Parameters) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "parameters are required")
	}
	if req.Namespace == "" {
		req.Namespace = "default"
	}

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	run, err := repo.Create(ctx, tenantID, req)
	if err != nil {
		return err
	}

	ctx = clovercontext.SetRunID(ctx, run.ID)

	ctx, runner, err := ectoinject.GetContext[*processor.RunProcessor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if _, err := runner.Execute(ctx, run); err != nil {
		// The run row already records the failure; surface the error
		return err
	}

	return c.JSON(http.StatusCreated, run)
}
