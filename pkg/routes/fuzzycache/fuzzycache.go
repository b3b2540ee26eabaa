package fuzzycache

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/fuzzycache"
)

// Register registers fuzzy cache inspection routes
func Register(g *echo.Group) {
	g.GET("", ListNamespaces)
	g.GET("/:namespace", GetNamespace)
	g.DELETE("/:namespace", PurgeNamespace)
}

// ListNamespaces lists the namespaces that have cached fuzzy matches
func ListNamespaces(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, repo, err := ectoinject.GetContext[*fuzzycache.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	namespaces, err := repo.Namespaces(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"namespaces": namespaces})
}

// GetNamespace returns the cached source-to-match mapping for a namespace
func GetNamespace(c echo.Context) error {
	ctx := c.Request().Context()

	namespace := c.Param("namespace")

	ctx, repo, err := ectoinject.GetContext[*fuzzycache.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	mapping, err := repo.Load(ctx, namespace)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"namespace": namespace,
		"entries":   mapping,
	})
}

// PurgeNamespace drops all cached fuzzy matches for a namespace so the next
// run re-scores everything.
func PurgeNamespace(c echo.Context) error {
	ctx := c.Request().Context()

	namespace := c.Param("namespace")

	ctx, repo, err := ectoinject.GetContext[*fuzzycache.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	deleted, err := repo.Purge(ctx, namespace)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"namespace": namespace,
		"deleted":   deleted,
	})
}
