package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/njvoter/gateway/pkg/warehouse"
)

// generateSQLHandler handles POST /api/v1/query/generate-sql (§6). It never
// executes the generated statement — callers run it through /query/execute
// so the guard and remapper always sit between the model's output and the
// warehouse.
func (s *Server) generateSQLHandler(c *echo.Context) error {
	var req GenerateSQLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	sql, err := s.queryGen.GenerateSQL(c.Request().Context(), req.Prompt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, &GenerateSQLResponse{SQL: sql, Prompt: req.Prompt})
}

// executeSQLHandler handles POST /api/v1/query/execute (§4.C, §6). A
// GuardReject surfaces as 422 with the guard's detail message; backend and
// timeout failures surface as 502/504 respectively (§7).
func (s *Server) executeSQLHandler(c *echo.Context) error {
	var req ExecuteSQLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SQL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sql is required")
	}

	userID, _ := extractIdentity(c)
	result, errResult := s.warehouse.Execute(c.Request().Context(), req.SQL, warehouse.CallerContext{
		UserID:  userID,
		Purpose: "http_query_execute",
	})
	if errResult != nil {
		return mapWarehouseError(errResult)
	}

	return c.JSON(http.StatusOK, &ExecuteSQLResponse{
		Rows:         result.Rows,
		RowCount:     result.RowCount,
		Truncated:    result.Truncated,
		EffectiveSQL: result.EffectiveSQL,
	})
}

// mapWarehouseError translates a warehouse.ErrorResult into the HTTP status
// matching its error-handling design entry (§7): a guard rejection is a
// client-correctable 422, backend and timeout failures are 502/504.
func mapWarehouseError(errResult *warehouse.ErrorResult) *echo.HTTPError {
	switch errResult.Kind {
	case warehouse.KindGuardReject:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errResult.Detail)
	case warehouse.KindTimeout:
		return echo.NewHTTPError(http.StatusGatewayTimeout, errResult.Detail)
	default:
		return echo.NewHTTPError(http.StatusBadGateway, errResult.Detail)
	}
}
