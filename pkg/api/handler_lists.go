package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/njvoter/gateway/pkg/models"
	"github.com/njvoter/gateway/pkg/warehouse"
)

// listListsHandler handles GET /api/v1/lists.
func (s *Server) listListsHandler(c *echo.Context) error {
	owner := extractAuthor(c)
	lists, err := s.savedQuery.List(c.Request().Context(), owner)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &models.SavedQueryListResponse{Lists: lists})
}

// createListHandler handles POST /api/v1/lists (§4.D).
func (s *Server) createListHandler(c *echo.Context) error {
	var req SaveListRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sq, err := s.savedQuery.Save(c.Request().Context(), models.CreateSavedQueryRequest{
		OwnerUserID:           extractAuthor(c),
		Name:                  req.Name,
		Description:           req.Description,
		SQLText:               req.SQLText,
		NaturalLanguagePrompt: req.NaturalLanguagePrompt,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, &models.SavedQueryResponse{SavedQuery: sq})
}

// getListHandler handles GET /api/v1/lists/:id.
func (s *Server) getListHandler(c *echo.Context) error {
	sq, err := s.savedQuery.Get(c.Request().Context(), c.Param("id"), extractAuthor(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &models.SavedQueryResponse{SavedQuery: sq})
}

// updateListHandler handles PUT /api/v1/lists/:id.
func (s *Server) updateListHandler(c *echo.Context) error {
	var req SaveListRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	owner := extractAuthor(c)
	sq, err := s.savedQuery.Update(c.Request().Context(), c.Param("id"), owner, models.CreateSavedQueryRequest{
		Name:                  req.Name,
		Description:           req.Description,
		SQLText:               req.SQLText,
		NaturalLanguagePrompt: req.NaturalLanguagePrompt,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &models.SavedQueryResponse{SavedQuery: sq})
}

// deleteListHandler handles DELETE /api/v1/lists/:id.
func (s *Server) deleteListHandler(c *echo.Context) error {
	if err := s.savedQuery.SoftDelete(c.Request().Context(), c.Param("id"), extractAuthor(c)); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// runListHandler handles POST /api/v1/lists/:id/run: re-executes a saved
// query's SQL through the same guard/remap path as /query/execute, and
// bumps its access counter (§4.D).
func (s *Server) runListHandler(c *echo.Context) error {
	owner := extractAuthor(c)
	sq, err := s.savedQuery.Get(c.Request().Context(), c.Param("id"), owner)
	if err != nil {
		return mapServiceError(err)
	}

	result, errResult := s.warehouse.Execute(c.Request().Context(), sq.SQLText, warehouse.CallerContext{
		UserID:  owner,
		Purpose: "list_run",
	})
	if errResult != nil {
		return mapWarehouseError(errResult)
	}

	if err := s.savedQuery.IncrementAccess(c.Request().Context(), sq.ID); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, &ExecuteSQLResponse{
		Rows:         result.Rows,
		RowCount:     result.RowCount,
		Truncated:    result.Truncated,
		EffectiveSQL: result.EffectiveSQL,
	})
}

// regenerateListSQLHandler handles POST /api/v1/lists/:id/regenerate-sql:
// re-derives the SQL from a (possibly revised) natural-language prompt and
// overwrites the saved query's definition, without executing it.
func (s *Server) regenerateListSQLHandler(c *echo.Context) error {
	var req RegenerateListSQLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	owner := extractAuthor(c)
	sql, err := s.queryGen.GenerateSQL(c.Request().Context(), req.Prompt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	sq, err := s.savedQuery.Update(c.Request().Context(), c.Param("id"), owner, models.CreateSavedQueryRequest{
		SQLText:               sql,
		NaturalLanguagePrompt: req.Prompt,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &models.SavedQueryResponse{SavedQuery: sq})
}

// exportListHandler handles GET /api/v1/lists/:id/export: re-runs the list
// and streams the result as CSV.
func (s *Server) exportListHandler(c *echo.Context) error {
	owner := extractAuthor(c)
	sq, err := s.savedQuery.Get(c.Request().Context(), c.Param("id"), owner)
	if err != nil {
		return mapServiceError(err)
	}

	result, errResult := s.warehouse.Execute(c.Request().Context(), sq.SQLText, warehouse.CallerContext{
		UserID:  owner,
		Purpose: "list_export",
	})
	if errResult != nil {
		return mapWarehouseError(errResult)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sq.Name+".csv"))
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	defer w.Flush()

	if len(result.Rows) == 0 {
		return nil
	}
	header := make([]string, 0, len(result.Rows[0]))
	for col := range result.Rows[0] {
		header = append(header, col)
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range result.Rows {
		record := make([]string, len(header))
		for i, col := range header {
			record[i] = toCSVString(row[col])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	return nil
}

func toCSVString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
