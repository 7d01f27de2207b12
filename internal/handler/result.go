package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wod-leaderboard/internal/logging"
	"github.com/iliyamo/wod-leaderboard/internal/service"
)

// ResultHandler serves /api/results.
type ResultHandler struct {
	Results *service.ResultService
	Log     *logging.Logger
}

// NewResultHandler panics on a nil service.
func NewResultHandler(results *service.ResultService, log *logging.Logger) *ResultHandler {
	if results == nil {
		panic("nil service passed to NewResultHandler")
	}
	return &ResultHandler{Results: results, Log: log}
}

// Submit handles POST /api/results.
func (h *ResultHandler) Submit(c echo.Context) error {
	var body service.SubmitResultInput
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	res, token, err := h.Results.SubmitResult(c.Request().Context(), body)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"result": res, "resultToken": token})
}

// Leaderboard handles GET /api/results/:workoutId?gender=M|F.
func (h *ResultHandler) Leaderboard(c echo.Context) error {
	standings, err := h.Results.Leaderboard(c.Request().Context(), c.Param("workoutId"), c.QueryParam("gender"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"results": standings})
}

// Update handles PUT /api/results/:id. The body carries the result-token
// and any subset of the editable fields.
func (h *ResultHandler) Update(c echo.Context) error {
	var body struct {
		ResultToken string `json:"resultToken"`
		service.UpdateResultInput
	}
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	res, err := h.Results.UpdateResult(c.Request().Context(), c.Param("id"), body.ResultToken, body.UpdateResultInput)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"result": res})
}

// Delete handles DELETE /api/results/:id with body {"resultToken": ...}.
func (h *ResultHandler) Delete(c echo.Context) error {
	var body struct {
		ResultToken string `json:"resultToken"`
	}
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if err := h.Results.DeleteResult(c.Request().Context(), c.Param("id"), body.ResultToken); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
