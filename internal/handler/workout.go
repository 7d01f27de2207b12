package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wod-leaderboard/internal/logging"
	"github.com/iliyamo/wod-leaderboard/internal/service"
)

// WorkoutHandler serves /api/workouts and /api/workout-types.
type WorkoutHandler struct {
	Workouts *service.WorkoutService
	Log      *logging.Logger
}

// NewWorkoutHandler panics on a nil service.
func NewWorkoutHandler(workouts *service.WorkoutService, log *logging.Logger) *WorkoutHandler {
	if workouts == nil {
		panic("nil service passed to NewWorkoutHandler")
	}
	return &WorkoutHandler{Workouts: workouts, Log: log}
}

// Create handles POST /api/workouts.
func (h *WorkoutHandler) Create(c echo.Context) error {
	var body service.CreateWorkoutInput
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	w, token, err := h.Workouts.CreateWorkout(c.Request().Context(), body)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"workout": w, "ownerToken": token})
}

// List handles GET /api/workouts?dateFilter=.
func (h *WorkoutHandler) List(c echo.Context) error {
	items, err := h.Workouts.ListWorkouts(c.Request().Context(), c.QueryParam("dateFilter"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"workouts": items})
}

// Get handles GET /api/workouts/:id.
func (h *WorkoutHandler) Get(c echo.Context) error {
	w, err := h.Workouts.GetWorkout(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"workout": w})
}

// Delete handles DELETE /api/workouts/:id with body {"ownerToken": ...}.
func (h *WorkoutHandler) Delete(c echo.Context) error {
	var body struct {
		OwnerToken string `json:"ownerToken"`
	}
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if err := h.Workouts.DeleteWorkout(c.Request().Context(), c.Param("id"), body.OwnerToken); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Types handles GET /api/workout-types.
func (h *WorkoutHandler) Types(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"types": h.Workouts.WorkoutTypes()})
}
