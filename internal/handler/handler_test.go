package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/wod-leaderboard/internal/config"
	"github.com/iliyamo/wod-leaderboard/internal/database"
	"github.com/iliyamo/wod-leaderboard/internal/logging"
	"github.com/iliyamo/wod-leaderboard/internal/queue"
	"github.com/iliyamo/wod-leaderboard/internal/repository"
	"github.com/iliyamo/wod-leaderboard/internal/router"
	"github.com/iliyamo/wod-leaderboard/internal/service"
	"github.com/iliyamo/wod-leaderboard/internal/utils"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = database.Migrate(context.Background(), db, database.SQLite)
	require.NoError(t, err)

	log := logging.Discard()
	wr := repository.NewWorkoutRepo(db, database.SQLite)
	rr := repository.NewResultRepo(db, database.SQLite)
	return router.New(router.Deps{
		Config:   cfg,
		Workouts: service.NewWorkoutService(wr, queue.NopPublisher{}, log, bcrypt.MinCost),
		Results:  service.NewResultService(rr, wr, queue.NopPublisher{}, log, bcrypt.MinCost),
		Log:      log,
	})
}

func do(t *testing.T, e *echo.Echo, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createWorkout(t *testing.T, e *echo.Echo, body map[string]any) (id, token string) {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/workouts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	w := out["workout"].(map[string]any)
	return w["id"].(string), out["ownerToken"].(string)
}

func submit(t *testing.T, e *echo.Echo, body map[string]any) (id, token string) {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/results", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	r := out["result"].(map[string]any)
	return r["id"].(string), out["resultToken"].(string)
}

func TestHealth(t *testing.T) {
	e := newServer(t)
	rec := do(t, e, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWorkoutLifecycle(t *testing.T) {
	e := newServer(t)

	rec := do(t, e, http.MethodPost, "/api/workouts", map[string]any{
		"description": "Fran: 21-15-9 thrusters, pull-ups",
		"workoutType": "for_time",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	w := out["workout"].(map[string]any)
	token := out["ownerToken"].(string)
	id := w["id"].(string)
	assert.True(t, utils.IsUUID(token))
	assert.Equal(t, "asc", w["sortDirection"])
	assert.Equal(t, "time", w["resultUnit"])
	assert.NotContains(t, rec.Body.String(), "ownerTokenHash")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = do(t, e, http.MethodGet, "/api/workouts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), token)

	rec = do(t, e, http.MethodGet, "/api/workouts?dateFilter=today", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["workouts"].([]any)
	require.Len(t, list, 1)
	assert.EqualValues(t, 0, list[0].(map[string]any)["resultCount"])

	rec = do(t, e, http.MethodDelete, "/api/workouts/"+id, map[string]any{"ownerToken": utils.NewToken()})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, e, http.MethodDelete, "/api/workouts/"+id, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, e, http.MethodDelete, "/api/workouts/"+utils.NewID(), map[string]any{"ownerToken": token})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodDelete, "/api/workouts/"+id, map[string]any{"ownerToken": token})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, e, http.MethodGet, "/api/workouts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"workout not found"}`, rec.Body.String())
}

func TestWorkoutValidation(t *testing.T) {
	e := newServer(t)
	for _, tc := range []struct {
		name   string
		method string
		target string
		body   any
	}{
		{"no direction", http.MethodPost, "/api/workouts", map[string]any{"description": "x"}},
		{"bad date", http.MethodPost, "/api/workouts", map[string]any{"description": "x", "sortDirection": "asc", "workoutDate": "tomorrow"}},
		{"bad json", http.MethodPost, "/api/workouts", "just a string"},
		{"bad filter", http.MethodGet, "/api/workouts?dateFilter=week", nil},
		{"bad id", http.MethodGet, "/api/workouts/42", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, e, tc.method, tc.target, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestLeaderboardFlow(t *testing.T) {
	e := newServer(t)
	wid, _ := createWorkout(t, e, map[string]any{"description": "Fran", "sortDirection": "asc"})

	for _, r := range []map[string]any{
		{"athleteName": "A", "gender": "M", "resultValue": "12:45"},
		{"athleteName": "B", "gender": "F", "resultValue": "10:30"},
		{"athleteName": "C", "gender": "M", "resultValue": "15:20"},
		{"athleteName": "D", "gender": "F", "isDnf": true},
	} {
		r["workoutId"] = wid
		submit(t, e, r)
	}

	rec := do(t, e, http.MethodGet, "/api/results/"+wid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode(t, rec)["results"].([]any)
	require.Len(t, results, 4)
	var values []string
	for i, r := range results {
		row := r.(map[string]any)
		assert.EqualValues(t, i+1, row["position"])
		values = append(values, row["resultValue"].(string))
	}
	assert.Equal(t, []string{"10:30", "12:45", "15:20", "DNF"}, values)
	last := results[3].(map[string]any)
	assert.Nil(t, last["resultNumeric"])
	assert.Equal(t, true, last["isDnf"])
	assert.NotContains(t, rec.Body.String(), "resultToken")

	rec = do(t, e, http.MethodGet, "/api/results/"+wid+"?gender=F", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	women := decode(t, rec)["results"].([]any)
	require.Len(t, women, 2)
	assert.Equal(t, "B", women[0].(map[string]any)["athleteName"])
	assert.EqualValues(t, 2, women[1].(map[string]any)["position"])

	rec = do(t, e, http.MethodGet, "/api/workouts", nil)
	list := decode(t, rec)["workouts"].([]any)
	assert.EqualValues(t, 4, list[0].(map[string]any)["resultCount"])

	assert.Equal(t, http.StatusNotFound, do(t, e, http.MethodGet, "/api/results/"+utils.NewID(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/api/results/not-a-uuid", nil).Code)
}

func TestSubmitResult_Errors(t *testing.T) {
	e := newServer(t)
	wid, _ := createWorkout(t, e, map[string]any{"description": "AMRAP 20", "workoutType": "amrap"})

	rec := do(t, e, http.MethodPost, "/api/results", map[string]any{
		"workoutId": utils.NewID(), "athleteName": "A", "gender": "M", "resultValue": "5",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for name, body := range map[string]map[string]any{
		"missing score":  {"workoutId": wid, "athleteName": "A", "gender": "M"},
		"bad gender":     {"workoutId": wid, "athleteName": "A", "gender": "X", "resultValue": "5"},
		"isDnf string":   {"workoutId": wid, "athleteName": "A", "gender": "M", "isDnf": "yes"},
		"negative round": {"workoutId": wid, "athleteName": "A", "gender": "M", "roundDetails": map[string]any{"rounds": []float64{1, -2}}},
		"long comment":   {"workoutId": wid, "athleteName": "A", "gender": "M", "resultValue": "5", "comment": strings.Repeat("c", 501)},
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, e, http.MethodPost, "/api/results", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdateAndDeleteResult(t *testing.T) {
	e := newServer(t)
	wid, _ := createWorkout(t, e, map[string]any{"description": "AMRAP 20", "workoutType": "amrap"})
	rid, token := submit(t, e, map[string]any{
		"workoutId": wid, "athleteName": "A", "gender": "F", "resultValue": "5",
	})

	rec := do(t, e, http.MethodPut, "/api/results/"+rid, map[string]any{
		"resultToken":  token,
		"roundDetails": map[string]any{"rounds": []float64{10, 12, 11, 13, 10, 14, 12, 13}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode(t, rec)["result"].(map[string]any)
	assert.Equal(t, "95", res["resultValue"])
	assert.EqualValues(t, 95, res["resultNumeric"])

	rec = do(t, e, http.MethodPut, "/api/results/"+rid, map[string]any{"resultToken": utils.NewToken(), "resultValue": "1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, e, http.MethodPut, "/api/results/"+rid, map[string]any{"resultValue": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodDelete, "/api/results/"+rid, map[string]any{"resultToken": utils.NewToken()})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, e, http.MethodDelete, "/api/results/"+rid, map[string]any{"resultToken": token})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, e, http.MethodDelete, "/api/results/"+rid, map[string]any{"resultToken": token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkoutTypes(t *testing.T) {
	e := newServer(t)
	rec := do(t, e, http.MethodGet, "/api/workout-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	types := decode(t, rec)["types"].([]any)
	require.Len(t, types, 8)
	first := types[0].(map[string]any)
	assert.Equal(t, "for_time", first["value"])
	assert.Equal(t, "asc", first["sortDirection"])
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	e := newServer(t)
	rec := do(t, e, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])
}
