package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/wod-leaderboard/internal/database"
	"github.com/iliyamo/wod-leaderboard/internal/model"
	"github.com/iliyamo/wod-leaderboard/internal/scoring"
	"github.com/iliyamo/wod-leaderboard/internal/utils"
)

func newSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = database.Migrate(context.Background(), db, database.SQLite)
	require.NoError(t, err)
	return db
}

func hashed(t *testing.T, raw string) string {
	t.Helper()
	h, err := utils.HashToken(raw, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func newWorkout(t *testing.T, repo *WorkoutRepo, token string, date model.Date) *model.Workout {
	t.Helper()
	wt := model.TypeForTime
	w := &model.Workout{
		ID:             utils.NewID(),
		OwnerTokenHash: hashed(t, token),
		Description:    "21-15-9 thrusters and pull-ups",
		WorkoutDate:    date,
		WorkoutType:    &wt,
		SortDirection:  model.SortAsc,
		ResultUnit:     model.UnitTime,
	}
	require.NoError(t, repo.Create(context.Background(), w))
	return w
}

func newResult(t *testing.T, repo *ResultRepo, workoutID, token, value string) *model.Result {
	t.Helper()
	res := &model.Result{
		ID:              utils.NewID(),
		WorkoutID:       workoutID,
		ResultTokenHash: hashed(t, token),
		AthleteName:     "Athlete " + value,
		Gender:          model.GenderFemale,
		ResultValue:     value,
		ResultNumeric:   scoring.NumericKey(value),
	}
	require.NoError(t, repo.Create(context.Background(), res))
	return res
}

// exerciseRepositories runs the shared repository contract against db.
func exerciseRepositories(t *testing.T, db *sql.DB, driver string) {
	ctx := context.Background()
	workouts := NewWorkoutRepo(db, driver)
	results := NewResultRepo(db, driver)
	today := model.NewDate(time.Now())

	t.Run("workout round trip", func(t *testing.T) {
		w := newWorkout(t, workouts, utils.NewToken(), today)
		got, err := workouts.GetByID(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, w.Description, got.Description)
		assert.Equal(t, today.String(), got.WorkoutDate.String())
		require.NotNil(t, got.WorkoutType)
		assert.Equal(t, model.TypeForTime, *got.WorkoutType)
		assert.Equal(t, model.SortAsc, got.SortDirection)
		assert.True(t, w.CreatedAt.Equal(got.CreatedAt))

		_, err = workouts.GetByID(ctx, utils.NewID())
		assert.ErrorIs(t, err, ErrWorkoutNotFound)
	})

	t.Run("result round trip with rounds and comment", func(t *testing.T) {
		w := newWorkout(t, workouts, utils.NewToken(), today)
		comment := "scaled"
		res := &model.Result{
			ID:              utils.NewID(),
			WorkoutID:       w.ID,
			ResultTokenHash: hashed(t, "x"),
			AthleteName:     "Ana",
			Gender:          model.GenderFemale,
			ResultValue:     "95",
			ResultNumeric:   scoring.NumericKey("95"),
			RoundDetails:    &model.RoundDetails{Rounds: []float64{10, 12, 11, 13, 10, 14, 12, 13}},
			Comment:         &comment,
		}
		require.NoError(t, results.Create(ctx, res))

		got, err := results.GetByID(ctx, res.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ResultNumeric)
		assert.Equal(t, 95.0, *got.ResultNumeric)
		require.NotNil(t, got.RoundDetails)
		assert.Len(t, got.RoundDetails.Rounds, 8)
		require.NotNil(t, got.Comment)
		assert.Equal(t, "scaled", *got.Comment)
		assert.False(t, got.IsDNF)
	})

	t.Run("result for missing workout", func(t *testing.T) {
		res := &model.Result{
			ID: utils.NewID(), WorkoutID: utils.NewID(), ResultTokenHash: "h",
			AthleteName: "Nobody", Gender: model.GenderMale, ResultValue: "1",
		}
		assert.ErrorIs(t, results.Create(ctx, res), ErrWorkoutNotFound)
	})

	t.Run("list with counts and date filter", func(t *testing.T) {
		old := model.NewDate(time.Now().AddDate(0, 0, -40))
		wOld := newWorkout(t, workouts, utils.NewToken(), old)
		wNew := newWorkout(t, workouts, utils.NewToken(), today)
		newResult(t, results, wNew.ID, "t1", "10:00")
		newResult(t, results, wNew.ID, "t2", "11:00")

		all, err := workouts.List(ctx, ListFilter{})
		require.NoError(t, err)
		byID := map[string]*model.Workout{}
		for _, w := range all {
			byID[w.ID] = w
		}
		require.Contains(t, byID, wOld.ID)
		require.Contains(t, byID, wNew.ID)
		assert.Equal(t, 2, *byID[wNew.ID].ResultCount)
		assert.Equal(t, 0, *byID[wOld.ID].ResultCount)

		from := model.NewDate(time.Now().AddDate(0, 0, -7))
		recent, err := workouts.List(ctx, ListFilter{From: &from, To: &today})
		require.NoError(t, err)
		for _, w := range recent {
			assert.NotEqual(t, wOld.ID, w.ID)
		}
	})

	t.Run("delete workout checks token and cascades", func(t *testing.T) {
		token := utils.NewToken()
		w := newWorkout(t, workouts, token, today)
		r1 := newResult(t, results, w.ID, "a", "12:45")
		r2 := newResult(t, results, w.ID, "b", "DNF")

		assert.ErrorIs(t, workouts.DeleteByIDAndToken(ctx, w.ID, utils.NewToken()), ErrForbidden)
		assert.ErrorIs(t, workouts.DeleteByIDAndToken(ctx, w.ID, ""), ErrForbidden)
		assert.ErrorIs(t, workouts.DeleteByIDAndToken(ctx, utils.NewID(), token), ErrWorkoutNotFound)

		require.NoError(t, workouts.DeleteByIDAndToken(ctx, w.ID, token))
		_, err := workouts.GetByID(ctx, w.ID)
		assert.ErrorIs(t, err, ErrWorkoutNotFound)
		for _, id := range []string{r1.ID, r2.ID} {
			_, err := results.GetByID(ctx, id)
			assert.ErrorIs(t, err, ErrResultNotFound)
		}
		left, err := results.ListByWorkout(ctx, w.ID)
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("update with token", func(t *testing.T) {
		w := newWorkout(t, workouts, utils.NewToken(), today)
		res := newResult(t, results, w.ID, "mine", "12:45")

		_, err := results.UpdateWithToken(ctx, res.ID, "wrong", func(r *model.Result) error {
			t.Fatal("apply must not run for a wrong token")
			return nil
		})
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = results.UpdateWithToken(ctx, utils.NewID(), "mine", func(*model.Result) error { return nil })
		assert.ErrorIs(t, err, ErrResultNotFound)

		updated, err := results.UpdateWithToken(ctx, res.ID, "mine", func(r *model.Result) error {
			r.ResultValue = model.DNFValue
			r.ResultNumeric = nil
			r.IsDNF = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, updated.IsDNF)

		got, err := results.GetByID(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, "DNF", got.ResultValue)
		assert.Nil(t, got.ResultNumeric)
		assert.True(t, got.IsDNF)
		assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
	})

	t.Run("delete result", func(t *testing.T) {
		w := newWorkout(t, workouts, utils.NewToken(), today)
		res := newResult(t, results, w.ID, "mine", "100")
		assert.ErrorIs(t, results.DeleteByIDAndToken(ctx, res.ID, "other"), ErrForbidden)
		require.NoError(t, results.DeleteByIDAndToken(ctx, res.ID, "mine"))
		assert.ErrorIs(t, results.DeleteByIDAndToken(ctx, res.ID, "mine"), ErrResultNotFound)
	})

	t.Run("list by workout keeps submission order", func(t *testing.T) {
		w := newWorkout(t, workouts, utils.NewToken(), today)
		first := newResult(t, results, w.ID, "1", "15:20")
		second := newResult(t, results, w.ID, "2", "10:30")
		list, err := results.ListByWorkout(ctx, w.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, second.ID, list[1].ID)
	})
}

func TestRepositories_SQLite(t *testing.T) {
	exerciseRepositories(t, newSQLite(t), database.SQLite)
}
