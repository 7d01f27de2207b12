// Package repository contains data access logic separated from HTTP
// handlers. This file persists workouts. A workout owns its results;
// deleting it removes them in the same transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/wod-leaderboard/internal/model"
	"github.com/iliyamo/wod-leaderboard/internal/utils"
)

// WorkoutRepo encapsulates all database queries related to workouts.
type WorkoutRepo struct {
	db     *sql.DB
	driver string
}

// NewWorkoutRepo constructs a WorkoutRepo. driver selects dialect
// specific clauses (database.MySQL or database.SQLite).
func NewWorkoutRepo(db *sql.DB, driver string) *WorkoutRepo {
	return &WorkoutRepo{db: db, driver: driver}
}

const workoutColumns = `id, owner_token_hash, description, workout_date, workout_type,
	sort_direction, result_unit, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row rowScanner, extra ...any) (*model.Workout, error) {
	var (
		w     model.Workout
		wtype sql.NullString
	)
	dest := []any{
		&w.ID, &w.OwnerTokenHash, &w.Description, &w.WorkoutDate, &wtype,
		&w.SortDirection, &w.ResultUnit, dbTime{&w.CreatedAt}, dbTime{&w.UpdatedAt},
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if wtype.Valid {
		t := model.WorkoutType(wtype.String)
		w.WorkoutType = &t
	}
	return &w, nil
}

// Create inserts a new workout. ID and OwnerTokenHash must be set by the
// caller; timestamps are filled in here.
func (r *WorkoutRepo) Create(ctx context.Context, w *model.Workout) error {
	const q = `INSERT INTO workouts (id, owner_token_hash, description, workout_date, workout_type,
		sort_direction, result_unit, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	t := now()
	var wtype any
	if w.WorkoutType != nil {
		wtype = string(*w.WorkoutType)
	}
	if _, err := r.db.ExecContext(ctx, q, w.ID, w.OwnerTokenHash, w.Description, w.WorkoutDate.String(),
		wtype, string(w.SortDirection), string(w.ResultUnit), ts(t), ts(t)); err != nil {
		return err
	}
	w.CreatedAt, w.UpdatedAt = t, t
	return nil
}

// GetByID fetches a workout. It returns ErrWorkoutNotFound if no row
// exists.
func (r *WorkoutRepo) GetByID(ctx context.Context, id string) (*model.Workout, error) {
	q := "SELECT " + workoutColumns + " FROM workouts WHERE id = ?"
	w, err := scanWorkout(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return w, nil
}

// ListFilter narrows List to workouts dated within [From, To]. Nil bounds
// are open.
type ListFilter struct {
	From *model.Date
	To   *model.Date
}

// List returns workouts newest first, each with its result count.
func (r *WorkoutRepo) List(ctx context.Context, f ListFilter) ([]*model.Workout, error) {
	q := "SELECT " + workoutColumns + `,
		(SELECT COUNT(*) FROM results r WHERE r.workout_id = workouts.id) AS result_count
		FROM workouts WHERE 1=1`
	var args []any
	if f.From != nil {
		q += " AND workout_date >= ?"
		args = append(args, f.From.String())
	}
	if f.To != nil {
		q += " AND workout_date <= ?"
		args = append(args, f.To.String())
	}
	q += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Workout{}
	for rows.Next() {
		var count int
		w, err := scanWorkout(rows, &count)
		if err != nil {
			return nil, err
		}
		w.ResultCount = &count
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByIDAndToken removes a workout and all of its results provided
// token matches the stored owner-token hash. If the workout does not
// exist, ErrWorkoutNotFound is returned; on a token mismatch ErrForbidden.
// The check and the deletes share one transaction.
func (r *WorkoutRepo) DeleteByIDAndToken(ctx context.Context, id, token string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var hash string
		q := "SELECT owner_token_hash FROM workouts WHERE id = ?" + lockClause(r.driver)
		if err := tx.QueryRowContext(ctx, q, id).Scan(&hash); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrWorkoutNotFound
			}
			return err
		}
		if !utils.VerifyToken(hash, token) {
			return ErrForbidden
		}
		// The foreign key cascades as well; deleting explicitly keeps the
		// behaviour independent of engine settings.
		if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE workout_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id); err != nil {
			return err
		}
		return nil
	})
}
