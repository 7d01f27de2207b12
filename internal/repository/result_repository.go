package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/wod-leaderboard/internal/model"
	"github.com/iliyamo/wod-leaderboard/internal/utils"
)

// ResultRepo persists leaderboard entries.
type ResultRepo struct {
	db     *sql.DB
	driver string
}

func NewResultRepo(db *sql.DB, driver string) *ResultRepo {
	return &ResultRepo{db: db, driver: driver}
}

const resultColumns = `id, workout_id, result_token_hash, athlete_name, gender, result_value,
	result_numeric, round_details, comment, is_dnf, created_at, updated_at`

func scanResult(row rowScanner) (*model.Result, error) {
	var (
		res     model.Result
		numeric sql.NullFloat64
		rounds  sql.NullString
		comment sql.NullString
	)
	if err := row.Scan(&res.ID, &res.WorkoutID, &res.ResultTokenHash, &res.AthleteName, &res.Gender,
		&res.ResultValue, &numeric, &rounds, &comment, &res.IsDNF,
		dbTime{&res.CreatedAt}, dbTime{&res.UpdatedAt}); err != nil {
		return nil, err
	}
	if numeric.Valid {
		v := numeric.Float64
		res.ResultNumeric = &v
	}
	if rounds.Valid && rounds.String != "" {
		rd := new(model.RoundDetails)
		if err := rd.Scan(rounds.String); err != nil {
			return nil, err
		}
		res.RoundDetails = rd
	}
	if comment.Valid {
		c := comment.String
		res.Comment = &c
	}
	return &res, nil
}

// Create inserts a result for an existing workout. ErrWorkoutNotFound is
// returned when the workout is missing, including when it is deleted
// concurrently and the foreign key rejects the row.
func (r *ResultRepo) Create(ctx context.Context, res *model.Result) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM workouts WHERE id = ?`, res.WorkoutID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrWorkoutNotFound
			}
			return err
		}
		const q = `INSERT INTO results (id, workout_id, result_token_hash, athlete_name, gender, result_value,
			result_numeric, round_details, comment, is_dnf, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		t := now()
		if _, err := tx.ExecContext(ctx, q, res.ID, res.WorkoutID, res.ResultTokenHash, res.AthleteName,
			string(res.Gender), res.ResultValue, deref(res.ResultNumeric), roundsArg(res.RoundDetails),
			deref(res.Comment), res.IsDNF, ts(t), ts(t)); err != nil {
			if isForeignKeyViolation(err) {
				return ErrWorkoutNotFound
			}
			return err
		}
		res.CreatedAt, res.UpdatedAt = t, t
		return nil
	})
}

// GetByID fetches one result or ErrResultNotFound.
func (r *ResultRepo) GetByID(ctx context.Context, id string) (*model.Result, error) {
	q := "SELECT " + resultColumns + " FROM results WHERE id = ?"
	res, err := scanResult(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListByWorkout returns a workout's results in submission order. Ranking
// is done by the caller.
func (r *ResultRepo) ListByWorkout(ctx context.Context, workoutID string) ([]model.Result, error) {
	q := "SELECT " + resultColumns + " FROM results WHERE workout_id = ? ORDER BY created_at, id"
	rows, err := r.db.QueryContext(ctx, q, workoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Result{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateWithToken loads the result, checks token against the stored hash,
// lets apply modify the loaded copy and writes it back, all inside one
// transaction. An error from apply aborts the update and is returned
// unchanged.
func (r *ResultRepo) UpdateWithToken(ctx context.Context, id, token string, apply func(*model.Result) error) (*model.Result, error) {
	var updated *model.Result
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		q := "SELECT " + resultColumns + " FROM results WHERE id = ?" + lockClause(r.driver)
		res, err := scanResult(tx.QueryRowContext(ctx, q, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrResultNotFound
			}
			return err
		}
		if !utils.VerifyToken(res.ResultTokenHash, token) {
			return ErrForbidden
		}
		if err := apply(res); err != nil {
			return err
		}
		res.UpdatedAt = now()
		const upd = `UPDATE results SET athlete_name = ?, gender = ?, result_value = ?, result_numeric = ?,
			round_details = ?, comment = ?, is_dnf = ?, updated_at = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, upd, res.AthleteName, string(res.Gender), res.ResultValue,
			deref(res.ResultNumeric), roundsArg(res.RoundDetails), deref(res.Comment), res.IsDNF,
			ts(res.UpdatedAt), id); err != nil {
			return err
		}
		updated = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteByIDAndToken removes a result if token matches. ErrResultNotFound
// and ErrForbidden mirror WorkoutRepo.DeleteByIDAndToken.
func (r *ResultRepo) DeleteByIDAndToken(ctx context.Context, id, token string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var hash string
		q := "SELECT result_token_hash FROM results WHERE id = ?" + lockClause(r.driver)
		if err := tx.QueryRowContext(ctx, q, id).Scan(&hash); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrResultNotFound
			}
			return err
		}
		if !utils.VerifyToken(hash, token) {
			return ErrForbidden
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
		return err
	})
}
