package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/wod-leaderboard/internal/logging"
	"github.com/iliyamo/wod-leaderboard/internal/model"
	"github.com/iliyamo/wod-leaderboard/internal/queue"
	"github.com/iliyamo/wod-leaderboard/internal/scoring"
	"github.com/iliyamo/wod-leaderboard/internal/utils"
)

const (
	maxAthleteNameLen = 255
	maxResultValueLen = 100
	maxCommentLen     = 500
	maxRounds         = 100
)

// ResultStore is the persistence ResultService needs.
type ResultStore interface {
	Create(ctx context.Context, res *model.Result) error
	GetByID(ctx context.Context, id string) (*model.Result, error)
	ListByWorkout(ctx context.Context, workoutID string) ([]model.Result, error)
	UpdateWithToken(ctx context.Context, id, token string, apply func(*model.Result) error) (*model.Result, error)
	DeleteByIDAndToken(ctx context.Context, id, token string) error
}

// ResultService manages results and assembles leaderboards.
type ResultService struct {
	results  ResultStore
	workouts WorkoutStore
	events   EventPublisher
	log      *logging.Logger
	cost     int
}

// NewResultService wires a ResultService. cost is the bcrypt cost used for
// result-token hashes.
func NewResultService(results ResultStore, workouts WorkoutStore, events EventPublisher, log *logging.Logger, cost int) *ResultService {
	return &ResultService{results: results, workouts: workouts, events: events, log: log, cost: cost}
}

// SubmitResultInput is the payload of a submission. The score comes from
// IsDNF, RoundDetails or ResultValue, in that order of precedence.
type SubmitResultInput struct {
	WorkoutID    string              `json:"workoutId"`
	AthleteName  string              `json:"athleteName"`
	Gender       string              `json:"gender"`
	ResultValue  string              `json:"resultValue"`
	RoundDetails *model.RoundDetails `json:"roundDetails"`
	Comment      *string             `json:"comment"`
	IsDNF        bool                `json:"isDnf"`
}

// UpdateResultInput carries a partial update. Nil fields are left as they
// are. An empty Comment clears the comment.
type UpdateResultInput struct {
	AthleteName  *string             `json:"athleteName"`
	Gender       *string             `json:"gender"`
	ResultValue  *string             `json:"resultValue"`
	RoundDetails *model.RoundDetails `json:"roundDetails"`
	Comment      *string             `json:"comment"`
	IsDNF        *bool               `json:"isDnf"`
}

// score is a validated result value with its derived fields.
type score struct {
	value   string
	numeric *float64
	rounds  *model.RoundDetails
	dnf     bool
}

func (sc score) applyTo(r *model.Result) {
	r.ResultValue = sc.value
	r.ResultNumeric = sc.numeric
	r.RoundDetails = sc.rounds
	r.IsDNF = sc.dnf
}

func dnfScore() score { return score{value: model.DNFValue, dnf: true} }

func roundsScore(rd *model.RoundDetails) (score, error) {
	if len(rd.Rounds) == 0 {
		return score{}, invalid("roundDetails must contain at least one round")
	}
	if len(rd.Rounds) > maxRounds {
		return score{}, invalid("too many rounds (maximum %d)", maxRounds)
	}
	value, key, ok := scoring.RoundsValue(rd.Rounds)
	if !ok {
		return score{}, invalid("every round must be a finite, non-negative number")
	}
	if utf8.RuneCountInString(value) > maxResultValueLen {
		return score{}, invalid("round total is too large")
	}
	rounds := make([]float64, len(rd.Rounds))
	copy(rounds, rd.Rounds)
	return score{value: value, numeric: key, rounds: &model.RoundDetails{Rounds: rounds}}, nil
}

func valueScore(raw string) (score, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return score{}, invalid("resultValue is required")
	}
	if utf8.RuneCountInString(v) > maxResultValueLen {
		return score{}, invalid("resultValue must be at most %d characters", maxResultValueLen)
	}
	return score{value: v, numeric: scoring.NumericKey(v)}, nil
}

func validateName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", invalid("athleteName is required")
	}
	if utf8.RuneCountInString(n) > maxAthleteNameLen {
		return "", invalid("athleteName must be at most %d characters", maxAthleteNameLen)
	}
	return n, nil
}

func validateGender(g string) (model.Gender, error) {
	gender := model.Gender(g)
	if !gender.Valid() {
		return "", invalid("gender must be M or F")
	}
	return gender, nil
}

// validateComment returns nil for an absent or blank comment.
func validateComment(c *string) (*string, error) {
	if c == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*c)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > maxCommentLen {
		return nil, invalid("comment must be at most %d characters", maxCommentLen)
	}
	return &v, nil
}

// SubmitResult validates in, stores the result and returns it with the
// raw result-token.
func (s *ResultService) SubmitResult(ctx context.Context, in SubmitResultInput) (*model.Result, string, error) {
	if !utils.IsUUID(in.WorkoutID) {
		return nil, "", invalid("invalid workoutId")
	}
	name, err := validateName(in.AthleteName)
	if err != nil {
		return nil, "", err
	}
	gender, err := validateGender(in.Gender)
	if err != nil {
		return nil, "", err
	}
	comment, err := validateComment(in.Comment)
	if err != nil {
		return nil, "", err
	}

	var sc score
	switch {
	case in.IsDNF:
		sc = dnfScore()
	case in.RoundDetails != nil:
		if sc, err = roundsScore(in.RoundDetails); err != nil {
			return nil, "", err
		}
	default:
		if sc, err = valueScore(in.ResultValue); err != nil {
			return nil, "", err
		}
	}

	token := utils.NewToken()
	hash, err := utils.HashToken(token, s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash result token: %w", err)
	}

	res := &model.Result{
		ID:              utils.NewID(),
		WorkoutID:       in.WorkoutID,
		ResultTokenHash: hash,
		AthleteName:     name,
		Gender:          gender,
		Comment:         comment,
	}
	sc.applyTo(res)

	if err := s.results.Create(ctx, res); err != nil {
		return nil, "", fmt.Errorf("submit result: %w", err)
	}
	s.log.Info("result submitted", "workout_id", res.WorkoutID, "result_id", res.ID, "dnf", res.IsDNF)
	emit(s.events, s.log, resultEvent(queue.ResultSubmitted, res))
	return res, token, nil
}

// Leaderboard returns a workout's ranked results. gender, when not empty,
// keeps only that gender and renumbers the positions.
func (s *ResultService) Leaderboard(ctx context.Context, workoutID, gender string) ([]scoring.Standing, error) {
	if !utils.IsUUID(workoutID) {
		return nil, invalid("invalid workout id")
	}
	var g model.Gender
	if gender != "" {
		var err error
		if g, err = validateGender(gender); err != nil {
			return nil, err
		}
	}

	w, err := s.workouts.GetByID(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	results, err := s.results.ListByWorkout(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	standings := scoring.Rank(results, w.SortDirection)
	if g != "" {
		standings = scoring.Filter(standings, scoring.ByGender(g))
	}
	return standings, nil
}

// UpdateResult applies in to the result id when token is its
// result-token. The numeric key is re-derived whenever the score changes.
// Clearing DNF requires a new value or new round details in the same
// request.
func (s *ResultService) UpdateResult(ctx context.Context, id, token string, in UpdateResultInput) (*model.Result, error) {
	if !utils.IsUUID(id) {
		return nil, invalid("invalid result id")
	}
	if token == "" || !utils.IsUUID(token) {
		return nil, invalid("missing or malformed result token")
	}

	var (
		name    *string
		gender  *model.Gender
		sc      *score
		comment *string
	)
	if in.AthleteName != nil {
		n, err := validateName(*in.AthleteName)
		if err != nil {
			return nil, err
		}
		name = &n
	}
	if in.Gender != nil {
		g, err := validateGender(*in.Gender)
		if err != nil {
			return nil, err
		}
		gender = &g
	}
	switch {
	case in.IsDNF != nil && *in.IsDNF:
		d := dnfScore()
		sc = &d
	case in.RoundDetails != nil:
		r, err := roundsScore(in.RoundDetails)
		if err != nil {
			return nil, err
		}
		sc = &r
	case in.ResultValue != nil:
		v, err := valueScore(*in.ResultValue)
		if err != nil {
			return nil, err
		}
		sc = &v
	}
	if in.Comment != nil {
		c, err := validateComment(in.Comment)
		if err != nil {
			return nil, err
		}
		comment = c
	}

	updated, err := s.results.UpdateWithToken(ctx, id, token, func(r *model.Result) error {
		if in.IsDNF != nil && !*in.IsDNF && sc == nil && r.IsDNF {
			return invalid("a resultValue or roundDetails is required to clear DNF")
		}
		if name != nil {
			r.AthleteName = *name
		}
		if gender != nil {
			r.Gender = *gender
		}
		if sc != nil {
			sc.applyTo(r)
		}
		if in.Comment != nil {
			r.Comment = comment
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update result: %w", err)
	}
	s.log.Info("result updated", "workout_id", updated.WorkoutID, "result_id", updated.ID)
	emit(s.events, s.log, resultEvent(queue.ResultUpdated, updated))
	return updated, nil
}

// DeleteResult removes the result id when token is its result-token.
func (s *ResultService) DeleteResult(ctx context.Context, id, token string) error {
	if !utils.IsUUID(id) {
		return invalid("invalid result id")
	}
	if token == "" || !utils.IsUUID(token) {
		return invalid("missing or malformed result token")
	}
	res, err := s.results.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if err := s.results.DeleteByIDAndToken(ctx, id, token); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	s.log.Info("result deleted", "workout_id", res.WorkoutID, "result_id", id)
	ev := queue.NewEvent(queue.ResultDeleted, res.WorkoutID)
	ev.ResultID = id
	emit(s.events, s.log, ev)
	return nil
}

func resultEvent(t queue.EventType, r *model.Result) queue.ActivityEvent {
	ev := queue.NewEvent(t, r.WorkoutID)
	ev.ResultID = r.ID
	ev.AthleteName = r.AthleteName
	ev.Gender = string(r.Gender)
	ev.ResultValue = r.ResultValue
	return ev
}
