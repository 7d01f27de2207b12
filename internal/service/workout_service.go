package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/wod-leaderboard/internal/logging"
	"github.com/iliyamo/wod-leaderboard/internal/model"
	"github.com/iliyamo/wod-leaderboard/internal/queue"
	"github.com/iliyamo/wod-leaderboard/internal/repository"
	"github.com/iliyamo/wod-leaderboard/internal/utils"
)

const maxDescriptionLen = 5000

// Date filters accepted by ListWorkouts.
const (
	FilterAll    = "all"
	FilterToday  = "today"
	Filter7Days  = "7days"
	Filter30Days = "30days"
)

// WorkoutStore is the persistence WorkoutService needs.
type WorkoutStore interface {
	Create(ctx context.Context, w *model.Workout) error
	GetByID(ctx context.Context, id string) (*model.Workout, error)
	List(ctx context.Context, f repository.ListFilter) ([]*model.Workout, error)
	DeleteByIDAndToken(ctx context.Context, id, token string) error
}

// WorkoutService manages workouts.
type WorkoutService struct {
	store  WorkoutStore
	events EventPublisher
	log    *logging.Logger
	cost   int
	now    func() time.Time
}

// NewWorkoutService wires a WorkoutService. cost is the bcrypt cost used
// for owner-token hashes.
func NewWorkoutService(store WorkoutStore, events EventPublisher, log *logging.Logger, cost int) *WorkoutService {
	return &WorkoutService{store: store, events: events, log: log, cost: cost, now: time.Now}
}

// CreateWorkoutInput is the payload of a create request. Empty strings
// mean "not supplied".
type CreateWorkoutInput struct {
	Description   string `json:"description"`
	WorkoutDate   string `json:"workoutDate"`
	SortDirection string `json:"sortDirection"`
	WorkoutType   string `json:"workoutType"`
}

// CreateWorkout validates in, stores the workout and returns it with the
// raw owner-token. The token is not recoverable afterwards.
func (s *WorkoutService) CreateWorkout(ctx context.Context, in CreateWorkoutInput) (*model.Workout, string, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, "", invalid("description is required")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return nil, "", invalid("description must be at most %d characters", maxDescriptionLen)
	}

	today := model.NewDate(s.now())
	date := today
	if in.WorkoutDate != "" {
		d, err := model.ParseDate(in.WorkoutDate)
		if err != nil {
			return nil, "", invalid("workoutDate must be in YYYY-MM-DD format")
		}
		if d.After(today.AddDate(1, 0, 0)) {
			return nil, "", invalid("workoutDate cannot be more than one year in the future")
		}
		date = d
	}

	w := &model.Workout{
		ID:          utils.NewID(),
		Description: desc,
		WorkoutDate: date,
	}
	if in.WorkoutType != "" {
		cfg, ok := model.LookupType(model.WorkoutType(in.WorkoutType))
		if !ok {
			return nil, "", invalid("unknown workoutType %q", in.WorkoutType)
		}
		wt := cfg.Type
		w.WorkoutType = &wt
		w.SortDirection = cfg.SortDirection
		w.ResultUnit = cfg.ResultUnit
	} else {
		dir := model.SortDirection(in.SortDirection)
		if in.SortDirection == "" {
			return nil, "", invalid("sortDirection is required when no workoutType is given")
		}
		if !dir.Valid() {
			return nil, "", invalid("sortDirection must be asc or desc")
		}
		w.SortDirection = dir
		w.ResultUnit = model.UnitCustom
	}

	token := utils.NewToken()
	hash, err := utils.HashToken(token, s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash owner token: %w", err)
	}
	w.OwnerTokenHash = hash

	if err := s.store.Create(ctx, w); err != nil {
		return nil, "", fmt.Errorf("create workout: %w", err)
	}
	s.log.Info("workout created", "workout_id", w.ID, "unit", w.ResultUnit, "sort", w.SortDirection)

	ev := queue.NewEvent(queue.WorkoutCreated, w.ID)
	ev.Description = w.Description
	emit(s.events, s.log, ev)

	return w, token, nil
}

// GetWorkout returns a workout by id.
func (s *WorkoutService) GetWorkout(ctx context.Context, id string) (*model.Workout, error) {
	if !utils.IsUUID(id) {
		return nil, invalid("invalid workout id")
	}
	w, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workout: %w", err)
	}
	return w, nil
}

// ListWorkouts returns workouts newest first with result counts. filter is
// one of the Filter constants or empty for all. Date windows are computed
// in server local time, include today and exclude future-dated workouts.
func (s *WorkoutService) ListWorkouts(ctx context.Context, filter string) ([]*model.Workout, error) {
	f, err := s.dateWindow(filter)
	if err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return list, nil
}

func (s *WorkoutService) dateWindow(filter string) (repository.ListFilter, error) {
	today := model.NewDate(s.now())
	var days int
	switch filter {
	case "", FilterAll:
		return repository.ListFilter{}, nil
	case FilterToday:
		days = 0
	case Filter7Days:
		days = 7
	case Filter30Days:
		days = 30
	default:
		return repository.ListFilter{}, invalid("dateFilter must be one of today, 7days, 30days, all")
	}
	from := model.Date{Time: today.AddDate(0, 0, -days)}
	return repository.ListFilter{From: &from, To: &today}, nil
}

// DeleteWorkout removes a workout and all of its results when token is
// the workout's owner-token.
func (s *WorkoutService) DeleteWorkout(ctx context.Context, id, token string) error {
	if !utils.IsUUID(id) {
		return invalid("invalid workout id")
	}
	if token == "" || !utils.IsUUID(token) {
		return invalid("missing or malformed owner token")
	}
	if err := s.store.DeleteByIDAndToken(ctx, id, token); err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	s.log.Info("workout deleted", "workout_id", id)
	emit(s.events, s.log, queue.NewEvent(queue.WorkoutDeleted, id))
	return nil
}

// WorkoutTypes returns the static workout type table.
func (s *WorkoutService) WorkoutTypes() []model.TypeConfig {
	return model.WorkoutTypes()
}
