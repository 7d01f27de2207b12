// Package queue carries activity events between the API and background
// workers over RabbitMQ. Events are informational: nothing in the request
// path depends on them being delivered.
package queue

import "time"

// EventType doubles as the AMQP routing key.
type EventType string

const (
	WorkoutCreated  EventType = "workout.created"
	WorkoutDeleted  EventType = "workout.deleted"
	ResultSubmitted EventType = "result.submitted"
	ResultUpdated   EventType = "result.updated"
	ResultDeleted   EventType = "result.deleted"
)

// ActivityEvent is published after a successful write. It contains enough
// for a consumer to log the change without querying the database. Tokens
// are never included.
type ActivityEvent struct {
	Type        EventType `json:"type"`
	WorkoutID   string    `json:"workout_id"`
	ResultID    string    `json:"result_id,omitempty"`
	Description string    `json:"description,omitempty"`
	AthleteName string    `json:"athlete_name,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	ResultValue string    `json:"result_value,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent stamps an event of type t with the current UTC time.
func NewEvent(t EventType, workoutID string) ActivityEvent {
	return ActivityEvent{Type: t, WorkoutID: workoutID, OccurredAt: time.Now().UTC()}
}
