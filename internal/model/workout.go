package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SortDirection tells the leaderboard which end of the numeric scale wins.
// "asc" means the lowest key ranks first (race times), "desc" means the
// highest key ranks first (reps, rounds, load).
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Valid reports whether d is one of the two supported directions.
func (d SortDirection) Valid() bool { return d == SortAsc || d == SortDesc }

// ResultUnit describes what a workout's results measure.
type ResultUnit string

const (
	UnitTime   ResultUnit = "time"
	UnitRounds ResultUnit = "rounds"
	UnitReps   ResultUnit = "reps"
	UnitWeight ResultUnit = "weight"
	UnitCustom ResultUnit = "custom"
)

// WorkoutType is the workout format chosen by the creator.
type WorkoutType string

const (
	TypeForTime WorkoutType = "for_time"
	TypeAMRAP   WorkoutType = "amrap"
	TypeEMOM    WorkoutType = "emom"
	TypeTabata  WorkoutType = "tabata"
	TypeChipper WorkoutType = "chipper"
	TypeLadder  WorkoutType = "ladder"
	TypeLoad    WorkoutType = "load"
	TypeCustom  WorkoutType = "custom"
)

// TypeConfig is one row of the static workout type table.
type TypeConfig struct {
	Type          WorkoutType   `json:"value"`
	Label         string        `json:"label"`
	Description   string        `json:"description"`
	ResultUnit    ResultUnit    `json:"resultUnit"`
	SortDirection SortDirection `json:"sortDirection"`
	Placeholder   string        `json:"placeholder"`
	Hint          string        `json:"hint"`
}

// workoutTypes is ordered the way clients present the choices.
var workoutTypes = []TypeConfig{
	{TypeForTime, "For Time", "Complete the prescribed work as fast as possible", UnitTime, SortAsc, "mm:ss (e.g., 12:45)", "Enter time in format: mm:ss or hh:mm:ss"},
	{TypeAMRAP, "AMRAP", "As Many Rounds/Reps As Possible in time limit", UnitRounds, SortDesc, "Rounds (e.g., 5)", "Enter number of rounds completed"},
	{TypeEMOM, "EMOM", "Every Minute On the Minute - work at start of each minute", UnitRounds, SortDesc, "Rounds (e.g., 10)", "Enter number of rounds completed"},
	{TypeTabata, "Tabata", "20 seconds work, 10 seconds rest for 8 rounds", UnitReps, SortDesc, "Total reps (e.g., 120)", "Enter total number of reps across all rounds"},
	{TypeChipper, "Chipper", "Complete list of exercises in sequence", UnitTime, SortAsc, "mm:ss (e.g., 18:30)", "Enter time in format: mm:ss or hh:mm:ss"},
	{TypeLadder, "Ladder", "Reps increase or decrease each round", UnitRounds, SortDesc, "Rounds (e.g., 8)", "Enter number of rounds completed"},
	{TypeLoad, "1RM / Load", "Maximum weight lifted", UnitWeight, SortDesc, "Weight (e.g., 100)", "Enter weight in kg or lbs"},
	{TypeCustom, "Custom", "Any other workout format", UnitCustom, SortDesc, "Your result", "Enter result in any format"},
}

// WorkoutTypes returns a copy of the full type table.
func WorkoutTypes() []TypeConfig {
	out := make([]TypeConfig, len(workoutTypes))
	copy(out, workoutTypes)
	return out
}

// LookupType returns the table row for t.
func LookupType(t WorkoutType) (TypeConfig, bool) {
	for _, cfg := range workoutTypes {
		if cfg.Type == t {
			return cfg, true
		}
	}
	return TypeConfig{}, false
}

// Workout is a single WOD that participants post results against.
// OwnerTokenHash is the bcrypt hash of the owner-token and is never
// serialized; the raw token is only returned once at creation time.
type Workout struct {
	ID             string        `json:"id"`
	OwnerTokenHash string        `json:"-"`
	Description    string        `json:"description"`
	WorkoutDate    Date          `json:"workoutDate"`
	WorkoutType    *WorkoutType  `json:"workoutType"`
	SortDirection  SortDirection `json:"sortDirection"`
	ResultUnit     ResultUnit    `json:"resultUnit"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	ResultCount    *int          `json:"resultCount,omitempty"` // only set by list queries
}

// DateLayout is the wire and storage format of a workout date.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time component. It is stored as
// DATE (MySQL) or TEXT (SQLite) and serialized as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

// MarshalJSON writes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON reads a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) { return d.String(), nil }

// Scan implements sql.Scanner. MySQL with parseTime returns time.Time,
// SQLite returns the stored text.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("model.Date: cannot scan %T", src)
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
