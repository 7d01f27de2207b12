package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Gender tags a result for the leaderboard's gender filter.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

func (g Gender) Valid() bool { return g == GenderMale || g == GenderFemale }

// DNFValue is the result value stored for a did-not-finish entry.
const DNFValue = "DNF"

// Result is one athlete's entry on a workout's leaderboard.
//
// Fields:
//
//	ResultValue   : the displayed value, free text or the round sum.
//	ResultNumeric : sort key derived from ResultValue, nil when unranked.
//	RoundDetails  : per-round values when the entry was submitted by round.
//	IsDNF         : did-not-finish; ResultValue is then "DNF".
type Result struct {
	ID              string        `json:"id"`
	WorkoutID       string        `json:"workoutId"`
	ResultTokenHash string        `json:"-"`
	AthleteName     string        `json:"athleteName"`
	Gender          Gender        `json:"gender"`
	ResultValue     string        `json:"resultValue"`
	ResultNumeric   *float64      `json:"resultNumeric"`
	RoundDetails    *RoundDetails `json:"roundDetails"`
	Comment         *string       `json:"comment"`
	IsDNF           bool          `json:"isDnf"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// RoundDetails holds the per-round breakdown of a result. It is stored
// as a JSON document in a text column.
type RoundDetails struct {
	Rounds []float64 `json:"rounds"`
}

// Value implements driver.Valuer.
func (r RoundDetails) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *RoundDetails) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), r)
	case []byte:
		return json.Unmarshal(v, r)
	}
	return fmt.Errorf("model.RoundDetails: cannot scan %T", src)
}
