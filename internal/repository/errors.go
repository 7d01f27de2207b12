// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrForbidden is returned when the presented owner or result token does
// not match the stored hash. Handlers translate it into a 403. It is used
// for both a wrong and an empty token so responses do not reveal which.
var ErrForbidden = errors.New("forbidden")

// ErrWorkoutNotFound is returned when a workout id has no row.
var ErrWorkoutNotFound = errors.New("workout not found")

// ErrResultNotFound is returned when a result id has no row.
var ErrResultNotFound = errors.New("result not found")
