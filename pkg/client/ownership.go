package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// OwnedWorkout records the owner-token of a workout created locally.
// Participated is set once this user has also submitted a result to it.
type OwnedWorkout struct {
	WorkoutID    string `json:"workoutId"`
	OwnerToken   string `json:"ownerToken"`
	Participated bool   `json:"participated"`
}

// OwnedResult records the result-token of a result submitted locally.
type OwnedResult struct {
	ResultID    string `json:"resultId"`
	WorkoutID   string `json:"workoutId"`
	ResultToken string `json:"resultToken"`
}

type ownershipFile struct {
	Workouts []OwnedWorkout `json:"myWorkouts"`
	Results  []OwnedResult  `json:"myResults"`
}

// OwnershipStore keeps the tokens this client was handed, in a JSON file.
// It is a convenience for the user; the server never trusts it. Every
// mutation is written through to disk.
type OwnershipStore struct {
	path string

	mu   sync.Mutex
	data ownershipFile
}

// OpenOwnershipStore loads path, starting empty when it does not exist.
func OpenOwnershipStore(path string) (*OwnershipStore, error) {
	s := &OwnershipStore{path: path}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ownership store: %w", err)
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &s.data); err != nil {
			return nil, fmt.Errorf("parse ownership store %s: %w", path, err)
		}
	}
	return s, nil
}

// DefaultOwnershipPath is ~/.wodboard/ownership.json.
func DefaultOwnershipPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wodboard-ownership.json"
	}
	return filepath.Join(home, ".wodboard", "ownership.json")
}

// AddWorkout remembers a created workout's owner-token.
func (s *OwnershipStore) AddWorkout(workoutID, ownerToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Workouts {
		if s.data.Workouts[i].WorkoutID == workoutID {
			s.data.Workouts[i].OwnerToken = ownerToken
			return s.save()
		}
	}
	s.data.Workouts = append(s.data.Workouts, OwnedWorkout{WorkoutID: workoutID, OwnerToken: ownerToken})
	return s.save()
}

// OwnerToken returns the stored owner-token for workoutID.
func (s *OwnershipStore) OwnerToken(workoutID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.data.Workouts {
		if w.WorkoutID == workoutID {
			return w.OwnerToken, true
		}
	}
	return "", false
}

// RemoveWorkout forgets a workout and every result recorded for it.
func (s *OwnershipStore) RemoveWorkout(workoutID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	workouts := s.data.Workouts[:0]
	for _, w := range s.data.Workouts {
		if w.WorkoutID != workoutID {
			workouts = append(workouts, w)
		}
	}
	s.data.Workouts = workouts
	results := s.data.Results[:0]
	for _, r := range s.data.Results {
		if r.WorkoutID != workoutID {
			results = append(results, r)
		}
	}
	s.data.Results = results
	return s.save()
}

// AddResult remembers a submitted result's token and marks the workout as
// participated in when this client owns it.
func (s *OwnershipStore) AddResult(resultID, workoutID, resultToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Results = append(s.data.Results, OwnedResult{ResultID: resultID, WorkoutID: workoutID, ResultToken: resultToken})
	for i := range s.data.Workouts {
		if s.data.Workouts[i].WorkoutID == workoutID {
			s.data.Workouts[i].Participated = true
		}
	}
	return s.save()
}

// ResultToken returns the stored result-token for resultID.
func (s *OwnershipStore) ResultToken(resultID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.data.Results {
		if r.ResultID == resultID {
			return r.ResultToken, true
		}
	}
	return "", false
}

// RemoveResult forgets a result.
func (s *OwnershipStore) RemoveResult(resultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := s.data.Results[:0]
	for _, r := range s.data.Results {
		if r.ResultID != resultID {
			results = append(results, r)
		}
	}
	s.data.Results = results
	return s.save()
}

// MyResultIDs returns the ids of results this client submitted, as a set
// usable with scoring.ByIDs.
func (s *OwnershipStore) MyResultIDs() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]bool, len(s.data.Results))
	for _, r := range s.data.Results {
		ids[r.ResultID] = true
	}
	return ids
}

// Workouts returns a copy of the owned workouts.
func (s *OwnershipStore) Workouts() []OwnedWorkout {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OwnedWorkout, len(s.data.Workouts))
	copy(out, s.data.Workouts)
	return out
}

// save writes to a temp file and renames it over path. Callers hold s.mu.
func (s *OwnershipStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create ownership dir: %w", err)
	}
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write ownership store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace ownership store: %w", err)
	}
	return nil
}
