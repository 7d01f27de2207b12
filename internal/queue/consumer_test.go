package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEvent(t *testing.T) {
	ev := ActivityEvent{
		Type:        ResultSubmitted,
		WorkoutID:   "w1",
		ResultID:    "r1",
		AthleteName: "Ana",
		Gender:      "F",
		ResultValue: "12:45",
		OccurredAt:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	line := FormatEvent(ev)
	assert.Equal(t, `[2026-03-01T09:30:00Z] result.submitted | workout_id=w1 | result_id=r1 | athlete="Ana" | gender=F | result="12:45"`+"\n", line)
}

func TestFormatEvent_TruncatesDescription(t *testing.T) {
	ev := NewEvent(WorkoutCreated, "w1")
	ev.Description = strings.Repeat("x", 100) + "\nsecond line"
	line := FormatEvent(ev)
	assert.Contains(t, line, `description="`+strings.Repeat("x", 80)+`..."`)
	assert.NotContains(t, line, "second line")
	assert.Equal(t, 1, strings.Count(line, "\n"))
}

func TestHandleMessage_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "activity.log")

	for _, typ := range []EventType{WorkoutCreated, WorkoutDeleted} {
		body, err := json.Marshal(NewEvent(typ, "w1"))
		require.NoError(t, err)
		require.NoError(t, handleMessage(path, body))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "workout.created")
	assert.Contains(t, lines[1], "workout.deleted")
}

func TestHandleMessage_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	assert.Error(t, handleMessage(path, []byte("not json")))
	assert.Error(t, handleMessage(path, []byte(`{"workout_id":"w1"}`)))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), NewEvent(ResultDeleted, "w1")))
	assert.NoError(t, p.Close())
}
