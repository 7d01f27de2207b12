package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/wod-leaderboard/internal/model"
	"github.com/iliyamo/wod-leaderboard/internal/scoring"
)

func TestRenderLeaderboard(t *testing.T) {
	comment := "scaled"
	standings := []scoring.Standing{
		{Position: 1, Result: model.Result{AthleteName: "Ana", Gender: model.GenderFemale, ResultValue: "95",
			RoundDetails: &model.RoundDetails{Rounds: []float64{10, 12.5}}, Comment: &comment}},
		{Position: 2, Result: model.Result{AthleteName: "Bo", Gender: model.GenderMale, ResultValue: "DNF", IsDNF: true}},
	}
	var buf bytes.Buffer
	renderLeaderboard(&buf, standings)
	out := buf.String()

	assert.Contains(t, out, "ATHLETE")
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "10 12.5")
	assert.Contains(t, out, "scaled")
	assert.Less(t, strings.Index(out, "Ana"), strings.Index(out, "Bo"))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Fran", firstLine("Fran\n21-15-9"))
	long := strings.Repeat("a", 70)
	assert.Equal(t, strings.Repeat("a", 60)+"...", firstLine(long))
}
