package models

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMatchesConditions_EmptyConditions(t *testing.T) {
	logger := discardLogger()

	assert.True(t, MatchesConditions(logger, "", map[string]any{"status": "won"}))
	assert.True(t, MatchesConditions(logger, "   ", map[string]any{"status": "won"}))
	assert.True(t, MatchesConditions(logger, "{}", map[string]any{"status": "won"}))
}

func TestMatchesConditions_SingleField(t *testing.T) {
	logger := discardLogger()
	conditions := `{"status": "won"}`

	assert.True(t, MatchesConditions(logger, conditions, map[string]any{"status": "won"}))
	assert.False(t, MatchesConditions(logger, conditions, map[string]any{"status": "lost"}))
}

func TestMatchesConditions_CaseInsensitive(t *testing.T) {
	logger := discardLogger()

	assert.True(t, MatchesConditions(logger, `{"status": "Won"}`, map[string]any{"status": "WON"}))
	assert.True(t, MatchesConditions(logger, `{"stage": "QUALIFIED"}`, map[string]any{"stage": "qualified"}))
}

func TestMatchesConditions_NumericValues(t *testing.T) {
	logger := discardLogger()

	// JSON numbers decode as float64, direct trigger data may carry ints. Both
	// sides compare by string form.
	assert.True(t, MatchesConditions(logger, `{"amount": 100}`, map[string]any{"amount": float64(100)}))
	assert.False(t, MatchesConditions(logger, `{"amount": 100}`, map[string]any{"amount": float64(200)}))
	assert.True(t, MatchesConditions(logger, `{"active": true}`, map[string]any{"active": true}))
}

func TestMatchesConditions_AbsentFieldIsSkipped(t *testing.T) {
	logger := discardLogger()

	assert.True(t, MatchesConditions(logger, `{"priority": "high"}`, map[string]any{"status": "won"}))
}

func TestMatchesConditions_NilTriggerData(t *testing.T) {
	logger := discardLogger()

	assert.True(t, MatchesConditions(logger, `{"status": "won"}`, nil))
}

func TestMatchesConditions_MalformedConditionsFailOpen(t *testing.T) {
	logger := discardLogger()

	assert.True(t, MatchesConditions(logger, `{"status": `, map[string]any{"status": "lost"}))
	assert.True(t, MatchesConditions(logger, `not json at all`, nil))
}

func TestMatchesConditions_MultipleFields(t *testing.T) {
	logger := discardLogger()
	conditions := `{"status": "won", "stage": "closed"}`

	assert.True(t, MatchesConditions(logger, conditions, map[string]any{
		"status": "won",
		"stage":  "closed",
	}))

	// One present-and-different field fails the whole set.
	assert.False(t, MatchesConditions(logger, conditions, map[string]any{
		"status": "won",
		"stage":  "open",
	}))

	// The differing field being absent does not.
	assert.True(t, MatchesConditions(logger, conditions, map[string]any{
		"status": "won",
	}))
}
