package models

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// MatchesConditions evaluates a workflow's stored trigger conditions against an
// event's trigger data.
//
// conditionsJSON is a JSON object mapping field names to expected values; empty
// or blank means "always match". Values are compared by their string form,
// case-insensitively. Matching is deliberately permissive: a nil trigger-data
// map matches, a field absent from the trigger data is skipped rather than
// counted as a mismatch, and malformed stored conditions match with a warning
// logged (fail open). A single present-and-different field fails the whole set.
//
// The function is pure and safe for concurrent use.
func MatchesConditions(logger *slog.Logger, conditionsJSON string, triggerData map[string]any) bool {
	if strings.TrimSpace(conditionsJSON) == "" {
		return true
	}

	var conditions map[string]any
	if err := json.Unmarshal([]byte(conditionsJSON), &conditions); err != nil {
		logger.Warn("Malformed trigger conditions, treating as always-match",
			"error", err,
			"conditions", conditionsJSON)

		return true
	}

	if len(conditions) == 0 {
		return true
	}

	if triggerData == nil {
		return true
	}

	for field, expected := range conditions {
		actual, present := triggerData[field]
		if !present {
			continue
		}

		if !strings.EqualFold(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)) {
			return false
		}
	}

	return true
}
