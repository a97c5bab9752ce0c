package logs

import (
	"encoding/json"
	"strings"

	"vaultcast/internal/logging"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter narrows log lines. Empty fields match everything. JSON lines are
// matched on their fields; console lines fall back to substring matching.
type Filter struct {
	NotebookID string
	JobID      string
	MinLevel   string
}

// Empty reports whether the filter matches every line.
func (f Filter) Empty() bool {
	return f.NotebookID == "" && f.JobID == "" && f.MinLevel == ""
}

// Match reports whether line passes the filter.
func (f Filter) Match(line string) bool {
	if f.Empty() {
		return true
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return f.matchText(line)
	}
	if f.NotebookID != "" && field(record, logging.FieldNotebookID) != f.NotebookID {
		return false
	}
	if f.JobID != "" && field(record, logging.FieldJobID) != f.JobID {
		return false
	}
	if f.MinLevel != "" {
		have, ok := levelRank[strings.ToLower(field(record, "level"))]
		want := levelRank[strings.ToLower(f.MinLevel)]
		if !ok || have < want {
			return false
		}
	}
	return true
}

func (f Filter) matchText(line string) bool {
	if f.NotebookID != "" && !containsID(line, f.NotebookID) {
		return false
	}
	if f.JobID != "" && !containsID(line, f.JobID) {
		return false
	}
	if f.MinLevel != "" {
		want := levelRank[strings.ToLower(f.MinLevel)]
		for level, rank := range levelRank {
			if rank >= want && strings.Contains(line, strings.ToUpper(level)) {
				return true
			}
		}
		return false
	}
	return true
}

// containsID also accepts the 8-character prefix the console format prints.
func containsID(line, id string) bool {
	if strings.Contains(line, id) {
		return true
	}
	return len(id) > 8 && strings.Contains(line, id[:8])
}

func field(record map[string]any, key string) string {
	value, _ := record[key].(string)
	return value
}
