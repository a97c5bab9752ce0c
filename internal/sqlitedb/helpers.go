package sqlitedb

import (
	"database/sql"
	"errors"
	"time"
)

// NullableString stores empty strings as NULL.
func NullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so timestamp columns sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders timestamps in the canonical column format.
func FormatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

// ParseTime reads a timestamp column written by FormatTime or SQLite defaults.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// ParseNullTime is ParseTime for nullable columns; invalid values yield zero.
func ParseNullTime(value sql.NullString) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	t, err := ParseTime(value.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BoolToInt converts a flag to its column representation.
func BoolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
