package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the on-disk date format shared by every collection.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a time.Time persisted as TimestampLayout in local time.
// RFC 3339 values are accepted on read.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to whole seconds, the precision of the stored layout.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Second)}
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.Local().Format(TimestampLayout))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		ts.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		ts.Time = time.Time{}
		return nil
	}
	if t, err := time.ParseInLocation(TimestampLayout, s, time.Local); err == nil {
		ts.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("timestamp %q: unrecognized format", s)
	}
	ts.Time = t
	return nil
}

func (ts Timestamp) String() string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(TimestampLayout)
}
