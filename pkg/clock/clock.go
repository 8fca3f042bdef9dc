// Package clock models time-of-day values at minute granularity and the
// half-open interval arithmetic used by the scheduling engine.
package clock

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds every Time value; 24:00 is accepted as an end marker.
const MinutesPerDay = 24 * 60

// Time is a time of day expressed as minutes since midnight.
type Time int

// New builds a Time from hour and minute components.
func New(hour, minute int) Time {
	return Time(hour*60 + minute)
}

// Parse accepts "HH:MM" or "HH:MM:SS" (seconds must be zero).
func Parse(raw string) (Time, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(strings.SplitN(parts[2], ".", 2)[0])
		if err != nil || sec != 0 {
			return 0, fmt.Errorf("seconds not supported in %q", raw)
		}
	}
	t := New(hour, minute)
	if hour < 0 || t > MinutesPerDay {
		return 0, fmt.Errorf("time of day out of range %q", raw)
	}
	return t, nil
}

// MustParse is Parse for constants and tests.
func MustParse(raw string) Time {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Hour returns the hour component.
func (t Time) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t Time) Minute() int { return int(t) % 60 }

// String renders HH:MM.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Valid reports whether t lies within a day.
func (t Time) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

// MarshalJSON encodes the value as "HH:MM".
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "HH:MM" or "HH:MM:SS".
func (t *Time) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan implements sql.Scanner for TIME columns.
func (t *Time) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = 0
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		return t.Scan(string(v))
	case time.Time:
		*t = New(v.Hour(), v.Minute())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into clock.Time", src)
	}
}

// Value implements driver.Valuer.
func (t Time) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
// Back-to-back windows do not overlap and an empty window overlaps nothing.
func Overlaps(aStart, aEnd, bStart, bEnd Time) bool {
	return aStart < bEnd && aEnd > bStart && aStart < aEnd && bStart < bEnd
}

// Contains reports whether [innerStart,innerEnd) lies within [outerStart,outerEnd).
func Contains(outerStart, outerEnd, innerStart, innerEnd Time) bool {
	return outerStart <= innerStart && innerEnd <= outerEnd
}
