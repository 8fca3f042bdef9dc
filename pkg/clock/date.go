package clock

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-date layout.
const DateLayout = "2006-01-02"

// Date is a calendar date without zone, stored as YYYY-MM-DD.
type Date string

// ParseDate validates and normalises a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// String returns the raw date.
func (d Date) String() string { return string(d) }

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = ""
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.Scan(string(v))
	case string:
		if len(v) > len(DateLayout) {
			v = v[:len(DateLayout)]
		}
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into clock.Date", src)
	}
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}
