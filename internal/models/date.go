package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

var dateLocation atomic.Pointer[time.Location]

// SetDateLocation sets the zone plain date strings are read in. Until it is
// called they are read as time.Local.
func SetDateLocation(loc *time.Location) {
	dateLocation.Store(loc)
}

func dateLoc() *time.Location {
	if loc := dateLocation.Load(); loc != nil {
		return loc
	}
	return time.Local
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FlexibleDate accepts the shapes appointment dates arrive in: RFC 3339 or
// plain date strings, unix seconds or milliseconds, and {seconds, nanoseconds}
// timestamp objects. It always encodes as RFC 3339.
type FlexibleDate struct {
	time.Time
}

func NewFlexibleDate(t time.Time) FlexibleDate {
	return FlexibleDate{Time: t}
}

type timestampObject struct {
	Seconds      *int64 `json:"seconds"`
	Nanoseconds  int64  `json:"nanoseconds"`
	USeconds     *int64 `json:"_seconds"`
	UNanoseconds int64  `json:"_nanoseconds"`
}

func (d *FlexibleDate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t, err := ParseDate(s)
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	case '{':
		var obj timestampObject
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		switch {
		case obj.Seconds != nil:
			d.Time = time.Unix(*obj.Seconds, obj.Nanoseconds)
		case obj.USeconds != nil:
			d.Time = time.Unix(*obj.USeconds, obj.UNanoseconds)
		default:
			return fmt.Errorf("models: timestamp object without seconds: %s", b)
		}
		return nil
	default:
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("models: unsupported date %s: %w", b, err)
		}
		// Anything past 1e12 is milliseconds; in seconds that is year 33658.
		if n > 1e12 || n < -1e12 {
			d.Time = time.UnixMilli(n)
		} else {
			d.Time = time.Unix(n, 0)
		}
		return nil
	}
}

func (d FlexibleDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

func (d *FlexibleDate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time = time.Time{}
	case time.Time:
		d.Time = v
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return err
		}
		d.Time = t
	case []byte:
		t, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		d.Time = t
	default:
		return fmt.Errorf("models: cannot scan %T into FlexibleDate", src)
	}
	return nil
}

func (d FlexibleDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// ParseDate parses the string layouts FlexibleDate understands. Layouts
// without a zone are read in the location set by SetDateLocation.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, dateLoc())
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("models: unrecognised date %q", s)
}
