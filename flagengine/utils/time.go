package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/itlightning/dateparse"
)

// ParseTimestamp parses a strict RFC3339 timestamp as used by date constraints.
func ParseTimestamp(value string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseLenientTime parses a timestamp supplied by a host runtime. RFC3339 is tried first, then any
// layout dateparse recognises. Layouts without a zone are read as UTC.
func ParseLenientTime(value string) (time.Time, error) {
	if t, ok := ParseTimestamp(value); ok {
		return t, nil
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
	}
	return t, nil
}

// FlexibleString is a type that can unmarshal from either string or number JSON values.
type FlexibleString string

// UnmarshalJSON implements custom JSON unmarshaling for FlexibleString.
func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*f = FlexibleString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexibleString(num.String())
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexibleString(fmt.Sprint(b))
		return nil
	}

	return fmt.Errorf("unable to unmarshal FlexibleString: invalid format %s", data)
}
