package importparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// coerceInt parses an integer column. Per §4.4 an empty string means
// "absent" and is returned as (0, false, nil).
func coerceInt(s string) (int, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("not an integer: %q", s)
	}
	return n, true, nil
}

// coerceBool01 parses a bool01 column: "0", "1", or empty (empty = false).
func coerceBool01(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "", "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("not a bool01 value (expected 0, 1, or empty): %q", s)
	}
}

// coerceTimestamp parses an RFC3339-with-millis timestamp such as
// "2024-01-01T00:00:00.000Z", recognizing the documented sentinels.
func coerceTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse("2006-01-02T15:04:05.000Z", s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("not a valid timestamp: %q", s)
		}
	}
	return t.UTC(), nil
}

// ParseTimestamp exposes coerceTimestamp to callers outside the package that
// need to turn a parsed schema event's Start/Expiration strings into a
// time.Time, e.g. when building the in-memory graph model from a TaskRecord.
func ParseTimestamp(s string) (time.Time, error) {
	return coerceTimestamp(s)
}

// splitList parses the " / "-delimited list grammar used by the Tags and
// App tags columns.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitCustomProperties parses the "n=v / n=v" grammar into a name -> value
// map; the source order of the pairs is not kept, and a repeated name keeps
// its last value.
func splitCustomProperties(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range splitList(s) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed custom property pair: %q", pair)
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out, nil
}
