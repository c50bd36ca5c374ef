package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// extractJSONObject cuts the first top-level JSON object out of a model
// reply, tolerating code fences and chatter around it.
func extractJSONObject(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in model reply")
	}
	return content[start : end+1], nil
}

// decodeModelJSON extracts and decodes a JSON object from a model reply.
func decodeModelJSON(content string, v any) error {
	raw, err := extractJSONObject(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// looseNumber accepts a JSON number or a numeric string such as "1,250.00".
type looseNumber struct {
	Value *float64
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
		if raw == "" {
			n.Value = nil
			return nil
		}
	} else {
		raw = string(data)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !isFinite(v) {
		return fmt.Errorf("invalid number %q", raw)
	}
	n.Value = &v
	return nil
}

// parseModelTime reads the date formats models produce. A bare date is
// placed at defaultHour local time; a timestamp without an offset is read
// in loc.
func parseModelTime(value string, loc *time.Location, defaultHour int) (time.Time, error) {
	value = strings.TrimSpace(value)

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	if d, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), defaultHour, 0, 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func validConfidence(c *float64) error {
	if c == nil {
		return nil
	}
	if !isFinite(*c) || *c < 0 || *c > 100 {
		return fmt.Errorf("confidence %.2f outside 0-100", *c)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
