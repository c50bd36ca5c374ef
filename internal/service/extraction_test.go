package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"chatter", `Result: {"a":{"b":2}} hope this helps`, `{"a":{"b":2}}`, false},
		{"none", `no object here`, "", true},
		{"reversed", `} {`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLooseNumber(t *testing.T) {
	var v struct {
		A looseNumber `json:"a"`
		B looseNumber `json:"b"`
		C looseNumber `json:"c"`
		D looseNumber `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12.5,"b":"1,024.75","c":null,"d":""}`), &v))
	assert.Equal(t, 12.5, *v.A.Value)
	assert.Equal(t, 1024.75, *v.B.Value)
	assert.Nil(t, v.C.Value)
	assert.Nil(t, v.D.Value)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"abc"}`), &v))
}

func TestParseModelTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-11T09:00:00+05:30", time.Date(2026, 3, 11, 9, 0, 0, 0, testZone)},
		{"2026-03-11T03:30:00Z", time.Date(2026, 3, 11, 9, 0, 0, 0, testZone)},
		{"2026-03-11T18:45:00", time.Date(2026, 3, 11, 18, 45, 0, 0, testZone)},
		{"2026-03-11 18:45", time.Date(2026, 3, 11, 18, 45, 0, 0, testZone)},
		{"2026-03-11", time.Date(2026, 3, 11, 9, 0, 0, 0, testZone)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseModelTime(tt.in, testZone, 9)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := parseModelTime("March 11", testZone, 9)
	assert.Error(t, err)
}

func TestValidConfidence(t *testing.T) {
	in := func(v float64) *float64 { return &v }
	assert.NoError(t, validConfidence(nil))
	assert.NoError(t, validConfidence(in(0)))
	assert.NoError(t, validConfidence(in(100)))
	assert.Error(t, validConfidence(in(100.01)))
	assert.Error(t, validConfidence(in(-0.5)))
}

func TestSanitizeAndTrim(t *testing.T) {
	assert.Equal(t, "ab", sanitizeUTF8("a\xffb"))
	assert.Nil(t, trimmed(nil))
	blank := "  \t"
	assert.Nil(t, trimmed(&blank))
	s := " hi "
	assert.Equal(t, "hi", *trimmed(&s))
}
