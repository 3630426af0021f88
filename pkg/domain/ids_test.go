package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "aip/pkg/domain-errors"
)

// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRequestID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRequestID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseProjectID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseProjectID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, ProjectID(valid), id)
	})
}

func TestParseID_RejectsHostileInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"whitespace only", "   "},
		{"oversized", strings.Repeat("a", 1000)},
		{"sql injection", "'; DROP TABLE verification_requests;--"},
		{"null byte suffix", "550e8400-e29b-41d4-a716-446655440000\x00x"},
		{"invalid utf8", string([]byte{0xff, 0xfe, 0xfd})},
		{"zero width space", "550e8400-e29b-41d4-a716-446655440000​"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsers := map[string]func(string) error{
				"user":    func(s string) error { _, err := ParseUserID(s); return err },
				"org":     func(s string) error { _, err := ParseOrgID(s); return err },
				"project": func(s string) error { _, err := ParseProjectID(s); return err },
				"request": func(s string) error { _, err := ParseRequestID(s); return err },
				"check":   func(s string) error { _, err := ParseCheckID(s); return err },
				"record":  func(s string) error { _, err := ParseRecordID(s); return err },
			}
			for kind, parse := range parsers {
				err := parse(tt.input)
				require.Error(t, err, kind)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), kind)
			}
		})
	}
}

func TestIDs_JSONRoundTrip(t *testing.T) {
	type payload struct {
		Request RequestID `json:"request_id"`
		Check   CheckID   `json:"check_id"`
	}
	in := payload{Request: NewRequestID(), Check: NewCheckID()}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), in.Request.String())

	var out payload
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestNewIDs_AreNotNil(t *testing.T) {
	assert.False(t, NewProjectID().IsNil())
	assert.False(t, NewRequestID().IsNil())
	assert.False(t, NewRecordID().IsNil())
	assert.True(t, RequestID(uuid.Nil).IsNil())
}
