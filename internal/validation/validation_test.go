package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrshanahan/notes-service/internal/apierr"
)

func TestParseNoteRequestAcceptsValidPayload(t *testing.T) {
	req, err := ParseNoteRequest([]byte(`{"name":"Groceries"}`))
	require.NoError(t, err)
	require.Equal(t, "Groceries", req.Name)
}

func TestParseNoteRequestDropsUnknownFields(t *testing.T) {
	req, err := ParseNoteRequest([]byte(`{"name":"Groceries","id":"attacker-chosen","extra":42}`))
	require.NoError(t, err)
	require.Equal(t, "Groceries", req.Name)
}

func TestParseNoteRequestRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not JSON", "{nope"},
		{"missing name", `{}`},
		{"null name", `{"name":null}`},
		{"empty name", `{"name":""}`},
		{"non-string name", `{"name":42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseNoteRequest([]byte(tc.body))
			require.Error(t, err)
			apiErr, ok := apierr.As(err)
			require.True(t, ok)
			assert.Equal(t, apierr.CodeValidation, apiErr.Code)
			assert.Equal(t, 400, apiErr.Status)
		})
	}
}

func TestValidateReportsPerFieldViolations(t *testing.T) {
	_, err := Validate(NoteSchema, []byte(`{"name":""}`))
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "name", apiErr.Fields[0].Field)
	assert.Equal(t, "Name is required", apiErr.Fields[0].Message)
}

func TestValidateIsDeterministic(t *testing.T) {
	body := []byte(`{"name":"same"}`)
	first, err := Validate(NoteSchema, body)
	require.NoError(t, err)
	second, err := Validate(NoteSchema, body)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
