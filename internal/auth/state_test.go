package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	original := &State{CameFrom: "https://app.example.com/notes"}
	param, err := original.Encode("nonce-abc")
	require.NoError(t, err)

	state, nonce, err := ParseState(param)
	require.NoError(t, err)
	assert.Equal(t, "nonce-abc", nonce)
	assert.Equal(t, original.CameFrom, state.CameFrom)
}

func TestParseStateRejectsGarbage(t *testing.T) {
	for _, param := range []string{"", "!!!not-base64!!!", "bm90LWpzb24"} {
		_, _, err := ParseState(param)
		assert.Error(t, err, "param: %q", param)
	}
}

func TestParseStateRequiresNonce(t *testing.T) {
	param, err := (&State{}).Encode("")
	require.NoError(t, err)
	_, _, err = ParseState(param)
	assert.Error(t, err)
}
