package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// State is the application data carried through the oauth2 state
// parameter. The nonce binds the callback to a login this process
// initiated.
type State struct {
	CameFrom string `json:"came_from,omitempty"`
}

type stateEnvelope struct {
	Nonce string `json:"nonce"`
	State *State `json:"state"`
}

func (s *State) Encode(nonce string) (string, error) {
	payload, err := json.Marshal(&stateEnvelope{Nonce: nonce, State: s})
	if err != nil {
		return "", fmt.Errorf("error encoding state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(payload), nil
}

// ParseState decodes a state parameter, returning the application
// state and the nonce it was bound to.
func ParseState(param string) (*State, string, error) {
	payload, err := base64.URLEncoding.DecodeString(param)
	if err != nil {
		return nil, "", fmt.Errorf("state is not valid base64: %w", err)
	}

	var envelope stateEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, "", fmt.Errorf("state is not valid JSON: %w", err)
	}
	if envelope.Nonce == "" {
		return nil, "", fmt.Errorf("state is missing nonce")
	}
	state := envelope.State
	if state == nil {
		state = &State{}
	}
	return state, envelope.Nonce, nil
}
