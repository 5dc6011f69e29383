package job

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type envelope struct {
	Kind   Kind            `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

// MarshalAction encodes a single action with its discriminator.
func MarshalAction(a Action) ([]byte, error) {
	env, err := toEnvelope(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// UnmarshalAction decodes a single action. Unknown kinds and invalid
// parameters are reported as ErrDecode.
func UnmarshalAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: action envelope: %w", ErrDecode, err)
	}
	return fromEnvelope(env)
}

// EncodeActions encodes an ordered action list.
func EncodeActions(actions []Action) ([]byte, error) {
	envs := make([]envelope, 0, len(actions))
	for _, a := range actions {
		env, err := toEnvelope(a)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return json.Marshal(envs)
}

// DecodeActions decodes an ordered action list. Any bad element fails the
// whole list.
func DecodeActions(data []byte) ([]Action, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("%w: action list: %w", ErrDecode, err)
	}
	actions := make([]Action, 0, len(envs))
	for i, env := range envs {
		a, err := fromEnvelope(env)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func toEnvelope(a Action) (envelope, error) {
	if a == nil {
		return envelope{}, fmt.Errorf("encode action: nil action")
	}
	if _, ok := registry[a.Kind()]; !ok {
		return envelope{}, fmt.Errorf("encode action: unregistered kind %q", a.Kind())
	}
	params, err := json.Marshal(a)
	if err != nil {
		return envelope{}, fmt.Errorf("encode action %s: %w", a.Kind(), err)
	}
	if bytes.Equal(params, []byte("{}")) {
		params = nil
	}
	return envelope{Kind: a.Kind(), Params: params}, nil
}

func fromEnvelope(env envelope) (Action, error) {
	if env.Kind == "" {
		return nil, fmt.Errorf("%w: action kind missing", ErrDecode)
	}
	factory, ok := registry[env.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action kind %q", ErrDecode, env.Kind)
	}
	a := factory()
	if len(env.Params) > 0 && !bytes.Equal(env.Params, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(env.Params))
		dec.DisallowUnknownFields()
		if err := dec.Decode(a); err != nil {
			return nil, fmt.Errorf("%w: %s params: %w", ErrDecode, env.Kind, err)
		}
	}
	if v, ok := a.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDecode, env.Kind, err)
		}
	}
	return a, nil
}
