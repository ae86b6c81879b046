package graph

import (
	"encoding/json"
	"fmt"
)

// SerializationError reports a stored properties payload that failed to
// decode on read. It indicates store corruption and must propagate to the
// caller undecorated.
type SerializationError struct {
	EntityID string
	Err      error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("corrupt properties for %s: %v", e.EntityID, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// encodeProps serializes an open properties map to its flat stored form, for
// backends without native nested structures. The encoding round-trips
// losslessly for any JSON-representable value. A nil or empty map encodes to
// the empty string.
func encodeProps(props map[string]any) (string, error) {
	if len(props) == 0 {
		return "", nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("encode properties: %w", err)
	}
	return string(data), nil
}

// decodeProps deserializes the flat stored form back into a properties map.
// entityID is only used for error reporting.
func decodeProps(encoded, entityID string) (map[string]any, error) {
	if encoded == "" {
		return nil, nil
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(encoded), &props); err != nil {
		return nil, &SerializationError{EntityID: entityID, Err: err}
	}
	return props, nil
}
