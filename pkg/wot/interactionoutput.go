package wot

import "encoding/json"

// InteractionOutput wraps a value produced by reading a Property,
// invoking an Action, or observing an Event, giving callers typed
// accessors instead of raw interface{} assertions. Adapted from the
// teacher's pkg/thing/InteractionOutput.go, trimmed to the plain-value
// case since the new wire format carries JSON directly rather than a
// DataSchema-typed protobuf payload.
type InteractionOutput struct {
	Value interface{}
}

// NewInteractionOutput wraps an already-decoded Go value.
func NewInteractionOutput(value interface{}) *InteractionOutput {
	return &InteractionOutput{Value: value}
}

// NewInteractionOutputFromJSON decodes raw JSON into an InteractionOutput.
func NewInteractionOutputFromJSON(raw []byte) (*InteractionOutput, error) {
	var v interface{}
	if len(raw) == 0 {
		return &InteractionOutput{}, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &InteractionOutput{Value: v}, nil
}

// ValueAsMap type-asserts Value as a JSON object.
func (io *InteractionOutput) ValueAsMap() (map[string]interface{}, bool) {
	m, ok := io.Value.(map[string]interface{})
	return m, ok
}

// ValueAsArray type-asserts Value as a JSON array.
func (io *InteractionOutput) ValueAsArray() ([]interface{}, bool) {
	a, ok := io.Value.([]interface{})
	return a, ok
}

// ValueAsString type-asserts Value as a string.
func (io *InteractionOutput) ValueAsString() (string, bool) {
	s, ok := io.Value.(string)
	return s, ok
}

// ValueAsBool type-asserts Value as a bool.
func (io *InteractionOutput) ValueAsBool() (bool, bool) {
	b, ok := io.Value.(bool)
	return b, ok
}

// ValueAsFloat64 type-asserts Value as a float64, the type encoding/json
// decodes all JSON numbers into.
func (io *InteractionOutput) ValueAsFloat64() (float64, bool) {
	f, ok := io.Value.(float64)
	return f, ok
}

// MarshalJSON lets InteractionOutput be embedded directly in an
// envelope without callers unwrapping .Value first.
func (io *InteractionOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(io.Value)
}
