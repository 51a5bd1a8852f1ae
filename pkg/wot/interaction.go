package wot

import (
	"context"
	"fmt"
	"sync"
)

// Kind discriminates the Interaction tagged union (spec §3).
type Kind string

const (
	KindProperty Kind = "property"
	KindAction   Kind = "action"
	KindEvent    Kind = "event"
)

// ActionHandler is the asynchronous handler signature bound to an Action
// (spec §4.3: "Action handlers are asynchronous"). It runs on its own
// goroutine per invocation; ctx is the context passed to
// ExposedThing.InvokeAction. Neither protocol server cancels it when a
// remote client gives up on the request.
type ActionHandler func(ctx context.Context, params interface{}) (interface{}, error)

// Interaction is one Property, Action or Event belonging to a Thing. It
// owns its own ordered Form list (I3) and, for properties, its current
// value. Field access outside of the constructors always goes through
// the accessor methods below so that concurrent reads/writes are safe —
// mirrors the lock-around-the-only-access-path discipline the teacher
// uses for ExposedThing's valueStore.
type Interaction struct {
	kind Kind
	name string

	mu    sync.RWMutex
	forms []Form

	// Property fields.
	dataSchema map[string]interface{}
	writable   bool
	observable bool
	value      interface{}

	// Action fields.
	inputSchema  map[string]interface{}
	outputSchema map[string]interface{}
	handler      ActionHandler

	// Event fields.
	dataSchemaEvent map[string]interface{}
}

// NewProperty constructs a Property interaction. dataSchema is a JSON
// Schema fragment describing the value; may be nil.
func NewProperty(name string, dataSchema map[string]interface{}, writable, observable bool, initial interface{}) *Interaction {
	return &Interaction{
		kind:       KindProperty,
		name:       name,
		dataSchema: dataSchema,
		writable:   writable,
		observable: observable,
		value:      initial,
	}
}

// NewAction constructs an Action interaction. The handler may be nil
// (set later with SetHandler); invoking an Action with no handler bound
// fails with ErrNoHandler.
func NewAction(name string, inputSchema, outputSchema map[string]interface{}, handler ActionHandler) *Interaction {
	return &Interaction{
		kind:         KindAction,
		name:         name,
		inputSchema:  inputSchema,
		outputSchema: outputSchema,
		handler:      handler,
	}
}

// NewEvent constructs an Event interaction.
func NewEvent(name string, dataSchema map[string]interface{}) *Interaction {
	return &Interaction{
		kind:            KindEvent,
		name:            name,
		dataSchemaEvent: dataSchema,
	}
}

func (ia *Interaction) Kind() Kind   { return ia.kind }
func (ia *Interaction) Name() string { return ia.name }

// Writable reports whether a Property accepts external writes (I4).
func (ia *Interaction) Writable() bool {
	ia.mu.RLock()
	defer ia.mu.RUnlock()
	return ia.writable
}

// Observable reports whether a Property accepts subscriptions (I5).
func (ia *Interaction) Observable() bool {
	ia.mu.RLock()
	defer ia.mu.RUnlock()
	return ia.observable
}

// DataSchema returns the Property's data schema fragment, or nil.
func (ia *Interaction) DataSchema() map[string]interface{} {
	ia.mu.RLock()
	defer ia.mu.RUnlock()
	return ia.dataSchema
}

// InputSchema returns the Action's input schema fragment, or nil.
func (ia *Interaction) InputSchema() map[string]interface{} {
	ia.mu.RLock()
	defer ia.mu.RUnlock()
	return ia.inputSchema
}

// OutputSchema returns the Action's output schema fragment, or nil.
func (ia *Interaction) OutputSchema() map[string]interface{} {
	ia.mu.RLock()
	defer ia.mu.RUnlock()
	return ia.outputSchema
}

// EventSchema returns the Event's data schema fragment, or nil.
func (ia *Interaction) EventSchema() map[string]interface{} {
	ia.mu.RLock()
	defer ia.mu.RUnlock()
	return ia.dataSchemaEvent
}

// Value returns the Property's current cached value.
func (ia *Interaction) Value() interface{} {
	ia.mu.RLock()
	defer ia.mu.RUnlock()
	return ia.value
}

// SetValue overwrites the Property's current value and returns it, so
// callers can emit the exact post-write value (I6) without a second read
// racing a concurrent write.
func (ia *Interaction) SetValue(v interface{}) interface{} {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	ia.value = v
	return ia.value
}

// Handler returns the currently bound action handler, or nil.
func (ia *Interaction) Handler() ActionHandler {
	ia.mu.RLock()
	defer ia.mu.RUnlock()
	return ia.handler
}

// SetHandler replaces the Action's handler.
func (ia *Interaction) SetHandler(h ActionHandler) {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	ia.handler = h
}

// Forms returns a copy of the Interaction's ordered Form list.
func (ia *Interaction) Forms() []Form {
	ia.mu.RLock()
	defer ia.mu.RUnlock()
	out := make([]Form, len(ia.forms))
	copy(out, ia.forms)
	return out
}

// AddForm appends a Form, rejecting duplicates on (href, mediaType) (I3).
func (ia *Interaction) AddForm(f Form) error {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	key := formKey(f.Href, f.MediaType)
	for _, existing := range ia.forms {
		if formKey(existing.Href, existing.MediaType) == key {
			return fmt.Errorf("%w: href=%q mediaType=%q on interaction %q", ErrDuplicateForm, f.Href, f.MediaType, ia.name)
		}
	}
	ia.forms = append(ia.forms, f)
	return nil
}

// RemoveForm removes the Form matching (href, mediaType), if present.
func (ia *Interaction) RemoveForm(href, mediaType string) {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	key := formKey(href, mediaType)
	for i, f := range ia.forms {
		if formKey(f.Href, f.MediaType) == key {
			ia.forms = append(ia.forms[:i], ia.forms[i+1:]...)
			return
		}
	}
}
