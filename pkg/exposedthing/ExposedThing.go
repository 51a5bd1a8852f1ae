// Package exposedthing implements the ExposedThing API: the local,
// handler-bound side of a Thing that device implementers use to serve
// Property reads/writes, Action invocations and Event emissions to
// remote consumers over whichever protocol binding is attached.
package exposedthing

import (
	"context"
	"fmt"

	"github.com/wostzone/wot-servient/pkg/changebus"
	"github.com/wostzone/wot-servient/pkg/wot"
)

// ExposedThing binds a wot.Thing to a changebus.Bus so that property
// writes, action invocations and event emissions on the Thing become
// observable by any number of subscribers — the WS server, the CoAP
// server, or an in-process test. Grounded on the teacher's
// ExposedThing.go: the action-handler-keyed-by-name idea and the
// value-store-as-single-source-of-truth discipline survive; the MQTT
// emit hooks are replaced by change-bus publication, and handlers are
// asynchronous (spec §4.3) rather than the teacher's synchronous
// func(...) error shape.
type ExposedThing struct {
	thing *wot.Thing
	bus   *changebus.Bus
}

// NewExposedThing constructs an ExposedThing around an already-built
// wot.Thing. Call Destroy when the Thing is taken down so subscribers
// are released.
func NewExposedThing(th *wot.Thing) *ExposedThing {
	return &ExposedThing{
		thing: th,
		bus:   changebus.New(),
	}
}

// ThingDescription returns the underlying Thing model.
func (et *ExposedThing) ThingDescription() *wot.Thing {
	return et.thing
}

// Destroy releases all subscribers of this Thing's change bus. It does
// not affect the Thing model itself, which may outlive this ExposedThing
// (e.g. across a servient restart that re-wraps the same catalogue).
func (et *ExposedThing) Destroy() {
	et.bus.Close()
}

// AddInteraction registers ia on the underlying Thing and emits exactly
// one td_change event (I7) once the addition succeeds.
func (et *ExposedThing) AddInteraction(ia *wot.Interaction) error {
	if err := et.thing.AddInteraction(ia); err != nil {
		return err
	}
	et.emitTDChange(wot.NewTDChangeEvent(wot.TDChangeAdd, ia))
	return nil
}

// RemoveInteraction deregisters name and emits exactly one td_change
// event if it was present (I7).
func (et *ExposedThing) RemoveInteraction(name string) {
	ia, err := et.thing.FindInteraction(name)
	if err != nil {
		return
	}
	et.thing.RemoveInteraction(ia.Name())
	et.emitTDChange(wot.NewTDChangeEvent(wot.TDChangeRemove, ia))
}

func (et *ExposedThing) emitTDChange(ev wot.TDChangeEvent) {
	et.bus.Publish(changebus.TopicTDChange, string(ev.TDChangeType), ev)
}

// SetActionHandler binds handler to the Action named name. Returns
// ErrNotFound if name is not a registered Action.
func (et *ExposedThing) SetActionHandler(name string, handler wot.ActionHandler) error {
	ia, err := et.findKind(name, wot.KindAction)
	if err != nil {
		return err
	}
	ia.SetHandler(handler)
	return nil
}

// InvokeAction runs the handler bound to the Action named name,
// returning its result. The handler executes on its own goroutine (spec
// §4.3: "Action handlers are asynchronous"); InvokeAction blocks until
// the handler returns or ctx is cancelled, whichever comes first.
func (et *ExposedThing) InvokeAction(ctx context.Context, name string, params interface{}) (interface{}, error) {
	ia, err := et.findKind(name, wot.KindAction)
	if err != nil {
		return nil, err
	}
	handler := ia.Handler()
	if handler == nil {
		return nil, fmt.Errorf("%w: action %q", wot.ErrNoHandler, name)
	}

	type outcome struct {
		value interface{}
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := handler(ctx, params)
		done <- outcome{value, err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadProperty returns the current cached value of the Property named
// name.
func (et *ExposedThing) ReadProperty(name string) (*wot.InteractionOutput, error) {
	ia, err := et.findKind(name, wot.KindProperty)
	if err != nil {
		return nil, err
	}
	return wot.NewInteractionOutput(ia.Value()), nil
}

// ReadAllProperties returns every Property's current value keyed by
// name.
func (et *ExposedThing) ReadAllProperties() map[string]*wot.InteractionOutput {
	out := make(map[string]*wot.InteractionOutput)
	for _, ia := range et.thing.InteractionsOfKind(wot.KindProperty) {
		out[ia.Name()] = wot.NewInteractionOutput(ia.Value())
	}
	return out
}

// WriteProperty sets the Property named name to value and publishes a
// property-change event with that exact value (I6). external
// distinguishes a write originating from a remote consumer, which must
// be rejected with ErrNotWritable against a non-writable Property (I4),
// from an internal write made by the device's own handler code, which is
// always allowed — the single codepath with an `external` flag mirrors
// the teacher's handlePropertyWriteRequest, which had no internal-write
// caller to distinguish from.
func (et *ExposedThing) WriteProperty(name string, value interface{}, external bool) error {
	ia, err := et.findKind(name, wot.KindProperty)
	if err != nil {
		return err
	}
	if external && !ia.Writable() {
		return fmt.Errorf("%w: property %q", wot.ErrNotWritable, name)
	}
	stored := ia.SetValue(value)
	et.bus.Publish(changebus.PropertyTopic(name), name, stored)
	return nil
}

// EmitEvent publishes data under the Event named name. Returns
// ErrNotFound if name is not a registered Event.
func (et *ExposedThing) EmitEvent(name string, data interface{}) error {
	ia, err := et.findKind(name, wot.KindEvent)
	if err != nil {
		return err
	}
	et.bus.Publish(changebus.EventTopic(ia.Name()), ia.Name(), data)
	return nil
}

// ObserveProperty subscribes to change events for the Property named
// name. Returns ErrNotObservable if the Property does not declare
// observable (I5).
func (et *ExposedThing) ObserveProperty(name string) (*changebus.Subscription, error) {
	ia, err := et.findKind(name, wot.KindProperty)
	if err != nil {
		return nil, err
	}
	if !ia.Observable() {
		return nil, fmt.Errorf("%w: property %q", wot.ErrNotObservable, name)
	}
	return et.bus.Subscribe(changebus.PropertyTopic(name), name, 0), nil
}

// SubscribeEvent subscribes to emissions of the Event named name.
func (et *ExposedThing) SubscribeEvent(name string) (*changebus.Subscription, error) {
	ia, err := et.findKind(name, wot.KindEvent)
	if err != nil {
		return nil, err
	}
	return et.bus.Subscribe(changebus.EventTopic(ia.Name()), ia.Name(), 0), nil
}

// SubscribeTDChange subscribes to this Thing's td_change topic.
func (et *ExposedThing) SubscribeTDChange() *changebus.Subscription {
	return et.bus.Subscribe(changebus.TopicTDChange, "", 0)
}

func (et *ExposedThing) findKind(name string, kind wot.Kind) (*wot.Interaction, error) {
	ia, err := et.thing.FindInteraction(name)
	if err != nil {
		return nil, err
	}
	if ia.Kind() != kind {
		return nil, fmt.Errorf("%w: %q is not a %s", wot.ErrNotFound, name, kind)
	}
	return ia, nil
}
