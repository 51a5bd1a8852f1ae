// Package consumedthing implements the ConsumedThing API: the remote,
// cached representation of a Thing used by consumers that talk to it
// over a protocol binding (WS or CoAP) rather than holding its handlers
// directly.
package consumedthing

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/wot-servient/pkg/wot"
)

// ConsumedThing is modelled after the WoT scripting API's ConsumedThing
// interface, the same way the teacher's ConsumedThing.go is: reads are
// served from a local cache so ReadProperty never blocks on the
// network, and invoke/write/observe/subscribe are each routed through a
// hook installed by the owning protocol binding (the wsclient package). Kept from the teacher almost verbatim: the hook
// pattern, the single-active-subscription-per-name rule, and the
// value-store-is-the-only-truth discipline. Replaced: the hooks now
// take a context.Context and return richer errors, and the value cache
// lives inside each wot.Interaction rather than a separate
// map[string]*InteractionOutput, since ConsumedThing and ExposedThing
// now share the same wot.Thing/Interaction model instead of a
// protobuf-backed ThingTD.
type ConsumedThing struct {
	// InvokeActionHook sends an action-invocation request to the remote
	// Thing and returns its result. Installed by the protocol binding.
	InvokeActionHook func(ctx context.Context, name string, params interface{}) (interface{}, error)

	// WritePropertyHook sends a property-write request to the remote
	// Thing. Installed by the protocol binding.
	WritePropertyHook func(ctx context.Context, name string, value interface{}) error

	// ObservePropertyHook/UnobservePropertyHook start and stop the wire
	// subscription backing ObserveProperty/the Subscription's Dispose.
	ObservePropertyHook   func(name string) error
	UnobservePropertyHook func(name string)

	// SubscribeEventHook/UnsubscribeEventHook start and stop the wire
	// subscription backing SubscribeEvent/the Subscription's Dispose.
	SubscribeEventHook   func(name string) error
	UnsubscribeEventHook func(name string)

	thing *wot.Thing

	subscriptionMutex   sync.Mutex
	activeObservations  map[string]*Subscription
	activeSubscriptions map[string]*Subscription
}

// NewConsumedThing constructs a ConsumedThing wrapping the given cached
// Thing Description. Use a protocol binding's Consume(...) to obtain one
// with its hooks already installed.
func NewConsumedThing(th *wot.Thing) *ConsumedThing {
	return &ConsumedThing{
		thing:               th,
		activeObservations:  make(map[string]*Subscription),
		activeSubscriptions: make(map[string]*Subscription),
	}
}

// ThingDescription returns the cached Thing Description.
func (cThing *ConsumedThing) ThingDescription() *wot.Thing {
	return cThing.thing
}

// HandleEvent routes an incoming property-change notification or event
// emission to its registered Subscription, if any, and — for a
// property — updates the local cache first so a subsequent ReadProperty
// reflects it immediately.
func (cThing *ConsumedThing) HandleEvent(name string, raw []byte) {
	ia, err := cThing.thing.FindInteraction(name)
	if err != nil {
		logrus.Warningf("consumedthing: event for unknown interaction '%s' on thing '%s'", name, cThing.thing.ID())
		return
	}

	out, err := wot.NewInteractionOutputFromJSON(raw)
	if err != nil {
		logrus.Warningf("consumedthing: malformed payload for '%s' on thing '%s': %s", name, cThing.thing.ID(), err)
		return
	}

	switch ia.Kind() {
	case wot.KindProperty:
		ia.SetValue(out.Value)
		cThing.subscriptionMutex.Lock()
		sub, found := cThing.activeObservations[name]
		cThing.subscriptionMutex.Unlock()
		if found {
			sub.Handler(name, out)
		}
	case wot.KindEvent:
		cThing.subscriptionMutex.Lock()
		sub, found := cThing.activeSubscriptions[name]
		cThing.subscriptionMutex.Unlock()
		if found {
			sub.Handler(name, out)
		}
	default:
		logrus.Warningf("consumedthing: event for non-observable interaction '%s' on thing '%s'", name, cThing.thing.ID())
	}
}

// InvokeAction sends a request to invoke the Action named name through
// InvokeActionHook and returns its result. ctx is handed to the hook,
// which decides what an expired ctx returns (wsclient returns
// wsclient.ErrTimeout on a deadline).
func (cThing *ConsumedThing) InvokeAction(ctx context.Context, name string, params interface{}) (interface{}, error) {
	ia, err := cThing.thing.FindInteraction(name)
	if err != nil {
		return nil, err
	}
	if ia.Kind() != wot.KindAction {
		return nil, fmt.Errorf("%w: %q is not an action", wot.ErrNotFound, name)
	}
	if cThing.InvokeActionHook == nil {
		return nil, fmt.Errorf("consumedthing: no InvokeActionHook installed for thing '%s'", cThing.thing.ID())
	}
	return cThing.InvokeActionHook(ctx, name, params)
}

// ObserveProperty requests change notifications for the Property named
// name, invoking handler on each one. Only one observation per name may
// be active at a time.
func (cThing *ConsumedThing) ObserveProperty(name string, handler func(name string, data *wot.InteractionOutput)) error {
	ia, err := cThing.thing.FindInteraction(name)
	if err != nil {
		return err
	}
	if ia.Kind() != wot.KindProperty {
		return fmt.Errorf("%w: %q is not a property", wot.ErrNotFound, name)
	}

	cThing.subscriptionMutex.Lock()
	defer cThing.subscriptionMutex.Unlock()
	if _, found := cThing.activeObservations[name]; found {
		return fmt.Errorf("an observation for property '%s' already exists", name)
	}
	if cThing.ObservePropertyHook != nil {
		if err := cThing.ObservePropertyHook(name); err != nil {
			return err
		}
	}
	cThing.activeObservations[name] = &Subscription{
		SubType:     SubscriptionTypeProperty,
		Name:        name,
		interaction: ia,
		Handler:     handler,
	}
	return nil
}

// UnobserveProperty stops delivering change notifications for name.
func (cThing *ConsumedThing) UnobserveProperty(name string) {
	cThing.subscriptionMutex.Lock()
	_, found := cThing.activeObservations[name]
	delete(cThing.activeObservations, name)
	cThing.subscriptionMutex.Unlock()

	if found && cThing.UnobservePropertyHook != nil {
		cThing.UnobservePropertyHook(name)
	}
}

// ReadProperty reads a Property value from the local cache, returning
// ErrNotFound if name is not a known property.
func (cThing *ConsumedThing) ReadProperty(name string) (*wot.InteractionOutput, error) {
	ia, err := cThing.thing.FindInteraction(name)
	if err != nil {
		return nil, err
	}
	if ia.Kind() != wot.KindProperty {
		return nil, fmt.Errorf("%w: %q is not a property", wot.ErrNotFound, name)
	}
	return wot.NewInteractionOutput(ia.Value()), nil
}

// ReadMultipleProperties reads several cached Property values in one
// call. Unknown names are simply absent from the result.
func (cThing *ConsumedThing) ReadMultipleProperties(names []string) map[string]*wot.InteractionOutput {
	res := make(map[string]*wot.InteractionOutput)
	for _, name := range names {
		if out, err := cThing.ReadProperty(name); err == nil {
			res[name] = out
		}
	}
	return res
}

// ReadAllProperties reads every cached Property value of the Thing.
func (cThing *ConsumedThing) ReadAllProperties() map[string]*wot.InteractionOutput {
	res := make(map[string]*wot.InteractionOutput)
	for _, ia := range cThing.thing.InteractionsOfKind(wot.KindProperty) {
		res[ia.Name()] = wot.NewInteractionOutput(ia.Value())
	}
	return res
}

// SubscribeEvent requests emissions of the Event named name, invoking
// handler on each one. Only one subscription per name may be active at
// a time.
func (cThing *ConsumedThing) SubscribeEvent(name string, handler func(name string, data *wot.InteractionOutput)) error {
	ia, err := cThing.thing.FindInteraction(name)
	if err != nil {
		return err
	}
	if ia.Kind() != wot.KindEvent {
		return fmt.Errorf("%w: %q is not an event", wot.ErrNotFound, name)
	}

	cThing.subscriptionMutex.Lock()
	defer cThing.subscriptionMutex.Unlock()
	if _, found := cThing.activeSubscriptions[name]; found {
		return fmt.Errorf("a subscription for event '%s' already exists", name)
	}
	if cThing.SubscribeEventHook != nil {
		if err := cThing.SubscribeEventHook(name); err != nil {
			return err
		}
	}
	cThing.activeSubscriptions[name] = &Subscription{
		SubType:     SubscriptionTypeEvent,
		Name:        name,
		interaction: ia,
		Handler:     handler,
	}
	return nil
}

// UnsubscribeEvent stops delivering emissions of name.
func (cThing *ConsumedThing) UnsubscribeEvent(name string) {
	cThing.subscriptionMutex.Lock()
	_, found := cThing.activeSubscriptions[name]
	delete(cThing.activeSubscriptions, name)
	cThing.subscriptionMutex.Unlock()

	if found && cThing.UnsubscribeEventHook != nil {
		cThing.UnsubscribeEventHook(name)
	}
}

// Stop cancels every active observation and subscription. Called when
// the consumer disconnects from the remote Thing.
func (cThing *ConsumedThing) Stop() {
	cThing.subscriptionMutex.Lock()
	observations := cThing.activeObservations
	subscriptions := cThing.activeSubscriptions
	cThing.activeObservations = make(map[string]*Subscription)
	cThing.activeSubscriptions = make(map[string]*Subscription)
	cThing.subscriptionMutex.Unlock()

	if cThing.UnobservePropertyHook != nil {
		for name := range observations {
			cThing.UnobservePropertyHook(name)
		}
	}
	if cThing.UnsubscribeEventHook != nil {
		for name := range subscriptions {
			cThing.UnsubscribeEventHook(name)
		}
	}
}

// WriteProperty sends a request to change the Property named name to
// value. Confirmation of the change arrives asynchronously as a
// property-change notification if an observation is active.
func (cThing *ConsumedThing) WriteProperty(ctx context.Context, name string, value interface{}) error {
	ia, err := cThing.thing.FindInteraction(name)
	if err != nil {
		return err
	}
	if ia.Kind() != wot.KindProperty {
		return fmt.Errorf("%w: %q is not a property", wot.ErrNotFound, name)
	}
	if cThing.WritePropertyHook == nil {
		return fmt.Errorf("consumedthing: no WritePropertyHook installed for thing '%s'", cThing.thing.ID())
	}
	return cThing.WritePropertyHook(ctx, name, value)
}

// WriteMultipleProperties writes several property values, stopping at
// the first failure.
func (cThing *ConsumedThing) WriteMultipleProperties(ctx context.Context, properties map[string]interface{}) error {
	for name, value := range properties {
		if err := cThing.WriteProperty(ctx, name, value); err != nil {
			return err
		}
	}
	return nil
}
