// Package wsclient is the WebSocket protocol binding client side: it
// backs a consumedthing.ConsumedThing's hooks with real wire traffic
// against a servient's WS server (pkg/wsserver).
package wsclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/wot-servient/pkg/consumedthing"
	"github.com/wostzone/wot-servient/pkg/wot"
	"github.com/wostzone/wot-servient/pkg/wsproto"
)

// defaultSubscribeTimeout bounds how long the initial subscribe
// handshake (Request -> Response carrying the subscription id) may
// take; it does not bound the subscription's lifetime once open.
const defaultSubscribeTimeout = 10 * time.Second

// RemoteThing binds a ConsumedThing's hooks to the WS protocol binding
// described in spec §4.6. Grounded on the teacher's
// ExposedThingMqttBinding-style "one binding instance owns the wire
// traffic for one Thing" shape, mirrored here on the consuming side.
type RemoteThing struct {
	thing *wot.Thing
	ct    *consumedthing.ConsumedThing

	mu       sync.Mutex
	liveSubs map[string]*liveSubscription // keyed by interaction name

	tdMu  sync.Mutex
	tdSub *liveSubscription
}

// Consume wraps th (a Thing Description already decoded by
// wot.FromDescription) in a ConsumedThing whose hooks call out over WS.
// It returns both the ConsumedThing (for Property/Action/Event traffic)
// and the RemoteThing that backs it, needed for SubscribeTDChange and
// Close, which fall outside ConsumedThing's per-Interaction hook set.
func Consume(th *wot.Thing) (*consumedthing.ConsumedThing, *RemoteThing) {
	rt := &RemoteThing{
		thing:    th,
		liveSubs: make(map[string]*liveSubscription),
	}
	ct := consumedthing.NewConsumedThing(th)
	rt.ct = ct
	ct.InvokeActionHook = rt.invokeAction
	ct.WritePropertyHook = rt.writeProperty
	ct.ObservePropertyHook = rt.observeProperty
	ct.UnobservePropertyHook = rt.closeSubscription
	ct.SubscribeEventHook = rt.subscribeEvent
	ct.UnsubscribeEventHook = rt.closeSubscription
	return ct, rt
}

func (rt *RemoteThing) invokeAction(ctx context.Context, name string, params interface{}) (interface{}, error) {
	ia, err := rt.thing.FindInteraction(name)
	if err != nil {
		return nil, err
	}
	wsURL, err := pickForm(rt.thing, ia)
	if err != nil {
		return nil, err
	}
	return call(ctx, wsURL, "invoke_action", map[string]interface{}{"name": name, "input": params})
}

func (rt *RemoteThing) writeProperty(ctx context.Context, name string, value interface{}) error {
	ia, err := rt.thing.FindInteraction(name)
	if err != nil {
		return err
	}
	wsURL, err := pickForm(rt.thing, ia)
	if err != nil {
		return err
	}
	_, err = call(ctx, wsURL, "write_property", map[string]interface{}{"name": name, "value": value})
	return err
}

func (rt *RemoteThing) observeProperty(name string) error {
	return rt.subscribe(name, "on_property_change")
}

func (rt *RemoteThing) subscribeEvent(name string) error {
	return rt.subscribe(name, "on_event")
}

func (rt *RemoteThing) subscribe(name, method string) error {
	ia, err := rt.thing.FindInteraction(name)
	if err != nil {
		return err
	}
	wsURL, err := pickForm(rt.thing, ia)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSubscribeTimeout)
	defer cancel()

	sub, err := openSubscription(ctx, wsURL, method, map[string]interface{}{"name": name},
		func(item *wsproto.EmittedItem) {
			raw, err := json.Marshal(item.Data)
			if err != nil {
				logrus.Warningf("wsclient: failed to re-encode emitted data for '%s' on thing '%s': %s", name, rt.thing.ID(), err)
				return
			}
			rt.ct.HandleEvent(name, raw)
		},
		func(err error) {
			logrus.Warningf("wsclient: subscription for '%s' on thing '%s' failed: %s", name, rt.thing.ID(), err)
		},
	)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	rt.liveSubs[name] = sub
	rt.mu.Unlock()
	return nil
}

func (rt *RemoteThing) closeSubscription(name string) {
	rt.mu.Lock()
	sub, found := rt.liveSubs[name]
	delete(rt.liveSubs, name)
	rt.mu.Unlock()
	if found {
		sub.Close()
	}
}

// SubscribeTDChange opens the on_td_change subscription (spec §4.6),
// invoking handler with the JSON of each TD-change record (a
// wot.TDChangeEvent), not a full TD document. It sits outside
// ConsumedThing's hook set because a TD change describes the Thing
// model itself rather than one of its Interactions. Returns a function
// that tears down the subscription.
func (rt *RemoteThing) SubscribeTDChange(handler func(raw []byte)) (func(), error) {
	wsURL, err := pickBaseForm(rt.thing)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSubscribeTimeout)
	defer cancel()

	sub, err := openSubscription(ctx, wsURL, "on_td_change", map[string]interface{}{},
		func(item *wsproto.EmittedItem) {
			raw, err := json.Marshal(item.Data)
			if err != nil {
				logrus.Warningf("wsclient: failed to re-encode td_change payload for thing '%s': %s", rt.thing.ID(), err)
				return
			}
			handler(raw)
		},
		func(err error) {
			logrus.Warningf("wsclient: td_change subscription for thing '%s' failed: %s", rt.thing.ID(), err)
		},
	)
	if err != nil {
		return nil, err
	}

	rt.tdMu.Lock()
	rt.tdSub = sub
	rt.tdMu.Unlock()

	return func() {
		rt.tdMu.Lock()
		s := rt.tdSub
		rt.tdSub = nil
		rt.tdMu.Unlock()
		if s != nil {
			s.Close()
		}
	}, nil
}

// Close stops every live subscription (property observations, event
// subscriptions, and the td_change stream if any). Mirrors
// ConsumedThing.Stop's cascade but also covers the sockets this binding
// itself opened outside of ConsumedThing's hook set.
func (rt *RemoteThing) Close() {
	rt.ct.Stop()

	rt.tdMu.Lock()
	s := rt.tdSub
	rt.tdSub = nil
	rt.tdMu.Unlock()
	if s != nil {
		s.Close()
	}
}
