package coap

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/plgd-dev/go-coap/v2/message"
	"github.com/plgd-dev/go-coap/v2/message/codes"
	"github.com/plgd-dev/go-coap/v2/mux"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/wot-servient/pkg/changebus"
	"github.com/wostzone/wot-servient/pkg/exposedthing"
)

// observeRegistry tracks one live Observe relation per (client, path,
// token) triple (RFC 7641 §4.1: a client reinforcing its interest in a
// resource replaces, rather than duplicates, the existing entry).
// Grounded on the addRegistration/removeRegistration/getRegistration
// trio in other_examples/2639131b_matrix-org-lb__coap_observe.go.go.
type observeRegistry struct {
	mu   sync.Mutex
	subs map[string]*changebus.Subscription
}

func newObserveRegistry() *observeRegistry {
	return &observeRegistry{subs: make(map[string]*changebus.Subscription)}
}

func (o *observeRegistry) register(regID string, sub *changebus.Subscription) {
	o.mu.Lock()
	prev := o.subs[regID]
	o.subs[regID] = sub
	o.mu.Unlock()
	if prev != nil {
		prev.Dispose()
	}
}

func (o *observeRegistry) deregister(regID string) {
	o.mu.Lock()
	sub, found := o.subs[regID]
	delete(o.subs, regID)
	o.mu.Unlock()
	if found {
		sub.Dispose()
	}
}

func (o *observeRegistry) disposeAll() {
	o.mu.Lock()
	subs := o.subs
	o.subs = make(map[string]*changebus.Subscription)
	o.mu.Unlock()
	for _, sub := range subs {
		sub.Dispose()
	}
}

// registrationID matches other_examples/2639131b_matrix-org-lb__coap_observe.go.go's
// registrationID helper verbatim: client endpoint + resource path + token.
func registrationID(client mux.Client, path string, token message.Token) string {
	return client.RemoteAddr().String() + "/" + path + "@" + token.String()
}

func (s *Server) handleObserveProperty(w mux.ResponseWriter, r *mux.Message, et *exposedthing.ExposedThing, name string, obs uint32) {
	path, _ := r.Options.Path()
	regID := registrationID(w.Client(), path, r.Token)

	if obs == 1 {
		s.obs.deregister(regID)
		w.SetResponse(codes.Content, message.TextPlain, nil)
		return
	}

	sub, err := et.ObserveProperty(name)
	if err != nil {
		w.SetResponse(coapCodeFor(err), message.TextPlain, bodyOf(err.Error()))
		return
	}
	s.obs.register(regID, sub)
	w.SetResponse(codes.Content, message.TextPlain, nil)

	out, err := et.ReadProperty(name)
	if err == nil {
		go forwardObserve(w.Client(), r.Token, sub, out.Value)
	} else {
		go forwardObserve(w.Client(), r.Token, sub, nil)
	}
}

func (s *Server) handleObserveEvent(w mux.ResponseWriter, r *mux.Message, et *exposedthing.ExposedThing, name string, obs uint32) {
	path, _ := r.Options.Path()
	regID := registrationID(w.Client(), path, r.Token)

	if obs == 1 {
		s.obs.deregister(regID)
		w.SetResponse(codes.Content, message.TextPlain, nil)
		return
	}

	sub, err := et.SubscribeEvent(name)
	if err != nil {
		w.SetResponse(coapCodeFor(err), message.TextPlain, bodyOf(err.Error()))
		return
	}
	s.obs.register(regID, sub)
	w.SetResponse(codes.Content, message.TextPlain, nil)
	go forwardObserve(w.Client(), r.Token, sub, nil)
}

// forwardObserve streams sub's items as sequence-numbered Observe
// notifications (RFC 7641), starting the sequence at 2 the same way
// other_examples/2639131b_matrix-org-lb__coap_observe.go.go's
// longPoll does, optionally pushing initial as the first notification
// (used for a Property's current value on registration; nil for an
// Event, which has no "current value" to push). Ends when sub is
// disposed (its channel closes) or a write fails.
func forwardObserve(cc mux.Client, token message.Token, sub *changebus.Subscription, initial interface{}) {
	seq := uint32(2)
	if initial != nil {
		if err := sendObserveNotification(cc, token, seq, initial, false); err != nil {
			sub.Dispose()
			return
		}
		seq++
	}
	for item := range sub.C() {
		if err := sendObserveNotification(cc, token, seq, item.Value, sub.Lost()); err != nil {
			sub.Dispose()
			return
		}
		seq++
	}
}

// observeNotification is the JSON body of a CoAP Observe notification.
// Lost mirrors wsproto.EmittedItem's flag: set on the first notification
// delivered after the changebus subscriber dropped an item to overflow.
type observeNotification struct {
	Value interface{} `json:"value"`
	Lost  bool        `json:"lost,omitempty"`
}

// sendObserveNotification builds and writes one CoAP notification
// message, grounded on
// other_examples/2639131b_matrix-org-lb__coap_observe.go.go's
// sendResponse (content-format + observe options set via the
// grow-buffer-on-ErrTooSmall dance the message package's SetXxx
// methods require). The body matches the WS Emitted-item's shape (spec
// §4.2/§4.7): value plus the lost-event flag.
func sendObserveNotification(cc mux.Client, token message.Token, seq uint32, value interface{}, lost bool) error {
	raw, err := json.Marshal(observeNotification{Value: value, Lost: lost})
	if err != nil {
		logrus.Errorf("coap: failed to encode observe notification: %s", err)
		return err
	}

	m := message.Message{
		Code:    codes.Content,
		Token:   token,
		Context: cc.Context(),
		Body:    bytes.NewReader(raw),
	}

	var opts message.Options
	var buf []byte
	opts, n, err := opts.SetContentFormat(buf, message.AppJSON)
	if err == message.ErrTooSmall {
		buf = append(buf, make([]byte, n)...)
		opts, n, err = opts.SetContentFormat(buf, message.AppJSON)
	}
	if err != nil {
		return err
	}
	opts, n, err = opts.SetObserve(buf, seq)
	if err == message.ErrTooSmall {
		buf = append(buf, make([]byte, n)...)
		opts, _, err = opts.SetObserve(buf, seq)
	}
	if err != nil {
		return err
	}
	m.Options = opts

	return cc.WriteMessage(&m)
}
