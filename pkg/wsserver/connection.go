package wsserver

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/wot-servient/pkg/changebus"
	"github.com/wostzone/wot-servient/pkg/exposedthing"
	"github.com/wostzone/wot-servient/pkg/wsproto"
)

// Method names accepted in a Request.Method (spec §4.4).
const (
	methodReadProperty     = "read_property"
	methodWriteProperty    = "write_property"
	methodInvokeAction     = "invoke_action"
	methodOnPropertyChange = "on_property_change"
	methodOnEvent          = "on_event"
	methodOnTDChange       = "on_td_change"
	methodDispose          = "dispose"
)

// connection is one upgraded WS socket bound to a single ExposedThing.
// It owns the Subscriptions table (spec §4.5) and serializes writes,
// since gorilla/websocket forbids concurrent writers on one *Conn —
// mirrors the pending-request/subscription table idiom in
// nugget-thane-ai-agent's homeassistant.WSClient, mirrored here on the
// server side instead of the client side.
type connection struct {
	conn *websocket.Conn
	et   *exposedthing.ExposedThing

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   map[string]*changebus.Subscription
}

func newConnection(conn *websocket.Conn, et *exposedthing.ExposedThing) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		conn:   conn,
		et:     et,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]*changebus.Subscription),
	}
}

// serve runs the read loop until the socket closes, then disposes every
// subscription registered on this connection (spec §4.5's teardown
// rule).
func (c *connection) serve() {
	defer c.teardown()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		req, err := wsproto.RequestFromRaw(raw)
		if err != nil {
			// spec §4.4: reply with the best-effort extracted id, or
			// null if the frame isn't even a JSON object carrying one.
			c.writeErrorFor(wsproto.BestEffortID(raw), &wsproto.Error{Code: wsproto.CodeInternalError, Message: err.Error()})
			continue
		}
		c.dispatch(req)
	}
}

func (c *connection) teardown() {
	c.cancel()
	c.conn.Close()

	c.subsMu.Lock()
	subs := c.subs
	c.subs = make(map[string]*changebus.Subscription)
	c.subsMu.Unlock()

	for _, sub := range subs {
		sub.Dispose()
	}
}

func (c *connection) dispatch(req *wsproto.Request) {
	switch req.Method {
	case methodReadProperty:
		c.handleReadProperty(req)
	case methodWriteProperty:
		c.handleWriteProperty(req)
	case methodInvokeAction:
		c.handleInvokeAction(req)
	case methodOnPropertyChange:
		c.handleSubscribe(req, subscribeKindProperty)
	case methodOnEvent:
		c.handleSubscribe(req, subscribeKindEvent)
	case methodOnTDChange:
		c.handleSubscribe(req, subscribeKindTDChange)
	case methodDispose:
		c.handleDispose(req)
	default:
		c.writeErrorFor(req.ID, &wsproto.Error{Code: wsproto.CodeMethodNotAllowed, Message: "unknown method: " + req.Method})
	}
}

type nameParams struct {
	Name string `json:"name"`
}

type writePropertyParams struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

type invokeActionParams struct {
	Name  string      `json:"name"`
	Input interface{} `json:"input"`
}

type disposeParams struct {
	Subscription string `json:"subscription"`
}

func decodeParams(raw interface{}, v interface{}) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (c *connection) handleReadProperty(req *wsproto.Request) {
	var p nameParams
	if err := decodeParams(req.Params, &p); err != nil {
		c.writeErrorFor(req.ID, &wsproto.Error{Code: wsproto.CodeInternalError, Message: err.Error()})
		return
	}
	out, err := c.et.ReadProperty(p.Name)
	if err != nil {
		c.writeErrorFor(req.ID, &wsproto.Error{Code: codeFor(err), Message: err.Error()})
		return
	}
	c.writeResult(req.ID, out.Value)
}

func (c *connection) handleWriteProperty(req *wsproto.Request) {
	var p writePropertyParams
	if err := decodeParams(req.Params, &p); err != nil {
		c.writeErrorFor(req.ID, &wsproto.Error{Code: wsproto.CodeInternalError, Message: err.Error()})
		return
	}
	if err := c.et.WriteProperty(p.Name, p.Value, true); err != nil {
		c.writeErrorFor(req.ID, &wsproto.Error{Code: codeFor(err), Message: err.Error()})
		return
	}
	c.writeResult(req.ID, nil)
}

func (c *connection) handleInvokeAction(req *wsproto.Request) {
	var p invokeActionParams
	if err := decodeParams(req.Params, &p); err != nil {
		c.writeErrorFor(req.ID, &wsproto.Error{Code: wsproto.CodeInternalError, Message: err.Error()})
		return
	}
	out, err := c.et.InvokeAction(c.ctx, p.Name, p.Input)
	if err != nil {
		c.writeErrorFor(req.ID, &wsproto.Error{Code: codeFor(err), Message: err.Error()})
		return
	}
	c.writeResult(req.ID, out)
}

type subscribeKind int

const (
	subscribeKindProperty subscribeKind = iota
	subscribeKindEvent
	subscribeKindTDChange
)

// handleSubscribe implements spec §4.5 step 3: existence is validated
// first (a not-found name fails before any subscription id exists);
// once a name is known, a subscription id is always minted and returned
// in the Response. The change-bus registration is made before the
// Response is written, so no emission produced after the Response is
// lost, but forwarding starts only after it, so no Emitted-item reaches
// the socket ahead of the Response. A registration failure (e.g. a
// non-observable property) is reported after the Response as an Error
// frame carrying `data.subscription` rather than folded into the
// Response.
func (c *connection) handleSubscribe(req *wsproto.Request, kind subscribeKind) {
	var p nameParams
	if kind != subscribeKindTDChange {
		if err := decodeParams(req.Params, &p); err != nil {
			c.writeErrorFor(req.ID, &wsproto.Error{Code: wsproto.CodeInternalError, Message: err.Error()})
			return
		}
		if _, err := c.et.ThingDescription().FindInteraction(p.Name); err != nil {
			c.writeErrorFor(req.ID, &wsproto.Error{Code: codeFor(err), Message: err.Error()})
			return
		}
	}

	subID := uuid.NewString()

	var sub *changebus.Subscription
	var err error
	switch kind {
	case subscribeKindProperty:
		sub, err = c.et.ObserveProperty(p.Name)
	case subscribeKindEvent:
		sub, err = c.et.SubscribeEvent(p.Name)
	case subscribeKindTDChange:
		sub = c.et.SubscribeTDChange()
	}

	c.writeResult(req.ID, subID)
	if err != nil {
		c.writeError(&wsproto.Error{
			Code:    wsproto.CodeSubscriptionError,
			Message: err.Error(),
			Data:    map[string]interface{}{"subscription": subID},
		})
		return
	}

	c.subsMu.Lock()
	c.subs[subID] = sub
	c.subsMu.Unlock()

	go c.forward(subID, sub)
}

func (c *connection) forward(subID string, sub *changebus.Subscription) {
	for item := range sub.C() {
		msg := &wsproto.EmittedItem{Subscription: subID, Name: item.Name, Data: item.Value, Lost: sub.Lost()}
		raw, err := msg.ToJSON()
		if err != nil {
			logrus.Warningf("wsserver: failed to encode emitted item for subscription '%s': %s", subID, err)
			continue
		}
		c.writeRaw(raw)
	}
}

func (c *connection) handleDispose(req *wsproto.Request) {
	var p disposeParams
	if err := decodeParams(req.Params, &p); err != nil {
		c.writeErrorFor(req.ID, &wsproto.Error{Code: wsproto.CodeInternalError, Message: err.Error()})
		return
	}

	c.subsMu.Lock()
	sub, found := c.subs[p.Subscription]
	delete(c.subs, p.Subscription)
	c.subsMu.Unlock()

	if !found {
		c.writeResult(req.ID, nil)
		return
	}
	sub.Dispose()
	c.writeResult(req.ID, p.Subscription)
}

func (c *connection) writeResult(id interface{}, result interface{}) {
	resp := &wsproto.Response{Result: result, ID: id}
	raw, err := resp.ToJSON()
	if err != nil {
		logrus.Errorf("wsserver: failed to encode response: %s", err)
		return
	}
	c.writeRaw(raw)
}

func (c *connection) writeErrorFor(id interface{}, e *wsproto.Error) {
	e.ID = id
	c.writeError(e)
}

func (c *connection) writeError(e *wsproto.Error) {
	raw, err := e.ToJSON()
	if err != nil {
		logrus.Errorf("wsserver: failed to encode error: %s", err)
		return
	}
	c.writeRaw(raw)
}

func (c *connection) writeRaw(raw []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		logrus.Debugf("wsserver: write failed: %s", err)
	}
}
