package wsserver_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/wot-servient/pkg/exposedthing"
	"github.com/wostzone/wot-servient/pkg/wot"
	"github.com/wostzone/wot-servient/pkg/wsproto"
	"github.com/wostzone/wot-servient/pkg/wsserver"
)

type fakeProvider struct {
	things map[string]*exposedthing.ExposedThing
}

func (p *fakeProvider) FindExposedThingBySlug(slug string) (*exposedthing.ExposedThing, bool) {
	et, found := p.things[slug]
	return et, found
}

func newTestThing(t *testing.T) *exposedthing.ExposedThing {
	th, err := wot.NewThing("urn:test:lamp", "lamp", "https://example.test/lamp")
	require.NoError(t, err)
	require.NoError(t, th.AddInteraction(wot.NewProperty("on", map[string]interface{}{"type": "boolean"}, true, true, false)))
	require.NoError(t, th.AddInteraction(wot.NewProperty("model", map[string]interface{}{"type": "string"}, false, false, "x100")))
	require.NoError(t, th.AddInteraction(wot.NewEvent("overheated", map[string]interface{}{"type": "number"})))
	require.NoError(t, th.AddInteraction(wot.NewAction("toggle", nil, nil, func(ctx context.Context, params interface{}) (interface{}, error) {
		return "toggled", nil
	})))
	return exposedthing.NewExposedThing(th)
}

func startTestServer(t *testing.T, et *exposedthing.ExposedThing) (addr string, closeFn func()) {
	provider := &fakeProvider{things: map[string]*exposedthing.ExposedThing{wot.Slug(et.ThingDescription().ID()): et}}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	srv := wsserver.New(provider, fmt.Sprintf("127.0.0.1:%d", port), []string{"*"})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("test server failed: %s", err)
		}
	}()
	time.Sleep(50 * time.Millisecond)
	return fmt.Sprintf("ws://127.0.0.1:%d/%s", port, wot.Slug(et.ThingDescription().ID())), func() { srv.Close() }
}

func dial(t *testing.T, addr string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	require.NoError(t, err)
	return conn
}

func TestReadPropertyRoundTrip(t *testing.T) {
	logrus.Infof("--- TestReadPropertyRoundTrip ---")
	et := newTestThing(t)
	addr, closeFn := startTestServer(t, et)
	defer closeFn()

	conn := dial(t, addr)
	defer conn.Close()

	req := &wsproto.Request{Method: "read_property", Params: map[string]interface{}{"name": "model"}, ID: "1"}
	raw, err := req.ToJSON()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, respRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	resp, err := wsproto.ResponseFromRaw(respRaw)
	require.NoError(t, err)
	assert.Equal(t, "x100", resp.Result)
	assert.Equal(t, "1", resp.ID)
}

func TestReadUnknownPropertyReturnsNotFound(t *testing.T) {
	logrus.Infof("--- TestReadUnknownPropertyReturnsNotFound ---")
	et := newTestThing(t)
	addr, closeFn := startTestServer(t, et)
	defer closeFn()

	conn := dial(t, addr)
	defer conn.Close()

	req := &wsproto.Request{Method: "read_property", Params: map[string]interface{}{"name": "nope"}, ID: "1"}
	raw, _ := req.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, respRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	errMsg, err := wsproto.ErrorFromRaw(respRaw)
	require.NoError(t, err)
	assert.Equal(t, wsproto.CodeNotFound, errMsg.Code)
}

func TestWriteNonWritablePropertyRejected(t *testing.T) {
	logrus.Infof("--- TestWriteNonWritablePropertyRejected ---")
	et := newTestThing(t)
	addr, closeFn := startTestServer(t, et)
	defer closeFn()

	conn := dial(t, addr)
	defer conn.Close()

	req := &wsproto.Request{Method: "write_property", Params: map[string]interface{}{"name": "model", "value": "y200"}, ID: "1"}
	raw, _ := req.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, respRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	errMsg, err := wsproto.ErrorFromRaw(respRaw)
	require.NoError(t, err)
	assert.Equal(t, wsproto.CodeNotWritable, errMsg.Code)
}

func TestInvokeActionRoundTrip(t *testing.T) {
	logrus.Infof("--- TestInvokeActionRoundTrip ---")
	et := newTestThing(t)
	addr, closeFn := startTestServer(t, et)
	defer closeFn()

	conn := dial(t, addr)
	defer conn.Close()

	req := &wsproto.Request{Method: "invoke_action", Params: map[string]interface{}{"name": "toggle"}, ID: "1"}
	raw, _ := req.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, respRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	resp, err := wsproto.ResponseFromRaw(respRaw)
	require.NoError(t, err)
	assert.Equal(t, "toggled", resp.Result)
}

func TestObservePropertyDeliversWrites(t *testing.T) {
	logrus.Infof("--- TestObservePropertyDeliversWrites ---")
	et := newTestThing(t)
	addr, closeFn := startTestServer(t, et)
	defer closeFn()

	conn := dial(t, addr)
	defer conn.Close()

	req := &wsproto.Request{Method: "on_property_change", Params: map[string]interface{}{"name": "on"}, ID: "1"}
	raw, _ := req.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, respRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	resp, err := wsproto.ResponseFromRaw(respRaw)
	require.NoError(t, err)
	subID, ok := resp.Result.(string)
	require.True(t, ok)
	require.NotEmpty(t, subID)

	require.NoError(t, et.WriteProperty("on", true, false))

	_, itemRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	item, err := wsproto.EmittedItemFromRaw(itemRaw)
	require.NoError(t, err)
	assert.Equal(t, subID, item.Subscription)
	assert.Equal(t, "on", item.Name)
	assert.Equal(t, true, item.Data)
}

func TestObserveNonObservablePropertySendsSubscriptionError(t *testing.T) {
	logrus.Infof("--- TestObserveNonObservablePropertySendsSubscriptionError ---")
	et := newTestThing(t)
	addr, closeFn := startTestServer(t, et)
	defer closeFn()

	conn := dial(t, addr)
	defer conn.Close()

	req := &wsproto.Request{Method: "on_property_change", Params: map[string]interface{}{"name": "model"}, ID: "1"}
	raw, _ := req.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, respRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	resp, err := wsproto.ResponseFromRaw(respRaw)
	require.NoError(t, err)
	subID, ok := resp.Result.(string)
	require.True(t, ok)
	require.NotEmpty(t, subID)

	_, errRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	errMsg, err := wsproto.ErrorFromRaw(errRaw)
	require.NoError(t, err)
	assert.Equal(t, wsproto.CodeSubscriptionError, errMsg.Code)
	data, ok := errMsg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, subID, data["subscription"])
}

func TestObserveUnknownPropertyFailsBeforeSubscriptionIDIsMinted(t *testing.T) {
	logrus.Infof("--- TestObserveUnknownPropertyFailsBeforeSubscriptionIDIsMinted ---")
	et := newTestThing(t)
	addr, closeFn := startTestServer(t, et)
	defer closeFn()

	conn := dial(t, addr)
	defer conn.Close()

	req := &wsproto.Request{Method: "on_property_change", Params: map[string]interface{}{"name": "nope"}, ID: "1"}
	raw, _ := req.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, respRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	errMsg, err := wsproto.ErrorFromRaw(respRaw)
	require.NoError(t, err)
	assert.Equal(t, wsproto.CodeNotFound, errMsg.Code)
	assert.Nil(t, errMsg.Data)
}

func TestDisposeIsIdempotent(t *testing.T) {
	logrus.Infof("--- TestDisposeIsIdempotent ---")
	et := newTestThing(t)
	addr, closeFn := startTestServer(t, et)
	defer closeFn()

	conn := dial(t, addr)
	defer conn.Close()

	subReq := &wsproto.Request{Method: "on_event", Params: map[string]interface{}{"name": "overheated"}, ID: "1"}
	raw, _ := subReq.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
	_, respRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	resp, err := wsproto.ResponseFromRaw(respRaw)
	require.NoError(t, err)
	subID := resp.Result.(string)

	disposeReq := &wsproto.Request{Method: "dispose", Params: map[string]interface{}{"subscription": subID}, ID: "2"}
	raw, _ = disposeReq.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
	_, respRaw, err = conn.ReadMessage()
	require.NoError(t, err)
	resp, err = wsproto.ResponseFromRaw(respRaw)
	require.NoError(t, err)
	assert.Equal(t, subID, resp.Result)

	disposeReq2 := &wsproto.Request{Method: "dispose", Params: map[string]interface{}{"subscription": subID}, ID: "3"}
	raw, _ = disposeReq2.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
	_, respRaw, err = conn.ReadMessage()
	require.NoError(t, err)
	resp, err = wsproto.ResponseFromRaw(respRaw)
	require.NoError(t, err)
	assert.Nil(t, resp.Result)
}

func TestUnknownThingPathClosesWithoutErrorFrame(t *testing.T) {
	logrus.Infof("--- TestUnknownThingPathClosesWithoutErrorFrame ---")
	et := newTestThing(t)
	provider := &fakeProvider{things: map[string]*exposedthing.ExposedThing{wot.Slug(et.ThingDescription().ID()): et}}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	srv := wsserver.New(provider, fmt.Sprintf("127.0.0.1:%d", port), []string{"*"})
	go srv.ListenAndServe()
	defer srv.Close()
	time.Sleep(50 * time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/no-such-thing", port), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) || strings.Contains(err.Error(), "close"))
}

func TestUnknownMethodReturnsMethodNotAllowed(t *testing.T) {
	logrus.Infof("--- TestUnknownMethodReturnsMethodNotAllowed ---")
	et := newTestThing(t)
	addr, closeFn := startTestServer(t, et)
	defer closeFn()

	conn := dial(t, addr)
	defer conn.Close()

	req := &wsproto.Request{Method: "frobnicate", Params: nil, ID: "1"}
	raw, _ := req.ToJSON()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, respRaw, err := conn.ReadMessage()
	require.NoError(t, err)
	errMsg, err := wsproto.ErrorFromRaw(respRaw)
	require.NoError(t, err)
	assert.Equal(t, wsproto.CodeMethodNotAllowed, errMsg.Code)
}
