package wsclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wostzone/wot-servient/pkg/wsproto"
)

type callResult struct {
	value interface{}
	err   error
}

// call performs one request/response round trip: dial, send a Request
// with a fresh id, read frames until one matches that id as either a
// Response or an Error, then close the socket. Grounded on
// original_source/wotpy/protocols/ws/client.py's `_send_websocket_message`
// / `_wait_for_response` pair — a dedicated connection per call rather
// than a shared, multiplexed one, matching spec §4.6's literal
// "open socket, send Request ... If the socket closes before a match,
// fail with connection-closed."
func call(ctx context.Context, wsURL, method string, params interface{}) (interface{}, error) {
	id := uuid.NewString()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	}
	defer conn.Close()

	req := &wsproto.Request{Method: method, Params: params, ID: id}
	raw, err := req.ToJSON()
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	}

	done := make(chan callResult, 1)
	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				done <- callResult{err: fmt.Errorf("%w: %s", ErrConnectionClosed, err)}
				return
			}

			if resp, err := wsproto.ResponseFromRaw(frame); err == nil {
				if fmt.Sprint(resp.ID) == id {
					done <- callResult{value: resp.Result}
					return
				}
				continue
			}
			if errMsg, err := wsproto.ErrorFromRaw(frame); err == nil {
				if fmt.Sprint(errMsg.ID) == id {
					done <- callResult{err: errors.New(errMsg.Message)}
					return
				}
				continue
			}
			// Frame for a different id or an unrelated kind: ignore, per
			// spec §4.6 ("still-open subscriptions tolerate multiplexing
			// during the wait").
		}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		conn.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}
