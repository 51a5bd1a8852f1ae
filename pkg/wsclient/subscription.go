package wsclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wostzone/wot-servient/pkg/wsproto"
)

// liveSubscription is one dedicated socket backing a single active
// subscription. Grounded on the same wotpy client.py shape as call.go,
// but the connection stays open for the subscription's lifetime instead
// of closing after one reply. Disposing a subscription closes the
// socket (spec §4.6: "Unsubscribe closes the socket.").
type liveSubscription struct {
	conn      *websocket.Conn
	id        string
	closeOnce sync.Once
}

// openSubscription dials a connection, sends the subscribe Request,
// waits for its Response to capture the subscription id, then hands the
// connection to a forwarding goroutine that calls deliver for every
// matching Emitted-item and onError (once) if the stream itself fails
// (spec §4.5's post-Response subscription-error).
func openSubscription(
	ctx context.Context,
	wsURL, method string,
	params interface{},
	deliver func(item *wsproto.EmittedItem),
	onError func(error),
) (*liveSubscription, error) {
	reqID := uuid.NewString()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	}

	req := &wsproto.Request{Method: method, Params: params, ID: reqID}
	raw, err := req.ToJSON()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	}

	subID, err := awaitSubscriptionID(conn, reqID)
	if err != nil {
		conn.Close()
		return nil, err
	}

	sub := &liveSubscription{conn: conn, id: subID}
	go sub.forward(deliver, onError)
	return sub, nil
}

func awaitSubscriptionID(conn *websocket.Conn, reqID string) (string, error) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrConnectionClosed, err)
		}
		if resp, err := wsproto.ResponseFromRaw(frame); err == nil {
			if fmt.Sprint(resp.ID) != reqID {
				continue
			}
			subID, ok := resp.Result.(string)
			if !ok {
				return "", fmt.Errorf("%w: subscription id was not a string", ErrConnectionClosed)
			}
			return subID, nil
		}
		if errMsg, err := wsproto.ErrorFromRaw(frame); err == nil {
			if fmt.Sprint(errMsg.ID) == reqID {
				return "", errors.New(errMsg.Message)
			}
			continue
		}
	}
}

func (s *liveSubscription) forward(deliver func(item *wsproto.EmittedItem), onError func(error)) {
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if item, err := wsproto.EmittedItemFromRaw(frame); err == nil {
			if item.Subscription == s.id {
				deliver(item)
			}
			continue
		}
		if errMsg, err := wsproto.ErrorFromRaw(frame); err == nil {
			data, _ := errMsg.Data.(map[string]interface{})
			if data != nil && fmt.Sprint(data["subscription"]) == s.id {
				if onError != nil {
					onError(errors.New(errMsg.Message))
				}
				s.Close()
				return
			}
		}
	}
}

// Close tears down the subscription's socket. Safe to call more than
// once.
func (s *liveSubscription) Close() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}
