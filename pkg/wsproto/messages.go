package wsproto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned by FromRaw when a message fails schema
// validation or does not parse as JSON at all.
var ErrMalformed = errors.New("malformed message")

// Request is a JSON-RPC 2.0 method call: read/write a property, invoke
// an action, or open/close a subscription. Grounded on
// wotpy/protocols/ws/messages.py's WebsocketMessageRequest — one Go
// type per message kind, each with FromRaw/ToJSON.
type Request struct {
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
	ID     interface{} `json:"id,omitempty"`
}

type requestWire struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      interface{} `json:"id,omitempty"`
}

// RequestFromRaw parses and schema-validates a raw JSON-RPC request.
func RequestFromRaw(raw []byte) (*Request, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if err := validateAgainst(requestSchema, generic); err != nil {
		return nil, err
	}
	var w requestWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return &Request{Method: w.Method, Params: w.Params, ID: w.ID}, nil
}

// BestEffortID extracts the "id" field from a frame that failed to
// parse as a valid Request, for the Error reply's id (spec §4.4:
// "Decoding a malformed frame raises message-malformed and the server
// replies with an Error whose id is the best-effort extracted id or
// null."). Returns nil if raw isn't even a JSON object or carries no
// "id" field.
func BestEffortID(raw []byte) interface{} {
	var probe struct {
		ID interface{} `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	return probe.ID
}

// ToJSON renders the Request as a JSON-RPC 2.0 request object.
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(requestWire{JSONRPC: JSONRPCVersion, Method: r.Method, Params: r.Params, ID: r.ID})
}

// Response is a JSON-RPC 2.0 successful result.
type Response struct {
	Result interface{} `json:"result"`
	ID     interface{} `json:"id,omitempty"`
}

type responseWire struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result"`
	ID      interface{} `json:"id,omitempty"`
}

// ResponseFromRaw parses and schema-validates a raw JSON-RPC response.
func ResponseFromRaw(raw []byte) (*Response, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if err := validateAgainst(responseSchema, generic); err != nil {
		return nil, err
	}
	var w responseWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return &Response{Result: w.Result, ID: w.ID}, nil
}

// ToJSON renders the Response as a JSON-RPC 2.0 response object.
func (r *Response) ToJSON() ([]byte, error) {
	return json.Marshal(responseWire{JSONRPC: JSONRPCVersion, Result: r.Result, ID: r.ID})
}

// Error is a JSON-RPC 2.0 error result, carrying the taxonomy in
// ErrorCode plus an optional free-form data payload.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	ID      interface{} `json:"id,omitempty"`
}

type errorWire struct {
	JSONRPC string        `json:"jsonrpc"`
	Error   errorBodyWire `json:"error"`
	ID      interface{}   `json:"id,omitempty"`
}

type errorBodyWire struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorFromRaw parses and schema-validates a raw JSON-RPC error.
func ErrorFromRaw(raw []byte) (*Error, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if err := validateAgainst(errorSchema, generic); err != nil {
		return nil, err
	}
	var w errorWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return &Error{Code: w.Error.Code, Message: w.Error.Message, Data: w.Error.Data, ID: w.ID}, nil
}

// ToJSON renders the Error as a JSON-RPC 2.0 error object.
func (e *Error) ToJSON() ([]byte, error) {
	return json.Marshal(errorWire{
		JSONRPC: JSONRPCVersion,
		Error:   errorBodyWire{Code: e.Code, Message: e.Message, Data: e.Data},
		ID:      e.ID,
	})
}

// EmittedItem carries one value pushed by an active subscription
// (a Property change or an Event emission). It is deliberately not
// JSON-RPC-framed — it is a push, not a reply to any one request.
type EmittedItem struct {
	Subscription string      `json:"subscription"`
	Name         string      `json:"name"`
	Data         interface{} `json:"data"`
	// Lost reports that the changebus subscriber feeding this item
	// dropped at least one earlier item to overflow (drop-oldest
	// policy); set on the first item delivered after a drop.
	Lost bool `json:"lost,omitempty"`
}

// EmittedItemFromRaw parses and schema-validates a raw emitted-item
// message.
func EmittedItemFromRaw(raw []byte) (*EmittedItem, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if err := validateAgainst(emittedItemSchema, generic); err != nil {
		return nil, err
	}
	var item EmittedItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return &item, nil
}

// ToJSON renders the EmittedItem as its wire object.
func (e *EmittedItem) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
