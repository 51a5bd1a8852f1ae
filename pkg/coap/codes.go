package coap

import (
	"errors"

	"github.com/plgd-dev/go-coap/v2/message/codes"

	"github.com/wostzone/wot-servient/pkg/wot"
)

// coapCodeFor translates a pkg/wot sentinel error into a CoAP response
// code, the same taxonomy wsserver.codeFor maps onto the JSON-RPC error
// code enum (spec §7).
func coapCodeFor(err error) codes.Code {
	switch {
	case errors.Is(err, wot.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, wot.ErrNotWritable):
		return codes.Forbidden
	case errors.Is(err, wot.ErrNotObservable):
		return codes.MethodNotAllowed
	case errors.Is(err, wot.ErrNoHandler):
		return codes.InternalServerError
	default:
		return codes.InternalServerError
	}
}
