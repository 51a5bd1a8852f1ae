package coap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/plgd-dev/go-coap/v2/message"
	"github.com/plgd-dev/go-coap/v2/message/codes"
	"github.com/plgd-dev/go-coap/v2/mux"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/wot-servient/pkg/exposedthing"
)

// handle dispatches every request against the single DefaultHandle
// route (spec §4.7's resources are derived dynamically per Thing, so
// there is no fixed route table to register up front the way wsserver
// registers one mux.Router path per Thing slug).
func (s *Server) handle(w mux.ResponseWriter, r *mux.Message) {
	path, err := r.Options.Path()
	if err != nil {
		w.SetResponse(codes.BadRequest, message.TextPlain, nil)
		return
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) != 3 {
		w.SetResponse(codes.NotFound, message.TextPlain, nil)
		return
	}
	slug, kind, name := segments[0], segments[1], segments[2]

	et, found := s.things.FindExposedThingBySlug(slug)
	if !found {
		w.SetResponse(codes.NotFound, message.TextPlain, nil)
		return
	}

	switch kind {
	case "properties":
		s.handleProperty(w, r, et, name)
	case "actions":
		s.handleAction(w, r, et, name)
	case "events":
		s.handleEvent(w, r, et, name)
	default:
		w.SetResponse(codes.NotFound, message.TextPlain, nil)
	}
}

func (s *Server) handleProperty(w mux.ResponseWriter, r *mux.Message, et *exposedthing.ExposedThing, name string) {
	switch r.Code {
	case codes.GET:
		if obs, err := r.Options.Observe(); err == nil {
			s.handleObserveProperty(w, r, et, name, obs)
			return
		}
		out, err := et.ReadProperty(name)
		if err != nil {
			w.SetResponse(coapCodeFor(err), message.TextPlain, bodyOf(err.Error()))
			return
		}
		writeJSON(w, codes.Content, out.Value)
	case codes.PUT:
		var value interface{}
		if err := decodeBody(r, &value); err != nil {
			w.SetResponse(codes.BadRequest, message.TextPlain, bodyOf(err.Error()))
			return
		}
		if err := et.WriteProperty(name, value, true); err != nil {
			w.SetResponse(coapCodeFor(err), message.TextPlain, bodyOf(err.Error()))
			return
		}
		w.SetResponse(codes.Changed, message.TextPlain, nil)
	default:
		w.SetResponse(codes.MethodNotAllowed, message.TextPlain, nil)
	}
}

func (s *Server) handleAction(w mux.ResponseWriter, r *mux.Message, et *exposedthing.ExposedThing, name string) {
	if r.Code != codes.POST {
		w.SetResponse(codes.MethodNotAllowed, message.TextPlain, nil)
		return
	}

	var params interface{}
	if err := decodeBody(r, &params); err != nil {
		w.SetResponse(codes.BadRequest, message.TextPlain, bodyOf(err.Error()))
		return
	}

	// Server-side handlers are not preempted by the binding itself (spec
	// §5): a misbehaving handler is bounded only by the client giving up
	// on the request, which CoAP surfaces as its own retransmission
	// timeout rather than a context this binding controls.
	result, err := et.InvokeAction(context.Background(), name, params)
	if err != nil {
		w.SetResponse(coapCodeFor(err), message.TextPlain, bodyOf(err.Error()))
		return
	}
	writeJSON(w, codes.Created, result)
}

func (s *Server) handleEvent(w mux.ResponseWriter, r *mux.Message, et *exposedthing.ExposedThing, name string) {
	if r.Code != codes.GET {
		w.SetResponse(codes.MethodNotAllowed, message.TextPlain, nil)
		return
	}
	obs, err := r.Options.Observe()
	if err != nil {
		w.SetResponse(codes.MethodNotAllowed, message.TextPlain, bodyOf("events are only reachable via Observe"))
		return
	}
	s.handleObserveEvent(w, r, et, name, obs)
}

func decodeBody(r *mux.Message, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func writeJSON(w mux.ResponseWriter, code codes.Code, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		logrus.Errorf("coap: failed to encode response body: %s", err)
		w.SetResponse(codes.InternalServerError, message.TextPlain, nil)
		return
	}
	w.SetResponse(code, message.AppJSON, bytes.NewReader(raw))
}

func bodyOf(msg string) io.ReadSeeker {
	return bytes.NewReader([]byte(msg))
}
