// Package coap implements the CoAP protocol binding (spec §4.7):
// one resource per Interaction, addressed as
// coap://host:port/<thing-slug>/properties|actions|events/<name>,
// GET/PUT/POST for request/response operations and the Observe option
// for streaming. Grounded on
// other_examples/2639131b_matrix-org-lb__coap_observe.go.go's use of the
// go-coap v2 family (that file targets a fork of the exact
// `plgd-dev/go-coap/v2` version pinned in go.mod), adapted to wrap
// exposedthing.ExposedThing instead of an HTTP long-poll backend.
package coap

import (
	"github.com/plgd-dev/go-coap/v2/mux"
	coapNet "github.com/plgd-dev/go-coap/v2/net"
	"github.com/plgd-dev/go-coap/v2/udp"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/wot-servient/pkg/exposedthing"
)

// ThingProvider resolves the ExposedThing bound to a URL path segment.
// The same interface shape as wsserver.ThingProvider, kept as its own
// copy so this package does not import wsserver.
type ThingProvider interface {
	FindExposedThingBySlug(slug string) (*exposedthing.ExposedThing, bool)
}

// Server is the CoAP protocol binding.
type Server struct {
	things ThingProvider
	router *mux.Router
	addr   string
	obs    *observeRegistry

	listener *coapNet.UDPConn
	srv      *udp.Server
}

// New builds a Server that looks up Things through things. addr is the
// UDP listen address (e.g. ":5683").
func New(things ThingProvider, addr string) *Server {
	s := &Server{
		things: things,
		router: mux.NewRouter(),
		addr:   addr,
		obs:    newObserveRegistry(),
	}
	s.router.DefaultHandle(mux.HandlerFunc(s.handle))
	return s
}

// ListenAndServe starts accepting CoAP requests; blocks until the
// server is stopped or fails to bind.
func (s *Server) ListenAndServe() error {
	l, err := coapNet.NewListenUDP("udp", s.addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.srv = udp.NewServer(udp.WithMux(s.router))

	logrus.Infof("coap: listening on %s", s.addr)
	return s.srv.Serve(l)
}

// Close stops the server and disposes every active Observe registration.
func (s *Server) Close() error {
	s.obs.disposeAll()
	if s.srv != nil {
		s.srv.Stop()
	}
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
