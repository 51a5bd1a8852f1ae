// Package servient is the process-wide container that owns a catalogue of
// exposed Things and runs the protocol servers (WS, CoAP) in front of them.
// Grounded on the teacher's ExposedThingFactory/ConsumedThingFactory: the
// same etMap-plus-mutex "factory owns bindings" shape, generalized here to
// own both protocol servers at once instead of one MQTT binding per Thing.
package servient

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/wot-servient/pkg/coap"
	"github.com/wostzone/wot-servient/pkg/exposedthing"
	"github.com/wostzone/wot-servient/pkg/wot"
	"github.com/wostzone/wot-servient/pkg/wsserver"
)

// Config carries the bind addresses the protocol servers listen on.
// WSAddr/CoAPAddr empty disables that binding entirely.
type Config struct {
	WSAddr         string
	CoAPAddr       string
	AllowedOrigins []string
}

// Servient owns a slug-keyed registry of exposed Things plus the protocol
// servers fronting them. It is the only thing in this repository allowed
// to construct an ExposedThing, mirroring the teacher's factory
// Expose/Destroy pair being the sole entry points to etMap.
type Servient struct {
	mu     sync.RWMutex
	things map[string]*exposedthing.ExposedThing // keyed by slug

	wsServer   *wsserver.Server
	coapServer *coap.Server
}

// New builds a Servient around cfg. Start its protocol servers with
// Start once every Thing to expose at boot has been added with Expose.
func New(cfg Config) *Servient {
	s := &Servient{
		things: make(map[string]*exposedthing.ExposedThing),
	}
	if cfg.WSAddr != "" {
		s.wsServer = wsserver.New(s, cfg.WSAddr, cfg.AllowedOrigins)
	}
	if cfg.CoAPAddr != "" {
		s.coapServer = coap.New(s, cfg.CoAPAddr)
	}
	return s
}

// Expose wraps th in an ExposedThing and registers it under its slug
// (I1 already guarantees th.ID() is non-empty, so the slug cannot be
// empty either). Exposing a Thing whose slug is already registered
// replaces the previous ExposedThing, disposing its subscriptions first.
func (s *Servient) Expose(th *wot.Thing) *exposedthing.ExposedThing {
	slug := wot.Slug(th.ID())
	et := exposedthing.NewExposedThing(th)

	s.mu.Lock()
	prev, found := s.things[slug]
	s.things[slug] = et
	s.mu.Unlock()

	if found {
		logrus.Warnf("servient: replacing previously exposed thing at slug '%s'", slug)
		prev.Destroy()
	}
	logrus.Infof("servient: exposed thing '%s' at slug '%s'", th.ID(), slug)
	return et
}

// Unexpose destroys and removes the ExposedThing at slug, if any.
func (s *Servient) Unexpose(slug string) {
	s.mu.Lock()
	et, found := s.things[slug]
	delete(s.things, slug)
	s.mu.Unlock()

	if found {
		et.Destroy()
		logrus.Infof("servient: unexposed thing at slug '%s'", slug)
	}
}

// FindExposedThingBySlug implements wsserver.ThingProvider and
// coap.ThingProvider.
func (s *Servient) FindExposedThingBySlug(slug string) (*exposedthing.ExposedThing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	et, found := s.things[slug]
	return et, found
}

// Things returns a snapshot of the currently exposed Things keyed by slug.
// Used by the TD-catalogue external collaborator (spec §6) to list
// `{<thing-name>: <td-document>, ...}`.
func (s *Servient) Things() map[string]*exposedthing.ExposedThing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]*exposedthing.ExposedThing, len(s.things))
	for slug, et := range s.things {
		snapshot[slug] = et
	}
	return snapshot
}

// Start launches the configured protocol servers in background
// goroutines. Errors other than a clean shutdown are logged; Start does
// not block.
func (s *Servient) Start() {
	if s.wsServer != nil {
		go func() {
			if err := s.wsServer.ListenAndServe(); err != nil {
				logrus.Errorf("servient: ws server stopped: %s", err)
			}
		}()
	}
	if s.coapServer != nil {
		go func() {
			if err := s.coapServer.ListenAndServe(); err != nil {
				logrus.Errorf("servient: coap server stopped: %s", err)
			}
		}()
	}
}

// Shutdown closes the protocol servers and then destroys every exposed
// Thing, which disposes all of that Thing's change-bus subscriptions
// (those of protocol connections and in-process subscribers alike).
// Closing the WS server stops it accepting connections; WebSocket
// connections that are already open are not closed by Shutdown.
func (s *Servient) Shutdown() error {
	var firstErr error
	if s.wsServer != nil {
		if err := s.wsServer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("ws server close: %w", err)
		}
	}
	if s.coapServer != nil {
		if err := s.coapServer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("coap server close: %w", err)
		}
	}

	s.mu.Lock()
	things := s.things
	s.things = make(map[string]*exposedthing.ExposedThing)
	s.mu.Unlock()

	for slug, et := range things {
		et.Destroy()
		logrus.Debugf("servient: destroyed thing at slug '%s' during shutdown", slug)
	}
	return firstErr
}
