// Package wsserver implements the JSON-RPC-over-WebSocket protocol
// binding server side: one process hosting many Things, each reachable
// at a URL path derived from its Thing id.
package wsserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/wot-servient/pkg/exposedthing"
)

// ThingProvider resolves the ExposedThing bound to a URL path segment.
// Implemented by pkg/servient.Servient; kept as an interface here so
// this package never imports the servient package that wires bindings
// together.
type ThingProvider interface {
	FindExposedThingBySlug(slug string) (*exposedthing.ExposedThing, bool)
}

// Server is the WS protocol binding: an HTTP server with gorilla/mux
// routing one path per Thing, upgrading each matched request to a
// WebSocket and handing it to a per-connection dispatch loop. Grounded
// on the teacher's general "router + CORS-wrapped http.Server" shape
// (the teacher's own binding was MQTT-only, so the router/upgrade glue
// itself is grounded on gorilla/mux + gorilla/websocket's own documented
// usage, both already indirect/direct deps of the teacher's go.mod).
type Server struct {
	things   ThingProvider
	router   *mux.Router
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New builds a Server that looks up Things through things. addr is the
// listen address (e.g. ":8080"); allowedOrigins configures rs/cors the
// same way the teacher's HTTP bindings do.
func New(things ThingProvider, addr string, allowedOrigins []string) *Server {
	s := &Server{
		things: things,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowedOrigins) == 0 {
					return true
				}
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
	s.router.HandleFunc("/{thingSlug}", s.handleUpgrade)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(s.router)

	s.httpSrv = &http.Server{Addr: addr, Handler: corsHandler}
	return s
}

// ListenAndServe starts accepting connections; blocks until the server
// is shut down or fails to bind.
func (s *Server) ListenAndServe() error {
	logrus.Infof("wsserver: listening on %s", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Close stops accepting new connections. It does not close WebSocket
// connections that were already upgraded (net/http.Server.Close leaves
// hijacked connections alone): each stays open, with its subscriptions,
// until its socket fails or the peer closes it.
func (s *Server) Close() error {
	return s.httpSrv.Close()
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["thingSlug"]
	et, found := s.things.FindExposedThingBySlug(slug)
	if !found {
		// Unknown path: close the handshake without an error frame (spec §4.5).
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warningf("wsserver: upgrade failed for thing '%s': %s", et.ThingDescription().ID(), err)
		return
	}

	c := newConnection(conn, et)
	go c.serve()
}
