package dean

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"
)

// Server runs a Thinger and serves it over HTTP and websockets.  Optionally
// it dials a hub, publishes broadcasts to an MQTT broker and advertises
// itself over mDNS.
type Server struct {
	http.Server
	*Runner
	mux        *http.ServeMux
	user       string
	passwd     string
	tlsHost    string
	hubURL     string
	hubUser    string
	hubPasswd  string
	mqttBroker string
	mqttTopic  string
	mdns       bool
}

func NewServer(thinger Thinger) *Server {
	s := &Server{
		Runner: NewRunner(thinger),
		mux:    http.NewServeMux(),
	}
	s.Handler = s.mux
	s.HandleFunc("/", s.serveState)
	s.HandleFunc("/ws/", s.serveWebSocket)
	return s
}

// BasicAuth protects every handler with HTTP basic authentication.  An
// empty user disables authentication.
func (s *Server) BasicAuth(user, passwd string) {
	s.user, s.passwd = user, passwd
}

// ServeTLS serves HTTPS on :443 with a certificate obtained for host
func (s *Server) ServeTLS(host string) {
	s.tlsHost = host
}

// Dial connects to the hub at url once the server runs.  The thing is
// announced on each connection.
func (s *Server) Dial(user, passwd, url string) {
	s.hubUser, s.hubPasswd, s.hubURL = user, passwd, url
}

// Mqtt publishes every broadcast msg to topic on broker once the server
// runs.
func (s *Server) Mqtt(broker, topic string) {
	s.mqttBroker, s.mqttTopic = broker, topic
}

// Advertise the HTTP server over mDNS once the server runs.  Needs Addr.
func (s *Server) Advertise() {
	s.mdns = true
}

func (s *Server) HandleFunc(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.basicAuth(handler))
}

// Run the thing and the configured network services until ctx is done or
// the thing fails.  Network services stop when the thing stops.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var hub *webSocket
	if s.hubURL != "" {
		u, err := url.Parse(s.hubURL)
		if err != nil {
			return fmt.Errorf("hub url %q: %w", s.hubURL, err)
		}
		hub = newWebSocket(u, "", s.bus)
	}

	if s.mqttBroker != "" {
		client, err := DialMqtt(s.mqttBroker, s.thinger.Id())
		if err != nil {
			return fmt.Errorf("mqtt %s: %w", s.mqttBroker, err)
		}
		defer client.Disconnect(250)
		sock := NewMqttSocket(s.thinger.Id(), client, s.mqttTopic, s.bus)
		defer sock.Close()
		s.bus.plugin(sock)
		defer s.bus.unplug(sock)
	}

	g, ctx := errgroup.WithContext(ctx)

	// websocket clients are served until ctx is done
	s.BaseContext = func(net.Listener) context.Context { return ctx }

	if s.Addr != "" || s.tlsHost != "" {
		g.Go(s.listenAndServe)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			if err := s.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP shutdown", "err", err)
			}
			return nil
		})
	}

	if s.mdns && s.Addr == "" {
		slog.Warn("mDNS needs a listen address; not advertising")
	}
	if s.mdns && s.Addr != "" {
		g.Go(func() error {
			if err := advertise(ctx, s.thinger, s.Addr); err != nil {
				slog.Error("Advertising", "err", err)
			}
			return nil
		})
	}

	if hub != nil {
		g.Go(func() error {
			hub.Dial(ctx, s.hubUser, s.hubPasswd, s.thinger.Announce())
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return s.Runner.Run(ctx)
	})

	return g.Wait()
}

func (s *Server) listenAndServe() error {
	var err error
	if s.tlsHost != "" {
		slog.Info("Serving TLS", "host", s.tlsHost)
		err = s.Serve(tlsListener(s.tlsHost))
	} else {
		slog.Info("Serving", "addr", s.Addr)
		err = s.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) serveState(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.thinger.Lock()
	state, err := json.Marshal(s.thinger)
	s.thinger.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(state)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	ws := newWebSocket(r.URL, r.RemoteAddr, s.bus)
	serv := websocket.Server{Handler: websocket.Handler(ws.serve)}
	serv.ServeHTTP(w, r)
}

// basicAuth wraps next so it only runs for requests carrying the server's
// credentials.  Credentials are compared as hashes in constant time.
func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.user == "" || s.authorized(r) {
			next(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="dean", charset="UTF-8"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	user, passwd, ok := r.BasicAuth()
	if !ok {
		return false
	}
	return sameHash(user, s.user)&sameHash(passwd, s.passwd) == 1
}

func sameHash(a, b string) int {
	ha, hb := sha256.Sum256([]byte(a)), sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:])
}
