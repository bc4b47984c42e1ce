package dean

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

var (
	// writeTimeout bounds a single write to a peer
	writeTimeout = 5 * time.Second
	// ackTimeout bounds the wait for the hub to ack an announcement
	ackTimeout  = time.Second
	dialTimeout = 10 * time.Second
	retryPeriod = time.Second
)

const pingPeriodMin = time.Second

var (
	pingMsg = []byte("ping")
	pongMsg = []byte("pong")

	errNilConn = errors.New("websocket not connected")
)

// webSocket is a Socketer over a websocket connection.  Reads happen on the
// goroutine serving the connection; writes go through an outbox drained by a
// writer goroutine, so Send never waits on the peer.
type webSocket struct {
	socket
	url        *url.URL
	pingPeriod time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
	out  *outbox
}

func newWebSocket(u *url.URL, remoteAddr string, bus *Bus) *webSocket {
	name := "ws:" + u.String()
	if remoteAddr != "" {
		name += "::" + remoteAddr
	}

	period, _ := strconv.Atoi(u.Query().Get("ping-period"))
	pingPeriod := time.Duration(period) * time.Second
	if pingPeriod < pingPeriodMin {
		pingPeriod = pingPeriodMin
	}

	return &webSocket{
		socket:     socket{name, "", SocketFlagBcast, bus},
		url:        u,
		pingPeriod: pingPeriod,
	}
}

// Send queues msg for the writer.  A peer too slow to keep up with its
// outbox is disconnected.
func (w *webSocket) Send(msg *Msg) error {
	w.mu.Lock()
	conn, out := w.conn, w.out
	w.mu.Unlock()

	if out == nil {
		return errNilConn
	}
	err := out.push(msg.payload)
	if errors.Is(err, errOutboxFull) {
		slog.Info("Peer not reading, disconnecting", "socket", w)
		out.close()
		// Close waits for any write in flight; don't make the sender wait too
		go conn.Close()
	}
	return err
}

// Close disconnects the peer
func (w *webSocket) Close() {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn != nil {
		go conn.Close()
	}
}

// attach starts writing to conn and plugs the socket into the bus
func (w *webSocket) attach(conn *websocket.Conn) {
	out := newOutbox(outboxLen)
	w.mu.Lock()
	w.conn, w.out = conn, out
	w.mu.Unlock()
	go w.writeLoop(conn, out)
	w.bus.plugin(w)
}

// detach unplugs the socket and stops the writer
func (w *webSocket) detach() {
	w.bus.unplug(w)
	w.mu.Lock()
	out := w.out
	w.conn, w.out = nil, nil
	w.mu.Unlock()
	if out != nil {
		out.close()
	}
}

func (w *webSocket) writeLoop(conn *websocket.Conn, out *outbox) {
	err := out.drain(func(payload []byte) error {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return websocket.Message.Send(conn, string(payload))
	})
	if err != nil {
		slog.Info("Write failed, disconnecting", "socket", w, "err", err)
		conn.Close()
	}
}

// readLoop receives msgs from conn until ctx is done, the peer is silent for
// idle, or the connection fails.  Pings are answered and pongs dropped;
// everything else goes to the bus.
func (w *webSocket) readLoop(ctx context.Context, conn *websocket.Conn, idle time.Duration) error {
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		conn.SetReadDeadline(time.Now().Add(idle))
		if err := ctx.Err(); err != nil {
			return err
		}

		var payload []byte
		if err := websocket.Message.Receive(conn, &payload); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		switch {
		case bytes.Equal(payload, pingMsg):
			w.Send(NewMsg(pongMsg))
		case bytes.Equal(payload, pongMsg):
		default:
			w.bus.receive(&Msg{bus: w.bus, src: w, payload: payload})
		}
	}
}

// serve a websocket client connected to the server.  The client pings every
// ping-period; a client silent for two periods is dropped.
func (w *webSocket) serve(conn *websocket.Conn) {
	w.attach(conn)
	defer w.detach()
	err := w.readLoop(conn.Request().Context(), conn, 2*w.pingPeriod+time.Second)
	slog.Info("Disconnecting", "socket", w, "err", err)
}

func (w *webSocket) newConfig(user, passwd string) (*websocket.Config, error) {
	cfg, err := websocket.NewConfig(w.url.String(), "http://localhost/")
	if err != nil {
		return nil, err
	}
	cfg.Dialer = &net.Dialer{Timeout: dialTimeout}
	if user != "" {
		req, err := http.NewRequest("GET", w.url.String(), nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(user, passwd)
		cfg.Header = req.Header
	}
	return cfg, nil
}

// dial cfg, giving up when ctx is done
func dial(ctx context.Context, cfg *websocket.Config) (*websocket.Conn, error) {
	type result struct {
		conn *websocket.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := websocket.DialConfig(cfg)
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Dial the hub at w.url and serve it, redialing every retryPeriod until ctx
// is done.  Each connection starts with announce, which the hub must ack.
func (w *webSocket) Dial(ctx context.Context, user, passwd string, announce *Msg) {
	cfg, err := w.newConfig(user, passwd)
	if err != nil {
		slog.Error("Configuring websocket", "socket", w, "err", err)
		return
	}

	for {
		err := w.session(ctx, cfg, announce)
		if ctx.Err() != nil {
			return
		}
		slog.Info("Hub session ended", "socket", w, "err", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryPeriod):
		}
	}
}

func (w *webSocket) session(ctx context.Context, cfg *websocket.Config, announce *Msg) error {
	conn, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := websocket.Message.Send(conn, string(announce.payload)); err != nil {
		return fmt.Errorf("announce: %w", err)
	}
	conn.SetReadDeadline(time.Now().Add(ackTimeout))
	var ack []byte
	if err := websocket.Message.Receive(conn, &ack); err != nil {
		return fmt.Errorf("announce not acked: %w", err)
	}

	slog.Info("Connected to hub", "socket", w)
	w.attach(conn)
	defer w.detach()
	w.bus.receive(&Msg{bus: w.bus, src: w, payload: ack})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go w.pinger(ctx)

	// the hub answers every ping, so three silent periods is a dead hub
	return w.readLoop(ctx, conn, 3*w.pingPeriod)
}

func (w *webSocket) pinger(ctx context.Context) {
	ticker := time.NewTicker(w.pingPeriod)
	defer ticker.Stop()
	for {
		if err := w.Send(NewMsg(pingMsg)); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
