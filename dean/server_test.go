package dean

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"golang.org/x/net/websocket"
)

type testThing struct {
	Thing
	ThingMsg
	Count int
	err   error
}

func newTestThing() *testThing {
	return &testThing{Thing: NewThing("test01", "test", "bench")}
}

func (t *testThing) Subscribers() Subscribers {
	return Subscribers{
		"get/state": func(msg *Msg) {
			t.Path = "state"
			msg.Marshal(t).Reply()
		},
		"update": func(msg *Msg) { msg.Broadcast() },
	}
}

func (t *testThing) Run(ctx context.Context, i *Injector) error {
	if t.err != nil {
		return t.err
	}
	<-ctx.Done()
	return nil
}

func TestBasicAuth(t *testing.T) {
	c := qt.New(t)
	s := NewServer(newTestThing())
	s.BasicAuth("user", "passwd")

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	req := httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("user", "wrong")
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	req = httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("user", "passwd")
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json")
	c.Assert(rec.Body.String(), qt.Equals, `{"Path":"","Count":0}`)
}

func TestServeStateNotFound(t *testing.T) {
	c := qt.New(t)
	s := NewServer(newTestThing())
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
}

func dialTest(c *qt.C, ts *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/"
	conn, err := websocket.Dial(url, "", "http://localhost/")
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { conn.Close() })
	return conn
}

func receive(c *qt.C, conn *websocket.Conn) string {
	var got string
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	c.Assert(websocket.Message.Receive(conn, &got), qt.IsNil)
	return got
}

func TestWebSocketGetState(t *testing.T) {
	c := qt.New(t)
	thing := newTestThing()
	thing.Count = 7
	s := NewServer(thing)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	conn := dialTest(c, ts)
	c.Assert(websocket.Message.Send(conn, `{"Path":"get/state"}`), qt.IsNil)
	c.Assert(receive(c, conn), qt.Equals, `{"Path":"state","Count":7}`)

	c.Assert(websocket.Message.Send(conn, "ping"), qt.IsNil)
	c.Assert(receive(c, conn), qt.Equals, "pong")
}

func TestWebSocketBroadcast(t *testing.T) {
	c := qt.New(t)
	s := NewServer(newTestThing())
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	conn := dialTest(c, ts)
	// round trip so the socket is plugged into the bus
	c.Assert(websocket.Message.Send(conn, `{"Path":"get/state"}`), qt.IsNil)
	receive(c, conn)

	var msg Msg
	s.injector.Inject(msg.Marshal(&ThingMsg{"update"}))
	c.Assert(receive(c, conn), qt.Equals, `{"Path":"update"}`)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	c := qt.New(t)
	s := NewServer(newTestThing())
	s.Addr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		c.Assert(err, qt.IsNil)
	case <-time.After(5 * time.Second):
		c.Fatal("server did not stop")
	}
}

func TestServerRunThingError(t *testing.T) {
	c := qt.New(t)
	boom := errors.New("boom")
	thing := newTestThing()
	thing.err = boom
	s := NewServer(thing)
	s.Addr = "127.0.0.1:0"
	err := s.Run(context.Background())
	c.Assert(err, qt.ErrorIs, boom)
}

func TestDialHub(t *testing.T) {
	c := qt.New(t)
	announced := make(chan string, 1)
	hub := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		var ann string
		if websocket.Message.Receive(conn, &ann) != nil {
			return
		}
		select {
		case announced <- ann:
		default:
		}
		websocket.Message.Send(conn, `{"Path":"ack"}`)
		var discard string
		for websocket.Message.Receive(conn, &discard) == nil {
		}
	}))
	defer hub.Close()

	s := NewServer(newTestThing())
	s.Dial("", "", "ws"+strings.TrimPrefix(hub.URL, "http")+"/ws/")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()

	select {
	case ann := <-announced:
		c.Assert(ann, qt.Equals, `{"Path":"announce","Id":"test01","Model":"test","Name":"bench"}`)
	case <-time.After(5 * time.Second):
		c.Fatal("no announcement")
	}

	cancel()
	select {
	case err := <-done:
		c.Assert(err, qt.IsNil)
	case <-time.After(5 * time.Second):
		c.Fatal("server did not stop")
	}
}

func TestStalledClientDoesNotBlockBroadcast(t *testing.T) {
	c := qt.New(t)
	c.Patch(&writeTimeout, 500*time.Millisecond)

	s := NewServer(newTestThing())
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	conn := dialTest(c, ts)
	c.Assert(websocket.Message.Send(conn, `{"Path":"get/state"}`), qt.IsNil)
	receive(c, conn)

	// keep the connection alive but never read again
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				websocket.Message.Send(conn, "ping")
			}
		}
	}()

	var big Msg
	big.Marshal(&struct{ Path, Pad string }{"update", strings.Repeat("x", 64*1024)})

	deadline := time.Now().Add(10 * time.Second)
	for s.bus.numSockets() > 1 {
		c.Assert(time.Now().Before(deadline), qt.IsTrue, qt.Commentf("stalled client never dropped"))
		start := time.Now()
		s.injector.Inject(NewMsg(big.Bytes()))
		c.Assert(time.Since(start) < time.Second, qt.IsTrue, qt.Commentf("broadcast blocked"))
		time.Sleep(time.Millisecond)
	}
}
