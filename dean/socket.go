package dean

import (
	"errors"
	"sync"
)

// Socketer is one end of a bus.  Send must not block: sockets backed by a
// network connection queue the msg and write it on their own goroutine.
type Socketer interface {
	Close()
	Send(*Msg) error
	String() string
	// Tag groups sockets on a bus; msgs are handled and broadcast per tag
	Tag() string
	SetTag(string)
	SetFlag(uint32)
	TestFlag(uint32) bool
}

const (
	// SocketFlagBcast marks a socket as a broadcast destination
	SocketFlagBcast uint32 = 1 << iota
)

type socket struct {
	name  string
	tag   string
	flags uint32
	bus   *Bus
}

func (s *socket) Close()                 {}
func (s *socket) Send(msg *Msg) error    { return nil }
func (s *socket) String() string         { return s.name }
func (s *socket) Tag() string            { return s.tag }
func (s *socket) SetTag(tag string)      { s.tag = tag }
func (s *socket) SetFlag(flag uint32)    { s.flags |= flag }
func (s *socket) TestFlag(f uint32) bool { return s.flags&f != 0 }

// outboxLen bounds the msgs a socket holds for a slow peer
var outboxLen = 32

var (
	errOutboxFull   = errors.New("outbox full")
	errOutboxClosed = errors.New("outbox closed")
)

// outbox is a bounded queue of payloads waiting to be written to a peer
type outbox struct {
	q    chan []byte
	stop chan struct{}
	once sync.Once
}

func newOutbox(n int) *outbox {
	return &outbox{q: make(chan []byte, n), stop: make(chan struct{})}
}

// push queues payload, failing rather than waiting if the outbox is full
func (o *outbox) push(payload []byte) error {
	select {
	case <-o.stop:
		return errOutboxClosed
	default:
	}
	select {
	case o.q <- payload:
		return nil
	default:
		return errOutboxFull
	}
}

// drain hands queued payloads to write until the outbox is closed or write
// fails
func (o *outbox) drain(write func([]byte) error) error {
	for {
		select {
		case <-o.stop:
			return nil
		default:
		}
		select {
		case <-o.stop:
			return nil
		case payload := <-o.q:
			if err := write(payload); err != nil {
				return err
			}
		}
	}
}

func (o *outbox) close() {
	o.once.Do(func() { close(o.stop) })
}
