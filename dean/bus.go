package dean

import (
	"log/slog"
)

// Bus is a message bus.  Sockets plug into the bus; msgs received on a socket
// are handed to the handler registered for the socket's tag.
type Bus struct {
	name       string
	sockets    map[Socketer]bool
	socketsMu  rwMutex
	socketQ    chan bool
	handlers   map[string]func(*Msg)
	handlersMu rwMutex
	connect    func(Socketer)
	disconnect func(Socketer)
}

var defaultMaxSockets = 200

// NewBus creates a new bus.  connect and disconnect are called as sockets
// plug into and unplug from the bus, and may be nil.
func NewBus(name string, connect, disconnect func(Socketer)) *Bus {
	if connect == nil {
		connect = func(Socketer) { /* don't notify */ }
	}
	if disconnect == nil {
		disconnect = func(Socketer) { /* don't notify */ }
	}
	return &Bus{
		name:       name,
		sockets:    make(map[Socketer]bool),
		socketQ:    make(chan bool, defaultMaxSockets),
		handlers:   make(map[string]func(*Msg)),
		connect:    connect,
		disconnect: disconnect,
	}
}

// Handle registers handler for msgs arriving on sockets tagged tag.  Returns
// false if tag already has a handler.
func (b *Bus) Handle(tag string, handler func(*Msg)) bool {
	if handler == nil {
		panic("bus: nil handler for tag \"" + tag + "\"")
	}
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	if _, ok := b.handlers[tag]; !ok {
		b.handlers[tag] = handler
		return true
	}
	return false
}

// Unhandle removes the handler for tag
func (b *Bus) Unhandle(tag string) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	delete(b.handlers, tag)
}

func (b *Bus) Name() string {
	return b.name
}

// MaxSockets sets the maximum number of sockets plugged in at once.  Plugin
// blocks while the bus is full.  Must be called before any socket is plugged
// in.
func (b *Bus) MaxSockets(maxSockets int) {
	b.socketQ = make(chan bool, maxSockets)
}

func (b *Bus) plugin(s Socketer) {
	slog.Debug("Plugin", "bus", b.name, "socket", s)
	select {
	case b.socketQ <- true:
	default:
		slog.Warn("Bus full, socket waiting", "bus", b.name, "socket", s, "max", cap(b.socketQ))
		b.socketQ <- true
	}
	b.socketsMu.Lock()
	b.sockets[s] = true
	b.socketsMu.Unlock()
	b.connect(s)
}

func (b *Bus) unplug(s Socketer) {
	slog.Debug("Unplug", "bus", b.name, "socket", s)
	b.socketsMu.Lock()
	delete(b.sockets, s)
	b.socketsMu.Unlock()
	b.disconnect(s)
	<-b.socketQ
}

// broadcast sends msg to every other broadcast socket with the msg's tag.
// Sends happen outside the sockets lock.
func (b *Bus) broadcast(msg *Msg) {
	for _, sock := range b.peers(msg.src) {
		if err := sock.Send(msg); err != nil {
			slog.Debug("Broadcast send failed", "socket", sock, "err", err)
		}
	}
}

func (b *Bus) peers(src Socketer) []Socketer {
	b.socketsMu.RLock()
	defer b.socketsMu.RUnlock()
	var peers []Socketer
	for sock := range b.sockets {
		if sock != src && sock.TestFlag(SocketFlagBcast) && sock.Tag() == src.Tag() {
			peers = append(peers, sock)
		}
	}
	return peers
}

func (b *Bus) numSockets() int {
	b.socketsMu.RLock()
	defer b.socketsMu.RUnlock()
	return len(b.sockets)
}

func (b *Bus) receive(msg *Msg) {
	tag := msg.src.Tag()
	b.handlersMu.RLock()
	handler, ok := b.handlers[tag]
	b.handlersMu.RUnlock()
	if ok {
		handler(msg)
	}
}
