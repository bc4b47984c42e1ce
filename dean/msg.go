package dean

import (
	"encoding/json"
	"log/slog"
)

// Msg is sent and received on a bus via a socket
type Msg struct {
	bus     *Bus
	src     Socketer
	payload []byte
}

// NewMsg returns a msg with the given raw payload
func NewMsg(payload []byte) *Msg {
	return &Msg{payload: payload}
}

// Bytes returns the msg payload
func (m *Msg) Bytes() []byte {
	return m.payload
}

func (m *Msg) String() string {
	return string(m.payload)
}

// Src returns the socket the msg arrived on
func (m *Msg) Src() Socketer {
	return m.src
}

// Path returns the routing key of the msg payload, or "" if the payload has
// no Path.
func (m *Msg) Path() string {
	var tm ThingMsg
	if err := json.Unmarshal(m.payload, &tm); err != nil {
		return ""
	}
	return tm.Path
}

// Reply sends the msg back to sender.  The msg can be modified before calling
// Reply.
func (m *Msg) Reply() *Msg {
	if m.src == nil {
		slog.Error("Can't reply to message: source is nil")
		return m
	}
	slog.Debug("Reply", "src", m.src, "msg", m)
	if err := m.src.Send(m); err != nil {
		slog.Error("Reply failed", "src", m.src, "err", err)
	}
	return m
}

// Broadcast the msg to all other matching-tagged sockets on the bus.  The
// source socket is excluded.
func (m *Msg) Broadcast() *Msg {
	if m.bus == nil {
		slog.Error("Can't broadcast message: bus is nil")
		return m
	}
	slog.Debug("Broadcast", "tag", m.src.Tag(), "msg", m)
	m.bus.broadcast(m)
	return m
}

// Unmarshal the msg payload as JSON into v
func (m *Msg) Unmarshal(v any) *Msg {
	if err := json.Unmarshal(m.payload, v); err != nil {
		slog.Error("JSON unmarshal error", "err", err)
	}
	return m
}

// Marshal the msg payload as JSON from v
func (m *Msg) Marshal(v any) *Msg {
	var err error
	m.payload, err = json.Marshal(v)
	if err != nil {
		slog.Error("JSON marshal error", "err", err)
	}
	return m
}
