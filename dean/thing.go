package dean

import (
	"context"
	"fmt"
	"strings"
)

// Subscribers maps a msg Path to the handler for that msg
type Subscribers map[string]func(*Msg)

type Thinger interface {
	Subscribers() Subscribers
	Announce() *Msg
	Run(context.Context, *Injector) error
	Id() string
	Model() string
	Name() string
	String() string
	Lock()
	Unlock()
}

type ThingMsg struct {
	Path string
}

type ThingMsgAnnounce struct {
	Path  string
	Id    string
	Model string
	Name  string
}

// Thing is the base of every Thinger.  Embed it and override Subscribers and
// Run.
type Thing struct {
	id    string
	model string
	name  string
	mu    mutex
}

// NewThing panics unless id, model and name are all valid IDs
func NewThing(id, model, name string) Thing {
	for _, s := range []string{id, model, name} {
		if !ValidId(s) {
			panic(fmt.Sprintf("dean: invalid thing id=%q model=%q name=%q", id, model, name))
		}
	}
	return Thing{id: id, model: model, name: name}
}

func (t *Thing) Subscribers() Subscribers { return nil }
func (t *Thing) Id() string               { return t.id }
func (t *Thing) Model() string            { return t.model }
func (t *Thing) Name() string             { return t.name }
func (t *Thing) Lock()                    { t.mu.Lock() }
func (t *Thing) Unlock()                  { t.mu.Unlock() }

func (t *Thing) Run(ctx context.Context, i *Injector) error {
	<-ctx.Done()
	return nil
}

func (t *Thing) String() string {
	return fmt.Sprintf("[Id: %s, Model: %s, Name: %s]", t.id, t.model, t.name)
}

// Announce is the first msg sent to a hub
func (t *Thing) Announce() *Msg {
	return new(Msg).Marshal(&ThingMsgAnnounce{
		Path:  "announce",
		Id:    t.id,
		Model: t.model,
		Name:  t.name,
	})
}

func isIdRune(r rune) bool {
	return r == '_' ||
		('a' <= r && r <= 'z') ||
		('A' <= r && r <= 'Z') ||
		('0' <= r && r <= '9')
}

// ValidId reports whether s is a non-empty run of ASCII letters, digits and
// underscores
func ValidId(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return !isIdRune(r) }) < 0
}
