package dean

// Injector is the socket a Thing uses to put its own msgs on the bus
type Injector struct {
	socket
}

func NewInjector(name string, bus *Bus) *Injector {
	i := &Injector{socket{name, "", 0, bus}}
	bus.plugin(i)
	return i
}

// Inject msg onto the bus as if it was received on the injector socket
func (i *Injector) Inject(msg *Msg) {
	msg.bus, msg.src = i.bus, i
	i.bus.receive(msg)
}
