package sdbind

import "context"

// A Proxy is a view of a loaded [Object] scoped to one interface.
// Name resolution only considers that interface's members, so a
// proxy can reach members that are shadowed in the object's flat
// table.
type Proxy struct {
	obj  *Object
	desc *InterfaceDescription
}

// Name returns the interface name the proxy is scoped to.
func (p *Proxy) Name() string { return p.desc.Name }

// Description returns the parsed interface description.
func (p *Proxy) Description() *InterfaceDescription { return p.desc }

// Properties lists the interface's properties in document order.
func (p *Proxy) Properties() []*PropertyDescription { return p.desc.Properties }

// Methods lists the interface's methods in document order.
func (p *Proxy) Methods() []*MethodDescription { return p.desc.Methods }

// Get reads the named property of this interface with one bus
// round-trip.
func (p *Proxy) Get(ctx context.Context, name string) (any, error) {
	bus, err := p.bus()
	if err != nil {
		return nil, err
	}
	if p.desc.Property(name) == nil {
		return nil, UnknownMemberError{Name: name, Interface: p.desc.Name}
	}
	return bus.GetProperty(ctx, p.obj.dest, p.obj.path, p.desc.Name, name)
}

// Call invokes the named method of this interface with one bus
// round-trip, checking the argument count against the introspected
// input signature first.
func (p *Proxy) Call(ctx context.Context, name string, args ...any) ([]any, error) {
	bus, err := p.bus()
	if err != nil {
		return nil, err
	}
	meth := p.desc.Method(name)
	if meth == nil {
		return nil, UnknownMemberError{Name: name, Interface: p.desc.Name}
	}
	return callMethod(ctx, bus, p.obj.dest, p.obj.path, p.desc.Name, meth, args)
}

func (p *Proxy) bus() (Bus, error) {
	p.obj.mu.Lock()
	defer p.obj.mu.Unlock()
	if err := p.obj.usable(); err != nil {
		return nil, err
	}
	return p.obj.bus, nil
}
