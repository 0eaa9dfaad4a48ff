package sdbind

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sdbind/sdbind/wire"
)

type objectState int

const (
	stateUnloaded objectState = iota
	stateLoaded
	stateClosed
)

// An Object is a dynamic binding to one object exposed by a bus
// peer. It starts out unloaded; [Object.Load] introspects the remote
// object and builds the member table that [Object.Get] and
// [Object.Call] resolve names against. A closed Object cannot be
// reused.
//
// Every property read and method call is one bus round-trip. Nothing
// is cached beyond the introspection data itself.
type Object struct {
	dest string
	path ObjectPath

	mu      sync.Mutex
	bus     Bus
	ownsBus bool
	state   objectState
	desc    *ObjectDescription
	members map[string]member
}

type memberKind int

const (
	methodMember memberKind = iota
	propertyMember
)

type member struct {
	kind  memberKind
	iface string
	prop  *PropertyDescription
	meth  *MethodDescription
}

// New returns an unloaded binding to the object at path on the peer
// named dest. If bus is nil, Load dials the system bus and the
// object owns that connection; otherwise the caller keeps ownership
// of bus.
func New(dest string, path ObjectPath, bus Bus) *Object {
	return &Object{dest: dest, path: path, bus: bus}
}

// Destination returns the peer name the object is bound to.
func (o *Object) Destination() string { return o.dest }

// Path returns the object's path.
func (o *Object) Path() ObjectPath { return o.path }

// Loaded reports whether the object is loaded and not closed.
func (o *Object) Loaded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == stateLoaded
}

// Load introspects the remote object and builds the member table.
// Loading a loaded object returns [ErrLoaded], loading a closed one
// [ErrClosed]. If the object had to dial its own bus and loading
// fails, the connection is released before returning.
func (o *Object) Load(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case stateLoaded:
		return ErrLoaded
	case stateClosed:
		return ErrClosed
	}
	if !o.path.Valid() {
		return fmt.Errorf("invalid object path %q", o.path)
	}

	bus, owns := o.bus, false
	if bus == nil {
		var err error
		bus, err = SystemBus(ctx)
		if err != nil {
			return err
		}
		owns = true
	}

	data, err := bus.Introspect(ctx, o.dest, o.path)
	if err == nil {
		var desc *ObjectDescription
		if desc, err = ParseObjectDescription(data); err == nil {
			o.bus, o.ownsBus = bus, owns
			o.desc = desc
			o.members = memberTable(desc)
			o.state = stateLoaded
			return nil
		}
	}
	if owns {
		bus.Close()
	}
	return err
}

// Close releases the object. The underlying bus is closed only if
// the object dialed it itself. Closing again is a no-op.
func (o *Object) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == stateClosed {
		return nil
	}
	loaded := o.state == stateLoaded
	o.state = stateClosed
	if loaded && o.ownsBus && o.bus != nil {
		return o.bus.Close()
	}
	return nil
}

// With runs fn against the loaded object and closes it when fn
// returns. The object is loaded first unless it already is. fn's
// error takes precedence over any close error.
func (o *Object) With(ctx context.Context, fn func(o *Object) error) error {
	if err := o.Load(ctx); err != nil && !errors.Is(err, ErrLoaded) {
		return err
	}
	ferr := fn(o)
	cerr := o.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// Description returns the parsed introspection data, or nil if the
// object is not loaded.
func (o *Object) Description() *ObjectDescription {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.desc
}

// Interface returns a proxy scoped to one of the object's
// interfaces.
func (o *Object) Interface(name string) (*Proxy, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.usable(); err != nil {
		return nil, err
	}
	desc := o.desc.Interface(name)
	if desc == nil {
		return nil, UnknownInterfaceError{Name: name}
	}
	return &Proxy{obj: o, desc: desc}, nil
}

// Get reads the named property with one bus round-trip. The name is
// resolved across all interfaces; properties shadow methods, and for
// duplicates the interface listed last wins.
func (o *Object) Get(ctx context.Context, name string) (any, error) {
	bus, m, err := o.member(name)
	if err != nil {
		return nil, err
	}
	if m.kind != propertyMember {
		return nil, UnknownMemberError{Name: name}
	}
	return bus.GetProperty(ctx, o.dest, o.path, m.iface, name)
}

// Call invokes the named method with one bus round-trip. The
// argument count is checked against the introspected input signature
// before anything is sent.
func (o *Object) Call(ctx context.Context, name string, args ...any) ([]any, error) {
	bus, m, err := o.member(name)
	if err != nil {
		return nil, err
	}
	if m.kind != methodMember {
		return nil, UnknownMemberError{Name: name}
	}
	return callMethod(ctx, bus, o.dest, o.path, m.iface, m.meth, args)
}

func callMethod(ctx context.Context, bus Bus, dest string, path ObjectPath, iface string, meth *MethodDescription, args []any) ([]any, error) {
	if len(args) != len(meth.In) {
		return nil, ArityError{Method: meth.Name, Want: len(meth.In), Got: len(args)}
	}
	sig := meth.InSignature()
	body, err := wire.EncodeAll(sig, args...)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", meth.Name, err)
	}
	return bus.CallMethod(ctx, dest, path, iface, meth.Name, sig, body)
}

// CallDirect invokes a method with an explicit input signature and a
// pre-encoded argument stream, bypassing the member table. It is the
// escape hatch for calls whose arguments are compiled elsewhere, such
// as the a(sv) property arrays built by the unit package.
func (o *Object) CallDirect(ctx context.Context, iface, method, sig string, args wire.TokenStream) ([]any, error) {
	o.mu.Lock()
	err := o.usable()
	bus := o.bus
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return bus.CallMethod(ctx, o.dest, o.path, iface, method, sig, args)
}

// member resolves a name in the flat member table, together with the
// bus to use for it.
func (o *Object) member(name string) (Bus, member, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.usable(); err != nil {
		return nil, member{}, err
	}
	m, ok := o.members[name]
	if !ok {
		return nil, member{}, UnknownMemberError{Name: name}
	}
	return o.bus, m, nil
}

// usable checks that the object is loaded. Callers must hold o.mu.
func (o *Object) usable() error {
	switch o.state {
	case stateUnloaded:
		return ErrNotLoaded
	case stateClosed:
		return ErrClosed
	}
	return nil
}

// memberTable flattens an object description into one name table.
// Methods are inserted first, then properties, each in document
// order with later entries overwriting earlier ones. Properties
// therefore shadow same-named methods, and the last listed interface
// wins among duplicates.
func memberTable(desc *ObjectDescription) map[string]member {
	ret := make(map[string]member)
	for _, iface := range desc.Interfaces {
		for _, m := range iface.Methods {
			ret[m.Name] = member{kind: methodMember, iface: iface.Name, meth: m}
		}
	}
	for _, iface := range desc.Interfaces {
		for _, p := range iface.Properties {
			ret[p.Name] = member{kind: propertyMember, iface: iface.Name, prop: p}
		}
	}
	return ret
}
