// Package bustest provides an in-memory implementation of
// [sdbind.Bus] for tests.
//
// A Bus serves introspection XML, property values and method
// handlers registered per (destination, path), and records every
// round-trip made through it so tests can assert on traffic.
package bustest

import (
	"context"
	"sync"

	"github.com/sdbind/sdbind"
	"github.com/sdbind/sdbind/wire"
)

// A MethodFunc handles one registered method call.
type MethodFunc func(args wire.TokenStream) ([]any, error)

// An IntrospectCall records one Introspect round-trip.
type IntrospectCall struct {
	Dest string
	Path sdbind.ObjectPath
}

// A PropertyCall records one GetProperty round-trip.
type PropertyCall struct {
	Dest  string
	Path  sdbind.ObjectPath
	Iface string
	Name  string
}

// A MethodCall records one CallMethod round-trip.
type MethodCall struct {
	Dest   string
	Path   sdbind.ObjectPath
	Iface  string
	Method string
	Sig    string
	Args   wire.TokenStream
}

type objKey struct {
	dest string
	path sdbind.ObjectPath
}

type memberKey struct {
	objKey
	iface string
	name  string
}

// Bus is an in-memory fake bus. The zero value is not usable; use
// [New].
type Bus struct {
	mu       sync.Mutex
	xml      map[objKey]string
	props    map[memberKey]any
	propErrs map[memberKey]error
	methods  map[memberKey]MethodFunc
	closeErr error

	// Traffic records, in call order.
	IntrospectCalls []IntrospectCall
	PropertyCalls   []PropertyCall
	MethodCalls     []MethodCall
	CloseCount      int
}

// New returns an empty fake bus.
func New() *Bus {
	return &Bus{
		xml:      make(map[objKey]string),
		props:    make(map[memberKey]any),
		propErrs: make(map[memberKey]error),
		methods:  make(map[memberKey]MethodFunc),
	}
}

// AddObject registers introspection XML for the object at path on
// dest.
func (b *Bus) AddObject(dest string, path sdbind.ObjectPath, xml string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.xml[objKey{dest, path}] = xml
}

// SetProperty registers a property value.
func (b *Bus) SetProperty(dest string, path sdbind.ObjectPath, iface, name string, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.props[memberKey{objKey{dest, path}, iface, name}] = v
}

// SetPropertyErr makes reads of a property fail with err.
func (b *Bus) SetPropertyErr(dest string, path sdbind.ObjectPath, iface, name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.propErrs[memberKey{objKey{dest, path}, iface, name}] = err
}

// Handle registers a method handler.
func (b *Bus) Handle(dest string, path sdbind.ObjectPath, iface, method string, fn MethodFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.methods[memberKey{objKey{dest, path}, iface, method}] = fn
}

// SetCloseErr makes Close return err.
func (b *Bus) SetCloseErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeErr = err
}

// Introspect implements [sdbind.Bus].
func (b *Bus) Introspect(ctx context.Context, dest string, path sdbind.ObjectPath) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.IntrospectCalls = append(b.IntrospectCalls, IntrospectCall{dest, path})
	xml, ok := b.xml[objKey{dest, path}]
	if !ok {
		return "", sdbind.CallError{Name: "org.freedesktop.DBus.Error.UnknownObject"}
	}
	return xml, nil
}

// GetProperty implements [sdbind.Bus].
func (b *Bus) GetProperty(ctx context.Context, dest string, path sdbind.ObjectPath, iface, name string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PropertyCalls = append(b.PropertyCalls, PropertyCall{dest, path, iface, name})
	key := memberKey{objKey{dest, path}, iface, name}
	if err, ok := b.propErrs[key]; ok {
		return nil, err
	}
	v, ok := b.props[key]
	if !ok {
		return nil, sdbind.CallError{Name: "org.freedesktop.DBus.Error.UnknownProperty"}
	}
	return v, nil
}

// CallMethod implements [sdbind.Bus].
func (b *Bus) CallMethod(ctx context.Context, dest string, path sdbind.ObjectPath, iface, method, sig string, args wire.TokenStream) ([]any, error) {
	b.mu.Lock()
	b.MethodCalls = append(b.MethodCalls, MethodCall{dest, path, iface, method, sig, args})
	fn, ok := b.methods[memberKey{objKey{dest, path}, iface, method}]
	b.mu.Unlock()
	if !ok {
		return nil, sdbind.CallError{Name: "org.freedesktop.DBus.Error.UnknownMethod"}
	}
	return fn(args)
}

// Close implements [sdbind.Bus].
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCount++
	return b.closeErr
}
