package sdbind

import (
	"errors"
	"fmt"
)

// Object lifecycle errors.
var (
	// ErrNotLoaded is returned when a property or method is accessed
	// on an object that has not been loaded.
	ErrNotLoaded = errors.New("object not loaded")
	// ErrLoaded is returned by Load on an object that is already
	// loaded.
	ErrLoaded = errors.New("object already loaded")
	// ErrClosed is returned when a closed object or connection is
	// used.
	ErrClosed = errors.New("closed")
)

// A ParseError reports malformed introspection data.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid introspection data: %s", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// An UnknownMemberError reports a property or method name that the
// introspected object does not expose.
type UnknownMemberError struct {
	// Name is the member that was requested.
	Name string
	// Interface is the interface searched, or "" if the whole object
	// was searched.
	Interface string
}

func (e UnknownMemberError) Error() string {
	if e.Interface == "" {
		return fmt.Sprintf("object has no member %q", e.Name)
	}
	return fmt.Sprintf("interface %s has no member %q", e.Interface, e.Name)
}

// An UnknownInterfaceError reports an interface name that the
// introspected object does not list.
type UnknownInterfaceError struct {
	Name string
}

func (e UnknownInterfaceError) Error() string {
	return fmt.Sprintf("object does not implement %s", e.Name)
}

// An ArityError reports a method call with the wrong number of
// arguments.
type ArityError struct {
	Method string
	Want   int
	Got    int
}

func (e ArityError) Error() string {
	return fmt.Sprintf("method %s takes %d arguments, got %d", e.Method, e.Want, e.Got)
}

// CallError is the error returned when the remote peer answers a
// method call with an error message.
type CallError struct {
	// Name is the error name provided by the remote peer.
	Name string
	// Detail is the human-readable explanation of what went wrong.
	Detail string
}

func (e CallError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("call error %s", e.Name)
	}
	return fmt.Sprintf("call error %s: %s", e.Name, e.Detail)
}
