package sdbind

import (
	"context"

	"github.com/sdbind/sdbind/wire"
)

// A Bus is the transport an [Object] performs its round-trips
// through. [Conn] is the real implementation; tests substitute their
// own.
//
// Implementations must be safe for concurrent use. Errors returned
// by the remote peer surface as [CallError] values and pass through
// the proxy layer unwrapped.
type Bus interface {
	// Introspect fetches the introspection XML for the object at
	// path on the peer named dest.
	Introspect(ctx context.Context, dest string, path ObjectPath) (string, error)

	// GetProperty reads one property and returns its value with the
	// variant envelope already removed.
	GetProperty(ctx context.Context, dest string, path ObjectPath, iface, name string) (any, error)

	// CallMethod invokes a method. sig is the signature of the input
	// arguments and args their encoded token stream. The reply body
	// is returned as one value per complete type.
	CallMethod(ctx context.Context, dest string, path ObjectPath, iface, method, sig string, args wire.TokenStream) ([]any, error)

	// Close releases the connection.
	Close() error
}
