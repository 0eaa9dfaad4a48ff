// Package sdbind binds Go programs to remote DBus objects at
// runtime, without generated code or a static schema.
//
// An [Object] is the entry point. It is bound to a destination (a
// bus name such as "org.freedesktop.systemd1") and an object path,
// and starts out knowing nothing about the remote object. Loading it
// fetches the object's introspection document and builds a member
// table from the interfaces, properties and methods it declares:
//
//	obj := sdbind.New("org.freedesktop.systemd1", "/org/freedesktop/systemd1", nil)
//	err := obj.With(ctx, func(o *sdbind.Object) error {
//	    v, err := o.Get(ctx, "Version")
//	    ...
//	})
//
// After loading, [Object.Get] reads a property and [Object.Call]
// invokes a method, each as one synchronous bus round-trip. Method
// arguments are checked against the introspected input signature
// before anything is sent. Names are resolved across all of the
// object's interfaces; [Object.Interface] returns a [Proxy] scoped
// to a single interface for the cases where that matters.
//
// Values cross the wire as token streams built by the wire package:
// a value paired with its type signature flattens into a sequence of
// typed tokens that this package renders to aligned wire bytes. The
// unit package builds such streams from systemd unit property lists,
// applying systemd's property catalog along the way. The systemd1
// and machine1 packages wrap the corresponding services with typed
// helpers on top of the dynamic layer.
//
// [Conn] implements the [Bus] transport over a unix socket. An
// Object created with a nil Bus dials the system bus when loaded and
// owns that connection; an Object given an existing Bus never closes
// it.
package sdbind
