// Package systemd1 binds the org.freedesktop.systemd1 service.
//
// [Manager] wraps the service manager object with typed helpers for
// the common calls. Everything else the manager exposes stays
// reachable through the underlying dynamic [sdbind.Object], and
// individual units can be bound with [Manager.Unit].
package systemd1

import (
	"context"
	"fmt"

	"github.com/sdbind/sdbind"
	"github.com/sdbind/sdbind/unit"
)

const (
	// Destination is the service's well-known bus name.
	Destination = "org.freedesktop.systemd1"
	// ManagerPath is the object path of the service manager.
	ManagerPath = sdbind.ObjectPath("/org/freedesktop/systemd1")
	// ManagerInterface is the manager's main interface.
	ManagerInterface = "org.freedesktop.systemd1.Manager"

	unitPathPrefix = sdbind.ObjectPath("/org/freedesktop/systemd1/unit")
)

// UnitPath returns the object path of the named unit, using the
// sd-bus label escape for the unit name.
func UnitPath(name string) sdbind.ObjectPath {
	return unitPathPrefix.Child(sdbind.EscapeLabel(name))
}

// A Manager is a binding to the systemd service manager. The zero
// value is not usable; use [New].
type Manager struct {
	bus sdbind.Bus
	obj *sdbind.Object
}

// New returns an unloaded manager binding. If bus is nil, Load dials
// the system bus and the manager owns that connection.
func New(bus sdbind.Bus) *Manager {
	return &Manager{bus: bus, obj: sdbind.New(Destination, ManagerPath, bus)}
}

// Object returns the dynamic object behind the manager.
func (m *Manager) Object() *sdbind.Object { return m.obj }

// Load introspects the manager object.
func (m *Manager) Load(ctx context.Context) error { return m.obj.Load(ctx) }

// Close releases the manager and, if it dialed its own bus, the
// connection.
func (m *Manager) Close() error { return m.obj.Close() }

// With runs fn against the loaded manager and closes it when fn
// returns. fn's error takes precedence over any close error.
func (m *Manager) With(ctx context.Context, fn func(m *Manager) error) error {
	return m.obj.With(ctx, func(*sdbind.Object) error { return fn(m) })
}

// Unit returns an unloaded dynamic binding to the named unit's
// object, sharing the bus the manager was created with. With a nil
// bus the unit object dials its own connection on Load.
func (m *Manager) Unit(name string) *sdbind.Object {
	return sdbind.New(Destination, UnitPath(name), m.bus)
}

// Version reads the manager's Version property.
func (m *Manager) Version(ctx context.Context) (string, error) {
	v, err := m.obj.Get(ctx, "Version")
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("Version is a %T, want string", v)
	}
	return s, nil
}

// GetUnit returns the object path of the named unit, which must be
// loaded in the manager.
func (m *Manager) GetUnit(ctx context.Context, name string) (sdbind.ObjectPath, error) {
	vals, err := m.obj.Call(ctx, "GetUnit", name)
	if err != nil {
		return "", err
	}
	return pathResult("GetUnit", vals)
}

// LoadUnit returns the object path of the named unit, loading it
// into the manager first if needed.
func (m *Manager) LoadUnit(ctx context.Context, name string) (sdbind.ObjectPath, error) {
	vals, err := m.obj.Call(ctx, "LoadUnit", name)
	if err != nil {
		return "", err
	}
	return pathResult("LoadUnit", vals)
}

// StartUnit enqueues a start job for the named unit and returns the
// job's object path. mode is a systemd job mode such as "replace" or
// "fail".
func (m *Manager) StartUnit(ctx context.Context, name, mode string) (sdbind.ObjectPath, error) {
	vals, err := m.obj.Call(ctx, "StartUnit", name, mode)
	if err != nil {
		return "", err
	}
	return pathResult("StartUnit", vals)
}

// StopUnit enqueues a stop job for the named unit and returns the
// job's object path.
func (m *Manager) StopUnit(ctx context.Context, name, mode string) (sdbind.ObjectPath, error) {
	vals, err := m.obj.Call(ctx, "StopUnit", name, mode)
	if err != nil {
		return "", err
	}
	return pathResult("StopUnit", vals)
}

// StartTransientUnit creates and starts a transient unit from the
// given property list, returning the start job's object path. The
// properties are compiled through the unit catalog, so catalog
// conveniences like RuntimeMaxSec and ListenStream apply. Property
// order is preserved on the wire.
func (m *Manager) StartTransientUnit(ctx context.Context, name, mode string, props unit.Properties, aux []unit.Aux) (sdbind.ObjectPath, error) {
	args, err := unit.CompileTransient(name, mode, props, aux)
	if err != nil {
		return "", err
	}
	vals, err := m.obj.CallDirect(ctx, ManagerInterface, "StartTransientUnit", unit.TransientUnitSignature, args)
	if err != nil {
		return "", err
	}
	return pathResult("StartTransientUnit", vals)
}

func pathResult(method string, vals []any) (sdbind.ObjectPath, error) {
	if len(vals) != 1 {
		return "", fmt.Errorf("%s returned %d values, want 1", method, len(vals))
	}
	p, ok := vals[0].(sdbind.ObjectPath)
	if !ok {
		return "", fmt.Errorf("%s returned %T, want an object path", method, vals[0])
	}
	return p, nil
}
