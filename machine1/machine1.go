// Package machine1 binds the org.freedesktop.machine1 service,
// systemd's machine and container registry.
package machine1

import (
	"context"
	"fmt"

	"github.com/sdbind/sdbind"
)

const (
	// Destination is the service's well-known bus name.
	Destination = "org.freedesktop.machine1"
	// ManagerPath is the object path of the machine manager.
	ManagerPath = sdbind.ObjectPath("/org/freedesktop/machine1")
	// ManagerInterface is the manager's main interface.
	ManagerInterface = "org.freedesktop.machine1.Manager"

	machinePathPrefix = sdbind.ObjectPath("/org/freedesktop/machine1/machine")
)

// MachinePath returns the object path of the named machine, using
// the sd-bus label escape for the machine name.
func MachinePath(name string) sdbind.ObjectPath {
	return machinePathPrefix.Child(sdbind.EscapeLabel(name))
}

// A MachineStatus is one row of the manager's machine listing.
type MachineStatus struct {
	Name    string
	Class   string
	Service string
	Path    sdbind.ObjectPath
}

// A Manager is a binding to the machine registry manager. The zero
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

// Machine returns an unloaded dynamic binding to the named machine's
// object, sharing the bus the manager was created with.
func (m *Manager) Machine(name string) *sdbind.Object {
	return sdbind.New(Destination, MachinePath(name), m.bus)
}

// GetMachine returns the object path of the named machine.
func (m *Manager) GetMachine(ctx context.Context, name string) (sdbind.ObjectPath, error) {
	vals, err := m.obj.Call(ctx, "GetMachine", name)
	if err != nil {
		return "", err
	}
	return pathResult("GetMachine", vals)
}

// GetMachineByPID returns the object path of the machine the given
// process belongs to.
func (m *Manager) GetMachineByPID(ctx context.Context, pid uint32) (sdbind.ObjectPath, error) {
	vals, err := m.obj.Call(ctx, "GetMachineByPID", pid)
	if err != nil {
		return "", err
	}
	return pathResult("GetMachineByPID", vals)
}

// ListMachines returns the machines currently registered with the
// manager.
func (m *Manager) ListMachines(ctx context.Context) ([]MachineStatus, error) {
	vals, err := m.obj.Call(ctx, "ListMachines")
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("ListMachines returned %d values, want 1", len(vals))
	}
	rows, ok := vals[0].([]any)
	if !ok {
		return nil, fmt.Errorf("ListMachines returned %T, want an array", vals[0])
	}
	out := make([]MachineStatus, 0, len(rows))
	for _, row := range rows {
		fields, ok := row.([]any)
		if !ok || len(fields) != 4 {
			return nil, fmt.Errorf("ListMachines row %v is not an (ssso) struct", row)
		}
		var st MachineStatus
		if st.Name, ok = fields[0].(string); !ok {
			return nil, fmt.Errorf("machine name is a %T, want string", fields[0])
		}
		if st.Class, ok = fields[1].(string); !ok {
			return nil, fmt.Errorf("machine class is a %T, want string", fields[1])
		}
		if st.Service, ok = fields[2].(string); !ok {
			return nil, fmt.Errorf("machine service is a %T, want string", fields[2])
		}
		if st.Path, ok = fields[3].(sdbind.ObjectPath); !ok {
			return nil, fmt.Errorf("machine path is a %T, want an object path", fields[3])
		}
		out = append(out, st)
	}
	return out, nil
}

// TerminateMachine asks the manager to terminate the named machine.
func (m *Manager) TerminateMachine(ctx context.Context, name string) error {
	_, err := m.obj.Call(ctx, "TerminateMachine", name)
	return err
}

// KillMachine delivers a signal to a process of the named machine.
// who is "leader" or "all".
func (m *Manager) KillMachine(ctx context.Context, name, who string, signal int32) error {
	_, err := m.obj.Call(ctx, "KillMachine", name, who, signal)
	return err
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
