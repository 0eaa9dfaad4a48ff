// Command sdbind pokes at DBus objects through dynamic bindings: it
// introspects objects, reads properties, calls methods, and talks to
// the systemd manager using the unit property catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/mds/slice"
	"github.com/kr/pretty"
	"github.com/sdbind/sdbind"
	"github.com/sdbind/sdbind/systemd1"
	"github.com/sdbind/sdbind/unit"
)

var globalArgs struct {
	UseSessionBus bool   `flag:"session,Connect to the session bus instead of the system bus"`
	Address       string `flag:"bus,Connect to the bus on this unix socket path"`
}

func busConn(ctx context.Context) (*sdbind.Conn, error) {
	if globalArgs.Address != "" {
		return sdbind.Dial(ctx, globalArgs.Address)
	}
	if globalArgs.UseSessionBus {
		return sdbind.SessionBus(ctx)
	}
	return sdbind.SystemBus(ctx)
}

func main() {
	root := &command.C{
		Name:     "sdbind",
		Usage:    "command args...",
		SetFlags: command.Flags(flax.MustBind, &globalArgs),
		Commands: []*command.C{
			{
				Name:     "list",
				Usage:    "list",
				Help:     "List names present on the bus.",
				SetFlags: command.Flags(flax.MustBind, &listArgs),
				Run:      command.Adapt(runList),
			},
			{
				Name:  "introspect",
				Usage: "introspect dest path",
				Help:  "Show the interfaces of an object.",
				Run:   command.Adapt(runIntrospect),
			},
			{
				Name:  "get",
				Usage: "get dest path [interface.]property",
				Help: `Read a property of an object.

With a bare property name, the name is resolved across all of the
object's interfaces. Qualify it with an interface name to read a
shadowed property.`,
				Run: command.Adapt(runGet),
			},
			{
				Name:  "call",
				Usage: "call dest path [interface.]method [args...]",
				Help: `Call a method of an object.

Arguments are parsed against the method's introspected input types.
Only basic types and string arrays (comma-separated) can be given on
the command line.`,
				Run: runCall,
			},
			{
				Name:  "tree",
				Usage: "tree dest",
				Help:  "Walk a peer's object tree.",
				Run:   command.Adapt(runTree),
			},
			{
				Name:  "compile",
				Usage: "compile name=value...",
				Help: `Compile unit properties to their wire token stream.

Property values pass through the unit catalog, so renames and
rescales (RuntimeMaxSec, ListenStream, ...) are applied. The printed
stream is the a(sv) array a StartTransientUnit call would carry.`,
				Run: runCompile,
			},
			{
				Name:     "start-transient",
				Usage:    "start-transient unit command [args...]",
				Help:     "Start a transient service unit running a command.",
				SetFlags: command.Flags(flax.MustBind, &startArgs),
				Run:      runStartTransient,
			},
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	env := root.NewEnv(nil).SetContext(ctx)
	command.RunOrFail(env, os.Args[1:])
}

var listArgs struct {
	All bool `flag:"all,Include unique (:N.M) connection names"`
}

func runList(env *command.Env) error {
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(env.Context(), time.Minute)
	defer cancel()
	names, err := conn.ListNames(ctx)
	if err != nil {
		return fmt.Errorf("listing bus names: %w", err)
	}
	if !listArgs.All {
		names = slices.Collect(slice.Select(names, func(n string) bool {
			return !strings.HasPrefix(n, ":")
		}))
	}
	slices.Sort(names)
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func runIntrospect(env *command.Env, dest, path string) error {
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Close()

	obj := sdbind.New(dest, sdbind.ObjectPath(path), conn)
	return obj.With(env.Context(), func(o *sdbind.Object) error {
		desc := o.Description()
		for i, iface := range desc.Interfaces {
			if i > 0 {
				fmt.Println()
			}
			fmt.Println(iface)
		}
		for _, child := range desc.Children {
			fmt.Printf("node %s\n", o.Path().Child(child))
		}
		return nil
	})
}

func runGet(env *command.Env, dest, path, prop string) error {
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Close()

	iface, name := splitMember(prop)
	obj := sdbind.New(dest, sdbind.ObjectPath(path), conn)
	return obj.With(env.Context(), func(o *sdbind.Object) error {
		var v any
		var err error
		if iface == "" {
			v, err = o.Get(env.Context(), name)
		} else {
			p, perr := o.Interface(iface)
			if perr != nil {
				return perr
			}
			v, err = p.Get(env.Context(), name)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", prop, err)
		}
		fmt.Printf("%# v\n", pretty.Formatter(v))
		return nil
	})
}

func runCall(env *command.Env) error {
	if len(env.Args) < 3 {
		return env.Usagef("call requires dest, path and method")
	}
	dest, path, method := env.Args[0], env.Args[1], env.Args[2]
	rawArgs := env.Args[3:]

	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Close()

	iface, name := splitMember(method)
	obj := sdbind.New(dest, sdbind.ObjectPath(path), conn)
	return obj.With(env.Context(), func(o *sdbind.Object) error {
		meth, proxy, err := findMethod(o, iface, name)
		if err != nil {
			return err
		}
		args, err := parseArgs(meth, rawArgs)
		if err != nil {
			return err
		}
		var vals []any
		if proxy != nil {
			vals, err = proxy.Call(env.Context(), name, args...)
		} else {
			vals, err = o.Call(env.Context(), name, args...)
		}
		if err != nil {
			return fmt.Errorf("calling %s: %w", method, err)
		}
		for _, v := range vals {
			fmt.Printf("%# v\n", pretty.Formatter(v))
		}
		return nil
	})
}

func runTree(env *command.Env, dest string) error {
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(env.Context(), time.Minute)
	defer cancel()
	return walkTree(ctx, conn, dest, func(path sdbind.ObjectPath, err error) {
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
		} else {
			fmt.Println(path)
		}
	})
}

func runCompile(env *command.Env) error {
	props, err := parseProps(env.Args)
	if err != nil {
		return err
	}
	ts, err := unit.Compile(props)
	if err != nil {
		return err
	}
	for _, tok := range ts {
		fmt.Println(tok)
	}
	return nil
}

var startArgs struct {
	Mode        string `flag:"mode,default=replace,Job mode such as replace or fail"`
	Description string `flag:"description,Unit description"`
	Remain      bool   `flag:"remain,Keep the unit around after the command exits"`
}

func runStartTransient(env *command.Env) error {
	if len(env.Args) < 2 {
		return env.Usagef("start-transient requires a unit name and a command")
	}
	name, argv := env.Args[0], env.Args[1:]

	var props unit.Properties
	if startArgs.Description != "" {
		props = append(props, unit.Property{Name: "Description", Value: startArgs.Description})
	}
	if startArgs.Remain {
		props = append(props, unit.Property{Name: "RemainAfterExit", Value: true})
	}
	props = append(props, unit.Property{Name: "ExecStart", Value: []any{
		[]any{argv[0], argv, false},
	}})

	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Close()

	mgr := systemd1.New(conn)
	return mgr.With(env.Context(), func(m *systemd1.Manager) error {
		job, err := m.StartTransientUnit(env.Context(), name, startArgs.Mode, props, nil)
		if err != nil {
			return fmt.Errorf("starting %s: %w", name, err)
		}
		fmt.Printf("%s: job %s\n", name, job)
		return nil
	})
}
