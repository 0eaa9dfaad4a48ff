package main

import (
	"cmp"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/creachadair/mds/heapq"
	"github.com/sdbind/sdbind"
	"github.com/sdbind/sdbind/unit"
)

// splitMember splits an optionally interface-qualified member name.
// Bare member names never contain dots, so everything before the
// last dot is the interface.
func splitMember(s string) (iface, name string) {
	idx := strings.LastIndexByte(s, '.')
	if idx < 0 {
		return "", s
	}
	return s[:idx], s[idx+1:]
}

// findMethod resolves a method on a loaded object. With an empty
// iface, resolution mirrors the object's member table: the last
// listed interface wins. The returned proxy is nil when the method
// was resolved unqualified.
func findMethod(o *sdbind.Object, iface, name string) (*sdbind.MethodDescription, *sdbind.Proxy, error) {
	if iface != "" {
		p, err := o.Interface(iface)
		if err != nil {
			return nil, nil, err
		}
		meth := p.Description().Method(name)
		if meth == nil {
			return nil, nil, fmt.Errorf("interface %s has no method %q", iface, name)
		}
		return meth, p, nil
	}
	var meth *sdbind.MethodDescription
	for _, id := range o.Description().Interfaces {
		if m := id.Method(name); m != nil {
			meth = m
		}
	}
	if meth == nil {
		return nil, nil, fmt.Errorf("object has no method %q", name)
	}
	return meth, nil, nil
}

// parseArgs parses command line strings against a method's
// introspected input types.
func parseArgs(meth *sdbind.MethodDescription, raw []string) ([]any, error) {
	if len(raw) != len(meth.In) {
		return nil, fmt.Errorf("method %s takes %d arguments, got %d", meth.Name, len(meth.In), len(raw))
	}
	out := make([]any, 0, len(raw))
	for i, arg := range meth.In {
		v, err := parseArg(arg.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseArg(sig, raw string) (any, error) {
	switch sig {
	case "s", "o", "g":
		return raw, nil
	case "b":
		return strconv.ParseBool(raw)
	case "y", "n", "q", "i", "x":
		return strconv.ParseInt(raw, 0, 64)
	case "u", "t":
		return strconv.ParseUint(raw, 0, 64)
	case "d":
		return strconv.ParseFloat(raw, 64)
	case "as":
		if raw == "" {
			return []string{}, nil
		}
		return strings.Split(raw, ","), nil
	}
	return nil, fmt.Errorf("cannot express a %q value on the command line", sig)
}

// parseProps parses name=value pairs into a property list, guessing
// value types: bool and number literals parse as themselves,
// anything else stays a string.
func parseProps(args []string) (unit.Properties, error) {
	var props unit.Properties
	for _, arg := range args {
		name, val, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed property %q, want name=value", arg)
		}
		props = append(props, unit.Property{Name: name, Value: parseValue(val)})
	}
	return props, nil
}

func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// walkTree visits every object in dest's tree in path order,
// reporting each path or the error introspecting it.
func walkTree(ctx context.Context, bus sdbind.Bus, dest string, visit func(sdbind.ObjectPath, error)) error {
	paths := heapq.New(func(a, b sdbind.ObjectPath) int {
		return cmp.Compare(a, b)
	})
	paths.Add("/")
	for !paths.IsEmpty() {
		path, _ := paths.Pop()
		obj := sdbind.New(dest, path, bus)
		err := obj.With(ctx, func(o *sdbind.Object) error {
			for _, child := range o.Description().Children {
				paths.Add(path.Child(child))
			}
			return nil
		})
		visit(path, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}
