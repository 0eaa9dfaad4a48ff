package unit

import (
	"fmt"

	"github.com/sdbind/sdbind/wire"
)

// PropertiesSignature is the wire signature of a property assignment
// list.
const PropertiesSignature = "a(sv)"

// TransientUnitSignature is the input signature of the manager's
// StartTransientUnit method.
const TransientUnitSignature = "ssa(sv)a(sa(sv))"

// A Property is one (name, value) assignment.
type Property struct {
	Name  string
	Value any
}

// Properties is an ordered list of property assignments. Order is
// preserved through compilation.
type Properties []Property

// Compile builds the token stream for the a(sv) assignment array.
// Each name is resolved against the catalog before its value is
// encoded, and the first failure aborts the whole compilation.
func Compile(props Properties) (wire.TokenStream, error) {
	out := wire.TokenStream{wire.Open(wire.TypeArray, "(sv)")}
	for _, p := range props {
		rule, err := Lookup(p.Name)
		if err != nil {
			return nil, err
		}
		name, sig, val, err := rule.Apply(p.Name, p.Value)
		if err != nil {
			return nil, err
		}
		body, err := wire.Encode(sig, val)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p.Name, err)
		}
		out = append(out,
			wire.Open(wire.TypeStruct, "sv"),
			wire.Basic('s', name),
			wire.Open(wire.TypeVariant, sig))
		out = append(out, body...)
		out = append(out, wire.Close(), wire.Close())
	}
	return append(out, wire.Close()), nil
}

// An Aux describes an auxiliary unit configured in the same
// StartTransientUnit call as the main unit.
type Aux struct {
	Name       string
	Properties Properties
}

// CompileTransient builds the complete argument stream for
// StartTransientUnit: the unit name, the job mode, the unit's
// properties, and any auxiliary units.
func CompileTransient(name, mode string, props Properties, aux []Aux) (wire.TokenStream, error) {
	out := wire.TokenStream{
		wire.Basic('s', name),
		wire.Basic('s', mode),
	}
	ps, err := Compile(props)
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", name, err)
	}
	out = append(out, ps...)

	out = append(out, wire.Open(wire.TypeArray, "(sa(sv))"))
	for _, a := range aux {
		ps, err := Compile(a.Properties)
		if err != nil {
			return nil, fmt.Errorf("auxiliary unit %s: %w", a.Name, err)
		}
		out = append(out, wire.Open(wire.TypeStruct, "sa(sv)"), wire.Basic('s', a.Name))
		out = append(out, ps...)
		out = append(out, wire.Close())
	}
	out = append(out, wire.Close())
	return out, nil
}
