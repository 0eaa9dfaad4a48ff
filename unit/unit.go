// Package unit maps systemd unit properties to their DBus wire
// representation.
//
// systemd's manager takes unit configuration as an a(sv) array of
// (property, variant) assignments, but the variant signatures are
// not discoverable at runtime: they live in systemd's own property
// tables. This package carries that table, along with the
// client-side conveniences systemd's tools layer on top of it:
// second-granularity time properties rescale to their *USec
// counterparts, and the ListenStream family collapses onto the
// socket Listen property. [Compile] turns an ordered property list
// into the token stream for the a(sv) array.
package unit

import (
	"fmt"
	"math"
	"reflect"
)

// An UnknownPropertyError reports a property name with no catalog
// entry.
type UnknownPropertyError struct {
	Name string
}

func (e UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown unit property %q", e.Name)
}

// A Rule describes how one unit property is presented on the bus:
// under what name, with what signature, and with what value
// adjustment.
type Rule struct {
	kind   ruleKind
	name   string // replacement property name, for renaming rules
	sig    string
	factor uint64 // rescale multiplier
	tag    string // wrap: the first member of each (ss) pair
}

type ruleKind int

const (
	fixedRule ruleKind = iota
	rescaleRule
	wrapRule
	passthroughRule
)

// Fixed returns a rule for a property sent under its own name with a
// fixed signature.
func Fixed(sig string) Rule {
	return Rule{kind: fixedRule, sig: sig}
}

// Rescale returns a rule for a property that is renamed and whose
// numeric value is multiplied by factor. The catalog uses this for
// properties configured in seconds but transported in microseconds.
func Rescale(name, sig string, factor uint64) Rule {
	return Rule{kind: rescaleRule, name: name, sig: sig, factor: factor}
}

// Wrap returns a rule for a property that is renamed and whose value
// v becomes the single-element array [(tag, v)].
func Wrap(name, sig, tag string) Rule {
	return Rule{kind: wrapRule, name: name, sig: sig, tag: tag}
}

// Passthrough returns the rule for the reserved "_custom" name,
// whose value must be a [Custom] assignment used verbatim.
func Passthrough() Rule {
	return Rule{kind: passthroughRule}
}

// Signature returns the wire signature the rule encodes with, or ""
// for the passthrough rule, whose signature comes from the value.
func (r Rule) Signature() string { return r.sig }

// WireName returns the property name the rule sends under, given the
// configured name.
func (r Rule) WireName(name string) string {
	if r.name != "" {
		return r.name
	}
	return name
}

// Apply resolves a property assignment to the (name, signature,
// value) triple to put on the wire.
func (r Rule) Apply(name string, value any) (string, string, any, error) {
	switch r.kind {
	case fixedRule:
		return name, r.sig, value, nil
	case rescaleRule:
		v, err := rescale(value, r.factor)
		if err != nil {
			return "", "", nil, fmt.Errorf("property %s: %w", name, err)
		}
		return r.name, r.sig, v, nil
	case wrapRule:
		return r.name, r.sig, []any{[]any{r.tag, value}}, nil
	case passthroughRule:
		c, err := customValue(value)
		if err != nil {
			return "", "", nil, fmt.Errorf("property %s: %w", name, err)
		}
		return c.Name, c.Signature, c.Value, nil
	}
	return "", "", nil, fmt.Errorf("property %s: invalid rule", name)
}

// Lookup returns the catalog rule for a property name.
func Lookup(name string) (Rule, error) {
	r, ok := signatures[name]
	if !ok {
		return Rule{}, UnknownPropertyError{Name: name}
	}
	return r, nil
}

// Known reports whether name has a catalog entry.
func Known(name string) bool {
	_, ok := signatures[name]
	return ok
}

// A Custom assignment carries its own property name and signature,
// bypassing the catalog. It is the value type for the reserved
// "_custom" property name.
type Custom struct {
	Name      string
	Signature string
	Value     any
}

func customValue(v any) (Custom, error) {
	switch x := v.(type) {
	case Custom:
		return x, nil
	case []any:
		if len(x) != 3 {
			return Custom{}, fmt.Errorf("custom assignment needs (name, signature, value), got %d elements", len(x))
		}
		name, ok := x[0].(string)
		if !ok {
			return Custom{}, fmt.Errorf("custom assignment name is %T, not a string", x[0])
		}
		sig, ok := x[1].(string)
		if !ok {
			return Custom{}, fmt.Errorf("custom assignment signature is %T, not a string", x[1])
		}
		return Custom{Name: name, Signature: sig, Value: x[2]}, nil
	}
	return Custom{}, fmt.Errorf("custom assignment is %T, want unit.Custom", v)
}

// rescale multiplies a numeric value by factor, truncating any
// fractional remainder.
func rescale(v any, factor uint64) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < 0 {
			return nil, fmt.Errorf("duration %d is negative", i)
		}
		u := uint64(i)
		if factor != 0 && u > math.MaxUint64/factor {
			return nil, fmt.Errorf("duration %d overflows when scaled by %d", i, factor)
		}
		return u * factor, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if factor != 0 && u > math.MaxUint64/factor {
			return nil, fmt.Errorf("duration %d overflows when scaled by %d", u, factor)
		}
		return u * factor, nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f < 0 {
			return nil, fmt.Errorf("duration %v is negative", f)
		}
		return math.Trunc(f * float64(factor)), nil
	}
	return nil, fmt.Errorf("duration is %T, not a number", v)
}
