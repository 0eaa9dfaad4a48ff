package sdbind

import (
	"cmp"
	"encoding/xml"
	"fmt"
	"slices"
	"strings"

	"github.com/sdbind/sdbind/wire"
)

// An ObjectDescription is the parsed introspection data for one
// object: its exported interfaces, in document order, and the
// relative paths of its child objects.
//
// Descriptions are provided by the peer hosting the object and may
// not accurately reflect the API it actually exposes.
type ObjectDescription struct {
	Interfaces []*InterfaceDescription
	Children   []string
}

// ParseObjectDescription parses DBus introspection XML. Interfaces,
// members and arguments missing required attributes, and argument or
// property types that are not single complete wire types, are
// [ParseError]s.
func ParseObjectDescription(data string) (*ObjectDescription, error) {
	var desc ObjectDescription
	if err := xml.Unmarshal([]byte(data), &desc); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &desc, nil
}

// Interface returns the named interface description, or nil if the
// object does not list it. If the document lists the name more than
// once, the last occurrence wins.
func (o *ObjectDescription) Interface(name string) *InterfaceDescription {
	for i := len(o.Interfaces) - 1; i >= 0; i-- {
		if o.Interfaces[i].Name == name {
			return o.Interfaces[i]
		}
	}
	return nil
}

func (o *ObjectDescription) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw struct {
		Interfaces []*InterfaceDescription `xml:"interface"`
		Children   []struct {
			Name string `xml:"name,attr"`
		} `xml:"node"`
	}
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	o.Interfaces = raw.Interfaces
	o.Children = make([]string, 0, len(raw.Children))
	for _, v := range raw.Children {
		if v.Name == "" {
			return fmt.Errorf("child node with no name")
		}
		o.Children = append(o.Children, v.Name)
	}
	return nil
}

// An InterfaceDescription describes one DBus interface: its methods,
// properties and signals, each in document order.
type InterfaceDescription struct {
	Name       string
	Methods    []*MethodDescription
	Properties []*PropertyDescription
	Signals    []*SignalDescription
}

func (d *InterfaceDescription) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	var raw struct {
		Name       string                 `xml:"name,attr"`
		Methods    []*MethodDescription   `xml:"method"`
		Properties []*PropertyDescription `xml:"property"`
		Signals    []*SignalDescription   `xml:"signal"`
	}
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("interface with no name")
	}
	d.Name = raw.Name
	d.Methods = raw.Methods
	d.Properties = raw.Properties
	d.Signals = raw.Signals
	return nil
}

// Method returns the named method, or nil. The last occurrence wins.
func (d *InterfaceDescription) Method(name string) *MethodDescription {
	for i := len(d.Methods) - 1; i >= 0; i-- {
		if d.Methods[i].Name == name {
			return d.Methods[i]
		}
	}
	return nil
}

// Property returns the named property, or nil. The last occurrence
// wins.
func (d *InterfaceDescription) Property(name string) *PropertyDescription {
	for i := len(d.Properties) - 1; i >= 0; i-- {
		if d.Properties[i].Name == name {
			return d.Properties[i]
		}
	}
	return nil
}

func (d *InterfaceDescription) String() string {
	var ret strings.Builder
	fmt.Fprintf(&ret, "interface %s {\n", d.Name)

	methods := slices.SortedFunc(slices.Values(d.Methods), func(a, b *MethodDescription) int {
		return cmp.Compare(a.Name, b.Name)
	})
	for _, m := range methods {
		fmt.Fprintf(&ret, "  %s\n", m)
	}

	signals := slices.SortedFunc(slices.Values(d.Signals), func(a, b *SignalDescription) int {
		return cmp.Compare(a.Name, b.Name)
	})
	for _, s := range signals {
		fmt.Fprintf(&ret, "  %s\n", s)
	}

	props := slices.SortedFunc(slices.Values(d.Properties), func(a, b *PropertyDescription) int {
		return cmp.Compare(a.Name, b.Name)
	})
	for _, p := range props {
		fmt.Fprintf(&ret, "  %s\n", p)
	}
	ret.WriteString("}")
	return ret.String()
}

// A MethodDescription describes a DBus method.
type MethodDescription struct {
	Name string
	In   []ArgumentDescription
	Out  []ArgumentDescription
	// Deprecated reports that the peer marked the method as one to
	// avoid in new code.
	Deprecated bool
	// NoReply reports that the peer never sends a reply for this
	// method.
	NoReply bool
}

// InSignature returns the concatenated signature of the method's
// input arguments.
func (m *MethodDescription) InSignature() string {
	var ret strings.Builder
	for _, a := range m.In {
		ret.WriteString(a.Type)
	}
	return ret.String()
}

// OutSignature returns the concatenated signature of the method's
// return values.
func (m *MethodDescription) OutSignature() string {
	var ret strings.Builder
	for _, a := range m.Out {
		ret.WriteString(a.Type)
	}
	return ret.String()
}

func (m *MethodDescription) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw struct {
		Name string `xml:"name,attr"`
		Args []struct {
			Name      string `xml:"name,attr"`
			Type      string `xml:"type,attr"`
			Direction string `xml:"direction,attr"`
		} `xml:"arg"`
		Meta []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:"value,attr"`
		} `xml:"annotation"`
	}
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("method with no name")
	}
	m.Name = raw.Name
	m.In, m.Out = nil, nil
	m.Deprecated, m.NoReply = false, false
	for _, arg := range raw.Args {
		ad, err := parseArgument(arg.Name, arg.Type, m.Name)
		if err != nil {
			return err
		}
		switch arg.Direction {
		case "in":
			m.In = append(m.In, ad)
		case "out":
			m.Out = append(m.Out, ad)
		default:
			return fmt.Errorf("method %s: arg %s has direction %q, want in or out", m.Name, arg.Name, arg.Direction)
		}
	}
	for _, attr := range raw.Meta {
		switch attr.Name {
		case "org.freedesktop.DBus.Deprecated":
			m.Deprecated = attr.Value == "true"
		case "org.freedesktop.DBus.Method.NoReply":
			m.NoReply = attr.Value == "true"
		}
	}
	return nil
}

func (m *MethodDescription) String() string {
	var ret strings.Builder
	ret.WriteString("func ")
	ret.WriteString(m.Name)
	ret.WriteByte('(')
	for i, arg := range m.In {
		if i > 0 {
			ret.WriteString(", ")
		}
		ret.WriteString(arg.String())
	}
	ret.WriteByte(')')
	if len(m.Out) > 0 {
		ret.WriteString(" (")
		for i, arg := range m.Out {
			if i > 0 {
				ret.WriteString(", ")
			}
			ret.WriteString(arg.String())
		}
		ret.WriteByte(')')
	}
	switch {
	case m.Deprecated && m.NoReply:
		ret.WriteString(" [deprecated,noreply]")
	case m.Deprecated:
		ret.WriteString(" [deprecated]")
	case m.NoReply:
		ret.WriteString(" [noreply]")
	}
	return ret.String()
}

// A PropertyDescription describes a DBus property.
type PropertyDescription struct {
	Name string
	Type string
	// Readable and Writable derive from the property's declared
	// access mode.
	Readable bool
	Writable bool
}

func (p *PropertyDescription) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw struct {
		Name   string `xml:"name,attr"`
		Type   string `xml:"type,attr"`
		Access string `xml:"access,attr"`
	}
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("property with no name")
	}
	if raw.Type == "" {
		return fmt.Errorf("property %s has no type", raw.Name)
	}
	if err := wire.CheckSingle(raw.Type); err != nil {
		return fmt.Errorf("property %s: %w", raw.Name, err)
	}
	p.Name = raw.Name
	p.Type = raw.Type
	switch raw.Access {
	case "read":
		p.Readable, p.Writable = true, false
	case "write":
		p.Readable, p.Writable = false, true
	case "readwrite":
		p.Readable, p.Writable = true, true
	default:
		return fmt.Errorf("property %s has access %q, want read, write or readwrite", raw.Name, raw.Access)
	}
	return nil
}

func (p *PropertyDescription) String() string {
	access := "readonly"
	switch {
	case p.Readable && p.Writable:
		access = "readwrite"
	case p.Writable:
		access = "writeonly"
	}
	return fmt.Sprintf("property %s %s [%s]", p.Name, p.Type, access)
}

// A SignalDescription describes a DBus signal.
type SignalDescription struct {
	Name string
	Args []ArgumentDescription
}

func (s *SignalDescription) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw struct {
		Name string `xml:"name,attr"`
		Args []struct {
			Name string `xml:"name,attr"`
			Type string `xml:"type,attr"`
		} `xml:"arg"`
	}
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("signal with no name")
	}
	s.Name = raw.Name
	s.Args = nil
	for _, arg := range raw.Args {
		ad, err := parseArgument(arg.Name, arg.Type, s.Name)
		if err != nil {
			return err
		}
		s.Args = append(s.Args, ad)
	}
	return nil
}

func (s *SignalDescription) String() string {
	var ret strings.Builder
	ret.WriteString("signal ")
	ret.WriteString(s.Name)
	ret.WriteByte('(')
	for i, arg := range s.Args {
		if i > 0 {
			ret.WriteString(", ")
		}
		ret.WriteString(arg.String())
	}
	ret.WriteByte(')')
	return ret.String()
}

// An ArgumentDescription describes a method or signal argument.
type ArgumentDescription struct {
	Name string // optional
	Type string
}

func parseArgument(name, typ, member string) (ArgumentDescription, error) {
	if typ == "" {
		return ArgumentDescription{}, fmt.Errorf("%s: arg %s has no type", member, name)
	}
	if err := wire.CheckSingle(typ); err != nil {
		return ArgumentDescription{}, fmt.Errorf("%s: arg %s: %w", member, name, err)
	}
	return ArgumentDescription{Name: name, Type: typ}, nil
}

func (a ArgumentDescription) String() string {
	if a.Name != "" {
		// Older interfaces use dash-style arg names. They are not
		// load-bearing, so fix them up for readability.
		n := strings.Replace(a.Name, "-", "_", -1)
		return fmt.Sprintf("%s %s", n, a.Type)
	}
	return a.Type
}
