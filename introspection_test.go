package sdbind

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const managerXML = `
<!DOCTYPE node PUBLIC "-//freedesktop//DTD D-BUS Object Introspection 1.0//EN"
 "http://www.freedesktop.org/standards/dbus/1.0/introspect.dtd">
<node>
 <interface name="org.freedesktop.DBus.Peer">
  <method name="Ping"/>
 </interface>
 <interface name="com.example.Manager">
  <method name="StartUnit">
   <arg name="name" type="s" direction="in"/>
   <arg name="mode" type="s" direction="in"/>
   <arg name="job" type="o" direction="out"/>
  </method>
  <method name="Halt" >
   <annotation name="org.freedesktop.DBus.Deprecated" value="true"/>
  </method>
  <property name="Version" type="s" access="read"/>
  <property name="LogLevel" type="s" access="readwrite"/>
  <signal name="UnitNew">
   <arg name="id" type="s"/>
   <arg name="unit" type="o"/>
  </signal>
 </interface>
 <node name="unit"/>
 <node name="job/queue"/>
</node>`

func TestParseObjectDescription(t *testing.T) {
	desc, err := ParseObjectDescription(managerXML)
	if err != nil {
		t.Fatalf("ParseObjectDescription: %v", err)
	}

	var names []string
	for _, iface := range desc.Interfaces {
		names = append(names, iface.Name)
	}
	wantNames := []string{"org.freedesktop.DBus.Peer", "com.example.Manager"}
	if diff := cmp.Diff(names, wantNames); diff != "" {
		t.Errorf("interface order diff (-got+want):\n%s", diff)
	}

	if diff := cmp.Diff(desc.Children, []string{"unit", "job/queue"}); diff != "" {
		t.Errorf("children diff (-got+want):\n%s", diff)
	}

	mgr := desc.Interface("com.example.Manager")
	if mgr == nil {
		t.Fatal("Interface(com.example.Manager) = nil")
	}

	start := mgr.Method("StartUnit")
	if start == nil {
		t.Fatal("Method(StartUnit) = nil")
	}
	if got := start.InSignature(); got != "ss" {
		t.Errorf("StartUnit input signature = %q, want ss", got)
	}
	if got := start.OutSignature(); got != "o" {
		t.Errorf("StartUnit output signature = %q, want o", got)
	}

	if halt := mgr.Method("Halt"); halt == nil || !halt.Deprecated {
		t.Errorf("Halt should parse as deprecated, got %+v", halt)
	}

	ver := mgr.Property("Version")
	if ver == nil {
		t.Fatal("Property(Version) = nil")
	}
	if !ver.Readable || ver.Writable || ver.Type != "s" {
		t.Errorf("Version = %+v, want readable s", ver)
	}
	if ll := mgr.Property("LogLevel"); ll == nil || !ll.Writable {
		t.Errorf("LogLevel should be writable, got %+v", ll)
	}

	if len(mgr.Signals) != 1 || mgr.Signals[0].Name != "UnitNew" {
		t.Errorf("signals = %+v, want UnitNew", mgr.Signals)
	}
}

func TestParseStrictness(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"not xml", "definitely not xml <"},
		{"interface without name", `<node><interface/></node>`},
		{"method without name", `<node><interface name="a.b"><method/></interface></node>`},
		{"arg without direction", `<node><interface name="a.b"><method name="M"><arg name="x" type="s"/></method></interface></node>`},
		{"arg with bad direction", `<node><interface name="a.b"><method name="M"><arg name="x" type="s" direction="sideways"/></method></interface></node>`},
		{"arg without type", `<node><interface name="a.b"><method name="M"><arg name="x" direction="in"/></method></interface></node>`},
		{"arg with invalid type", `<node><interface name="a.b"><method name="M"><arg name="x" type="a{vs}" direction="in"/></method></interface></node>`},
		{"arg with multiple types", `<node><interface name="a.b"><method name="M"><arg name="x" type="ss" direction="in"/></method></interface></node>`},
		{"property without name", `<node><interface name="a.b"><property type="s" access="read"/></interface></node>`},
		{"property without type", `<node><interface name="a.b"><property name="P" access="read"/></interface></node>`},
		{"property with invalid type", `<node><interface name="a.b"><property name="P" type="zz" access="read"/></interface></node>`},
		{"property without access", `<node><interface name="a.b"><property name="P" type="s"/></interface></node>`},
		{"property with bad access", `<node><interface name="a.b"><property name="P" type="s" access="execute"/></interface></node>`},
		{"signal without name", `<node><interface name="a.b"><signal><arg type="s"/></signal></interface></node>`},
		{"signal arg without type", `<node><interface name="a.b"><signal name="S"><arg name="x"/></signal></interface></node>`},
		{"child without name", `<node><interface name="a.b"/><node/></node>`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			desc, err := ParseObjectDescription(tc.xml)
			if err == nil {
				t.Fatalf("parse succeeded: %+v", desc)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("error is %T, want *ParseError", err)
			}
		})
	}
}

func TestParseEmptyInterface(t *testing.T) {
	desc, err := ParseObjectDescription(`<node><interface name="a.b"></interface></node>`)
	if err != nil {
		t.Fatalf("ParseObjectDescription: %v", err)
	}
	if len(desc.Interfaces) != 1 || desc.Interfaces[0].Name != "a.b" {
		t.Fatalf("parsed %+v, want one empty interface a.b", desc.Interfaces)
	}
	iface := desc.Interfaces[0]
	if len(iface.Methods)+len(iface.Properties)+len(iface.Signals) != 0 {
		t.Errorf("empty interface has members: %+v", iface)
	}
}

func TestDescriptionStrings(t *testing.T) {
	desc, err := ParseObjectDescription(managerXML)
	if err != nil {
		t.Fatalf("ParseObjectDescription: %v", err)
	}
	got := desc.Interface("com.example.Manager").String()

	for _, want := range []string{
		"interface com.example.Manager {",
		"func StartUnit(name s, mode s) (job o)",
		"func Halt() [deprecated]",
		"property Version s [readonly]",
		"property LogLevel s [readwrite]",
		"signal UnitNew(id s, unit o)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendering is missing %q:\n%s", want, got)
		}
	}
}
