package unit

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookup(t *testing.T) {
	known := []string{
		"Description", "ExecStart", "Requires", "LimitCPU",
		"MemoryLow", "UID", "ListenStream", "RuntimeMaxSec",
		"CPUQuota", "_custom", "StandardInputData",
		"MessageQueueMaxMessages", "Conditions", "IPAddressAllow",
	}
	for _, name := range known {
		if _, err := Lookup(name); err != nil {
			t.Errorf("Lookup(%q): unexpected error: %v", name, err)
		}
	}

	_, err := Lookup("NoSuchProperty")
	if err == nil {
		t.Fatal("Lookup of an unknown property should fail")
	}
	var ue UnknownPropertyError
	if !errors.As(err, &ue) {
		t.Fatalf("error is %T, want UnknownPropertyError", err)
	}
	if ue.Name != "NoSuchProperty" {
		t.Errorf("error names %q, want NoSuchProperty", ue.Name)
	}
}

func TestApplyFixed(t *testing.T) {
	tests := []struct {
		prop    string
		wantSig string
	}{
		{"Description", "s"},
		{"Requires", "as"},
		{"ExecStart", "a(sasb)"},
		{"LimitCPU", "t"},
		{"MemoryLowScale", "u"},
		{"Nice", "i"},
		{"RestartPreventExitStatus", "(aiai)"},
		{"StandardInputFileDescriptor", "h"},
	}
	for _, tc := range tests {
		rule, err := Lookup(tc.prop)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", tc.prop, err)
		}
		name, sig, val, err := rule.Apply(tc.prop, "x")
		if err != nil {
			t.Fatalf("Apply(%q): %v", tc.prop, err)
		}
		if name != tc.prop {
			t.Errorf("Apply(%q) renamed to %q", tc.prop, name)
		}
		if sig != tc.wantSig {
			t.Errorf("Apply(%q) signature = %q, want %q", tc.prop, sig, tc.wantSig)
		}
		if val != "x" {
			t.Errorf("Apply(%q) altered the value: %v", tc.prop, val)
		}
	}
}

func TestApplyRescale(t *testing.T) {
	tests := []struct {
		prop     string
		in       any
		wantName string
		want     any
		wantErr  bool
	}{
		{"RuntimeMaxSec", 2, "RuntimeMaxUSec", uint64(2_000_000), false},
		{"RuntimeMaxSec", uint32(3), "RuntimeMaxUSec", uint64(3_000_000), false},
		{"WatchdogSec", 0.5, "WatchdogUSec", 500000.0, false},
		{"CPUQuota", 0.5, "CPUQuotaPerSecUSec", 500000.0, false},
		{"CPUQuota", 1, "CPUQuotaPerSecUSec", uint64(1_000_000), false},
		{"RuntimeMaxSec", -1, "", nil, true},
		{"RuntimeMaxSec", -0.5, "", nil, true},
		{"RuntimeMaxSec", uint64(1) << 63, "", nil, true},
		{"RuntimeMaxSec", "2s", "", nil, true},
	}
	for _, tc := range tests {
		rule, err := Lookup(tc.prop)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", tc.prop, err)
		}
		name, sig, val, err := rule.Apply(tc.prop, tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Apply(%q, %v) = %v, want error", tc.prop, tc.in, val)
			}
			continue
		}
		if err != nil {
			t.Errorf("Apply(%q, %v): unexpected error: %v", tc.prop, tc.in, err)
			continue
		}
		if name != tc.wantName || sig != "t" {
			t.Errorf("Apply(%q, %v) = %s %q, want %s %q", tc.prop, tc.in, name, sig, tc.wantName, "t")
		}
		if val != tc.want {
			t.Errorf("Apply(%q, %v) value = %v (%T), want %v (%T)", tc.prop, tc.in, val, val, tc.want, tc.want)
		}
	}
}

func TestApplyWrap(t *testing.T) {
	tests := []struct {
		prop string
		tag  string
	}{
		{"ListenStream", "Stream"},
		{"ListenDatagram", "Datagram"},
		{"ListenSequentialPacket", "SequentialPacket"},
		{"ListenNetlink", "Netlink"},
		{"ListenSpecial", "Special"},
		{"ListenMessageQueue", "MessageQueue"},
		{"ListenFIFO", "FIFO"},
		{"ListenUSBFunction", "USBFunction"},
	}
	for _, tc := range tests {
		rule, err := Lookup(tc.prop)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", tc.prop, err)
		}
		name, sig, val, err := rule.Apply(tc.prop, "/some/address")
		if err != nil {
			t.Fatalf("Apply(%q): %v", tc.prop, err)
		}
		if name != "Listen" || sig != "a(ss)" {
			t.Errorf("Apply(%q) = %s %q, want Listen a(ss)", tc.prop, name, sig)
		}
		want := []any{[]any{tc.tag, "/some/address"}}
		if diff := cmp.Diff(val, want); diff != "" {
			t.Errorf("Apply(%q) value diff (-got+want):\n%s", tc.prop, diff)
		}
	}
}

func TestApplyCustom(t *testing.T) {
	rule, err := Lookup("_custom")
	if err != nil {
		t.Fatalf("Lookup(_custom): %v", err)
	}

	name, sig, val, err := rule.Apply("_custom", Custom{
		Name:      "CoredumpFilter",
		Signature: "t",
		Value:     0x33,
	})
	if err != nil {
		t.Fatalf("Apply(_custom): %v", err)
	}
	if name != "CoredumpFilter" || sig != "t" || val != 0x33 {
		t.Errorf("Apply(_custom) = %s %q %v", name, sig, val)
	}

	// The triple form mirrors the struct form.
	name, sig, val, err = rule.Apply("_custom", []any{"CoredumpFilter", "t", 0x33})
	if err != nil {
		t.Fatalf("Apply(_custom) with triple: %v", err)
	}
	if name != "CoredumpFilter" || sig != "t" || val != 0x33 {
		t.Errorf("Apply(_custom) with triple = %s %q %v", name, sig, val)
	}

	for _, bad := range []any{42, []any{"x", "t"}, []any{1, "t", 2}, []any{"x", 2, 3}} {
		if _, _, _, err := rule.Apply("_custom", bad); err == nil {
			t.Errorf("Apply(_custom, %v) should have failed", bad)
		}
	}
}
