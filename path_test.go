package sdbind

import "testing"

func TestObjectPathValid(t *testing.T) {
	tests := []struct {
		path  ObjectPath
		valid bool
	}{
		{"/", true},
		{"/org", true},
		{"/org/freedesktop/DBus", true},
		{"/org/freedesktop/systemd1/unit/dbus_2eservice", true},
		{"", false},
		{"org/freedesktop", false},
		{"/org/", false},
		{"//org", false},
		{"/org//freedesktop", false},
		{"/org/free-desktop", false},
		{"/org/frée", false},
	}
	for _, tc := range tests {
		if got := tc.path.Valid(); got != tc.valid {
			t.Errorf("ObjectPath(%q).Valid() = %v, want %v", tc.path, got, tc.valid)
		}
	}
}

func TestObjectPathChild(t *testing.T) {
	tests := []struct {
		path ObjectPath
		name string
		want ObjectPath
	}{
		{"/", "org", "/org"},
		{"/org", "freedesktop", "/org/freedesktop"},
		{"/org", "freedesktop/DBus", "/org/freedesktop/DBus"},
	}
	for _, tc := range tests {
		if got := tc.path.Child(tc.name); got != tc.want {
			t.Errorf("ObjectPath(%q).Child(%q) = %q, want %q", tc.path, tc.name, got, tc.want)
		}
	}
}

func TestEscapeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "_"},
		{"getty", "getty"},
		{"dbus.service", "dbus_2eservice"},
		{"user@1000.service", "user_401000_2eservice"},
		{"-.mount", "_2d_2emount"},
		{"dev-sda1.swap", "dev_2dsda1_2eswap"},
	}
	for _, tc := range tests {
		got := EscapeLabel(tc.in)
		if got != tc.want {
			t.Errorf("EscapeLabel(%q) = %q, want %q", tc.in, got, tc.want)
			continue
		}
		back, err := UnescapeLabel(got)
		if err != nil {
			t.Errorf("UnescapeLabel(%q): %v", got, err)
		} else if back != tc.in {
			t.Errorf("UnescapeLabel(%q) = %q, want %q", got, back, tc.in)
		}
	}
}

func TestUnescapeLabelErrors(t *testing.T) {
	for _, in := range []string{"_2", "_zz", "foo_", "foo-bar"} {
		if got, err := UnescapeLabel(in); err == nil {
			t.Errorf("UnescapeLabel(%q) = %q, want error", in, got)
		}
	}
}
