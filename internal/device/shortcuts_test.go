package device

import "testing"

func TestResolveDevice(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a0", "/dev/ttyACM0"},
		{"a12", "/dev/ttyACM12"},
		{"u1", "/dev/ttyUSB1"},
		{"c3", "COM3"},
		{"auto", "auto"},
		{"a", "a"},
		{"ax", "ax"},
		{"id:e6614c311b7e6f35", "id:e6614c311b7e6f35"},
		{"/dev/ttyS0", "/dev/ttyS0"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ResolveDevice(tt.input); got != tt.want {
				t.Errorf("ResolveDevice(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsListRequest(t *testing.T) {
	for _, name := range []string{"list", "l", "devs"} {
		if !IsListRequest(name) {
			t.Errorf("IsListRequest(%q) = false, want true", name)
		}
	}
	if IsListRequest("a0") {
		t.Error("IsListRequest(a0) = true, want false")
	}
}

func TestNormalizeRemote(t *testing.T) {
	tests := map[string]string{
		":/lib/x.py": ":lib/x.py",
		":/":         ":",
		":lib":       ":lib",
		"/tmp/x":     "/tmp/x",
	}
	for in, want := range tests {
		if got := NormalizeRemote(in); got != want {
			t.Errorf("NormalizeRemote(%q) = %q, want %q", in, got, want)
		}
	}
}
