package device

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"reflect"
	"strings"
	"testing"
)

// fakeRunner records every argv and answers from a table keyed by the
// joined subcommand (argv without the client's base).
type fakeRunner struct {
	base    int
	calls   [][]string
	outputs map[string]string
	fail    map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, argv []string, stdout, stderr io.Writer) error {
	f.calls = append(f.calls, argv)
	key := strings.Join(argv[f.base:], " ")
	if out, ok := f.outputs[key]; ok && stdout != nil {
		io.WriteString(stdout, out)
	}
	if err, ok := f.fail[key]; ok {
		io.WriteString(stderr, "device says no\n")
		return err
	}
	return nil
}

func (f *fakeRunner) subcommands() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, strings.Join(c[f.base:], " "))
	}
	return out
}

func newFakeClient() (*Client, *fakeRunner) {
	fr := &fakeRunner{base: 1, outputs: map[string]string{}, fail: map[string]error{}}
	c := &Client{Tool: "mpremote", Runner: RunnerFunc(fr.Run), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	return c, fr
}

func TestClient_Command(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		args   []string
		want   []string
	}{
		{
			name:   "bare",
			client: Client{Tool: "mpremote"},
			args:   []string{"ls", ":/lib"},
			want:   []string{"mpremote", "ls", ":lib"},
		},
		{
			name:   "device",
			client: Client{Tool: "/opt/mpremote", Device: "/dev/ttyACM0"},
			args:   []string{"df"},
			want:   []string{"/opt/mpremote", "connect", "/dev/ttyACM0", "df"},
		},
		{
			name:   "mount",
			client: Client{Tool: "mpremote", Mount: "src"},
			args:   []string{"exec", "import app"},
			want:   []string{"mpremote", "mount", "src", "exec", "import app"},
		},
		{
			name:   "unsafe links win",
			client: Client{Tool: "mpremote", Device: "COM3", Mount: "a", MountUnsafeLinks: "b"},
			args:   []string{"repl"},
			want:   []string{"mpremote", "connect", "COM3", "mount", "-l", "b", "repl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.client.Command(tt.args...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Command() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_ConnectedDropsMount(t *testing.T) {
	c := &Client{Tool: "mpremote", Device: "u0", Mount: "src", MountUnsafeLinks: "x"}
	got := c.Connected().Base()
	want := []string{"mpremote", "connect", "u0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Connected().Base() = %q, want %q", got, want)
	}
	if c.Mount != "src" {
		t.Error("Connected() modified the original client")
	}
}

func TestClient_VerboseEcho(t *testing.T) {
	c, _ := newFakeClient()
	c.Verbose = true

	if err := c.Run(context.Background(), "df"); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if got := c.Stdout.(*bytes.Buffer).String(); got != "mpremote df\n" {
		t.Errorf("echo = %q, want %q", got, "mpremote df\n")
	}
}

func TestClient_OutputIncludesStderr(t *testing.T) {
	c, fr := newFakeClient()
	fr.fail["devs"] = errors.New("exit status 1")

	_, err := c.Output(context.Background(), "devs")
	if err == nil {
		t.Fatal("Output() should fail")
	}
	if !strings.Contains(err.Error(), "device says no") {
		t.Errorf("error %q should include stderr", err)
	}
}

func TestClient_Devices(t *testing.T) {
	c, fr := newFakeClient()
	fr.outputs["devs"] = "/dev/ttyACM0 e6614c311b7e6f35 2e8a:0005 MicroPython Board\n" +
		"/dev/ttyS0 None 0000:0000 None None\n"

	devs, err := c.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() failed: %v", err)
	}
	if len(devs) != 1 || !strings.HasPrefix(devs[0], "/dev/ttyACM0") {
		t.Errorf("Devices() = %q, want only the ACM device", devs)
	}
}

func TestClient_RemoveAll(t *testing.T) {
	c, fr := newFakeClient()
	fr.outputs["ls --no-verbose /app"] = "         120 main.py\n           0 lib/\n"
	fr.outputs["ls --no-verbose /app/lib"] = "          64 util.py\n"

	if !c.RemoveAll(context.Background(), "/app", -1) {
		t.Error("RemoveAll() reported an incomplete removal")
	}

	want := []string{
		"ls --no-verbose /app",
		"rm --no-verbose /app/main.py",
		"ls --no-verbose /app/lib",
		"rm --no-verbose /app/lib/util.py",
		"rmdir --no-verbose /app/lib",
		"rm --no-verbose /app/lib",
		"rm --no-verbose /app/lib",
		"rmdir --no-verbose /app",
		"rm --no-verbose /app",
	}
	if got := fr.subcommands(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls =\n%q\nwant\n%q", got, want)
	}
}

func TestClient_RemoveAllDepthLimit(t *testing.T) {
	c, fr := newFakeClient()
	fr.outputs["ls --no-verbose /"] = "         120 main.py\n           0 lib/\n"
	fr.outputs["ls --no-verbose /lib"] = "          64 util.py\n"

	if c.RemoveAll(context.Background(), "/", 1) {
		t.Error("RemoveAll() with depth 1 should leave lib/ in place")
	}

	for _, call := range fr.subcommands() {
		if strings.Contains(call, "util.py") || call == "ls --no-verbose /lib" {
			t.Errorf("unexpected call below depth limit: %s", call)
		}
		if strings.HasPrefix(call, "rmdir") {
			t.Errorf("root must never be removed, got %s", call)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	if got := GetExitCode(nil); got != 0 {
		t.Errorf("GetExitCode(nil) = %d, want 0", got)
	}
	if got := GetExitCode(errors.New("boom")); got != -1 {
		t.Errorf("GetExitCode(plain) = %d, want -1", got)
	}

	err := exec.Command("sh", "-c", "exit 3").Run()
	if err == nil {
		t.Skip("sh not available")
	}
	wrapped := errors.Join(errors.New("context"), err)
	if got := GetExitCode(wrapped); got != 3 {
		t.Errorf("GetExitCode(wrapped exit 3) = %d, want 3", got)
	}
	if !IsExitError(wrapped) {
		t.Error("IsExitError(wrapped) = false, want true")
	}
}

func TestParseLines(t *testing.T) {
	got := ParseLines([]byte("  a \n\n b\n"))
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ParseLines() = %q", got)
	}
	if ParseLines(nil) != nil {
		t.Error("ParseLines(nil) should be nil")
	}
}
