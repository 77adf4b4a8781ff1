package xrun

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mprtool/mpr/internal/device"
	"github.com/mprtool/mpr/internal/ui"
	"github.com/mprtool/mpr/internal/watcher"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	ui.SetColor(false)
	os.Exit(m.Run())
}

// past is the mtime given to freshly written sources so artifacts
// written during the test are strictly newer.
var past = time.Now().Add(-time.Hour).Truncate(time.Second)

// writeSources creates the given files under root with mtime past.
func writeSources(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("print('"+name+"')\n"), 0644))
		require.NoError(t, os.Chtimes(p, past, past))
	}
}

// touch sets the mtime of a file under root.
func touch(t *testing.T, root, name string, when time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(filepath.Join(root, filepath.FromSlash(name)), when, when))
}

// fakeTools stands in for mpy-cross and mpremote. The compiler writes
// the artifact named after "-o"; sources listed in failCompile exit 1.
type fakeTools struct {
	root         string
	mu           sync.Mutex
	calls        [][]string
	failCompile  map[string]bool
	failTransfer bool
}

func (f *fakeTools) Run(ctx context.Context, argv []string, stdout, stderr io.Writer) error {
	f.mu.Lock()
	f.calls = append(f.calls, argv)
	f.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if argv[0] == DefaultCompiler {
		src, out := f.rel(argv[1]), argv[3]
		if f.failCompile[src] {
			io.WriteString(stderr, "SyntaxError\n")
			return errors.New("exit status 1")
		}
		return os.WriteFile(out, []byte("mpy"), 0644)
	}

	if f.failTransfer {
		return errors.New("exit status 1")
	}
	return nil
}

// compiles returns the sources passed to the compiler, in order.
func (f *fakeTools) compiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.calls {
		if c[0] == DefaultCompiler {
			out = append(out, f.rel(c[1]))
		}
	}
	return out
}

// transfers returns "artifact dest" for every cp call, in order.
func (f *fakeTools) transfers(cacheRoot string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.calls {
		if c[0] == DefaultCompiler {
			continue
		}
		for i, a := range c {
			if a == "cp" && i+3 < len(c) {
				rel, _ := filepath.Rel(cacheRoot, c[i+2])
				out = append(out, filepath.ToSlash(rel)+" "+c[i+3])
				break
			}
		}
	}
	return out
}

// rel returns p relative to the source root in slash form.
func (f *fakeTools) rel(p string) string {
	if r, err := filepath.Rel(f.root, p); err == nil {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(p)
}

func (f *fakeTools) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// newTestDeployer returns a deployer over root backed by fakeTools.
func newTestDeployer(root string, tools *fakeTools) (*Deployer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Deployer{
		Root:     root,
		Cache:    NewCache(root),
		Compiler: DefaultCompiler,
		Device:   &device.Client{Tool: "mpremote", Runner: tools, Stdout: io.Discard, Stderr: io.Discard},
		Out:      out,
		Logger:   discardLogger(),
	}, out
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// fakeProcess is a Process that runs until killed or released.
type fakeProcess struct {
	argv []string
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	killed bool
}

func newFakeProcess(argv []string) *fakeProcess {
	return &fakeProcess{argv: argv, done: make(chan struct{})}
}

func (p *fakeProcess) Wait() error {
	<-p.done
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit()
	return nil
}

func (p *fakeProcess) exit() {
	p.once.Do(func() { close(p.done) })
}

func (p *fakeProcess) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// fakeLauncher records started processes. With exitImmediately the
// processes finish on their own.
type fakeLauncher struct {
	mu              sync.Mutex
	started         []*fakeProcess
	exitImmediately bool
}

func (l *fakeLauncher) Start(ctx context.Context, argv []string) (Process, error) {
	p := newFakeProcess(argv)
	if l.exitImmediately {
		p.exit()
	}
	l.mu.Lock()
	l.started = append(l.started, p)
	l.mu.Unlock()
	return p, nil
}

func (l *fakeLauncher) processes() []*fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeProcess(nil), l.started...)
}

// scriptedWatcher runs one step per Wait call. A nil step, or running
// out of steps, blocks until ctx is done.
type scriptedWatcher struct {
	steps  []func() error
	waits  [][]string
	clears int
}

func (w *scriptedWatcher) Wait(ctx context.Context, paths []string) error {
	w.waits = append(w.waits, append([]string(nil), paths...))
	i := len(w.waits) - 1
	if i < len(w.steps) && w.steps[i] != nil {
		return w.steps[i]()
	}
	<-ctx.Done()
	return ctx.Err()
}

func (w *scriptedWatcher) Clear() error { w.clears++; return nil }
func (w *scriptedWatcher) Close() error { return nil }
func (w *scriptedWatcher) Kind() watcher.Kind {
	return watcher.Kind("scripted")
}

// stateRecorder collects OnState transitions.
type stateRecorder struct {
	states []State
}

func (r *stateRecorder) record(s State) { r.states = append(r.states, s) }

func (r *stateRecorder) String() string {
	names := make([]string, len(r.states))
	for i, s := range r.states {
		names[i] = s.String()
	}
	return strings.Join(names, ",")
}
