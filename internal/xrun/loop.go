package xrun

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mprtool/mpr/internal/device"
	"github.com/mprtool/mpr/internal/ui"
	"github.com/mprtool/mpr/internal/watcher"
)

// DefaultSettle is the pause between stopping the program and the next
// deploy, giving the device time to settle.
const DefaultSettle = time.Second

// State is a RunLoop state.
type State int

const (
	StateIdle State = iota
	StateDeploying
	StateRunning
	StateWatching
	StateStopping
	StateExhausted
	StateStopped
)

var stateNames = [...]string{
	StateIdle:      "idle",
	StateDeploying: "deploying",
	StateRunning:   "running",
	StateWatching:  "watching",
	StateStopping:  "stopping",
	StateExhausted: "exhausted",
	StateStopped:   "stopped",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateExhausted || s == StateStopped
}

// Config holds configuration for an xrun session.
type Config struct {
	// Root is the working directory holding the sources.
	Root string

	// Program is the entry point as given by the user, e.g. "main" or
	// "main.py". Empty means compile and sync only.
	Program string

	// Args are appended to sys.argv of the program on the device.
	Args []string

	// Excludes are added to DefaultExcludes.
	Excludes []string

	// Maps are "src:tgt" remap rules.
	Maps []string

	// Depth limits the directory depth, zero or less is unlimited.
	Depth int

	// Only watches and compiles the program file alone.
	Only bool

	// CompileOnly compiles without copying or running anything.
	CompileOnly bool

	// Once runs the program to completion a single time.
	Once bool

	// Flush empties the artifact cache before the first cycle.
	Flush bool

	// Compiler is the mpy-cross executable.
	Compiler string

	// Device runs mpremote. Its mount clause is ignored.
	Device *device.Client

	// Watcher waits for source changes. Required unless the session
	// cannot loop (no program, compile-only or once).
	Watcher watcher.Watcher

	// Launcher starts the program. Defaults to an ExecLauncher.
	Launcher Launcher

	// Settle is the pause before redeploying.
	Settle time.Duration

	// Out receives progress lines.
	Out io.Writer

	// Logger for loop activity.
	Logger *log.Logger

	// OnState, if set, observes every state transition.
	OnState func(State)

	// Now returns the time printed in the startup line.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Root:     ".",
		Compiler: DefaultCompiler,
		Device:   device.NewClient(device.DefaultTool),
		Settle:   DefaultSettle,
		Out:      os.Stdout,
		Logger:   log.New(io.Discard, "[xrun] ", log.LstdFlags),
		Now:      time.Now,
	}
}

// Loop is the watch, compile, push and restart state machine.
type Loop struct {
	config   *Config
	cache    *Cache
	resolver *Resolver
	deployer *Deployer

	entry  string
	module string
	argv   []string

	state State
}

// New creates a Loop from config after validating it. Configuration
// errors (bad map rules, a missing or nested program file) are returned
// here, before anything touches the cache or the device.
func New(config *Config) (*Loop, error) {
	if config == nil {
		config = DefaultConfig()
	}
	fillDefaults(config)

	remap, err := ParseRemap(config.Maps)
	if err != nil {
		return nil, err
	}

	var entry, module string
	if config.Program != "" && !config.CompileOnly {
		entry, err = ResolveEntryPoint(config.Root, config.Program)
		if err != nil {
			return nil, err
		}
		module = stem(entry)
		if target, ok := remap[module]; ok {
			module = target
		}
	}

	loops := entry != "" && !config.Once
	if loops && config.Watcher == nil {
		return nil, fmt.Errorf("watcher cannot be nil")
	}

	dev := config.Device.Connected()
	cache := NewCache(config.Root)

	l := &Loop{
		config: config,
		cache:  cache,
		resolver: &Resolver{
			Root:     config.Root,
			Cache:    cache,
			Excludes: MergeExcludes(config.Excludes, entry),
			Depth:    config.Depth,
			Entry:    entry,
			Only:     config.Only,
		},
		deployer: &Deployer{
			Root:        config.Root,
			Cache:       cache,
			Compiler:    config.Compiler,
			Device:      dev,
			CompileOnly: config.CompileOnly,
			Out:         config.Out,
			Logger:      config.Logger,
		},
		entry:  entry,
		module: module,
	}

	if entry != "" {
		if module != stem(entry) {
			l.resolver.EntryModule = module
		}
		l.argv = dev.Command("exec", RunCode(stem(entry), module, config.Args))
	}

	return l, nil
}

func fillDefaults(config *Config) {
	defaults := DefaultConfig()
	if config.Root == "" {
		config.Root = defaults.Root
	}
	if config.Compiler == "" {
		config.Compiler = defaults.Compiler
	}
	if config.Device == nil {
		config.Device = defaults.Device
	}
	if config.Launcher == nil {
		config.Launcher = NewExecLauncher()
	}
	if config.Settle < 0 {
		config.Settle = 0
	}
	if config.Out == nil {
		config.Out = defaults.Out
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
}

// State returns the current state.
func (l *Loop) State() State {
	return l.state
}

// Entry returns the entry point's relative path, "" in sync mode.
func (l *Loop) Entry() string {
	return l.entry
}

// Module returns the module name the entry point runs as.
func (l *Loop) Module() string {
	return l.module
}

// RunCommand returns the argv that starts the program on the device.
func (l *Loop) RunCommand() []string {
	return l.argv
}

func (l *Loop) setState(s State) {
	if l.state == s {
		return
	}
	l.config.Logger.Printf("state %s -> %s", l.state, s)
	l.state = s
	if l.config.OnState != nil {
		l.config.OnState(s)
	}
}

// Run prepares the cache and cycles until a terminal state. It returns
// nil when cancelled through ctx; only fatal errors are returned.
func (l *Loop) Run(ctx context.Context) error {
	if l.state.Terminal() {
		return fmt.Errorf("loop already %s", l.state)
	}

	if l.config.Flush {
		if err := l.cache.Flush(); err != nil {
			return err
		}
	}
	if err := l.cache.Ensure(); err != nil {
		return err
	}

	for {
		paths, err := l.deploy(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			l.setState(StateStopped)
			return nil
		}

		if l.entry == "" {
			l.setState(StateExhausted)
			return nil
		}

		if l.config.Once {
			return l.runOnce(ctx)
		}

		stopped, err := l.runAndWatch(ctx, paths)
		if err != nil || stopped {
			return err
		}
	}
}

// deploy resolves the tree from scratch and deploys the stale files.
// Per-file failures are logged by the deployer and do not end the cycle.
func (l *Loop) deploy(ctx context.Context) ([]string, error) {
	l.setState(StateDeploying)

	plan, err := l.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	n, err := l.deployer.DeployAll(ctx, plan.Stale)
	if IsFatal(err) {
		return nil, err
	}
	if IsRecoverable(err) {
		l.config.Logger.Printf("failed files stay stale until the next cycle")
	}
	if len(plan.Stale) > 0 {
		l.config.Logger.Printf("deployed %d of %d stale files", n, len(plan.Stale))
	}

	paths := make([]string, len(plan.WatchSet))
	for i, p := range plan.WatchSet {
		paths[i] = sourcePath(l.config.Root, p)
	}
	return paths, nil
}

// runOnce runs the program to completion and ends the session.
func (l *Loop) runOnce(ctx context.Context) error {
	l.setState(StateRunning)

	proc, err := l.config.Launcher.Start(ctx, l.argv)
	if err != nil {
		return err
	}

	if stopped := l.waitProcess(ctx, proc); stopped {
		l.setState(StateStopped)
		return nil
	}

	l.setState(StateExhausted)
	return nil
}

// waitProcess waits for proc to exit, killing it if ctx ends first.
// It reports whether ctx ended.
func (l *Loop) waitProcess(ctx context.Context, proc Process) bool {
	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			l.config.Logger.Printf("program exited: %v", err)
		}
		return false
	case <-ctx.Done():
		l.kill(proc)
		return true
	}
}

// runAndWatch starts the program, waits for a source change and stops
// the program again. It reports whether the loop has stopped.
func (l *Loop) runAndWatch(ctx context.Context, paths []string) (bool, error) {
	fmt.Fprintf(l.config.Out, "%s %s starting %s as %s.mpy%s\n",
		ui.RenderAccent(">>"),
		ui.RenderMuted(l.config.Now().Format("2006-01-02 15:04:05")),
		l.entry, l.module, argSuffix(l.config.Args))

	proc, err := l.config.Launcher.Start(ctx, l.argv)
	if err != nil {
		return true, err
	}
	l.setState(StateRunning)

	l.setState(StateWatching)
	err = l.config.Watcher.Wait(ctx, paths)
	if ctx.Err() != nil {
		l.kill(proc)
		l.setState(StateStopped)
		return true, nil
	}
	if err != nil {
		l.kill(proc)
		return true, fmt.Errorf("failed waiting for changes: %w", err)
	}

	l.setState(StateStopping)
	l.kill(proc)
	if err := l.config.Watcher.Clear(); err != nil {
		l.config.Logger.Printf("failed to clear watches: %v", err)
	}
	fmt.Fprintln(l.config.Out)

	if !sleepCtx(ctx, l.config.Settle) {
		l.setState(StateStopped)
		return true, nil
	}
	return false, nil
}

// kill stops proc and reaps it.
func (l *Loop) kill(proc Process) {
	if err := proc.Kill(); err != nil {
		l.config.Logger.Printf("failed to kill program: %v", err)
	}
	_ = proc.Wait()
}

// sleepCtx pauses for d. It returns false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RunCode returns the Python statement that starts module on the device.
// With args, sys.argv is extended with the program name and the args
// first.
func RunCode(name, module string, args []string) string {
	if len(args) == 0 {
		return "import " + module
	}

	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = pyQuote(a)
	}
	return fmt.Sprintf("import sys; sys.argv.extend([%s] + [%s]); import %s",
		pyQuote(name), strings.Join(quoted, ", "), module)
}

// pyQuote returns s as a single quoted Python string literal.
func pyQuote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func argSuffix(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return " " + strings.Join(args, " ")
}
