// Package device drives mpremote, the MicroPython device tool.
//
// A Client builds mpremote command lines from the global options
// (connection, optional mount) and runs them without a shell:
//
//	c := device.NewClient("mpremote")
//	c.Device = device.ResolveDevice("a0")
//	err := c.Run(ctx, "ls", "/lib")
package device

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DefaultTool is the mpremote program used when no path is configured.
const DefaultTool = "mpremote"

// captureTimeout bounds commands whose output is parsed.
const captureTimeout = 30 * time.Second

// Client runs mpremote against one device.
type Client struct {
	// Tool is the mpremote executable.
	Tool string

	// Device is the connect argument, already resolved. Empty lets
	// mpremote pick the first available device.
	Device string

	// Mount is a local directory mounted on the device first.
	Mount string

	// MountUnsafeLinks is like Mount but allows links outside the
	// directory. It wins over Mount.
	MountUnsafeLinks string

	// Verbose echoes every command line before running it.
	Verbose bool

	// Runner executes commands. Defaults to ExecRunner with os.Stdin.
	Runner Runner

	Stdout io.Writer
	Stderr io.Writer
}

// NewClient returns a Client using tool and the process's stdio.
func NewClient(tool string) *Client {
	if tool == "" {
		tool = DefaultTool
	}
	return &Client{
		Tool:   tool,
		Runner: ExecRunner{Stdin: os.Stdin},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Base returns the leading argv shared by every command: the tool, the
// connect clause and the mount clause.
func (c *Client) Base() []string {
	argv := []string{c.Tool}
	if c.Device != "" {
		argv = append(argv, "connect", c.Device)
	}

	switch {
	case c.MountUnsafeLinks != "":
		argv = append(argv, "mount", "-l", c.MountUnsafeLinks)
	case c.Mount != "":
		argv = append(argv, "mount", c.Mount)
	}
	return argv
}

// Command returns the full argv for an mpremote subcommand. Remote path
// arguments are normalised with NormalizeRemote.
func (c *Client) Command(args ...string) []string {
	argv := c.Base()
	for _, a := range args {
		argv = append(argv, NormalizeRemote(a))
	}
	return argv
}

// Connected returns a copy of c without the mount clause.
func (c *Client) Connected() *Client {
	cp := *c
	cp.Mount = ""
	cp.MountUnsafeLinks = ""
	return &cp
}

// Run runs a subcommand with output going to the client's writers.
func (c *Client) Run(ctx context.Context, args ...string) error {
	argv := c.Command(args...)
	c.echo(argv)
	return c.runner().Run(ctx, argv, c.Stdout, c.Stderr)
}

// Exec runs an arbitrary argv through the client's runner and writers.
func (c *Client) Exec(ctx context.Context, argv []string) error {
	c.echo(argv)
	return c.runner().Run(ctx, argv, c.Stdout, c.Stderr)
}

// Quiet runs a subcommand and discards all of its output.
func (c *Client) Quiet(ctx context.Context, args ...string) error {
	argv := c.Command(args...)
	c.echo(argv)
	return c.runner().Run(ctx, argv, io.Discard, io.Discard)
}

// Output runs a subcommand and returns what it printed.
func (c *Client) Output(ctx context.Context, args ...string) ([]byte, error) {
	return ExecContext(ctx, c.runner(), captureTimeout, c.Command(args...)...)
}

// FS runs a filesystem subcommand with mpremote's own progress output
// suppressed.
func (c *Client) FS(ctx context.Context, quiet bool, cmd string, args ...string) error {
	full := append([]string{cmd, "--no-verbose"}, args...)
	if quiet {
		return c.Quiet(ctx, full...)
	}
	return c.Run(ctx, full...)
}

func (c *Client) echo(argv []string) {
	if c.Verbose && c.Stdout != nil {
		fmt.Fprintln(c.Stdout, strings.Join(argv, " "))
	}
}

func (c *Client) runner() Runner {
	if c.Runner == nil {
		return ExecRunner{Stdin: os.Stdin}
	}
	return c.Runner
}
