package xrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Process is a started program that can be waited on and killed.
type Process interface {
	// Wait blocks until the process exits and returns its exit error.
	// It may be called more than once.
	Wait() error

	// Kill terminates the process forcibly. Killing an exited process
	// is not an error.
	Kill() error
}

// Launcher starts the run command for the remote program.
type Launcher interface {
	Start(ctx context.Context, argv []string) (Process, error)
}

// ExecLauncher starts processes with os/exec, attached to the given stdio.
// On unix the process gets its own process group so Kill reaches any
// children it spawned.
type ExecLauncher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecLauncher returns a launcher attached to the process's stdio.
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Start starts argv without waiting for it.
func (l *ExecLauncher) Start(ctx context.Context, argv []string) (Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	// The process is killed explicitly; it must not die with ctx mid-cycle.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error

	killOnce sync.Once
	killErr  error
}

func (p *execProcess) Wait() error {
	<-p.done
	return p.err
}

func (p *execProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	p.killOnce.Do(func() {
		p.killErr = killProcessGroup(p.cmd)
	})
	return p.killErr
}
