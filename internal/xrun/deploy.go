package xrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mprtool/mpr/internal/device"
	"github.com/mprtool/mpr/internal/ui"
)

// DefaultCompiler is the cross compiler used when no path is configured.
const DefaultCompiler = "mpy-cross"

// Deployer compiles stale sources into the cache and copies the
// artifacts to the device, one file at a time.
type Deployer struct {
	// Root is the working directory that holds the sources.
	Root string

	// Cache receives the compiled artifacts.
	Cache *Cache

	// Compiler is the mpy-cross executable.
	Compiler string

	// Device builds the transfer command lines and runs every command,
	// the compiler included.
	Device *device.Client

	// CompileOnly skips the transfer to the device.
	CompileOnly bool

	// Out receives progress lines.
	Out io.Writer

	// Logger receives per-file failures.
	Logger *log.Logger
}

// DeployAll deploys every candidate in order. A failure affects only its
// own file; the rest are still attempted and all failures are joined.
// It returns the number of files deployed successfully.
func (d *Deployer) DeployAll(ctx context.Context, stale []Candidate) (int, error) {
	var errs []error
	deployed := 0
	for _, c := range stale {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		if err := d.Deploy(ctx, c); err != nil {
			fmt.Fprintf(d.Out, "%s %v\n", ui.RenderFail("!!"), err)
			d.Logger.Printf("%v", err)
			errs = append(errs, err)
			continue
		}
		deployed++
	}
	return deployed, errors.Join(errs...)
}

// Deploy compiles one candidate and, unless compile-only, copies the
// artifact to the device directory that mirrors the source directory.
// On failure the artifact is removed so the file stays stale.
func (d *Deployer) Deploy(ctx context.Context, c Candidate) error {
	artifact, err := d.Cache.Prepare(c.Artifact)
	if err != nil {
		return err
	}

	fmt.Fprintf(d.Out, "%s %s compiling to %s ..\n", ui.RenderAccent(">>"), c.Source, c.Artifact)

	src := sourcePath(d.Root, c.Source)
	if err := d.run(ctx, d.Compiler, src, "-o", artifact); err != nil {
		discard(artifact)
		return &CompileError{Source: c.Source, ExitCode: device.GetExitCode(err), Err: err}
	}

	if d.CompileOnly {
		return nil
	}

	dest := Destination(c)
	if err := d.run(ctx, d.Device.Command("cp", "--no-verbose", artifact, dest)...); err != nil {
		discard(artifact)
		return &TransferError{Artifact: c.Artifact, Dest: dest, ExitCode: device.GetExitCode(err), Err: err}
	}

	return nil
}

// Destination returns the device path an artifact is copied to: the
// device root for top level files, the mirrored directory otherwise.
func Destination(c Candidate) string {
	if dir := c.Dir(); dir != "" {
		return ":" + dir + "/"
	}
	return ":"
}

func (d *Deployer) run(ctx context.Context, argv ...string) error {
	return d.Device.Exec(ctx, argv)
}

// discard removes a partial or untransferred artifact.
func discard(artifact string) {
	_ = os.Remove(artifact)
}
