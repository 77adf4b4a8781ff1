//go:build unix

package xrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processGone reports whether pid has exited: no /proc entry or a zombie.
func processGone(pid int) (bool, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	// The command name may contain spaces; the state follows its ")".
	i := strings.LastIndexByte(string(data), ')')
	if i < 0 {
		return false, fmt.Errorf("malformed stat for %d: %q", pid, data)
	}
	fields := strings.Fields(string(data[i+1:]))
	if len(fields) == 0 {
		return false, fmt.Errorf("malformed stat for %d: %q", pid, data)
	}
	return fields[0] == "Z", nil
}

func requireShell(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("/proc not available")
	}
}

// TestExecLauncher_KillReachesChildren verifies that Kill takes down
// background children of the started program too.
func TestExecLauncher_KillReachesChildren(t *testing.T) {
	requireShell(t)

	pidFile := filepath.Join(t.TempDir(), "child.pid")
	launcher := &ExecLauncher{}
	proc, err := launcher.Start(context.Background(), []string{
		"sh", "-c", fmt.Sprintf("sleep 100 & echo $! > %s; wait", pidFile),
	})
	require.NoError(t, err)

	var pid int
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(pidFile)
		if err != nil {
			return false
		}
		pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond, "child never wrote its pid")

	require.NoError(t, proc.Kill())

	waitErr := proc.Wait()
	assert.Error(t, waitErr, "a killed program has no clean exit")
	assert.Equal(t, waitErr, proc.Wait(), "Wait must report the same result again")

	assert.Eventually(t, func() bool {
		gone, err := processGone(pid)
		return err == nil && gone
	}, 2*time.Second, 10*time.Millisecond, "background child %d survived Kill", pid)

	assert.NoError(t, proc.Kill(), "Kill after exit")
}

// TestExecLauncher_KillAfterExit verifies that killing a program that
// already finished is not an error.
func TestExecLauncher_KillAfterExit(t *testing.T) {
	requireShell(t)

	proc, err := (&ExecLauncher{}).Start(context.Background(), []string{"sh", "-c", "exit 0"})
	require.NoError(t, err)

	require.NoError(t, proc.Wait())
	assert.NoError(t, proc.Kill())
	assert.NoError(t, proc.Wait())
}

func TestExecLauncher_EmptyCommand(t *testing.T) {
	_, err := (&ExecLauncher{}).Start(context.Background(), nil)
	assert.Error(t, err)
}
