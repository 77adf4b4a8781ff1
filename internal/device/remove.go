package device

import (
	"context"
	"strings"
)

// RemoveAll removes path and everything below it, descending at most
// depth levels (1 removes "path/*", 2 "path/*/*", negative is unlimited).
// Errors from individual removals are ignored so one stubborn entry does
// not stop the rest. It reports whether everything below path was
// removed.
func (c *Client) RemoveAll(ctx context.Context, path string, depth int) bool {
	return c.removeAll(ctx, path, depth, 1)
}

func (c *Client) removeAll(ctx context.Context, dir string, depth, level int) bool {
	if depth >= 0 && level > depth {
		return false
	}

	complete := true
	for _, child := range c.List(ctx, dir) {
		childPath := "/" + strings.TrimLeft(dir+"/"+child, "/")

		remove := true
		if strings.HasSuffix(child, "/") {
			childPath = strings.TrimSuffix(childPath, "/")
			remove = c.removeAll(ctx, childPath, depth, level+1)
		}

		if remove {
			_ = c.FS(ctx, true, "rm", childPath)
		} else {
			complete = false
		}
	}

	if dir != "/" {
		_ = c.FS(ctx, true, "rmdir", dir)
		_ = c.FS(ctx, true, "rm", dir)
	}

	return complete
}

// List returns the entry names of a device directory as printed by
// "ls". Directories keep their trailing slash. A failed listing yields
// no entries.
func (c *Client) List(ctx context.Context, dir string) []string {
	out, err := c.Output(ctx, "ls", "--no-verbose", dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, line := range ParseLines(out) {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] == "ls" {
			continue
		}
		names = append(names, fields[1])
	}
	return names
}

// Devices returns the lines of "devs" output, skipping entries whose
// serial number is reported as None.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	out, err := c.Output(ctx, "devs")
	if err != nil {
		return nil, err
	}

	var devs []string
	for _, line := range ParseLines(out) {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "None" {
			continue
		}
		devs = append(devs, line)
	}
	return devs, nil
}
