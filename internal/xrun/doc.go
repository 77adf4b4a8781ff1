// Package xrun implements the watch, compile, push and restart loop.
//
// Each cycle the Resolver walks the source tree, filters it by exclusion,
// depth and only-mode, and compares every accepted file with its artifact
// in the Cache. The Deployer compiles the stale files with mpy-cross and
// copies the artifacts to the device with mpremote. The Loop then starts
// the entry point on the device and blocks in a watcher.Watcher until a
// source changes, kills the program and starts over.
//
// Staleness is flat and per file: an artifact is stale when it is missing
// or not strictly newer than its source. Nothing is remembered between
// cycles except what is on disk.
//
//	loop, err := xrun.New(&xrun.Config{
//	    Program: "main.py",
//	    Device:  device.NewClient("mpremote"),
//	    Watcher: w,
//	})
//	if err != nil {
//	    return err // configuration errors surface here
//	}
//	return loop.Run(ctx)
package xrun
