// Package invoke runs external build tools as child processes.
//
// Every tool the pipeline depends on (the compiler driver, aapt, zipalign,
// apksigner, keytool, adb) is reached through the Invoker interface so that
// components stay testable without the Android SDK installed.
package invoke

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"sort"
	"syscall"
)

// Cmd describes a single tool invocation.
//
// Env is an overlay: the child sees the parent environment plus these
// variables. The overlay is scoped strictly to the child process; nothing
// here ever calls os.Setenv, so concurrent invocations with different
// overlays stay independent.
type Cmd struct {
	Path string
	Args []string
	Dir  string
	Env  map[string]string

	// Stdout, when set, receives the child's output as it is produced
	// instead of being buffered into the Result. Long-running streaming
	// tools (adb logcat) use this.
	Stdout io.Writer
}

// Result is the outcome of a completed invocation. A non-zero ExitCode is
// not an error at this layer; callers decide what a failing tool means.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Invoker executes tool invocations.
type Invoker interface {
	Run(ctx context.Context, cmd Cmd) (*Result, error)
}

// Process is the real Invoker backed by os/exec.
type Process struct{}

// Run starts the command and waits for it, killing the whole process group
// if the context is cancelled first. An error is returned only when the
// process could not be run at all; tool failures surface via ExitCode.
func (Process) Run(ctx context.Context, cmd Cmd) (*Result, error) {
	if cmd.Path == "" {
		return nil, fmt.Errorf("empty command path")
	}

	c := osexec.Command(cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = overlayEnv(cmd.Env)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	} else {
		c.Stdout = &stdout
	}
	c.Stderr = &stderr

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cmd.Path, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if c.Process != nil {
			syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, fmt.Errorf("%s cancelled: %w", cmd.Path, ctx.Err())
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*osexec.ExitError)
		if !ok {
			return nil, fmt.Errorf("running %s: %w", cmd.Path, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

// overlayEnv merges the overlay onto the parent environment. Overlay keys
// are emitted in sorted order so repeated invocations are reproducible.
func overlayEnv(overlay map[string]string) []string {
	env := os.Environ()
	if len(overlay) == 0 {
		return env
	}

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}
	return env
}
