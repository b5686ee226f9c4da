// Package device talks to a connected Android device or emulator over adb:
// installing the finished package, launching its activity, and tailing the
// process log.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"droidpack/internal/invoke"
	"droidpack/internal/ndk"
)

// ErrDevice wraps every adb failure.
var ErrDevice = errors.New("device command failed")

// Runner drives adb.
type Runner struct {
	Invoker invoke.Invoker
	SDK     *ndk.SDK
	Log     *logrus.Logger
}

// Install pushes the package onto the device, replacing any installed copy.
func (r *Runner) Install(ctx context.Context, apkPath string) error {
	r.Log.WithField("apk", apkPath).Info("installing")
	return r.adb(ctx, nil, "install", "-r", apkPath)
}

// Launch starts the package's main activity.
func (r *Runner) Launch(ctx context.Context, packageName string) error {
	r.Log.WithField("package", packageName).Info("starting activity")
	return r.adb(ctx, nil, "shell", "am", "start",
		"-a", "android.intent.action.MAIN",
		"-n", packageName+"/.MainActivity")
}

// Logcat streams the device log to out until the context is cancelled.
// Only the stdout/stderr bridge of the native process is shown; everything
// else is silenced.
func (r *Runner) Logcat(ctx context.Context, out io.Writer) error {
	err := r.adbStream(ctx, out, "logcat", "RustStdoutStderr:D", "*:S")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) adb(ctx context.Context, out io.Writer, args ...string) error {
	res, err := r.Invoker.Run(ctx, invoke.Cmd{
		Path:   r.SDK.ADB(),
		Args:   args,
		Stdout: out,
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: adb %s exited with code %d: %s",
			ErrDevice, strings.Join(args, " "), res.ExitCode,
			strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

func (r *Runner) adbStream(ctx context.Context, out io.Writer, args ...string) error {
	_, err := r.Invoker.Run(ctx, invoke.Cmd{
		Path:   r.SDK.ADB(),
		Args:   args,
		Stdout: out,
	})
	return err
}
