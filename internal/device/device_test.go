package device

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"droidpack/internal/invoke"
	"droidpack/internal/ndk"
)

type fakeInvoker struct {
	cmds []invoke.Cmd
	exit int
}

func (f *fakeInvoker) Run(ctx context.Context, cmd invoke.Cmd) (*invoke.Result, error) {
	f.cmds = append(f.cmds, cmd)
	return &invoke.Result{ExitCode: f.exit, Stderr: []byte("adb: no devices")}, nil
}

func testRunner(inv *fakeInvoker) *Runner {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return &Runner{
		Invoker: inv,
		SDK:     &ndk.SDK{Root: "/opt/android-sdk", BuildToolsVersion: "29.0.3"},
		Log:     log,
	}
}

func TestInstall(t *testing.T) {
	inv := &fakeInvoker{}
	r := testRunner(inv)

	require.NoError(t, r.Install(context.Background(), "out/game.apk"))

	require.Len(t, inv.cmds, 1)
	cmd := inv.cmds[0]
	assert.Equal(t, filepath.Join("/opt/android-sdk", "platform-tools", "adb"), cmd.Path)
	assert.Equal(t, []string{"install", "-r", "out/game.apk"}, cmd.Args)
}

func TestLaunch(t *testing.T) {
	inv := &fakeInvoker{}
	r := testRunner(inv)

	require.NoError(t, r.Launch(context.Background(), "rust.game"))

	require.Len(t, inv.cmds, 1)
	args := strings.Join(inv.cmds[0].Args, " ")
	assert.Equal(t, "shell am start -a android.intent.action.MAIN -n rust.game/.MainActivity", args)
}

func TestLogcatStreams(t *testing.T) {
	inv := &fakeInvoker{}
	r := testRunner(inv)

	var out strings.Builder
	require.NoError(t, r.Logcat(context.Background(), &out))

	require.Len(t, inv.cmds, 1)
	cmd := inv.cmds[0]
	assert.Equal(t, []string{"logcat", "RustStdoutStderr:D", "*:S"}, cmd.Args)
	assert.NotNil(t, cmd.Stdout)
}

func TestFailedCommandWrapsErrDevice(t *testing.T) {
	inv := &fakeInvoker{exit: 1}
	r := testRunner(inv)

	err := r.Install(context.Background(), "out/game.apk")
	require.ErrorIs(t, err, ErrDevice)
	assert.Contains(t, err.Error(), "no devices")
}
