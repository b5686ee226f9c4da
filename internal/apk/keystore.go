package apk

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"droidpack/internal/invoke"
)

const debugKeystorePassword = "android"

// DebugKey locates the Android debug keystore under the user's home
// directory, generating it with keytool on first use — the same keystore
// the SDK tooling shares.
func DebugKey(ctx context.Context, invoker invoke.Invoker) (SigningKey, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return SigningKey{}, &SigningError{Msg: "unable to determine home directory: " + err.Error()}
	}
	return debugKeyIn(ctx, invoker, filepath.Join(home, ".android"))
}

func debugKeyIn(ctx context.Context, invoker invoke.Invoker, androidDir string) (SigningKey, error) {
	if err := os.MkdirAll(androidDir, 0o755); err != nil {
		return SigningKey{}, &SigningError{Msg: "creating " + androidDir + ": " + err.Error()}
	}

	keystore := filepath.Join(androidDir, "debug.keystore")
	key := SigningKey{Keystore: keystore, Password: debugKeystorePassword}

	if _, err := os.Stat(keystore); err == nil {
		return key, nil
	}

	res, err := invoker.Run(ctx, invoke.Cmd{
		Path: "keytool",
		Args: []string{
			"-genkey", "-v",
			"-keystore", keystore,
			"-storepass", debugKeystorePassword,
			"-alias", "androiddebugkey",
			"-keypass", debugKeystorePassword,
			"-dname", "CN=Android Debug,O=Android,C=US",
			"-keyalg", "RSA",
			"-keysize", "2048",
			"-validity", "10000",
		},
	})
	if err != nil {
		return SigningKey{}, &SigningError{Msg: "generating debug keystore: " + err.Error()}
	}
	if res.ExitCode != 0 {
		return SigningKey{}, &SigningError{Msg: "keytool exited " + strconv.Itoa(res.ExitCode) + ": " + string(res.Stderr)}
	}
	return key, nil
}
