package apk

import (
	"context"

	"github.com/sirupsen/logrus"

	"droidpack/internal/invoke"
	"droidpack/internal/ndk"
)

// SigningKey is the identity the archive is signed with.
type SigningKey struct {
	Keystore string
	Password string
}

// Signer invokes the external signing tool. Signing failures are terminal
// for the build invocation; there is no retry.
type Signer struct {
	Invoker invoke.Invoker
	SDK     *ndk.SDK
	Log     *logrus.Logger
}

// Sign signs apkPath in place with key.
func (s *Signer) Sign(ctx context.Context, apkPath string, key SigningKey) error {
	apksigner, err := s.SDK.BuildTool("apksigner")
	if err != nil {
		return &SigningError{APK: apkPath, Msg: err.Error()}
	}

	res, err := s.Invoker.Run(ctx, invoke.Cmd{
		Path: apksigner,
		Args: []string{
			"sign",
			"--ks", key.Keystore,
			"--ks-pass", "pass:" + key.Password,
			apkPath,
		},
	})
	if err != nil {
		return &SigningError{APK: apkPath, Msg: err.Error()}
	}
	if res.ExitCode != 0 {
		return &SigningError{APK: apkPath, Msg: string(res.Stderr)}
	}

	if s.Log != nil {
		s.Log.WithField("apk", apkPath).Info("signed package")
	}
	return nil
}
