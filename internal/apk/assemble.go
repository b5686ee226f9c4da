// Package apk assembles the on-disk package layout and drives the external
// packaging, alignment and signing tools to produce the final installable
// archive.
package apk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"droidpack/internal/abi"
	"droidpack/internal/compile"
	"droidpack/internal/config"
	"droidpack/internal/invoke"
	"droidpack/internal/ndk"
)

// Descriptor is everything the assembler needs for one artifact's package.
type Descriptor struct {
	Config   *config.Resolved
	Manifest []byte

	// Outputs must contain exactly one build output per declared
	// architecture; assembly refuses to run otherwise.
	Outputs []compile.Output

	// StagingDir is where the package tree is laid out.
	StagingDir string

	// OutDir receives the final <artifact>.apk.
	OutDir string
}

// defaultLayout is the stub layout resource every package carries so aapt
// always has a resource tree to link.
const defaultLayout = `<?xml version="1.0" encoding="utf-8"?>
<LinearLayout xmlns:android="http://schemas.android.com/apk/res/android"
    android:orientation="vertical"
    android:layout_width="fill_parent"
    android:layout_height="fill_parent"
    >
</LinearLayout>
`

// Assembler stages the package tree and invokes the packaging tool.
type Assembler struct {
	Invoker invoke.Invoker
	SDK     *ndk.SDK
	Log     *logrus.Logger
}

// Assemble lays out the staging tree for desc and produces the aligned,
// still unsigned APK at OutDir/<artifact>.apk.
//
// Build outputs are copied, never moved: the compiler's output tree stays
// intact for inspection and retries.
func (a *Assembler) Assemble(ctx context.Context, desc *Descriptor) (string, error) {
	name := desc.Config.Artifact.Name

	if err := checkOutputs(desc); err != nil {
		return "", err
	}

	if err := os.MkdirAll(desc.StagingDir, 0o755); err != nil {
		return "", assemblyErrorf(name, "creating staging directory: %v", err)
	}
	if err := os.MkdirAll(desc.OutDir, 0o755); err != nil {
		return "", assemblyErrorf(name, "creating output directory: %v", err)
	}

	manifestPath := filepath.Join(desc.StagingDir, "AndroidManifest.xml")
	if err := os.WriteFile(manifestPath, desc.Manifest, 0o644); err != nil {
		return "", assemblyErrorf(name, "writing manifest: %v", err)
	}

	// Native libraries, one subdirectory per architecture: the artifact
	// renamed to its load name, plus its bundled shared dependencies under
	// their own names.
	soPaths := make([]string, 0, len(desc.Outputs))
	for _, out := range desc.Outputs {
		// Forward slashes always: this relative path ends up inside the
		// archive and the loader rejects backslashed entries.
		abiDir := "lib/" + out.Target.Target.AndroidABI() + "/"
		rel := abiDir + desc.Config.LibraryFileName()
		dst := filepath.Join(desc.StagingDir, filepath.FromSlash(rel))
		if err := copyFile(out.Library, dst); err != nil {
			return "", assemblyErrorf(name, "staging %s: %v", rel, err)
		}
		soPaths = append(soPaths, rel)

		for _, shared := range out.Shared {
			rel := abiDir + filepath.Base(shared)
			dst := filepath.Join(desc.StagingDir, filepath.FromSlash(rel))
			if err := copyFile(shared, dst); err != nil {
				return "", assemblyErrorf(name, "staging %s: %v", rel, err)
			}
			soPaths = append(soPaths, rel)
		}
	}

	if err := a.writeStubResources(desc.StagingDir); err != nil {
		return "", assemblyErrorf(name, "writing stub resources: %v", err)
	}

	unsigned := name + "_unaligned.apk"
	if err := a.aaptPackage(ctx, desc, unsigned); err != nil {
		return "", err
	}
	for _, rel := range soPaths {
		if err := a.aaptAdd(ctx, desc, unsigned, rel); err != nil {
			return "", err
		}
	}

	final := filepath.Join(desc.OutDir, name+".apk")
	if err := a.zipalign(ctx, desc, unsigned, final); err != nil {
		return "", err
	}

	if a.Log != nil {
		a.Log.WithFields(logrus.Fields{"artifact": name, "apk": final}).Info("assembled package")
	}
	return final, nil
}

// checkOutputs enforces the all-architectures invariant: every declared
// target has exactly one build output, and no output names an undeclared
// target. Partial-architecture packages are never produced.
func checkOutputs(desc *Descriptor) error {
	name := desc.Config.Artifact.Name

	seen := make(map[abi.Target]int, len(desc.Outputs))
	for _, out := range desc.Outputs {
		seen[out.Target.Target]++
	}
	for _, target := range desc.Config.BuildTargets {
		switch seen[target] {
		case 0:
			return assemblyErrorf(name, "missing build output for architecture %s", target)
		case 1:
		default:
			return assemblyErrorf(name, "duplicate build output for architecture %s", target)
		}
		delete(seen, target)
	}
	for target := range seen {
		return assemblyErrorf(name, "build output for undeclared architecture %s", target)
	}
	return nil
}

func (a *Assembler) writeStubResources(stagingDir string) error {
	layoutDir := filepath.Join(stagingDir, "res", "layout")
	if err := os.MkdirAll(layoutDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(layoutDir, "main.xml"), []byte(defaultLayout), 0o644)
}

func (a *Assembler) aaptPackage(ctx context.Context, desc *Descriptor, unsigned string) error {
	name := desc.Config.Artifact.Name

	aapt, err := a.SDK.BuildTool("aapt")
	if err != nil {
		return assemblyErrorf(name, "%v", err)
	}
	androidJar, err := a.SDK.PlatformJar(desc.Config.CompileSDKVersion)
	if err != nil {
		return assemblyErrorf(name, "%v", err)
	}

	args := []string{
		"package",
		"-F", unsigned,
		"-M", "AndroidManifest.xml",
		"-S", "res",
		"-I", androidJar,
	}
	if desc.Config.Res != "" {
		args = append(args, "-S", desc.Config.Res)
	}
	if desc.Config.Assets != "" {
		args = append(args, "-A", desc.Config.Assets)
	}

	res, err := a.Invoker.Run(ctx, invoke.Cmd{Path: aapt, Args: args, Dir: desc.StagingDir})
	if err != nil {
		return assemblyErrorf(name, "aapt package: %v", err)
	}
	if res.ExitCode != 0 {
		return assemblyErrorf(name, "aapt package exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}

func (a *Assembler) aaptAdd(ctx context.Context, desc *Descriptor, unsigned, entry string) error {
	name := desc.Config.Artifact.Name

	aapt, err := a.SDK.BuildTool("aapt")
	if err != nil {
		return assemblyErrorf(name, "%v", err)
	}
	res, err := a.Invoker.Run(ctx, invoke.Cmd{
		Path: aapt,
		Args: []string{"add", unsigned, entry},
		Dir:  desc.StagingDir,
	})
	if err != nil {
		return assemblyErrorf(name, "aapt add %s: %v", entry, err)
	}
	if res.ExitCode != 0 {
		return assemblyErrorf(name, "aapt add %s exited %d: %s", entry, res.ExitCode, res.Stderr)
	}
	return nil
}

func (a *Assembler) zipalign(ctx context.Context, desc *Descriptor, unsigned, final string) error {
	name := desc.Config.Artifact.Name

	zipalign, err := a.SDK.BuildTool("zipalign")
	if err != nil {
		return assemblyErrorf(name, "%v", err)
	}
	res, err := a.Invoker.Run(ctx, invoke.Cmd{
		Path: zipalign,
		Args: []string{"-f", "4", unsigned, final},
		Dir:  desc.StagingDir,
	})
	if err != nil {
		return assemblyErrorf(name, "zipalign: %v", err)
	}
	if res.ExitCode != 0 {
		return assemblyErrorf(name, "zipalign exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("flushing %s: %w", dst, err)
	}
	return nil
}
