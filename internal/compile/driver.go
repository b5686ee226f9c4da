// Package compile drives the external compiler for one (artifact,
// architecture) pair: it synthesizes the child environment from the
// resolved toolchain, runs the crate's build step, and captures the
// produced shared library.
package compile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"droidpack/internal/config"
	"droidpack/internal/invoke"
	"droidpack/internal/ndk"
)

// Driver invokes the compiler driver binary (cargo) through an Invoker.
type Driver struct {
	Invoker invoke.Invoker

	// CargoPath is the compiler driver binary. Defaults to "cargo".
	CargoPath string

	// MakePath is the native build tool exposed to child builds
	// (CMAKE_MAKE_PROGRAM), normally the NDK-provided make.
	MakePath string

	Log *logrus.Logger
}

// Input is one build request.
type Input struct {
	Config    *config.Resolved
	Toolchain *ndk.Toolchain

	// WorkDir is the crate root the compiler driver runs in.
	WorkDir string

	Release bool
}

// Output is the produced shared library for one architecture. The bytes
// stay in the compiler's output tree; the assembler copies them into the
// package layout, so the build output remains inspectable afterwards.
type Output struct {
	Artifact config.Artifact
	Target   ndk.Toolchain
	Library  string

	// Shared lists resolved load-time dependencies of Library that the
	// device does not provide (libc++_shared.so for the shared C++
	// runtime). The assembler packages them next to Library.
	Shared []string
}

// Build runs the crate's native build step for in's architecture.
//
// The synthesized environment is an overlay on the child process only:
// compiler, C++ compiler, archiver, C++ runtime selector, the generated
// toolchain descriptor, the generator preference, and the native build
// tool. The orchestrator's own environment is never mutated, which keeps
// concurrent per-architecture builds independent.
func (d *Driver) Build(ctx context.Context, in Input) (*Output, error) {
	cargo := d.CargoPath
	if cargo == "" {
		cargo = "cargo"
	}

	args := []string{"build", "--target", in.Toolchain.Target.RustTriple()}
	if in.Release {
		args = append(args, "--release")
	}
	if in.Config.Artifact.Kind == config.KindExample {
		args = append(args, "--example", in.Config.Artifact.Name)
	}

	env := d.buildEnv(in)

	if d.Log != nil {
		d.Log.WithFields(logrus.Fields{
			"artifact": in.Config.Artifact.Name,
			"target":   in.Toolchain.Target,
		}).Info("compiling")
	}

	res, err := d.Invoker.Run(ctx, invoke.Cmd{
		Path: cargo,
		Args: args,
		Dir:  in.WorkDir,
		Env:  env,
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, &BuildFailure{
			Artifact: in.Config.Artifact.Name,
			Target:   in.Toolchain.Target,
			ExitCode: res.ExitCode,
			Stderr:   string(res.Stderr),
		}
	}

	library := d.libraryPath(in)
	if _, statErr := os.Stat(library); statErr != nil {
		return nil, &ArtifactNotProducedError{
			Artifact: in.Config.Artifact.Name,
			Target:   in.Toolchain.Target,
			Path:     library,
		}
	}

	shared, err := d.discoverShared(ctx, in, library)
	if err != nil {
		return nil, err
	}

	return &Output{
		Artifact: in.Config.Artifact,
		Target:   *in.Toolchain,
		Library:  library,
		Shared:   shared,
	}, nil
}

func (d *Driver) buildEnv(in Input) map[string]string {
	tc := in.Toolchain

	// The C++ runtime is an explicit configuration choice, never inferred
	// from the platform version.
	stdlib := "c++"
	if in.Config.CPPRuntime == config.CPPRuntimeStatic {
		stdlib = "c++_static"
	}

	return map[string]string{
		"CC":                   tc.Clang,
		"CXX":                  tc.ClangXX,
		"AR":                   tc.Ar,
		"CXXSTDLIB":            stdlib,
		"CMAKE_TOOLCHAIN_FILE": tc.Descriptor,
		"CMAKE_GENERATOR":      "Unix Makefiles",
		"CMAKE_MAKE_PROGRAM":   d.MakePath,
	}
}

// libraryPath is where the compiler driver leaves the cdylib for this
// artifact and architecture.
func (d *Driver) libraryPath(in Input) string {
	profile := "debug"
	if in.Release {
		profile = "release"
	}
	dir := filepath.Join(in.WorkDir, "target", in.Toolchain.Target.RustTriple(), profile)
	if in.Config.Artifact.Kind == config.KindExample {
		dir = filepath.Join(dir, "examples")
	}
	return filepath.Join(dir, in.Config.LibraryFileName())
}
