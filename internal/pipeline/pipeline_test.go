package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"droidpack/internal/abi"
	"droidpack/internal/apk"
	"droidpack/internal/compile"
	"droidpack/internal/config"
	"droidpack/internal/ndk"
)

type fakeLocator struct {
	mu    sync.Mutex
	calls []abi.Target
}

func (f *fakeLocator) Locate(target abi.Target, api uint32, descriptorDir string) (*ndk.Toolchain, error) {
	f.mu.Lock()
	f.calls = append(f.calls, target)
	f.mu.Unlock()
	return &ndk.Toolchain{
		Target:     target,
		API:        api,
		Descriptor: filepath.Join(descriptorDir, fmt.Sprintf("%s-%d.cmake", target, api)),
	}, nil
}

type fakeBuilder struct {
	mu    sync.Mutex
	calls []compile.Input

	// failOn marks (artifact, target) pairs that should fail.
	failOn map[string]error
}

func buildKey(artifact string, target abi.Target) string {
	return artifact + "/" + string(target)
}

func (f *fakeBuilder) Build(ctx context.Context, in compile.Input) (*compile.Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	if err := f.failOn[buildKey(in.Config.Artifact.Name, in.Toolchain.Target)]; err != nil {
		return nil, err
	}
	return &compile.Output{
		Artifact: in.Config.Artifact,
		Target:   *in.Toolchain,
		Library:  filepath.Join("lib", string(in.Toolchain.Target), in.Config.LibraryFileName()),
	}, nil
}

type fakeAssembler struct {
	mu    sync.Mutex
	descs []*apk.Descriptor
}

func (f *fakeAssembler) Assemble(ctx context.Context, desc *apk.Descriptor) (string, error) {
	f.mu.Lock()
	f.descs = append(f.descs, desc)
	f.mu.Unlock()
	return filepath.Join(desc.OutDir, desc.Config.Artifact.Name+".apk"), nil
}

type fakeSigner struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeSigner) Sign(ctx context.Context, apkPath string, key apk.SigningKey) error {
	f.mu.Lock()
	f.paths = append(f.paths, apkPath)
	f.mu.Unlock()
	return nil
}

func testArtifact(name string, kind config.Kind, targets ...abi.Target) *config.Resolved {
	return &config.Resolved{
		Artifact:          config.Artifact{Name: name, Kind: kind},
		CompileSDKVersion: 29,
		TargetSDKVersion:  29,
		MinSDKVersion:     18,
		BuildTargets:      targets,
		PackageName:       "rust." + name,
		Label:             name,
		VersionCode:       1,
		VersionName:       "0.1.0",
		GlEsVersionMajor:  2,
	}
}

func testPipeline(t *testing.T) (*Pipeline, *fakeLocator, *fakeBuilder, *fakeAssembler, *fakeSigner) {
	t.Helper()
	loc := &fakeLocator{}
	builder := &fakeBuilder{failOn: map[string]error{}}
	asm := &fakeAssembler{}
	signer := &fakeSigner{}
	p := &Pipeline{Toolchains: loc, Builder: builder, Assembler: asm, Signer: signer}
	return p, loc, builder, asm, signer
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		WorkDir:  t.TempDir(),
		BuildDir: t.TempDir(),
		Sign:     true,
		Key:      apk.SigningKey{Keystore: "debug.keystore", Password: "android"},
	}
}

func TestRunBuildsEveryTarget(t *testing.T) {
	p, loc, builder, asm, signer := testPipeline(t)
	opts := testOptions(t)

	cfg := testArtifact("game", config.KindPrimary, abi.ArmV7, abi.Arm64)
	report := p.Run(context.Background(), []*config.Resolved{cfg}, opts)

	require.NoError(t, report.FirstErr())
	require.Len(t, report.Results, 1)
	assert.Equal(t, filepath.Join(opts.BuildDir, "apk", "game.apk"), report.Results[0].APK)

	// One toolchain lookup and one compilation per declared architecture.
	assert.Len(t, loc.calls, 2)
	require.Len(t, builder.calls, 2)

	require.Len(t, asm.descs, 1)
	desc := asm.descs[0]
	assert.Len(t, desc.Outputs, 2)
	assert.Equal(t, filepath.Join(opts.BuildDir, "bin", "game"), desc.StagingDir)
	assert.NotEmpty(t, desc.Manifest)

	assert.Equal(t, []string{report.Results[0].APK}, signer.paths)
}

func TestRunSkipsSigningWhenDisabled(t *testing.T) {
	p, _, _, _, signer := testPipeline(t)
	opts := testOptions(t)
	opts.Sign = false

	cfg := testArtifact("game", config.KindPrimary, abi.ArmV7)
	report := p.Run(context.Background(), []*config.Resolved{cfg}, opts)

	require.NoError(t, report.FirstErr())
	assert.Empty(t, signer.paths)
}

func TestRunFailedArchitectureStopsArtifact(t *testing.T) {
	p, _, builder, asm, signer := testPipeline(t)
	opts := testOptions(t)

	boom := &compile.BuildFailure{Artifact: "game", Target: abi.Arm64, ExitCode: 101}
	builder.failOn[buildKey("game", abi.Arm64)] = boom

	cfg := testArtifact("game", config.KindPrimary, abi.ArmV7, abi.Arm64)
	report := p.Run(context.Background(), []*config.Resolved{cfg}, opts)

	var failure *compile.BuildFailure
	require.ErrorAs(t, report.FirstErr(), &failure)
	assert.Equal(t, abi.Arm64, failure.Target)

	// Sibling architectures still ran, but nothing was packaged or signed.
	assert.Len(t, builder.calls, 2)
	assert.Empty(t, asm.descs)
	assert.Empty(t, signer.paths)
	assert.Empty(t, report.Results[0].APK)
}

func TestRunFirstFailureInDeclarationOrder(t *testing.T) {
	p, _, builder, _, _ := testPipeline(t)
	opts := testOptions(t)
	opts.Concurrency = 4

	first := errors.New("armv7 failed")
	second := errors.New("aarch64 failed")
	builder.failOn[buildKey("game", abi.ArmV7)] = first
	builder.failOn[buildKey("game", abi.Arm64)] = second

	cfg := testArtifact("game", config.KindPrimary, abi.ArmV7, abi.Arm64)
	report := p.Run(context.Background(), []*config.Resolved{cfg}, opts)

	assert.ErrorIs(t, report.FirstErr(), first)
}

func TestRunArtifactsAreIndependent(t *testing.T) {
	p, _, builder, asm, signer := testPipeline(t)
	opts := testOptions(t)

	builder.failOn[buildKey("game", abi.ArmV7)] = errors.New("game broke")

	main := testArtifact("game", config.KindPrimary, abi.ArmV7)
	example := testArtifact("demo", config.KindExample, abi.ArmV7)
	report := p.Run(context.Background(), []*config.Resolved{main, example}, opts)

	require.Len(t, report.Results, 2)
	assert.Error(t, report.Results[0].Err)
	require.NoError(t, report.Results[1].Err)

	// The example still went all the way through assembly and signing, in
	// its own subdirectory of the APK tree.
	want := filepath.Join(opts.BuildDir, "apk", "examples", "demo.apk")
	assert.Equal(t, want, report.Results[1].APK)
	require.Len(t, asm.descs, 1)
	assert.Equal(t, filepath.Join(opts.BuildDir, "examples", "demo"), asm.descs[0].StagingDir)
	assert.Equal(t, []string{want}, signer.paths)
}

func TestRunRejectsInvalidManifestBeforeBuilding(t *testing.T) {
	p, loc, builder, _, _ := testPipeline(t)
	opts := testOptions(t)

	cfg := testArtifact("game", config.KindPrimary, abi.ArmV7)
	cfg.PackageName = "no_dots"
	report := p.Run(context.Background(), []*config.Resolved{cfg}, opts)

	assert.Error(t, report.FirstErr())
	assert.Empty(t, loc.calls)
	assert.Empty(t, builder.calls)
}
