// Package pipeline coordinates the whole build: configuration fan-out to
// per-architecture compilations, the fan-in barrier, manifest generation,
// package assembly and signing.
//
// Artifacts are fully independent: each one runs its own pipeline end to
// end, and one artifact's failure never blocks a sibling. Within an
// artifact, architecture builds run on a bounded worker pool and meet at a
// barrier with one write-once result slot per architecture.
package pipeline

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"droidpack/internal/abi"
	"droidpack/internal/apk"
	"droidpack/internal/compile"
	"droidpack/internal/config"
	"droidpack/internal/manifest"
	"droidpack/internal/ndk"
)

// Builder compiles one (artifact, architecture) pair.
type Builder interface {
	Build(ctx context.Context, in compile.Input) (*compile.Output, error)
}

// Assembler produces the unsigned, aligned package for one artifact.
type Assembler interface {
	Assemble(ctx context.Context, desc *apk.Descriptor) (string, error)
}

// Signer signs a finished package.
type Signer interface {
	Sign(ctx context.Context, apkPath string, key apk.SigningKey) error
}

// ToolchainLocator resolves the cross-toolchain for one architecture.
// ndk.NDK satisfies this; the locator caches descriptors internally, so
// concurrent calls for the same (architecture, API) pair are cheap.
type ToolchainLocator interface {
	Locate(target abi.Target, api uint32, descriptorDir string) (*ndk.Toolchain, error)
}

// Options are the per-invocation knobs.
type Options struct {
	// WorkDir is the crate root.
	WorkDir string

	// BuildDir is the root of the pipeline's own artifact tree
	// (toolchain descriptors, staging trees, final APKs).
	BuildDir string

	Release bool
	Sign    bool
	Key     apk.SigningKey

	// Concurrency bounds the per-architecture worker pool. Zero or
	// negative means host parallelism.
	Concurrency int
}

// Pipeline wires the components together.
type Pipeline struct {
	Toolchains ToolchainLocator
	Builder    Builder
	Assembler  Assembler
	Signer     Signer
	Log        *logrus.Logger
}

// ArtifactResult is the outcome for a single artifact: either the final
// APK path or the first error its pipeline hit.
type ArtifactResult struct {
	Artifact config.Artifact
	APK      string
	Err      error
}

// Report collects per-artifact outcomes in artifact declaration order.
// A multi-artifact build reports every artifact's result rather than a
// single aggregate failure.
type Report struct {
	Results []ArtifactResult
}

// FirstErr returns the first failed artifact's error, or nil if every
// artifact succeeded.
func (r *Report) FirstErr() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// Run executes the pipeline for every resolved artifact. The returned
// report always has one entry per artifact; Run itself only fails on a
// malformed invocation.
func (p *Pipeline) Run(ctx context.Context, artifacts []*config.Resolved, opts Options) *Report {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}

	report := &Report{Results: make([]ArtifactResult, len(artifacts))}

	// One slot per artifact, written exactly once by its own goroutine.
	var g errgroup.Group
	for i, cfg := range artifacts {
		i, cfg := i, cfg
		g.Go(func() error {
			apkPath, err := p.runArtifact(ctx, cfg, opts)
			report.Results[i] = ArtifactResult{Artifact: cfg.Artifact, APK: apkPath, Err: err}
			return nil
		})
	}
	g.Wait()

	return report
}

// runArtifact is the per-artifact pipeline: manifest first (fail fast,
// before any subprocess), then the architecture fan-out, the barrier, and
// packaging.
func (p *Pipeline) runArtifact(ctx context.Context, cfg *config.Resolved, opts Options) (string, error) {
	log := p.log().WithField("artifact", cfg.Artifact.Name)

	manifestBytes, err := manifest.Generate(cfg)
	if err != nil {
		return "", err
	}

	outputs, err := p.buildAll(ctx, cfg, opts)
	if err != nil {
		return "", err
	}

	desc := &apk.Descriptor{
		Config:     cfg,
		Manifest:   manifestBytes,
		Outputs:    outputs,
		StagingDir: stagingDir(opts.BuildDir, cfg.Artifact),
		OutDir:     apkDir(opts.BuildDir, cfg.Artifact),
	}
	apkPath, err := p.Assembler.Assemble(ctx, desc)
	if err != nil {
		return "", err
	}

	if opts.Sign {
		if err := p.Signer.Sign(ctx, apkPath, opts.Key); err != nil {
			return "", err
		}
	}

	if err := apk.WriteInfo(apkPath, cfg, outputs, opts.Sign); err != nil {
		log.WithError(err).Warn("could not write package metadata")
	}

	log.WithField("apk", apkPath).Info("package complete")
	return apkPath, nil
}

// buildAll fans one build task per architecture out onto a bounded pool
// and collects the results at the barrier. Sibling builds are allowed to
// finish when one architecture fails (clearer diagnostics); the first
// failure in declaration order is surfaced.
func (p *Pipeline) buildAll(ctx context.Context, cfg *config.Resolved, opts Options) ([]compile.Output, error) {
	targets := cfg.BuildTargets

	slots := make([]*compile.Output, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			slots[i], errs[i] = p.buildOne(ctx, cfg, target, opts)
			return nil
		})
	}
	g.Wait()

	for i := range targets {
		if errs[i] != nil {
			return nil, errs[i]
		}
	}

	outputs := make([]compile.Output, len(targets))
	for i, out := range slots {
		outputs[i] = *out
	}
	return outputs, nil
}

func (p *Pipeline) buildOne(ctx context.Context, cfg *config.Resolved, target abi.Target, opts Options) (*compile.Output, error) {
	tc, err := p.Toolchains.Locate(target, cfg.MinSDKVersion, filepath.Join(opts.BuildDir, "toolchains"))
	if err != nil {
		return nil, err
	}
	return p.Builder.Build(ctx, compile.Input{
		Config:    cfg,
		Toolchain: tc,
		WorkDir:   opts.WorkDir,
		Release:   opts.Release,
	})
}

func (p *Pipeline) log() *logrus.Logger {
	if p.Log != nil {
		return p.Log
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// stagingDir mirrors the compiler driver's bin/examples split beneath the
// build tree.
func stagingDir(buildDir string, artifact config.Artifact) string {
	kind := "bin"
	if artifact.Kind == config.KindExample {
		kind = "examples"
	}
	return filepath.Join(buildDir, kind, artifact.Name)
}

// apkDir is where final packages land: buildDir/apk, with examples in
// their own subdirectory.
func apkDir(buildDir string, artifact config.Artifact) string {
	dir := filepath.Join(buildDir, "apk")
	if artifact.Kind == config.KindExample {
		dir = filepath.Join(dir, "examples")
	}
	return dir
}
