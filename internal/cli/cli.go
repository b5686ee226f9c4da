// Package cli is the command surface: it parses flags, loads the crate
// configuration, discovers the SDK and NDK, and hands the resolved
// artifacts to the pipeline.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"droidpack/internal/apk"
	"droidpack/internal/compile"
	"droidpack/internal/config"
	"droidpack/internal/device"
	"droidpack/internal/invoke"
	"droidpack/internal/ndk"
	"droidpack/internal/pipeline"
)

// Exit codes. Usage and configuration mistakes are distinguished from
// build failures so callers can script around them.
const (
	ExitOK          = 0
	ExitBuildFailed = 1
	ExitUsage       = 2
)

type options struct {
	manifestPath string
	artifact     string
	jobs         int
	release      bool
	nosign       bool
	nostrip      bool
	verbose      bool
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	root := newRootCmd(log)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error(err)
		if errors.Is(err, config.ErrConfig) {
			return ExitUsage
		}
		return ExitBuildFailed
	}
	return ExitOK
}

func newRootCmd(log *logrus.Logger) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "droidpack",
		Short:         "Build, sign and deploy Android packages from native crates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.manifestPath, "manifest-path", config.DefaultFileName, "path to the crate configuration (file or directory)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	addBuildFlags := func(cmd *cobra.Command) {
		f := cmd.Flags()
		f.BoolVar(&opts.release, "release", false, "build with optimizations")
		f.BoolVar(&opts.nosign, "nosign", false, "leave the aligned package unsigned")
		f.BoolVar(&opts.nostrip, "nostrip", false, "keep debug symbols in release builds")
		f.IntVar(&opts.jobs, "jobs", 0, "concurrent per-architecture builds (default: number of CPUs)")
		f.StringVar(&opts.artifact, "artifact", "", "build only the named artifact")
	}

	build := &cobra.Command{
		Use:   "build",
		Short: "Build APKs for every configured artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(log, opts)
			if err != nil {
				return err
			}
			_, err = s.build(cmd.Context())
			return err
		},
	}
	addBuildFlags(build)

	install := &cobra.Command{
		Use:   "install",
		Short: "Build and install onto the connected device",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(log, opts)
			if err != nil {
				return err
			}
			report, err := s.build(cmd.Context())
			if err != nil {
				return err
			}
			return s.install(cmd.Context(), report)
		},
	}
	addBuildFlags(install)

	run := &cobra.Command{
		Use:   "run",
		Short: "Build, install, launch, and tail the device log",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(log, opts)
			if err != nil {
				return err
			}
			return s.run(cmd.Context())
		},
	}
	addBuildFlags(run)

	logcat := &cobra.Command{
		Use:   "logcat",
		Short: "Tail the device log of the running package",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(log, opts)
			if err != nil {
				return err
			}
			return s.deviceRunner().Logcat(cmd.Context(), os.Stdout)
		},
	}

	root.AddCommand(build, install, run, logcat)
	return root
}

// session is one command invocation's wiring: configuration, toolchain
// roots, and the assembled pipeline components.
type session struct {
	log  *logrus.Logger
	opts *options

	crateDir  string
	artifacts []*config.Resolved

	invoker invoke.Invoker
	sdk     *ndk.SDK
	ndk     *ndk.NDK
}

func newSession(log *logrus.Logger, opts *options) (*session, error) {
	manifestPath := opts.manifestPath
	if fi, err := os.Stat(manifestPath); err == nil && fi.IsDir() {
		manifestPath = filepath.Join(manifestPath, config.DefaultFileName)
	}
	crateDir, err := filepath.Abs(filepath.Dir(manifestPath))
	if err != nil {
		return nil, err
	}

	root, err := config.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	artifacts, err := config.ResolveAll(root)
	if err != nil {
		return nil, err
	}
	artifacts, err = selectArtifacts(artifacts, opts.artifact)
	if err != nil {
		return nil, err
	}
	absolutizeAssets(artifacts, crateDir)

	sdk, err := ndk.FindSDK("")
	if err != nil {
		return nil, err
	}
	n, err := ndk.FindNDK()
	if err != nil {
		return nil, err
	}

	return &session{
		log:       log,
		opts:      opts,
		crateDir:  crateDir,
		artifacts: artifacts,
		invoker:   invoke.Process{},
		sdk:       sdk,
		ndk:       n,
	}, nil
}

// selectArtifacts narrows the resolved set to one named artifact, or keeps
// the full set when no name is given.
func selectArtifacts(artifacts []*config.Resolved, name string) ([]*config.Resolved, error) {
	if name == "" {
		return artifacts, nil
	}
	for _, a := range artifacts {
		if a.Artifact.Name == name {
			return []*config.Resolved{a}, nil
		}
	}
	return nil, fmt.Errorf("%w: no artifact named %q", config.ErrConfig, name)
}

// absolutizeAssets anchors relative resource paths at the crate directory
// so the packaging tools see them regardless of each tool's working
// directory. Icon stays untouched: it is a resource reference like
// "@drawable/icon" rendered verbatim into the manifest, not a path.
func absolutizeAssets(artifacts []*config.Resolved, crateDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(crateDir, p)
	}
	for _, a := range artifacts {
		a.Res = abs(a.Res)
		a.Assets = abs(a.Assets)
	}
}

func (s *session) buildDir() string {
	profile := "debug"
	if s.opts.release {
		profile = "release"
	}
	return filepath.Join(s.crateDir, "target", "android-artifacts", profile)
}

func (s *session) build(ctx context.Context) (*pipeline.Report, error) {
	if s.opts.nostrip {
		s.log.Debug("symbol stripping is not performed; --nostrip has no effect")
	}

	p := &pipeline.Pipeline{
		Toolchains: s.ndk,
		Builder: &compile.Driver{
			Invoker:  s.invoker,
			MakePath: s.ndk.MakePath(),
			Log:      s.log,
		},
		Assembler: &apk.Assembler{Invoker: s.invoker, SDK: s.sdk, Log: s.log},
		Signer:    &apk.Signer{Invoker: s.invoker, SDK: s.sdk, Log: s.log},
		Log:       s.log,
	}

	opts := pipeline.Options{
		WorkDir:     s.crateDir,
		BuildDir:    s.buildDir(),
		Release:     s.opts.release,
		Sign:        !s.opts.nosign,
		Concurrency: s.opts.jobs,
	}
	if opts.Sign {
		key, err := apk.DebugKey(ctx, s.invoker)
		if err != nil {
			return nil, err
		}
		opts.Key = key
	}

	report := p.Run(ctx, s.artifacts, opts)
	for _, res := range report.Results {
		if res.Err != nil {
			s.log.WithField("artifact", res.Artifact.Name).Error(res.Err)
		}
	}
	return report, report.FirstErr()
}

func (s *session) deviceRunner() *device.Runner {
	return &device.Runner{Invoker: s.invoker, SDK: s.sdk, Log: s.log}
}

func (s *session) install(ctx context.Context, report *pipeline.Report) error {
	dev := s.deviceRunner()
	for _, res := range report.Results {
		if err := dev.Install(ctx, res.APK); err != nil {
			return err
		}
	}
	return nil
}

// run deploys a single artifact and tails its log. With multiple
// artifacts configured the target must be named explicitly.
func (s *session) run(ctx context.Context) error {
	if len(s.artifacts) != 1 {
		return fmt.Errorf("%w: crate has %d artifacts; pick one with --artifact",
			config.ErrConfig, len(s.artifacts))
	}

	report, err := s.build(ctx)
	if err != nil {
		return err
	}
	if err := s.install(ctx, report); err != nil {
		return err
	}

	dev := s.deviceRunner()
	if err := dev.Launch(ctx, s.artifacts[0].PackageName); err != nil {
		return err
	}
	return dev.Logcat(ctx, os.Stdout)
}
