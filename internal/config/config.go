// Package config holds the layered Android build configuration: root
// defaults, per-artifact overrides, and the pure resolution step that merges
// them into one concrete configuration per buildable artifact.
package config

import "droidpack/internal/abi"

// Defaults applied by Resolve when neither the root document nor an artifact
// override specifies a value.
const (
	DefaultCompileSDK  uint32 = 29
	DefaultMinSDK      uint32 = 18
	DefaultVersionCode uint32 = 1
	DefaultGlEsMajor   uint32 = 2
	DefaultGlEsMinor   uint32 = 0

	// PackagePrefix is prepended to an artifact's underscored name when a
	// secondary artifact does not declare its own package identifier.
	PackagePrefix = "rust."
)

// DefaultBuildTargets is the architecture set used when build_targets is
// absent. Order is build order.
var DefaultBuildTargets = []abi.Target{abi.ArmV7, abi.Arm64, abi.X86}

// Kind distinguishes the primary binary from example artifacts.
type Kind string

const (
	KindPrimary Kind = "primary-binary"
	KindExample Kind = "example"
)

// Artifact identifies one buildable unit. Each artifact produces one APK.
type Artifact struct {
	Name string
	Kind Kind
}

// CPPRuntime selects how the C++ standard library is linked into native
// dependencies. The choice is always explicit configuration; it is never
// inferred from the platform API level.
type CPPRuntime string

const (
	CPPRuntimeShared CPPRuntime = "shared"
	CPPRuntimeStatic CPPRuntime = "static"
)

// Feature is one uses-feature declaration. Order of declaration is
// preserved through to the generated manifest.
type Feature struct {
	Name     string  `toml:"name"`
	Version  *string `toml:"version"`
	Required *bool   `toml:"required"`
}

// Permission is one uses-permission declaration with an optional
// maxSdkVersion bound.
type Permission struct {
	Name          string  `toml:"name"`
	MaxSDKVersion *uint32 `toml:"max_sdk_version"`
}

// Root is the top-level configuration document. Optional fields are
// pointers so Resolve can tell "absent" from "zero".
type Root struct {
	// Name and Version identify the crate being built. Name doubles as the
	// primary artifact's name.
	Name    string `toml:"name"`
	Version string `toml:"version"`

	CompileSDKVersion *uint32  `toml:"compile_sdk_version"`
	TargetSDKVersion  *uint32  `toml:"target_sdk_version"`
	MinSDKVersion     *uint32  `toml:"min_sdk_version"`
	BuildTargets      []string `toml:"build_targets"`

	PackageName *string `toml:"package_name"`
	Label       *string `toml:"label"`
	VersionCode *uint32 `toml:"version_code"`
	VersionName *string `toml:"version_name"`

	Res    *string `toml:"res"`
	Icon   *string `toml:"icon"`
	Assets *string `toml:"assets"`

	Fullscreen       *bool   `toml:"fullscreen"`
	GlEsVersionMajor *uint32 `toml:"opengles_version_major"`
	GlEsVersionMinor *uint32 `toml:"opengles_version_minor"`

	CPPRuntime *string `toml:"cpp_runtime"`

	BuildToolsVersion string `toml:"build_tools_version"`

	ApplicationAttributes map[string]string `toml:"application_attributes"`
	ActivityAttributes    map[string]string `toml:"activity_attributes"`

	Features    []Feature    `toml:"feature"`
	Permissions []Permission `toml:"permission"`

	Artifacts []Override `toml:"artifact"`
}

// Override carries per-artifact values. Every field is optional; unset
// fields inherit from Root, except PackageName and Label which are never
// inherited (see Resolve).
type Override struct {
	Name string `toml:"name"`
	Kind Kind   `toml:"kind"`

	CompileSDKVersion *uint32  `toml:"compile_sdk_version"`
	TargetSDKVersion  *uint32  `toml:"target_sdk_version"`
	MinSDKVersion     *uint32  `toml:"min_sdk_version"`
	BuildTargets      []string `toml:"build_targets"`

	PackageName *string `toml:"package_name"`
	Label       *string `toml:"label"`
	VersionCode *uint32 `toml:"version_code"`
	VersionName *string `toml:"version_name"`

	Res    *string `toml:"res"`
	Icon   *string `toml:"icon"`
	Assets *string `toml:"assets"`

	Fullscreen       *bool   `toml:"fullscreen"`
	GlEsVersionMajor *uint32 `toml:"opengles_version_major"`
	GlEsVersionMinor *uint32 `toml:"opengles_version_minor"`

	CPPRuntime *string `toml:"cpp_runtime"`

	ApplicationAttributes map[string]string `toml:"application_attributes"`
	ActivityAttributes    map[string]string `toml:"activity_attributes"`

	Features    []Feature    `toml:"feature"`
	Permissions []Permission `toml:"permission"`
}

// Resolved is the fully concrete configuration for one artifact. All
// optional fields have been filled with overrides, root values, or
// documented defaults.
type Resolved struct {
	Artifact Artifact

	CompileSDKVersion uint32
	TargetSDKVersion  uint32
	MinSDKVersion     uint32
	BuildTargets      []abi.Target

	PackageName string
	Label       string
	VersionCode uint32
	VersionName string

	Res    string
	Icon   string
	Assets string

	Fullscreen       bool
	GlEsVersionMajor uint32
	GlEsVersionMinor uint32

	CPPRuntime CPPRuntime

	ApplicationAttributes map[string]string
	ActivityAttributes    map[string]string

	Features    []Feature
	Permissions []Permission
}

// LibraryFileName is the load name of the artifact's shared library inside
// the APK.
func (r *Resolved) LibraryFileName() string {
	return "lib" + underscore(r.Artifact.Name) + ".so"
}

// LibName is the value of the android.app.lib_name meta-data entry the OS
// loader uses to locate the native library.
func (r *Resolved) LibName() string {
	return underscore(r.Artifact.Name)
}
