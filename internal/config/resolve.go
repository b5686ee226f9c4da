package config

import (
	"strings"

	"droidpack/internal/abi"
)

// ResolveAll resolves the root document into one Resolved configuration per
// artifact: the primary binary first, then each declared override artifact
// in declaration order.
func ResolveAll(root *Root) ([]*Resolved, error) {
	if root == nil {
		return nil, errorf("nil configuration")
	}
	if root.Name == "" {
		return nil, errorf("crate name is required")
	}

	resolved := make([]*Resolved, 0, 1+len(root.Artifacts))

	primary, err := Resolve(root, nil)
	if err != nil {
		return nil, err
	}
	resolved = append(resolved, primary)

	for i := range root.Artifacts {
		ov := &root.Artifacts[i]
		r, err := Resolve(root, ov)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}

	return resolved, nil
}

// Resolve merges the root configuration with zero or one artifact override.
// A nil override resolves the primary binary.
//
// Merge rule, field by field: the override wins when it sets the field,
// otherwise the root value applies, otherwise the documented default.
// PackageName and Label are the exception: a secondary artifact never
// inherits them from the root. Its identifier falls back to PackagePrefix
// plus the underscored artifact name, and its label falls back to the
// artifact's own name.
func Resolve(root *Root, ov *Override) (*Resolved, error) {
	if root == nil {
		return nil, errorf("nil configuration")
	}
	if root.Name == "" {
		return nil, errorf("crate name is required")
	}

	artifact := Artifact{Name: root.Name, Kind: KindPrimary}
	if ov != nil {
		if ov.Name == "" {
			return nil, errorf("artifact override is missing a name")
		}
		kind := ov.Kind
		if kind == "" {
			kind = KindExample
		}
		if kind != KindPrimary && kind != KindExample {
			return nil, errorf("artifact %q: unknown kind %q", ov.Name, kind)
		}
		artifact = Artifact{Name: ov.Name, Kind: kind}
	}
	if ov == nil {
		ov = &Override{}
	}

	r := &Resolved{Artifact: artifact}

	r.CompileSDKVersion = pickU32(ov.CompileSDKVersion, root.CompileSDKVersion, DefaultCompileSDK)
	r.TargetSDKVersion = pickU32(ov.TargetSDKVersion, root.TargetSDKVersion, r.CompileSDKVersion)
	r.MinSDKVersion = pickU32(ov.MinSDKVersion, root.MinSDKVersion, DefaultMinSDK)

	targets, err := resolveTargets(pickList(ov.BuildTargets, root.BuildTargets))
	if err != nil {
		return nil, err
	}
	r.BuildTargets = targets

	// Identity never flows from the root into a secondary artifact.
	if artifact.Kind == KindPrimary {
		r.PackageName = pickStr(ov.PackageName, root.PackageName, PackagePrefix+underscore(artifact.Name))
		r.Label = pickStr(ov.Label, root.Label, artifact.Name)
	} else {
		r.PackageName = pickStr(ov.PackageName, nil, PackagePrefix+underscore(artifact.Name))
		r.Label = pickStr(ov.Label, nil, artifact.Name)
	}

	r.VersionCode = pickU32(ov.VersionCode, root.VersionCode, DefaultVersionCode)
	r.VersionName = pickStr(ov.VersionName, root.VersionName, root.Version)

	r.Res = pickStr(ov.Res, root.Res, "")
	r.Icon = pickStr(ov.Icon, root.Icon, "")
	r.Assets = pickStr(ov.Assets, root.Assets, "")

	r.Fullscreen = pickBool(ov.Fullscreen, root.Fullscreen, false)
	r.GlEsVersionMajor = pickU32(ov.GlEsVersionMajor, root.GlEsVersionMajor, DefaultGlEsMajor)
	r.GlEsVersionMinor = pickU32(ov.GlEsVersionMinor, root.GlEsVersionMinor, DefaultGlEsMinor)

	runtime := CPPRuntime(pickStr(ov.CPPRuntime, root.CPPRuntime, string(CPPRuntimeShared)))
	if runtime != CPPRuntimeShared && runtime != CPPRuntimeStatic {
		return nil, errorf("artifact %q: cpp_runtime must be %q or %q, got %q",
			artifact.Name, CPPRuntimeShared, CPPRuntimeStatic, runtime)
	}
	r.CPPRuntime = runtime

	r.ApplicationAttributes = pickAttrs(ov.ApplicationAttributes, root.ApplicationAttributes)
	r.ActivityAttributes = pickAttrs(ov.ActivityAttributes, root.ActivityAttributes)

	r.Features = pickFeatures(ov.Features, root.Features)
	r.Permissions = pickPermissions(ov.Permissions, root.Permissions)

	return r, nil
}

func resolveTargets(names []string) ([]abi.Target, error) {
	if names == nil {
		out := make([]abi.Target, len(DefaultBuildTargets))
		copy(out, DefaultBuildTargets)
		return out, nil
	}
	if len(names) == 0 {
		return nil, errorf("build_targets must not be empty")
	}

	seen := make(map[abi.Target]bool, len(names))
	out := make([]abi.Target, 0, len(names))
	for _, name := range names {
		t, err := abi.Parse(name)
		if err != nil {
			return nil, errorf("build_targets: %v", err)
		}
		if seen[t] {
			return nil, errorf("build_targets: duplicate target %q", t)
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

func underscore(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func pickU32(ov, root *uint32, def uint32) uint32 {
	if ov != nil {
		return *ov
	}
	if root != nil {
		return *root
	}
	return def
}

func pickStr(ov, root *string, def string) string {
	if ov != nil {
		return *ov
	}
	if root != nil {
		return *root
	}
	return def
}

func pickBool(ov, root *bool, def bool) bool {
	if ov != nil {
		return *ov
	}
	if root != nil {
		return *root
	}
	return def
}

func pickList(ov, root []string) []string {
	if ov != nil {
		return ov
	}
	return root
}

func pickAttrs(ov, root map[string]string) map[string]string {
	src := root
	if ov != nil {
		src = ov
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pickFeatures(ov, root []Feature) []Feature {
	src := root
	if ov != nil {
		src = ov
	}
	out := make([]Feature, len(src))
	copy(out, src)
	return out
}

func pickPermissions(ov, root []Permission) []Permission {
	src := root
	if ov != nil {
		src = ov
	}
	out := make([]Permission, len(src))
	copy(out, src)
	return out
}
