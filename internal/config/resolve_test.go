package config

import (
	"reflect"
	"testing"

	"droidpack/internal/abi"
)

func u32(v uint32) *uint32 { return &v }
func str(v string) *string { return &v }

func TestResolveDefaults(t *testing.T) {
	root := &Root{Name: "my-game", Version: "0.3.1"}

	r, err := Resolve(root, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if r.Artifact.Kind != KindPrimary {
		t.Errorf("kind = %q, want primary", r.Artifact.Kind)
	}
	if r.CompileSDKVersion != 29 || r.TargetSDKVersion != 29 || r.MinSDKVersion != 18 {
		t.Errorf("sdk bounds = %d/%d/%d, want 29/29/18",
			r.CompileSDKVersion, r.TargetSDKVersion, r.MinSDKVersion)
	}
	want := []abi.Target{abi.ArmV7, abi.Arm64, abi.X86}
	if !reflect.DeepEqual(r.BuildTargets, want) {
		t.Errorf("build targets = %v, want %v", r.BuildTargets, want)
	}
	if r.PackageName != "rust.my_game" {
		t.Errorf("package name = %q, want rust.my_game", r.PackageName)
	}
	if r.Label != "my-game" {
		t.Errorf("label = %q, want my-game", r.Label)
	}
	if r.VersionCode != 1 {
		t.Errorf("version code = %d, want 1", r.VersionCode)
	}
	if r.VersionName != "0.3.1" {
		t.Errorf("version name = %q, want crate version", r.VersionName)
	}
	if r.GlEsVersionMajor != 2 || r.GlEsVersionMinor != 0 {
		t.Errorf("gles = %d.%d, want 2.0", r.GlEsVersionMajor, r.GlEsVersionMinor)
	}
	if r.CPPRuntime != CPPRuntimeShared {
		t.Errorf("cpp runtime = %q, want shared", r.CPPRuntime)
	}
}

func TestResolveTargetSDKDefaultsToCompileSDK(t *testing.T) {
	root := &Root{Name: "app", CompileSDKVersion: u32(31)}
	r, err := Resolve(root, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.TargetSDKVersion != 31 {
		t.Errorf("target sdk = %d, want 31", r.TargetSDKVersion)
	}
}

func TestResolveOverrideWins(t *testing.T) {
	root := &Root{
		Name:          "app",
		MinSDKVersion: u32(21),
		BuildTargets:  []string{"armv7", "aarch64"},
		VersionCode:   u32(7),
	}
	ov := &Override{
		Name:          "demo",
		MinSDKVersion: u32(24),
		BuildTargets:  []string{"x86_64"},
	}

	r, err := Resolve(root, ov)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.MinSDKVersion != 24 {
		t.Errorf("min sdk = %d, want override value 24", r.MinSDKVersion)
	}
	if !reflect.DeepEqual(r.BuildTargets, []abi.Target{abi.X86_64}) {
		t.Errorf("build targets = %v, want [x86_64]", r.BuildTargets)
	}
	// Unset override fields inherit from the root.
	if r.VersionCode != 7 {
		t.Errorf("version code = %d, want inherited 7", r.VersionCode)
	}
}

// A secondary artifact must never take the root's package identity. Its
// identifier and label come from its own name when not set explicitly.
func TestResolveSecondaryIdentityNeverInherited(t *testing.T) {
	root := &Root{
		Name:        "main-app",
		PackageName: str("com.acme.main"),
		Label:       str("Main App"),
	}
	ov := &Override{Name: "cool-example", Kind: KindExample}

	r, err := Resolve(root, ov)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.PackageName == "com.acme.main" {
		t.Fatal("secondary artifact inherited the root package name")
	}
	if r.PackageName != "rust.cool_example" {
		t.Errorf("package name = %q, want computed rust.cool_example", r.PackageName)
	}
	if r.Label != "cool-example" {
		t.Errorf("label = %q, want artifact name", r.Label)
	}
}

func TestResolveSecondaryExplicitIdentity(t *testing.T) {
	root := &Root{Name: "main-app"}
	ov := &Override{
		Name:        "demo",
		PackageName: str("com.acme.demo"),
		Label:       str("Demo"),
	}
	r, err := Resolve(root, ov)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.PackageName != "com.acme.demo" || r.Label != "Demo" {
		t.Errorf("identity = %q/%q, want explicit values", r.PackageName, r.Label)
	}
}

func TestResolveDeterminism(t *testing.T) {
	root := &Root{
		Name:         "app",
		BuildTargets: []string{"aarch64", "armv7"},
		Permissions: []Permission{
			{Name: "android.permission.INTERNET"},
			{Name: "android.permission.BLUETOOTH", MaxSDKVersion: u32(30)},
		},
		ApplicationAttributes: map[string]string{"android:debuggable": "true"},
	}
	ov := &Override{Name: "demo"}

	a, err := Resolve(root, ov)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, err := Resolve(root, ov)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("resolving the same inputs twice produced different results")
	}
}

func TestResolveEmptyTargetsFails(t *testing.T) {
	root := &Root{Name: "app", BuildTargets: []string{}}
	if _, err := Resolve(root, nil); err == nil {
		t.Fatal("expected error for empty build_targets")
	}
}

func TestResolveDuplicateTargetsFails(t *testing.T) {
	root := &Root{Name: "app", BuildTargets: []string{"armv7", "armv7-linux-androideabi"}}
	if _, err := Resolve(root, nil); err == nil {
		t.Fatal("expected error for duplicate targets")
	}
}

func TestResolveMissingArtifactNameFails(t *testing.T) {
	root := &Root{Name: "app"}
	if _, err := Resolve(root, &Override{}); err == nil {
		t.Fatal("expected error for missing artifact name")
	}
}

func TestResolveAllOrder(t *testing.T) {
	root := &Root{
		Name: "app",
		Artifacts: []Override{
			{Name: "beta"},
			{Name: "alpha"},
		},
	}
	all, err := ResolveAll(root)
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("resolved %d artifacts, want 3", len(all))
	}
	if all[0].Artifact.Name != "app" || all[0].Artifact.Kind != KindPrimary {
		t.Errorf("first artifact = %+v, want primary", all[0].Artifact)
	}
	// Declaration order, not sorted.
	if all[1].Artifact.Name != "beta" || all[2].Artifact.Name != "alpha" {
		t.Errorf("override order = %q, %q", all[1].Artifact.Name, all[2].Artifact.Name)
	}
}

func TestLibraryFileName(t *testing.T) {
	r := &Resolved{Artifact: Artifact{Name: "my-game"}}
	if got := r.LibraryFileName(); got != "libmy_game.so" {
		t.Errorf("LibraryFileName() = %q", got)
	}
	if got := r.LibName(); got != "my_game" {
		t.Errorf("LibName() = %q", got)
	}
}
