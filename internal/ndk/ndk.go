// Package ndk resolves the Android cross-toolchain: per-architecture clang
// wrappers, archiver, sysroot, and the generated CMake toolchain descriptor
// that downstream native build systems consume.
package ndk

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"droidpack/internal/abi"
)

// Toolchain is the fully resolved cross-toolchain for one (architecture,
// API level) pair. Immutable once resolved; artifacts building for the same
// architecture share it.
type Toolchain struct {
	Target abi.Target
	API    uint32

	Clang      string
	ClangXX    string
	Ar         string
	Readelf    string
	Sysroot    string
	Descriptor string // generated CMake toolchain file

	// LibDir is the version-independent sysroot library directory
	// (usr/lib/<triple>), where libc++_shared.so lives.
	LibDir string

	// PlatformLibDir is the API-level subdirectory of LibDir. Libraries in
	// it ship with the device and are never bundled into a package.
	PlatformLibDir string
}

// NDK locates tools inside an Android NDK installation and caches generated
// toolchain descriptors.
type NDK struct {
	Root string

	mu          sync.Mutex
	descriptors map[string]string // (target, api) -> descriptor path
}

// FindNDK discovers the NDK root from ANDROID_NDK_ROOT or NDK_HOME.
func FindNDK() (*NDK, error) {
	root := os.Getenv("ANDROID_NDK_ROOT")
	if root == "" {
		root = os.Getenv("NDK_HOME")
	}
	if root == "" {
		return nil, &NotFoundError{Tool: "Android NDK (set ANDROID_NDK_ROOT or NDK_HOME)"}
	}
	return NewNDK(root)
}

// NewNDK validates an explicit NDK root.
func NewNDK(root string) (*NDK, error) {
	n := &NDK{Root: root, descriptors: make(map[string]string)}
	if _, err := os.Stat(n.LLVMToolchainRoot()); err != nil {
		return nil, &NotFoundError{Tool: "LLVM toolchain", Path: n.LLVMToolchainRoot()}
	}
	return n, nil
}

// LLVMToolchainRoot is the prebuilt LLVM toolchain directory for the host.
func (n *NDK) LLVMToolchainRoot() string {
	return filepath.Join(n.Root, "toolchains", "llvm", "prebuilt", hostTag())
}

// MakePath is the NDK-provided make binary, exposed to child builds as the
// native build tool.
func (n *NDK) MakePath() string {
	return filepath.Join(n.Root, "prebuilt", hostTag(), "bin", "make")
}

// Locate resolves the toolchain for one architecture at the given API level
// and writes its descriptor beneath descriptorDir. Safe for concurrent
// callers; the descriptor for a given (architecture, API) pair is written
// once and reused.
func (n *NDK) Locate(target abi.Target, api uint32, descriptorDir string) (*Toolchain, error) {
	bin := filepath.Join(n.LLVMToolchainRoot(), "bin")

	clang, err := n.findVersionedTool(bin, target, api, "clang")
	if err != nil {
		return nil, err
	}
	clangxx, err := n.findVersionedTool(bin, target, api, "clang++")
	if err != nil {
		return nil, err
	}

	// NDK r23 dropped the per-triple binutils names.
	ar := filepath.Join(bin, "llvm-ar")
	if _, err := os.Stat(ar); err != nil {
		return nil, &NotFoundError{Tool: "llvm-ar", Path: ar}
	}
	readelf := filepath.Join(bin, "llvm-readelf")
	if _, err := os.Stat(readelf); err != nil {
		return nil, &NotFoundError{Tool: "llvm-readelf", Path: readelf}
	}

	sysroot := filepath.Join(n.LLVMToolchainRoot(), "sysroot")
	if _, err := os.Stat(sysroot); err != nil {
		return nil, &NotFoundError{Tool: "sysroot", Path: sysroot}
	}

	libDir := filepath.Join(sysroot, "usr", "lib", target.SysrootTriple())
	if _, err := os.Stat(libDir); err != nil {
		return nil, &NotFoundError{Tool: "sysroot libraries for " + string(target), Path: libDir}
	}
	platformLibDir, err := n.findVersionedDir(libDir, target, api)
	if err != nil {
		return nil, err
	}

	tc := &Toolchain{
		Target:         target,
		API:            api,
		Clang:          clang,
		ClangXX:        clangxx,
		Ar:             ar,
		Readelf:        readelf,
		Sysroot:        sysroot,
		LibDir:         libDir,
		PlatformLibDir: platformLibDir,
	}

	descriptor, err := n.descriptorFor(tc, descriptorDir)
	if err != nil {
		return nil, err
	}
	tc.Descriptor = descriptor

	return tc, nil
}

// findVersionedTool probes for <llvmtriple><api>-<tool>, walking the API
// level downwards and then upwards, the same way ndk-build picks a platform
// when the exact level has no entry of its own.
func (n *NDK) findVersionedTool(bin string, target abi.Target, api uint32, tool string) (string, error) {
	name := func(level uint32) string {
		return filepath.Join(bin, fmt.Sprintf("%s%d-%s", target.LLVMTriple(), level, tool))
	}

	for level := api; level > 1; level-- {
		if path := name(level); exists(path) {
			return path, nil
		}
	}
	for level := api + 1; level < 100; level++ {
		if path := name(level); exists(path) {
			return path, nil
		}
	}
	return "", &NotFoundError{Tool: tool + " for " + string(target), Path: name(api)}
}

// findVersionedDir probes for base/<api>, with the same downward-then-
// upward walk as the versioned tool lookup.
func (n *NDK) findVersionedDir(base string, target abi.Target, api uint32) (string, error) {
	for level := api; level > 1; level-- {
		if path := filepath.Join(base, fmt.Sprintf("%d", level)); exists(path) {
			return path, nil
		}
	}
	for level := api + 1; level < 100; level++ {
		if path := filepath.Join(base, fmt.Sprintf("%d", level)); exists(path) {
			return path, nil
		}
	}
	return "", &NotFoundError{
		Tool: fmt.Sprintf("platform libraries for %s API %d", target, api),
		Path: base,
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hostTag() string {
	switch runtime.GOOS {
	case "darwin":
		return "darwin-x86_64"
	case "windows":
		return "windows-x86_64"
	default:
		return "linux-x86_64"
	}
}
