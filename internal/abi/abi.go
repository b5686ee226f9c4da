// Package abi enumerates the Android target architectures the pipeline can
// cross-compile for and the various names each one goes by: the rust target
// triple handed to the compiler driver, the NDK's clang triple, the ABI
// directory name used inside the APK, and the short name used in
// configuration files.
package abi

import "fmt"

// Target identifies one Android CPU/ABI combination.
type Target string

const (
	ArmV7  Target = "armv7"
	Arm64  Target = "aarch64"
	X86    Target = "i686"
	X86_64 Target = "x86_64"
)

type names struct {
	rustTriple    string
	llvmTriple    string
	androidABI    string
	clangArch     string
	sysrootTriple string
}

var targetNames = map[Target]names{
	ArmV7:  {"armv7-linux-androideabi", "armv7a-linux-androideabi", "armeabi-v7a", "arm", "arm-linux-androideabi"},
	Arm64:  {"aarch64-linux-android", "aarch64-linux-android", "arm64-v8a", "aarch64", "aarch64-linux-android"},
	X86:    {"i686-linux-android", "i686-linux-android", "x86", "i386", "i686-linux-android"},
	X86_64: {"x86_64-linux-android", "x86_64-linux-android", "x86_64", "x86_64", "x86_64-linux-android"},
}

// Parse accepts either a short target name ("armv7") or its full rust triple
// ("armv7-linux-androideabi").
func Parse(s string) (Target, error) {
	for t, n := range targetNames {
		if s == string(t) || s == n.rustTriple {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown build target %q", s)
}

// RustTriple is the target triple passed to the compiler driver.
func (t Target) RustTriple() string { return targetNames[t].rustTriple }

// LLVMTriple is the triple prefixed to the NDK's versioned clang wrappers.
func (t Target) LLVMTriple() string { return targetNames[t].llvmTriple }

// AndroidABI is the lib/<abi> directory name inside the APK.
func (t Target) AndroidABI() string { return targetNames[t].androidABI }

// ClangArch is the architecture directory used by the clang runtime layout.
func (t Target) ClangArch() string { return targetNames[t].clangArch }

// SysrootTriple is the per-architecture library directory name under the
// NDK sysroot (usr/lib/<triple>). Differs from LLVMTriple for 32-bit ARM.
func (t Target) SysrootTriple() string { return targetNames[t].sysrootTriple }

func (t Target) String() string { return string(t) }
