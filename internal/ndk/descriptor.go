package ndk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DescriptorFileName is the name of the generated CMake toolchain file.
const DescriptorFileName = "droidpack.toolchain.cmake"

// descriptorFor writes the CMake toolchain descriptor for tc beneath dir,
// keyed by (architecture, API level). The content is a pure function of the
// toolchain, so concurrent callers may race on the write; last writer wins
// with identical bytes.
func (n *NDK) descriptorFor(tc *Toolchain, dir string) (string, error) {
	key := fmt.Sprintf("%s-%d", tc.Target, tc.API)

	n.mu.Lock()
	if path, ok := n.descriptors[key]; ok {
		n.mu.Unlock()
		return path, nil
	}
	n.mu.Unlock()

	outDir := filepath.Join(dir, key)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating descriptor directory: %w", err)
	}
	path := filepath.Join(outDir, DescriptorFileName)
	if err := os.WriteFile(path, []byte(renderDescriptor(tc)), 0o644); err != nil {
		return "", fmt.Errorf("writing toolchain descriptor: %w", err)
	}

	n.mu.Lock()
	n.descriptors[key] = path
	n.mu.Unlock()

	return path, nil
}

// renderDescriptor emits the toolchain description a downstream CMake build
// needs: target system, architecture, the resolved tools, and find-root
// policy pinned to the sysroot so host libraries can never satisfy a link.
func renderDescriptor(tc *Toolchain) string {
	var b strings.Builder
	set := func(key, value string) {
		fmt.Fprintf(&b, "set(%s %s)\n", key, value)
	}

	set("CMAKE_SYSTEM_NAME", "Android")
	set("CMAKE_SYSTEM_VERSION", fmt.Sprintf("%d", tc.API))
	set("CMAKE_ANDROID_ARCH_ABI", tc.Target.AndroidABI())
	set("CMAKE_C_COMPILER", cmakePath(tc.Clang))
	set("CMAKE_CXX_COMPILER", cmakePath(tc.ClangXX))
	set("CMAKE_AR", cmakePath(tc.Ar))
	set("CMAKE_SYSROOT", cmakePath(tc.Sysroot))
	set("CMAKE_FIND_ROOT_PATH_MODE_PROGRAM", "NEVER")
	set("CMAKE_FIND_ROOT_PATH_MODE_LIBRARY", "ONLY")
	set("CMAKE_FIND_ROOT_PATH_MODE_INCLUDE", "ONLY")
	set("CMAKE_FIND_ROOT_PATH_MODE_PACKAGE", "ONLY")
	return b.String()
}

// cmakePath uses forward slashes even on windows to avoid escaping issues
// inside the generated file.
func cmakePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
