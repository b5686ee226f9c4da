package compile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"droidpack/internal/invoke"
)

// discoverShared resolves the shared libraries the produced artifact needs
// at load time but the device does not provide. NEEDED entries are read
// with readelf and walked recursively, so a bundled library's own
// dependencies are bundled too. Libraries present in the platform
// directory ship with every device and are skipped; libc++_shared.so is
// the usual survivor. A dependency that cannot be found in the search
// paths is only warned about: the crate may load it through other means.
func (d *Driver) discoverShared(ctx context.Context, in Input, library string) ([]string, error) {
	tc := in.Toolchain

	platform, err := platformLibs(tc.PlatformLibDir)
	if err != nil {
		return nil, err
	}

	profile := "debug"
	if in.Release {
		profile = "release"
	}
	searchPaths := []string{
		tc.LibDir,
		filepath.Join(in.WorkDir, "target", tc.Target.RustTriple(), profile, "deps"),
	}

	queue, err := d.neededLibs(ctx, in, library)
	if err != nil {
		return nil, err
	}

	processed := make(map[string]bool, len(queue))
	var found []string
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if processed[name] || platform[name] {
			continue
		}
		processed[name] = true

		path := findLibrary(searchPaths, name)
		if path == "" {
			if d.Log != nil {
				d.Log.WithField("library", name).Warn("needed shared library not found; not bundling it")
			}
			continue
		}
		found = append(found, path)

		deps, err := d.neededLibs(ctx, in, path)
		if err != nil {
			return nil, err
		}
		queue = append(queue, deps...)
	}
	return found, nil
}

// neededLibs lists the NEEDED entries of one shared library via
// readelf -d.
func (d *Driver) neededLibs(ctx context.Context, in Input, library string) ([]string, error) {
	res, err := d.Invoker.Run(ctx, invoke.Cmd{
		Path: in.Toolchain.Readelf,
		Args: []string{"-d", library},
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

	var libs []string
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if !strings.Contains(line, "(NEEDED)") {
			continue
		}
		_, rest, ok := strings.Cut(line, "Shared library: [")
		if !ok {
			continue
		}
		lib, _, ok := strings.Cut(rest, "]")
		if ok && lib != "" {
			libs = append(libs, lib)
		}
	}
	return libs, nil
}

// platformLibs lists the shared libraries the target platform provides.
func platformLibs(dir string) (map[string]bool, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	libs := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".so") {
			libs[e.Name()] = true
		}
	}
	return libs, nil
}

func findLibrary(paths []string, name string) string {
	for _, dir := range paths {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
	}
	return ""
}
