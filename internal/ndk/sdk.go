package ndk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SDK locates tools inside an Android SDK installation.
type SDK struct {
	Root              string
	BuildToolsVersion string
}

// FindSDK discovers the SDK root from ANDROID_SDK_ROOT or ANDROID_HOME.
// When buildToolsVersion is empty the newest installed build-tools
// directory is used.
func FindSDK(buildToolsVersion string) (*SDK, error) {
	root := os.Getenv("ANDROID_SDK_ROOT")
	if root == "" {
		root = os.Getenv("ANDROID_HOME")
	}
	if root == "" {
		return nil, &NotFoundError{Tool: "Android SDK (set ANDROID_SDK_ROOT or ANDROID_HOME)"}
	}
	return NewSDK(root, buildToolsVersion)
}

// NewSDK validates an explicit SDK root.
func NewSDK(root, buildToolsVersion string) (*SDK, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, &NotFoundError{Tool: "Android SDK", Path: root}
	}
	if buildToolsVersion == "" {
		v, err := newestBuildTools(root)
		if err != nil {
			return nil, err
		}
		buildToolsVersion = v
	}
	sdk := &SDK{Root: root, BuildToolsVersion: buildToolsVersion}
	if _, err := os.Stat(sdk.buildToolsDir()); err != nil {
		return nil, &NotFoundError{Tool: "build-tools " + buildToolsVersion, Path: sdk.buildToolsDir()}
	}
	return sdk, nil
}

func (s *SDK) buildToolsDir() string {
	return filepath.Join(s.Root, "build-tools", s.BuildToolsVersion)
}

// BuildTool resolves a binary inside the configured build-tools directory.
func (s *SDK) BuildTool(name string) (string, error) {
	path := filepath.Join(s.buildToolsDir(), name)
	if _, err := os.Stat(path); err != nil {
		return "", &NotFoundError{Tool: name, Path: path}
	}
	return path, nil
}

// PlatformJar is the android.jar for the given compile API level, needed by
// aapt to link framework resources.
func (s *SDK) PlatformJar(api uint32) (string, error) {
	path := filepath.Join(s.Root, "platforms", fmt.Sprintf("android-%d", api), "android.jar")
	if _, err := os.Stat(path); err != nil {
		return "", &NotFoundError{Tool: fmt.Sprintf("android.jar for API %d", api), Path: path}
	}
	return path, nil
}

// ADB is the platform-tools adb binary.
func (s *SDK) ADB() string {
	return filepath.Join(s.Root, "platform-tools", "adb")
}

func newestBuildTools(root string) (string, error) {
	dir := filepath.Join(root, "build-tools")
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return "", &NotFoundError{Tool: "build-tools", Path: dir}
	}
	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	if len(versions) == 0 {
		return "", &NotFoundError{Tool: "build-tools", Path: dir}
	}
	sort.Strings(versions)
	return versions[len(versions)-1], nil
}
