package apk

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"droidpack/internal/compile"
	"droidpack/internal/config"
)

// Info is the build metadata written next to the final APK, for tooling
// that wants to know what was packaged without opening the archive.
type Info struct {
	APKFileName string   `yaml:"apkFileName"`
	PackageName string   `yaml:"packageName"`
	VersionInfo VersInfo `yaml:"versionInfo"`
	SDKInfo     SDKInfo  `yaml:"sdkInfo"`
	ABIs        []string `yaml:"abis"`
	Signed      bool     `yaml:"signed"`
}

type VersInfo struct {
	VersionCode uint32 `yaml:"versionCode"`
	VersionName string `yaml:"versionName"`
}

type SDKInfo struct {
	MinSDKVersion    uint32 `yaml:"minSdkVersion"`
	TargetSDKVersion uint32 `yaml:"targetSdkVersion"`
}

// WriteInfo writes the metadata document for a finished package alongside
// it, as <apk>.info.yaml.
func WriteInfo(apkPath string, cfg *config.Resolved, outputs []compile.Output, signed bool) error {
	info := Info{
		APKFileName: filepath.Base(apkPath),
		PackageName: cfg.PackageName,
		VersionInfo: VersInfo{VersionCode: cfg.VersionCode, VersionName: cfg.VersionName},
		SDKInfo:     SDKInfo{MinSDKVersion: cfg.MinSDKVersion, TargetSDKVersion: cfg.TargetSDKVersion},
		Signed:      signed,
	}
	for _, out := range outputs {
		info.ABIs = append(info.ABIs, out.Target.Target.AndroidABI())
	}

	data, err := yaml.Marshal(&info)
	if err != nil {
		return err
	}
	return os.WriteFile(apkPath+".info.yaml", data, 0o644)
}
