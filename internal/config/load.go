package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is where Load looks for the build configuration inside a
// crate directory.
const DefaultFileName = "Android.toml"

// Load reads and decodes the configuration document at path.
func Load(path string) (*Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorf("reading %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes a configuration document. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func Parse(data []byte) (*Root, error) {
	var root Root
	md, err := toml.Decode(string(data), &root)
	if err != nil {
		return nil, errorf("decoding configuration: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errorf("unknown configuration key %q", undecoded[0].String())
	}
	if root.Name == "" {
		return nil, errorf("crate name is required")
	}
	return &root, nil
}
