// Package config turns the raw build-option surface into a single
// validated, immutable Build value that every later pipeline stage
// consumes. Resolution is the only place option business logic lives.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".aarforge.yml"

// libraryBaseName is the distributable's base name; the build type is
// appended as a suffix for everything except the full build.
const libraryBaseName = "nnstreamer"

// BuildType selects which part of the framework goes into the bundle.
type BuildType string

const (
	BuildTypeAll      BuildType = "all"
	BuildTypeLite     BuildType = "lite"
	BuildTypeSingle   BuildType = "single"
	BuildTypeInternal BuildType = "internal"
)

// APIOption is derived from the build type and controls which API
// surface the patched descriptors expose.
type APIOption string

const (
	APIOptionAll    APIOption = "all"
	APIOptionLite   APIOption = "lite"
	APIOptionSingle APIOption = "single"
)

// ABI is an Android target ABI string as gradle spells it.
type ABI string

const (
	ABIArm32 ABI = "armeabi-v7a"
	ABIArm64 ABI = "arm64-v8a"
	ABIX86   ABI = "x86"
	ABIX8664 ABI = "x86_64"
)

// Release holds the publishing request. Present only when publishing
// was asked for; all three fields are then required.
type Release struct {
	Version  string
	UserName string
	UserKey  string
}

// Build is the resolved build configuration. It is created once by
// Resolver.Resolve and never mutated afterwards.
type Build struct {
	BuildType     BuildType
	APIOption     APIOption
	TargetABI     ABI
	IncludeAssets bool
	RunTest       bool
	EnableSNAP    bool
	EnableTFLite  bool
	TFLiteVersion string
	SNAPDirectory string
	Release       *Release
	SourceDir     string
	ResultDir     string
	LibraryName   string
}

// Error is a configuration rejection: the offending option, the value
// that was supplied, and why it was refused.
type Error struct {
	Option string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config: %s: %s", e.Option, e.Reason)
	}
	return fmt.Sprintf("config: %s=%q: %s", e.Option, e.Value, e.Reason)
}

// FileConfig is the optional .aarforge.yml config file. Keys mirror the
// flag surface; flags always win over file values.
type FileConfig struct {
	BuildType       string `yaml:"build_type"`
	TargetABI       string `yaml:"target_abi"`
	Release         string `yaml:"release"`
	ReleaseVersion  string `yaml:"release_version"`
	BintrayUserName string `yaml:"bintray_user_name"`
	BintrayUserKey  string `yaml:"bintray_user_key"`
	RunTest         string `yaml:"run_test"`
	NNStreamerDir   string `yaml:"nnstreamer_dir"`
	ResultDir       string `yaml:"result_dir"`
	EnableSNAP      string `yaml:"enable_snap"`
	EnableTFLite    string `yaml:"enable_tflite"`
}

// LoadFile reads the optional config file. A missing file is not an
// error; it just contributes nothing.
func LoadFile(path string) (*FileConfig, error) {
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, err
	}

	fc := &FileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

// Merge fills keys absent from raw with the file's values, so callers
// can treat the result as a single flat option mapping.
func (fc *FileConfig) Merge(raw map[string]string) map[string]string {
	merged := make(map[string]string, len(raw)+11)
	for k, v := range raw {
		merged[k] = v
	}

	fill := func(key, val string) {
		if _, ok := merged[key]; !ok && val != "" {
			merged[key] = val
		}
	}
	fill("build_type", fc.BuildType)
	fill("target_abi", fc.TargetABI)
	fill("release", fc.Release)
	fill("release_version", fc.ReleaseVersion)
	fill("bintray_user_name", fc.BintrayUserName)
	fill("bintray_user_key", fc.BintrayUserKey)
	fill("run_test", fc.RunTest)
	fill("nnstreamer_dir", fc.NNStreamerDir)
	fill("result_dir", fc.ResultDir)
	fill("enable_snap", fc.EnableSNAP)
	fill("enable_tflite", fc.EnableTFLite)
	return merged
}
