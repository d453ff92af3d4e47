package config

import (
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Resolver resolves a flat option mapping into a Build. The lookups are
// injectable so resolution stays a pure function of its inputs in tests.
type Resolver struct {
	// Getenv supplies environment inputs (SNAP_DIRECTORY,
	// NNSTREAMER_ROOT). Defaults to a no-op lookup when nil.
	Getenv func(string) string

	// Catalog resolves the tf-lite prebuilt version from the project's
	// gradle version catalog. Optional; the built-in constant is used
	// when nil or when the catalog has no entry.
	Catalog func(sourceDir string) (string, bool)
}

// Resolve parses raw flag=value options, applies defaults, the internal
// force-override, and the invariant checklist, in that order. Unknown
// keys are ignored for forward compatibility. It either returns a fully
// populated Build or a *Error naming the first violated invariant.
func (r *Resolver) Resolve(raw map[string]string) (*Build, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	// Defaults.
	buildType := string(BuildTypeAll)
	targetABI := string(ABIArm64)
	includeAssets := false
	runTest := false
	enableSNAP := true
	enableTFLite := true
	releaseWanted := false

	// Overrides from raw options.
	if v, ok := raw["build_type"]; ok {
		buildType = v
	}
	if v, ok := raw["target_abi"]; ok {
		targetABI = v
	}
	var err error
	if includeAssets, err = boolOption(raw, "include_assets", includeAssets); err != nil {
		return nil, err
	}
	if runTest, err = boolOption(raw, "run_test", runTest); err != nil {
		return nil, err
	}
	if enableSNAP, err = boolOption(raw, "enable_snap", enableSNAP); err != nil {
		return nil, err
	}
	if enableTFLite, err = boolOption(raw, "enable_tflite", enableTFLite); err != nil {
		return nil, err
	}
	if releaseWanted, err = boolOption(raw, "release", releaseWanted); err != nil {
		return nil, err
	}

	sourceDir := raw["nnstreamer_dir"]
	if sourceDir == "" {
		sourceDir = getenv("NNSTREAMER_ROOT")
	}
	snapDir := getenv("SNAP_DIRECTORY")

	// The internal build is fully pinned: it force-overrides any
	// conflicting explicit input, so it is applied after all overrides.
	if buildType == string(BuildTypeInternal) {
		enableSNAP = false
		enableTFLite = false
		targetABI = string(ABIArm64)
	}

	// Invariant checklist, fail fast on the first violation.

	// 1. Only two ABIs are accepted as input today.
	if targetABI != string(ABIArm32) && targetABI != string(ABIArm64) {
		return nil, &Error{Option: "target_abi", Value: targetABI,
			Reason: "must be one of armeabi-v7a, arm64-v8a"}
	}

	// 2. SNAP needs its resource directory and is arm64-only.
	if enableSNAP {
		if snapDir == "" {
			return nil, &Error{Option: "enable_snap",
				Reason: "SNAP_DIRECTORY must be set when the SNAP plugin is enabled"}
		}
		if targetABI != string(ABIArm64) {
			return nil, &Error{Option: "enable_snap", Value: targetABI,
				Reason: "the SNAP plugin requires target_abi=arm64-v8a"}
		}
	}

	// 3. Publishing needs the version and both credentials.
	var release *Release
	if releaseWanted {
		release = &Release{
			Version:  strings.TrimSpace(raw["release_version"]),
			UserName: strings.TrimSpace(raw["bintray_user_name"]),
			UserKey:  strings.TrimSpace(raw["bintray_user_key"]),
		}
		if release.Version == "" {
			return nil, &Error{Option: "release_version", Reason: "required when release=yes"}
		}
		if release.UserName == "" {
			return nil, &Error{Option: "bintray_user_name", Reason: "required when release=yes"}
		}
		if release.UserKey == "" {
			return nil, &Error{Option: "bintray_user_key", Reason: "required when release=yes"}
		}
		if _, err := semver.NewVersion(release.Version); err != nil {
			return nil, &Error{Option: "release_version", Value: release.Version,
				Reason: "not a valid semantic version"}
		}
	}

	// 5. Unknown build types are rejected, never coerced to all.
	switch BuildType(buildType) {
	case BuildTypeAll, BuildTypeLite, BuildTypeSingle, BuildTypeInternal:
	default:
		return nil, &Error{Option: "build_type", Value: buildType,
			Reason: "must be one of all, lite, single, internal"}
	}

	bt := BuildType(buildType)

	cfg := &Build{
		BuildType:     bt,
		APIOption:     apiOptionFor(bt),
		TargetABI:     ABI(targetABI),
		IncludeAssets: includeAssets,
		RunTest:       runTest,
		EnableSNAP:    enableSNAP,
		EnableTFLite:  enableTFLite,
		TFLiteVersion: defaultTFLiteVersion,
		SNAPDirectory: snapDir,
		Release:       release,
		SourceDir:     sourceDir,
		LibraryName:   libraryName(bt),
	}

	cfg.ResultDir = raw["result_dir"]
	if cfg.ResultDir == "" && cfg.SourceDir != "" {
		cfg.ResultDir = filepath.Join(cfg.SourceDir, "android_lib")
	}

	if cfg.EnableTFLite && r.Catalog != nil && cfg.SourceDir != "" {
		if v, ok := r.Catalog(cfg.SourceDir); ok {
			cfg.TFLiteVersion = v
		}
	}

	return cfg, nil
}

func apiOptionFor(bt BuildType) APIOption {
	switch bt {
	case BuildTypeLite:
		return APIOptionLite
	case BuildTypeSingle, BuildTypeInternal:
		return APIOptionSingle
	default:
		return APIOptionAll
	}
}

func libraryName(bt BuildType) string {
	if bt == BuildTypeAll {
		return libraryBaseName
	}
	return libraryBaseName + "-" + string(bt)
}

// boolOption parses a yes/no option. Anything other than yes or no is a
// configuration error; silent coercion would hide typos.
func boolOption(raw map[string]string, key string, def bool) (bool, error) {
	v, ok := raw[key]
	if !ok {
		return def, nil
	}
	switch v {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, &Error{Option: key, Value: v, Reason: "must be yes or no"}
	}
}
