package config

import (
	"errors"
	"testing"
)

func testEnv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

// resolve runs the resolver with a SNAP directory available, so the
// default-enabled SNAP plugin does not fail unrelated cases.
func resolve(t *testing.T, raw map[string]string) (*Build, error) {
	t.Helper()
	r := &Resolver{Getenv: testEnv(map[string]string{
		"SNAP_DIRECTORY":  "/opt/snap",
		"NNSTREAMER_ROOT": "/src/nnstreamer",
	})}
	return r.Resolve(raw)
}

func mustResolve(t *testing.T, raw map[string]string) *Build {
	t.Helper()
	cfg, err := resolve(t, raw)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return cfg
}

func TestResolveDefaults(t *testing.T) {
	cfg := mustResolve(t, nil)

	if cfg.BuildType != BuildTypeAll {
		t.Errorf("build type = %s, want all", cfg.BuildType)
	}
	if cfg.APIOption != APIOptionAll {
		t.Errorf("api option = %s, want all", cfg.APIOption)
	}
	if cfg.TargetABI != ABIArm64 {
		t.Errorf("target abi = %s, want arm64-v8a", cfg.TargetABI)
	}
	if cfg.IncludeAssets || cfg.RunTest {
		t.Error("assets and test must default to off")
	}
	if !cfg.EnableSNAP || !cfg.EnableTFLite {
		t.Error("snap and tflite must default to on")
	}
	if cfg.Release != nil {
		t.Error("release must default to unset")
	}
	if cfg.LibraryName != "nnstreamer" {
		t.Errorf("library name = %s, want nnstreamer (no suffix for all)", cfg.LibraryName)
	}
	if cfg.SourceDir != "/src/nnstreamer" {
		t.Errorf("source dir = %s, want NNSTREAMER_ROOT value", cfg.SourceDir)
	}
	if cfg.ResultDir != "/src/nnstreamer/android_lib" {
		t.Errorf("result dir = %s", cfg.ResultDir)
	}
	if cfg.TFLiteVersion == "" {
		t.Error("tflite version must have a default")
	}
}

func TestResolveLibraryNameSuffix(t *testing.T) {
	for bt, want := range map[string]string{
		"all":      "nnstreamer",
		"lite":     "nnstreamer-lite",
		"single":   "nnstreamer-single",
		"internal": "nnstreamer-internal",
	} {
		cfg := mustResolve(t, map[string]string{"build_type": bt, "enable_snap": "no"})
		if cfg.LibraryName != want {
			t.Errorf("build_type=%s: library name = %s, want %s", bt, cfg.LibraryName, want)
		}
	}
}

func TestResolveAPIOptionDerivation(t *testing.T) {
	for bt, want := range map[string]APIOption{
		"all":      APIOptionAll,
		"lite":     APIOptionLite,
		"single":   APIOptionSingle,
		"internal": APIOptionSingle,
	} {
		cfg := mustResolve(t, map[string]string{"build_type": bt, "enable_snap": "no"})
		if cfg.APIOption != want {
			t.Errorf("build_type=%s: api option = %s, want %s", bt, cfg.APIOption, want)
		}
	}
}

func TestResolveInternalForceOverride(t *testing.T) {
	// Conflicting explicit input loses to the internal pinning.
	cfg := mustResolve(t, map[string]string{
		"build_type":    "internal",
		"target_abi":    "armeabi-v7a",
		"enable_snap":   "yes",
		"enable_tflite": "yes",
	})

	if cfg.EnableSNAP {
		t.Error("internal build must disable SNAP")
	}
	if cfg.EnableTFLite {
		t.Error("internal build must disable tflite")
	}
	if cfg.TargetABI != ABIArm64 {
		t.Errorf("internal build abi = %s, want arm64-v8a", cfg.TargetABI)
	}
	if cfg.APIOption != APIOptionSingle {
		t.Errorf("internal build api option = %s, want single", cfg.APIOption)
	}
}

func TestResolveRejectsUnknownABI(t *testing.T) {
	for _, abi := range []string{"x86", "x86_64", "mips", ""} {
		_, err := resolve(t, map[string]string{"target_abi": abi})
		var cerr *Error
		if !errors.As(err, &cerr) {
			t.Fatalf("target_abi=%q: got %v, want *Error", abi, err)
		}
		if cerr.Option != "target_abi" {
			t.Errorf("target_abi=%q: error names option %s", abi, cerr.Option)
		}
	}
}

func TestResolveRejectsUnknownBuildType(t *testing.T) {
	_, err := resolve(t, map[string]string{"build_type": "full"})
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Option != "build_type" {
		t.Fatalf("got %v, want build_type *Error", err)
	}
}

func TestResolveSNAPRequiresArm64(t *testing.T) {
	_, err := resolve(t, map[string]string{
		"target_abi":  "armeabi-v7a",
		"enable_snap": "yes",
	})
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Option != "enable_snap" {
		t.Fatalf("got %v, want enable_snap *Error", err)
	}
}

func TestResolveSNAPRequiresDirectory(t *testing.T) {
	r := &Resolver{Getenv: testEnv(map[string]string{"NNSTREAMER_ROOT": "/src/nnstreamer"})}
	_, err := r.Resolve(map[string]string{"enable_snap": "yes"})
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Option != "enable_snap" {
		t.Fatalf("got %v, want enable_snap *Error", err)
	}
}

func TestResolveReleaseRequiresAllFields(t *testing.T) {
	base := map[string]string{
		"release":           "yes",
		"release_version":   "1.2.0",
		"bintray_user_name": "jenkins",
		"bintray_user_key":  "secret",
	}

	for _, missing := range []string{"release_version", "bintray_user_name", "bintray_user_key"} {
		raw := map[string]string{}
		for k, v := range base {
			raw[k] = v
		}
		raw[missing] = ""

		_, err := resolve(t, raw)
		var cerr *Error
		if !errors.As(err, &cerr) {
			t.Fatalf("missing %s: got %v, want *Error", missing, err)
		}
		if cerr.Option != missing {
			t.Errorf("missing %s: error names option %s", missing, cerr.Option)
		}
	}

	cfg := mustResolve(t, base)
	if cfg.Release == nil || cfg.Release.Version != "1.2.0" {
		t.Fatalf("release = %+v", cfg.Release)
	}
}

func TestResolveReleaseVersionMustBeSemver(t *testing.T) {
	_, err := resolve(t, map[string]string{
		"release":           "yes",
		"release_version":   "not-a-version",
		"bintray_user_name": "jenkins",
		"bintray_user_key":  "secret",
	})
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Option != "release_version" {
		t.Fatalf("got %v, want release_version *Error", err)
	}
}

func TestResolveRejectsBadBoolean(t *testing.T) {
	_, err := resolve(t, map[string]string{"run_test": "maybe"})
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Option != "run_test" {
		t.Fatalf("got %v, want run_test *Error", err)
	}
}

func TestResolveUnknownKeysIgnored(t *testing.T) {
	cfg := mustResolve(t, map[string]string{"future_option": "whatever"})
	if cfg.BuildType != BuildTypeAll {
		t.Errorf("unknown key changed the build type: %s", cfg.BuildType)
	}
}

func TestResolveDeterministic(t *testing.T) {
	raw := map[string]string{"build_type": "lite", "run_test": "yes"}
	a := mustResolve(t, raw)
	b := mustResolve(t, raw)
	if *a != *b {
		t.Errorf("resolve is not deterministic: %+v vs %+v", a, b)
	}
}

func TestResolveCatalogOverridesTFLiteVersion(t *testing.T) {
	r := &Resolver{
		Getenv:  testEnv(map[string]string{"NNSTREAMER_ROOT": "/src/nnstreamer"}),
		Catalog: func(string) (string, bool) { return "2.16.1", true },
	}
	cfg, err := r.Resolve(map[string]string{"enable_snap": "no"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.TFLiteVersion != "2.16.1" {
		t.Errorf("tflite version = %s, want catalog value", cfg.TFLiteVersion)
	}
}
