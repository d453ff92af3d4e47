// Package toolchain gates the pipeline on the host environment: the
// external tools the build shells out to and the directory roots the
// framework build expects. It performs no mutation of any kind.
package toolchain

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/nnsuite/aarforge/src/config"
	"github.com/nnsuite/aarforge/src/fsutil"
)

// requiredTools must all resolve on PATH before a build is attempted.
// java runs the gradle wrapper, cmake backs the NDK native build, adb
// drives the connected test target.
var requiredTools = []string{"java", "cmake", "adb"}

const (
	// EnvSDKRoot is the Android SDK installation root.
	EnvSDKRoot = "ANDROID_SDK_ROOT"
	// EnvGStreamerRoot is the prebuilt GStreamer-for-Android root.
	EnvGStreamerRoot = "GSTREAMER_ROOT_ANDROID"
	// EnvSourceRoot is the framework source root, consulted when the
	// nnstreamer_dir option is absent.
	EnvSourceRoot = "NNSTREAMER_ROOT"
)

// Validator checks the host environment. Both lookups are injectable;
// zero values fall back to the real environment.
type Validator struct {
	LookPath func(string) (string, error)
	Getenv   func(string) string
}

// Validate returns nil when every required tool and directory input is
// available, or an error naming the first missing one.
func (v *Validator) Validate(cfg *config.Build) error {
	lookPath := v.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	getenv := v.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	for _, tool := range requiredTools {
		if _, err := lookPath(tool); err != nil {
			return fmt.Errorf("required tool not found on PATH: %s", tool)
		}
	}

	if getenv(EnvSDKRoot) == "" {
		return fmt.Errorf("%s is not set", EnvSDKRoot)
	}
	if getenv(EnvGStreamerRoot) == "" {
		return fmt.Errorf("%s is not set", EnvGStreamerRoot)
	}

	// SourceDir resolution already consulted NNSTREAMER_ROOT; an empty
	// value here means neither the option nor the environment had it.
	if cfg.SourceDir == "" {
		return fmt.Errorf("framework source root unknown: pass nnstreamer_dir or set %s", EnvSourceRoot)
	}
	if !fsutil.DirExists(cfg.SourceDir) {
		return fmt.Errorf("framework source root %s is not a directory", cfg.SourceDir)
	}

	return nil
}
