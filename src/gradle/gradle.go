// Package gradle runs the framework's gradle wrapper against a staged
// tree. The tool is an opaque black box: its output is streamed, never
// parsed, and its exit code alone does not decide build success.
package gradle

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Build tool targets the pipeline drives.
const (
	TargetAssemble = "assembleRelease"
	TargetPublish  = "bintrayUpload"
	TargetTest     = "connectedAndroidTest"
)

// Runner wraps gradle wrapper invocations.
type Runner struct {
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer

	// Exec overrides process execution in tests. dir is the working
	// directory, argv the full command line including argv[0].
	Exec func(ctx context.Context, dir string, argv []string) error
}

// NewRunner creates a Runner with default output writers.
func NewRunner(verbose bool) *Runner {
	return &Runner{
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Run makes the wrapper executable and invokes it with the given
// arguments, dir as working directory.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) error {
	wrapper := filepath.Join(dir, "gradlew")
	if err := os.Chmod(wrapper, 0o755); err != nil {
		return fmt.Errorf("chmod gradlew: %w", err)
	}

	argv := append([]string{"./gradlew"}, args...)

	if r.Verbose {
		fmt.Fprintf(r.Stderr, "exec: %s (in %s)\n", strings.Join(argv, " "), dir)
	}

	if r.Exec != nil {
		return r.Exec(ctx, dir, argv)
	}

	cmd := exec.CommandContext(ctx, wrapper, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("gradle %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
