// Package apitest runs the framework's instrumentation tests against
// the staged tree and packages the report. Test failures are reported
// but never change the pipeline's already-decided outcome.
package apitest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/nnsuite/aarforge/src/archive"
	"github.com/nnsuite/aarforge/src/fsutil"
	"github.com/nnsuite/aarforge/src/gradle"
	"github.com/nnsuite/aarforge/src/stage"
)

// reportRelDir is where gradle leaves the instrumentation test report
// inside the staged tree.
const reportRelDir = "api/build/reports/androidTests"

// Runner executes the connected test target and archives its report.
type Runner struct {
	Gradle   *gradle.Runner
	Archiver *archive.Archiver
}

// Run invokes the test target, then zips the report directory into
// <resultDir>/<libraryName>-test-<date>.zip. The report is archived
// even when the tests themselves failed, as long as it exists; the
// returned error carries the first failure either way.
func (r *Runner) Run(ctx context.Context, tree *stage.Tree, resultDir, libraryName, date string) error {
	testErr := r.Gradle.Run(ctx, tree.Root, gradle.TargetTest)

	report := filepath.Join(tree.Root, reportRelDir)
	if !fsutil.DirExists(report) {
		if testErr != nil {
			return fmt.Errorf("instrumentation tests: %w", testErr)
		}
		return fmt.Errorf("test report not found at %s", reportRelDir)
	}

	ar := r.Archiver
	if ar == nil {
		ar = &archive.Archiver{}
	}
	dest := filepath.Join(resultDir, fmt.Sprintf("%s-test-%s.zip", libraryName, date))
	if err := ar.Zip(report, dest); err != nil {
		return fmt.Errorf("archiving test report: %w", err)
	}

	if testErr != nil {
		return fmt.Errorf("instrumentation tests: %w", testErr)
	}
	return nil
}
