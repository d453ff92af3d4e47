// Package pipeline wires the build stages into the one linear flow the
// tool supports: environment validation, staging, patching, the
// external build, assembly, then the optional publish and test tails.
// Each stage runs only if the previous one succeeded; the staged tree
// is removed at the end of the run no matter how it went.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nnsuite/aarforge/src/apitest"
	"github.com/nnsuite/aarforge/src/assemble"
	"github.com/nnsuite/aarforge/src/config"
	"github.com/nnsuite/aarforge/src/gradle"
	"github.com/nnsuite/aarforge/src/output"
	"github.com/nnsuite/aarforge/src/patch"
	"github.com/nnsuite/aarforge/src/publish"
	"github.com/nnsuite/aarforge/src/stage"
	"github.com/nnsuite/aarforge/src/toolchain"
)

// Stage names the failure taxonomy. Config errors happen before a
// Pipeline exists and carry their own type.
type Stage string

const (
	StageEnvironment Stage = "environment"
	StageStaging     Stage = "staging"
	StagePatch       Stage = "patch"
	StageAssembly    Stage = "assembly"
	StagePublish     Stage = "publish"
	StageTest        Stage = "test"
)

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result is what a completed run produced. PublishErr and TestErr are
// non-fatal: they are reported but the bundle stands.
type Result struct {
	Bundle     *assemble.Bundle
	PublishErr error
	TestErr    error
}

// Pipeline holds the collaborators for one run. Zero-value fields get
// working defaults.
type Pipeline struct {
	Validator *toolchain.Validator
	Stager    *stage.Stager
	Patcher   *patch.Patcher
	Gradle    *gradle.Runner
	Assembler *assemble.Assembler
	Publisher *publish.Publisher
	Tests     *apitest.Runner

	Out     io.Writer
	Color   bool
	Verbose bool

	// Now is injectable so tests can pin the date stamp.
	Now func() time.Time
}

// Run executes the full pipeline for cfg. The returned error is fatal
// (config's invariants were already checked by the resolver); publish
// and test failures land in the Result instead.
func (p *Pipeline) Run(ctx context.Context, cfg *config.Build) (*Result, error) {
	p.fillDefaults()
	date := p.Now().Format("20060102")

	if err := p.Validator.Validate(cfg); err != nil {
		return nil, &StageError{Stage: StageEnvironment, Err: err}
	}

	tree, err := p.runStaging(ctx, cfg)
	if tree != nil {
		defer func() {
			if rmErr := tree.Remove(); rmErr != nil {
				output.Warnf(p.Out, p.Color, "staging cleanup: %v", rmErr)
			}
		}()
	}
	if err != nil {
		return nil, &StageError{Stage: StageStaging, Err: err}
	}

	if err := p.runPatch(tree, cfg); err != nil {
		return nil, &StageError{Stage: StagePatch, Err: err}
	}

	// The build tool's exit code is not the success signal; only the
	// assembler's artifact check is.
	if err := p.runBuild(ctx, tree); err != nil {
		output.Warnf(p.Out, p.Color, "build tool exited with error: %v", err)
	}

	bundle, err := p.runAssembly(tree, cfg, date)
	if err != nil {
		return nil, &StageError{Stage: StageAssembly, Err: err}
	}

	res := &Result{Bundle: bundle}

	if cfg.Release != nil {
		if err := p.runPublish(ctx, tree, cfg); err != nil {
			res.PublishErr = &StageError{Stage: StagePublish, Err: err}
			output.Warnf(p.Out, p.Color, "%v", res.PublishErr)
		}
	}

	if cfg.RunTest {
		if err := p.runTests(ctx, tree, cfg, date); err != nil {
			res.TestErr = &StageError{Stage: StageTest, Err: err}
			output.Warnf(p.Out, p.Color, "%v", res.TestErr)
		}
	}

	return res, nil
}

func (p *Pipeline) runStaging(ctx context.Context, cfg *config.Build) (*stage.Tree, error) {
	start := time.Now()
	output.SectionStart(p.Out, "af_stage", "Stage")
	defer output.SectionEnd(p.Out, "af_stage")

	tree, err := p.Stager.Stage(ctx, cfg)
	if err != nil {
		return tree, err
	}

	sec := output.NewSection(p.Out, "Stage", time.Since(start), p.Color)
	sec.Row("%-16s→ %s", "workdir", tree.Root)
	sec.Close()
	return tree, nil
}

func (p *Pipeline) runPatch(tree *stage.Tree, cfg *config.Build) error {
	start := time.Now()
	output.SectionStart(p.Out, "af_patch", "Patch")
	defer output.SectionEnd(p.Out, "af_patch")

	if err := p.Patcher.Apply(tree, cfg); err != nil {
		return err
	}

	sec := output.NewSection(p.Out, "Patch", time.Since(start), p.Color)
	for _, r := range patch.Rules(cfg) {
		sec.Row("%-16s→ %s", r.Marker, firstLine(r.Replacement))
	}
	sec.Close()
	return nil
}

func (p *Pipeline) runBuild(ctx context.Context, tree *stage.Tree) error {
	output.SectionStart(p.Out, "af_build", "Build")
	defer output.SectionEnd(p.Out, "af_build")
	return p.Gradle.Run(ctx, tree.Root, gradle.TargetAssemble)
}

func (p *Pipeline) runAssembly(tree *stage.Tree, cfg *config.Build, date string) (*assemble.Bundle, error) {
	start := time.Now()
	output.SectionStart(p.Out, "af_assemble", "Assemble")
	defer output.SectionEnd(p.Out, "af_assemble")

	bundle, err := p.Assembler.Assemble(tree, cfg, date)
	if err != nil {
		return nil, err
	}

	sec := output.NewSection(p.Out, "Assemble", time.Since(start), p.Color)
	sec.Row("%-16s→ %s", "aar", bundle.AAR)
	sec.Row("%-16s→ %s", "native", bundle.NativeZip)
	sec.Close()
	return bundle, nil
}

func (p *Pipeline) runPublish(ctx context.Context, tree *stage.Tree, cfg *config.Build) error {
	output.SectionStart(p.Out, "af_publish", "Publish")
	defer output.SectionEnd(p.Out, "af_publish")
	return p.Publisher.Publish(ctx, tree, cfg.Release)
}

func (p *Pipeline) runTests(ctx context.Context, tree *stage.Tree, cfg *config.Build, date string) error {
	output.SectionStart(p.Out, "af_test", "Test")
	defer output.SectionEnd(p.Out, "af_test")
	return p.Tests.Run(ctx, tree, cfg.ResultDir, cfg.LibraryName, date)
}

func (p *Pipeline) fillDefaults() {
	if p.Out == nil {
		p.Out = os.Stdout
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Validator == nil {
		p.Validator = &toolchain.Validator{}
	}
	if p.Stager == nil {
		p.Stager = &stage.Stager{}
	}
	if p.Patcher == nil {
		p.Patcher = &patch.Patcher{}
	}
	if p.Gradle == nil {
		p.Gradle = gradle.NewRunner(p.Verbose)
	}
	if p.Assembler == nil {
		p.Assembler = &assemble.Assembler{}
	}
	if p.Publisher == nil {
		p.Publisher = &publish.Publisher{Runner: p.Gradle}
	}
	if p.Tests == nil {
		p.Tests = &apitest.Runner{Gradle: p.Gradle}
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + " …"
		}
	}
	if s == "" {
		return "(empty)"
	}
	return s
}
