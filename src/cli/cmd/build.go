package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nnsuite/aarforge/src/archive"
	"github.com/nnsuite/aarforge/src/assemble"
	"github.com/nnsuite/aarforge/src/config"
	"github.com/nnsuite/aarforge/src/gradle"
	"github.com/nnsuite/aarforge/src/output"
	"github.com/nnsuite/aarforge/src/patch"
	"github.com/nnsuite/aarforge/src/pipeline"
	"github.com/nnsuite/aarforge/src/stage"
)

// Flag values mirror the option surface; only flags the user actually
// set make it into the raw option map, so file-config values can fill
// the rest.
var (
	bBuildType      string
	bTargetABI      string
	bRelease        string
	bReleaseVersion string
	bBintrayUser    string
	bBintrayKey     string
	bRunTest        string
	bNNStreamerDir  string
	bResultDir      string
	bEnableSNAP     string
	bEnableTFLite   string
	bIncludeAssets  string
	bResourceURL    string
	bDryRun         bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build and package the Android library bundle",
	Long: `Build resolves the option matrix into a build configuration, stages a
working copy of the android project merged with the prebuilt resource
bundle, patches the build descriptors, runs the gradle build, and
reassembles the output into the final distributable layout.`,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&bBuildType, "build_type", "", "build type: all, lite, single, internal")
	f.StringVar(&bTargetABI, "target_abi", "", "target ABI: armeabi-v7a, arm64-v8a")
	f.StringVar(&bRelease, "release", "", "publish the result: yes, no")
	f.StringVar(&bReleaseVersion, "release_version", "", "version to publish")
	f.StringVar(&bBintrayUser, "bintray_user_name", "", "publishing user name")
	f.StringVar(&bBintrayKey, "bintray_user_key", "", "publishing user key")
	f.StringVar(&bRunTest, "run_test", "", "run instrumentation tests: yes, no")
	f.StringVar(&bNNStreamerDir, "nnstreamer_dir", "", "framework source root (default: $NNSTREAMER_ROOT)")
	f.StringVar(&bResultDir, "result_dir", "", "output directory (default: <source>/android_lib)")
	f.StringVar(&bEnableSNAP, "enable_snap", "", "enable the SNAP plugin: yes, no")
	f.StringVar(&bEnableTFLite, "enable_tflite", "", "enable the tensorflow-lite plugin: yes, no")
	f.StringVar(&bIncludeAssets, "include_assets", "", "bundle the assets subtree: yes, no")
	f.StringVar(&bResourceURL, "resource_url", "", "override prebuilt resource bundle repository")
	f.BoolVar(&bDryRun, "dry-run", false, "resolve and show the plan without building")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	raw := map[string]string{}
	flagValues := map[string]*string{
		"build_type":        &bBuildType,
		"target_abi":        &bTargetABI,
		"release":           &bRelease,
		"release_version":   &bReleaseVersion,
		"bintray_user_name": &bBintrayUser,
		"bintray_user_key":  &bBintrayKey,
		"run_test":          &bRunTest,
		"nnstreamer_dir":    &bNNStreamerDir,
		"result_dir":        &bResultDir,
		"enable_snap":       &bEnableSNAP,
		"enable_tflite":     &bEnableTFLite,
		"include_assets":    &bIncludeAssets,
	}
	for name, val := range flagValues {
		if cmd.Flags().Changed(name) {
			raw[name] = *val
		}
	}
	raw = fileCfg.Merge(raw)

	resolver := &config.Resolver{
		Getenv:  os.Getenv,
		Catalog: config.CatalogTFLiteVersion,
	}
	cfg, err := resolver.Resolve(raw)
	if err != nil {
		return err
	}

	w := os.Stdout
	color := output.UseColor()

	output.ContextBlock(w, []output.KV{
		{Key: "build_type", Value: string(cfg.BuildType)},
		{Key: "target_abi", Value: string(cfg.TargetABI)},
		{Key: "api_option", Value: string(cfg.APIOption)},
		{Key: "library", Value: cfg.LibraryName},
		{Key: "snap", Value: onOff(cfg.EnableSNAP)},
		{Key: "tflite", Value: tfliteValue(cfg)},
	})

	if bDryRun {
		sec := output.NewSection(w, "Plan", 0, color)
		for _, r := range patch.Rules(cfg) {
			sec.Row("%-28s%s", r.File, r.Marker)
		}
		sec.Close()
		return nil
	}

	runner := gradle.NewRunner(verbose)
	ar := &archive.Archiver{Verbose: verbose, Out: os.Stderr}

	p := &pipeline.Pipeline{
		Gradle:    runner,
		Patcher:   &patch.Patcher{Archiver: ar},
		Assembler: &assemble.Assembler{Archiver: ar},
		Out:       w,
		Color:     color,
		Verbose:   verbose,
	}
	if bResourceURL != "" {
		p.Stager = &stage.Stager{ResourceURL: bResourceURL}
	}

	start := time.Now()
	res, err := p.Run(context.Background(), cfg)
	if err != nil {
		return err
	}

	sec := output.NewSection(w, "Summary", 0, color)
	output.SummaryRow(w, "aar", "success", filepath.Base(res.Bundle.AAR), color)
	output.SummaryRow(w, "native", "success", filepath.Base(res.Bundle.NativeZip), color)
	if cfg.Release != nil {
		output.SummaryRow(w, "publish", statusOf(res.PublishErr), cfg.Release.Version, color)
	}
	if cfg.RunTest {
		output.SummaryRow(w, "test", statusOf(res.TestErr), gradle.TargetTest, color)
	}
	output.SummaryTotal(w, time.Since(start), "success", color)
	sec.Close()

	output.Successf(w, color, "bundle ready in %s", cfg.ResultDir)
	return nil
}

func statusOf(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func tfliteValue(cfg *config.Build) string {
	if !cfg.EnableTFLite {
		return "disabled"
	}
	return cfg.TFLiteVersion
}
