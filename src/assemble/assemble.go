// Package assemble verifies the external build's output and reshapes
// it into the final distributable layout: the dated AAR copy plus a
// native development zip combining binaries, headers and Java sources.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nnsuite/aarforge/src/archive"
	"github.com/nnsuite/aarforge/src/config"
	"github.com/nnsuite/aarforge/src/fsutil"
	"github.com/nnsuite/aarforge/src/stage"
)

// ArtifactRelPath is the build tool's expected output inside the staged
// tree. Its existence is the pipeline's sole build-success signal.
const ArtifactRelPath = "api/build/outputs/aar/api-release.aar"

// coreHeaders ship with every bundle. They are taken from the original
// framework tree, not the staged copy, which the build may have dirtied.
var coreHeaders = []string{
	"api/capi/include/nnstreamer.h",
	"api/capi/include/nnstreamer-single.h",
}

// pluginHeaders are added for every API option except single.
var pluginHeaders = []string{
	"gst/nnstreamer/nnstreamer_plugin_api.h",
	"gst/nnstreamer/nnstreamer_plugin_api_filter.h",
	"gst/nnstreamer/nnstreamer_plugin_api_decoder.h",
	"gst/nnstreamer/nnstreamer_plugin_api_converter.h",
	"gst/nnstreamer/tensor_typedef.h",
}

// javaTreeDir is the fixed-path Java source subtree bundled into the
// native zip, relative to the staged tree.
const javaTreeDir = "api/src/main/java"

// Bundle is the assembled distributable set in the result directory.
type Bundle struct {
	AAR       string
	NativeZip string
}

// Assembler reorganizes a raw build output into a Bundle.
type Assembler struct {
	Archiver *archive.Archiver
}

// Assemble checks that the expected artifact exists, copies it to the
// result directory under a dated name, and rebuilds the native layout
// into a second dated zip. Scratch directories are removed whether
// assembly succeeds or fails.
func (a *Assembler) Assemble(tree *stage.Tree, cfg *config.Build, date string) (*Bundle, error) {
	artifact := filepath.Join(tree.Root, ArtifactRelPath)
	if !fsutil.Exists(artifact) {
		return nil, fmt.Errorf("build did not produce expected output: %s", ArtifactRelPath)
	}

	if err := os.MkdirAll(cfg.ResultDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating result dir: %w", err)
	}

	bundle := &Bundle{
		AAR:       filepath.Join(cfg.ResultDir, fmt.Sprintf("%s-%s.aar", cfg.LibraryName, date)),
		NativeZip: filepath.Join(cfg.ResultDir, fmt.Sprintf("%s-native-%s.zip", cfg.LibraryName, date)),
	}

	if err := fsutil.CopyFile(artifact, bundle.AAR); err != nil {
		return nil, fmt.Errorf("copying artifact: %w", err)
	}

	scratch, err := os.MkdirTemp("", "aarforge-assemble-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	ar := a.Archiver
	if ar == nil {
		ar = &archive.Archiver{}
	}

	extracted := filepath.Join(scratch, "aar")
	if err := ar.Unzip(artifact, extracted); err != nil {
		return nil, fmt.Errorf("extracting artifact: %w", err)
	}

	layout := filepath.Join(scratch, "native")
	if err := a.buildLayout(layout, extracted, tree, cfg); err != nil {
		return nil, err
	}

	if err := ar.Zip(layout, bundle.NativeZip); err != nil {
		return nil, fmt.Errorf("compressing native layout: %w", err)
	}

	return bundle, nil
}

// buildLayout reconstructs the native-library layout under dest.
func (a *Assembler) buildLayout(dest, extracted string, tree *stage.Tree, cfg *config.Build) error {
	// Native binaries, per ABI as the build emitted them.
	jni := filepath.Join(extracted, "jni")
	abis, err := os.ReadDir(jni)
	if err != nil {
		return fmt.Errorf("no native binaries in artifact: %w", err)
	}
	for _, abi := range abis {
		if !abi.IsDir() {
			continue
		}
		src := filepath.Join(jni, abi.Name())
		dst := filepath.Join(dest, "main", "jni", "nnstreamer", "lib", abi.Name())
		if err := fsutil.CopyTree(src, dst); err != nil {
			return fmt.Errorf("copying %s binaries: %w", abi.Name(), err)
		}
	}

	// Framework headers, from the original source tree.
	headers := coreHeaders
	if cfg.APIOption != config.APIOptionSingle {
		headers = append(append([]string{}, coreHeaders...), pluginHeaders...)
	}
	includeDir := filepath.Join(dest, "main", "jni", "nnstreamer", "include")
	for _, h := range headers {
		src := filepath.Join(cfg.SourceDir, h)
		if err := fsutil.CopyFile(src, filepath.Join(includeDir, filepath.Base(h))); err != nil {
			return fmt.Errorf("copying header %s: %w", h, err)
		}
	}

	// Java sources from the staged tree.
	if err := fsutil.CopyTree(filepath.Join(tree.Root, javaTreeDir), filepath.Join(dest, "main", "java")); err != nil {
		return fmt.Errorf("copying java sources: %w", err)
	}

	// Assets only on request.
	if cfg.IncludeAssets {
		assets := filepath.Join(extracted, "assets")
		if fsutil.DirExists(assets) {
			if err := fsutil.CopyTree(assets, filepath.Join(dest, "main", "assets")); err != nil {
				return fmt.Errorf("copying assets: %w", err)
			}
		}
	}

	return nil
}
