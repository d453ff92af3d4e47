// Package patch rewrites the staged build descriptors to reflect a
// resolved configuration. Every text change is a declarative Rule, the
// rule list is a pure function of the configuration, and applying the
// full sequence twice leaves the tree unchanged.
package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nnsuite/aarforge/src/archive"
	"github.com/nnsuite/aarforge/src/config"
	"github.com/nnsuite/aarforge/src/fsutil"
	"github.com/nnsuite/aarforge/src/stage"
)

// Descriptor files and marker tokens. The staged tree is well known, so
// a missing file or marker is a hard error, not something to skip.
const (
	gradleFile = "api/build.gradle"
	nativeMk   = "api/src/main/jni/Android-nnstreamer.mk"

	markerABI       = "@BUILD_ABI@"
	markerAPIOption = "@API_OPTION@"
	markerAssets    = "@INCLUDE_ASSETS@"
	markerSNAP      = "@ENABLE_SNAP@"
	markerTFLite    = "@ENABLE_TFLITE@"
	markerTFLiteVer = "@TFLITE_VERSION@"
	markerPublish   = "@PUBLISHING_BLOCK@"
)

// snapTreeDir is where the external SNAP plugin directory is copied to
// inside the staged tree.
const snapTreeDir = "api/src/main/jni/snap"

// tflite bundle location inside the fetched resource overlay, and its
// extraction target in the jni tree.
const (
	tfliteBundleDir = "ext-files"
	tfliteTreeDir   = "api/src/main/jni/tensorflow-lite"
)

// singleModeRemovals are sources that only exist for plugin-bearing
// builds; the single-API build must not ship them. Removal runs after
// all substitutions, and files already gone are fine (idempotence).
var singleModeRemovals = []string{
	"api/src/main/java/org/nnsuite/nnstreamer/CustomFilter.java",
	"api/src/main/java/org/nnsuite/nnstreamer/Pipeline.java",
	"api/src/androidTest/java/org/nnsuite/nnstreamer/APITestCustomFilter.java",
	"api/src/androidTest/java/org/nnsuite/nnstreamer/APITestPipeline.java",
}

// Rule is one exact-match textual substitution against a staged file.
// Rules are independent of each other; only the single-mode removal
// step depends on ordering, and it is not a Rule.
type Rule struct {
	File        string // relative to the tree root
	Marker      string
	Replacement string
}

// Error is a patch failure: the staged tree did not look the way a
// well-known tree must.
type Error struct {
	File   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("patch %s: %s", e.File, e.Reason)
}

// Patcher applies a configuration to a staged tree.
type Patcher struct {
	Archiver *archive.Archiver
}

// Rules derives the ordered substitution list for cfg: ABI, API option,
// assets, SNAP, tf-lite, release. Pure; used by Apply, dry-run output,
// and tests alike.
func Rules(cfg *config.Build) []Rule {
	rules := []Rule{
		{File: gradleFile, Marker: markerABI, Replacement: string(cfg.TargetABI)},
		{File: gradleFile, Marker: markerAPIOption, Replacement: string(cfg.APIOption)},
		{File: gradleFile, Marker: markerAssets, Replacement: gradleBool(cfg.IncludeAssets)},
		{File: nativeMk, Marker: markerSNAP, Replacement: yesNo(cfg.EnableSNAP)},
		{File: nativeMk, Marker: markerTFLite, Replacement: yesNo(cfg.EnableTFLite)},
		{File: nativeMk, Marker: markerTFLiteVer, Replacement: cfg.TFLiteVersion},
		{File: gradleFile, Marker: markerPublish, Replacement: publishingBlock(cfg.Release)},
	}
	return rules
}

// Apply runs the full patch sequence against the tree: substitution
// rules in order, the conditional SNAP copy and tf-lite extraction, and
// finally the single-mode file removal.
func (p *Patcher) Apply(tree *stage.Tree, cfg *config.Build) error {
	for _, r := range Rules(cfg) {
		if err := applyRule(tree.Root, r); err != nil {
			return err
		}
	}

	if cfg.EnableSNAP {
		if err := copySNAP(tree.Root, cfg.SNAPDirectory); err != nil {
			return err
		}
	}
	if cfg.EnableTFLite {
		if err := p.extractTFLite(tree.Root, cfg.TFLiteVersion); err != nil {
			return err
		}
	}

	// Removal runs last: it deletes files no substitution touches.
	if cfg.APIOption == config.APIOptionSingle {
		if err := removeSingleModeFiles(tree.Root); err != nil {
			return err
		}
	}

	return nil
}

// applyRule substitutes every occurrence of the rule's marker. A tree
// that was already patched with the same configuration carries the
// replacement instead of the marker; that is a no-op, not an error.
func applyRule(root string, r Rule) error {
	path := filepath.Join(root, r.File)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Error{File: r.File, Reason: "file missing from staged tree"}
		}
		return &Error{File: r.File, Reason: err.Error()}
	}

	content := string(data)
	if !strings.Contains(content, r.Marker) {
		if r.Replacement == "" || strings.Contains(content, r.Replacement) {
			return nil // already applied
		}
		return &Error{File: r.File, Reason: fmt.Sprintf("marker %s not found", r.Marker)}
	}

	patched := strings.ReplaceAll(content, r.Marker, r.Replacement)
	if err := os.WriteFile(path, []byte(patched), 0o644); err != nil {
		return &Error{File: r.File, Reason: err.Error()}
	}
	return nil
}

// copySNAP overlays the external SNAP plugin directory into the tree.
func copySNAP(root, snapDir string) error {
	if !fsutil.DirExists(snapDir) {
		return &Error{File: snapTreeDir, Reason: fmt.Sprintf("SNAP directory %s does not exist", snapDir)}
	}
	if err := fsutil.CopyTree(snapDir, filepath.Join(root, snapTreeDir)); err != nil {
		return &Error{File: snapTreeDir, Reason: err.Error()}
	}
	return nil
}

// extractTFLite unpacks the versioned prebuilt bundle from the fetched
// resource overlay into the jni tree. An already extracted tree is left
// as is.
func (p *Patcher) extractTFLite(root, version string) error {
	target := filepath.Join(root, tfliteTreeDir)
	if fsutil.DirExists(target) {
		return nil
	}

	bundle := filepath.Join(root, tfliteBundleDir, fmt.Sprintf("tensorflow-lite-%s.tar.xz", version))
	if !fsutil.Exists(bundle) {
		return &Error{File: bundle, Reason: "tf-lite bundle missing from resource overlay"}
	}

	ar := p.Archiver
	if ar == nil {
		ar = &archive.Archiver{}
	}
	if err := ar.ExtractTarXz(bundle, target); err != nil {
		return &Error{File: bundle, Reason: err.Error()}
	}
	return nil
}

func removeSingleModeFiles(root string) error {
	for _, rel := range singleModeRemovals {
		err := os.Remove(filepath.Join(root, rel))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &Error{File: rel, Reason: err.Error()}
		}
	}
	return nil
}

// publishingBlock renders the gradle publishing stanza, or empty when
// no release was requested. Credentials stay out of the descriptor;
// they travel as gradle properties at publish time.
func publishingBlock(rel *config.Release) string {
	if rel == nil {
		return ""
	}
	return fmt.Sprintf(`bintray {
    user = project.findProperty('bintrayUser')
    key = project.findProperty('bintrayKey')
    publications = ['release']
    pkg {
        repo = 'nnstreamer'
        name = 'nnstreamer'
        version {
            name = '%s'
        }
    }
}`, escapeGradle(rel.Version))
}

// escapeGradle escapes a value for a single-quoted groovy string.
func escapeGradle(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func gradleBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
