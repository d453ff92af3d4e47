// Package stage creates the isolated working copy a build runs in: a
// fresh directory under the framework source root holding the android
// build descriptors merged with the fetched prebuilt-resource bundle.
package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"

	"github.com/nnsuite/aarforge/src/config"
	"github.com/nnsuite/aarforge/src/fsutil"
)

// DefaultResourceURL is the prebuilt-resource bundle repository:
// prebuilt native binaries plus auxiliary build scripts, overlaid onto
// the staged descriptors.
const DefaultResourceURL = "https://github.com/nnstreamer/nnstreamer-android-resource.git"

// descriptorDir is the android project inside the framework source
// tree, relative to the source root.
const descriptorDir = "api/android"

// Fetcher materializes a remote directory tree at dest.
type Fetcher func(ctx context.Context, url, dest string) error

// GitFetch is the default Fetcher: a shallow clone of url into dest.
func GitFetch(ctx context.Context, url, dest string) error {
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

// Tree is a staged working copy, exclusively owned by one pipeline run.
type Tree struct {
	Root string
}

// Remove deletes the working copy. Best effort; the caller decides
// whether a failure matters.
func (t *Tree) Remove() error {
	if t == nil || t.Root == "" {
		return nil
	}
	return os.RemoveAll(t.Root)
}

// Stager builds staged trees.
type Stager struct {
	// ResourceURL overrides DefaultResourceURL when non-empty.
	ResourceURL string
	// Fetch overrides GitFetch; tests substitute a local fixture copy.
	Fetch Fetcher
}

// Stage creates the working copy for cfg: a uniquely named directory
// under the source root, the project's build descriptors copied in, and
// the resource bundle fetched and overlaid on top. On error the
// partially built tree is not usable, but its handle is still returned
// when the directory exists so the caller can clean it up.
func (s *Stager) Stage(ctx context.Context, cfg *config.Build) (*Tree, error) {
	src := filepath.Join(cfg.SourceDir, descriptorDir)
	if !fsutil.DirExists(src) {
		return nil, fmt.Errorf("build descriptors not found at %s", src)
	}

	root, err := os.MkdirTemp(cfg.SourceDir, "aarforge-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}
	tree := &Tree{Root: root}

	if err := fsutil.CopyTree(src, root); err != nil {
		return tree, fmt.Errorf("copying build descriptors: %w", err)
	}

	url := s.ResourceURL
	if url == "" {
		url = DefaultResourceURL
	}
	fetch := s.Fetch
	if fetch == nil {
		fetch = GitFetch
	}

	bundle, err := os.MkdirTemp("", "aarforge-bundle-*")
	if err != nil {
		return tree, fmt.Errorf("creating bundle dir: %w", err)
	}
	defer os.RemoveAll(bundle)

	if err := fetch(ctx, url, bundle); err != nil {
		return tree, fmt.Errorf("fetching resource bundle: %w", err)
	}

	if err := overlay(bundle, root); err != nil {
		return tree, fmt.Errorf("merging resource bundle: %w", err)
	}

	return tree, nil
}

// overlay copies the bundle's contents onto the staged tree, bundle
// files winning on collision. VCS metadata is not part of the bundle.
func overlay(bundle, root string) error {
	entries, err := os.ReadDir(bundle)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		src := filepath.Join(bundle, e.Name())
		dst := filepath.Join(root, e.Name())
		if e.IsDir() {
			if err := fsutil.CopyTree(src, dst); err != nil {
				return err
			}
			continue
		}
		if err := fsutil.CopyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}
