package publish

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nnsuite/aarforge/src/config"
	"github.com/nnsuite/aarforge/src/gradle"
	"github.com/nnsuite/aarforge/src/stage"
)

func treeWithWrapper(t *testing.T) *stage.Tree {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "gradlew"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write gradlew: %v", err)
	}
	return &stage.Tree{Root: root}
}

func TestPublishPassesCredentials(t *testing.T) {
	var got []string
	p := &Publisher{Runner: &gradle.Runner{
		Stderr: &bytes.Buffer{},
		Exec: func(ctx context.Context, dir string, argv []string) error {
			got = argv
			return nil
		},
	}}

	rel := &config.Release{Version: "1.2.0", UserName: "jenkins", UserKey: "hunter2"}
	if err := p.Publish(context.Background(), treeWithWrapper(t), rel); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	joined := strings.Join(got, " ")
	for _, want := range []string{gradle.TargetPublish, "-PbintrayUser=jenkins", "-PbintrayKey=hunter2", "-PreleaseVersion=1.2.0"} {
		if !strings.Contains(joined, want) {
			t.Errorf("argv %q missing %q", joined, want)
		}
	}
}

func TestPublishReportsFailure(t *testing.T) {
	p := &Publisher{Runner: &gradle.Runner{
		Stderr: &bytes.Buffer{},
		Exec: func(context.Context, string, []string) error {
			return errors.New("401 unauthorized")
		},
	}}

	rel := &config.Release{Version: "1.2.0", UserName: "u", UserKey: "k"}
	err := p.Publish(context.Background(), treeWithWrapper(t), rel)
	if err == nil || !strings.Contains(err.Error(), "1.2.0") {
		t.Fatalf("got %v, want error naming the release", err)
	}
}
