// Package publish uploads an assembled release through the build
// tool's publish target. Publishing runs after the build's success is
// already decided; its failure never revokes local artifacts.
package publish

import (
	"context"
	"fmt"

	"github.com/nnsuite/aarforge/src/config"
	"github.com/nnsuite/aarforge/src/gradle"
	"github.com/nnsuite/aarforge/src/stage"
)

// Publisher drives the publish target with the release credentials.
type Publisher struct {
	Runner *gradle.Runner
}

// Publish runs the upload for rel against the staged tree.
func (p *Publisher) Publish(ctx context.Context, tree *stage.Tree, rel *config.Release) error {
	err := p.Runner.Run(ctx, tree.Root,
		gradle.TargetPublish,
		fmt.Sprintf("-PbintrayUser=%s", rel.UserName),
		fmt.Sprintf("-PbintrayKey=%s", rel.UserKey),
		fmt.Sprintf("-PreleaseVersion=%s", rel.Version),
	)
	if err != nil {
		return fmt.Errorf("publishing release %s: %w", rel.Version, err)
	}
	return nil
}
