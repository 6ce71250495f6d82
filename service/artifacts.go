package service

import (
	"context"
	"time"

	"github.com/cloudent/reputation-node/circuits/reputation"
)

// DownloadArtifacts downloads the circuit artifacts and loads them into
// memory.
func DownloadArtifacts(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := reputation.Artifacts.DownloadAll(ctx); err != nil {
		return err
	}
	return reputation.Artifacts.LoadAll()
}
