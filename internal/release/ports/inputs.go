package ports

import (
	"context"

	"github.com/nathantilsley/chart-release/internal/release/domain"
)

// ReleaseUseCase is the driving port used by the CLI commands.
type ReleaseUseCase interface {
	ResolveVersion(ctx context.Context, runNumber int) (domain.Resolution, error)
	UpdateGitOps(ctx context.Context, req domain.UpdateRequest) (domain.UpdateResult, error)
}
