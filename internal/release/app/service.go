package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathantilsley/chart-release/internal/release/domain"
	"github.com/nathantilsley/chart-release/internal/release/ports"
)

const defaultGitTimeout = 2 * time.Minute

// Settings holds the non-port configuration of a ReleaseService.
type Settings struct {
	MainBranch string
	Targets    []domain.PatchTarget
	// GitTimeout bounds each network-facing git call (clone, push, PR).
	GitTimeout time.Duration
}

// ReleaseService implements ports.ReleaseUseCase: it resolves the version of
// the current checkout and rolls a version out to the GitOps repository.
type ReleaseService struct {
	repoState ports.RepoStatePort
	override  ports.OverridePort
	gitops    ports.GitOpsRepoPort
	values    ports.ValuesPort
	envs      ports.EnvironmentListerPort
	diff      ports.DiffPort
	pr        ports.PullRequestPort
	settings  Settings

	tracer  trace.Tracer
	patches metric.Int64Counter
	logger  *slog.Logger
}

// NewReleaseService creates a ReleaseService wired with all driven ports.
func NewReleaseService(
	rs ports.RepoStatePort,
	ov ports.OverridePort,
	gitops ports.GitOpsRepoPort,
	values ports.ValuesPort,
	envs ports.EnvironmentListerPort,
	diff ports.DiffPort,
	pr ports.PullRequestPort,
	settings Settings,
	meter metric.Meter,
	tracer trace.Tracer,
	logger *slog.Logger,
) (*ReleaseService, error) {
	if settings.MainBranch == "" {
		settings.MainBranch = domain.DefaultMainBranch
	}
	if len(settings.Targets) == 0 {
		settings.Targets = domain.DefaultPatchTargets()
	}
	if settings.GitTimeout <= 0 {
		settings.GitTimeout = defaultGitTimeout
	}

	patches, err := meter.Int64Counter("release.gitops.patches",
		metric.WithDescription("GitOps values file updates by environment and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating patch counter: %w", err)
	}

	return &ReleaseService{
		repoState: rs,
		override:  ov,
		gitops:    gitops,
		values:    values,
		envs:      envs,
		diff:      diff,
		pr:        pr,
		settings:  settings,
		tracer:    tracer,
		patches:   patches,
		logger:    logger,
	}, nil
}

// ResolveVersion computes the version for this CI run from the local
// repository state and the NEXT_VERSION override.
func (s *ReleaseService) ResolveVersion(ctx context.Context, runNumber int) (domain.Resolution, error) {
	ctx, span := s.tracer.Start(ctx, "release.ResolveVersion")
	defer span.End()

	if err := domain.ValidateRunNumber(runNumber); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Resolution{}, err
	}

	state, err := s.repoState.State(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Resolution{}, fmt.Errorf("reading repository state: %w", err)
	}

	override, err := s.override.NextVersion(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Resolution{}, fmt.Errorf("reading version override: %w", err)
	}

	res := domain.Resolve(domain.ResolveInput{
		State:      state,
		Override:   override,
		RunNumber:  runNumber,
		MainBranch: s.settings.MainBranch,
	})

	for _, w := range res.Warnings {
		s.logger.Warn("malformed version input, defaults applied", "error", w)
	}

	s.logger.Info("version resolved",
		"version", res.Version,
		"kind", res.Kind,
		"latestTag", res.LatestTag,
		"candidateNext", res.CandidateNext,
		"effectiveNext", res.EffectiveNext,
		"overrideApplied", res.OverrideApplied,
		"branch", state.Branch,
	)
	span.SetAttributes(
		attribute.String("release.version", res.Version),
		attribute.String("release.kind", res.Kind.String()),
	)

	return res, nil
}

// UpdateGitOps writes req.Version to the values file of the environment the
// version classifies to, and pushes the change on a fresh review branch.
func (s *ReleaseService) UpdateGitOps(ctx context.Context, req domain.UpdateRequest) (domain.UpdateResult, error) {
	ctx, span := s.tracer.Start(ctx, "release.UpdateGitOps",
		trace.WithAttributes(
			attribute.String("release.version", req.Version),
			attribute.String("release.folder", req.FolderName),
		),
	)
	defer span.End()

	result, err := s.updateGitOps(ctx, req)

	outcome := "success"
	if err != nil {
		outcome = domain.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.patches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("environment", string(result.Environment)),
		attribute.String("outcome", outcome),
	))

	return result, err
}

func (s *ReleaseService) updateGitOps(ctx context.Context, req domain.UpdateRequest) (domain.UpdateResult, error) {
	var result domain.UpdateResult

	env, err := domain.Classify(req.Version)
	if err != nil {
		return result, fmt.Errorf("classifying version: %w", err)
	}
	result.Environment = env
	result.ValuesFile = domain.ValuesFilePath(env, req.FolderName)
	result.Branch = domain.ReleaseBranchName(req.FolderName, req.Version)

	s.logger.Info("updating gitops values",
		"version", req.Version,
		"environment", env,
		"valuesFile", result.ValuesFile,
		"branch", result.Branch,
	)

	cloneCtx, cancel := context.WithTimeout(ctx, s.settings.GitTimeout)
	dir, cleanup, err := s.gitops.Clone(cloneCtx)
	cancel()
	if err != nil {
		return result, fmt.Errorf("cloning gitops repository: %w", err)
	}
	defer cleanup()

	file := filepath.Join(dir, filepath.FromSlash(result.ValuesFile))

	targets, before, err := s.readTargets(ctx, dir, file, req.FolderName, result.ValuesFile)
	if err != nil {
		return result, err
	}
	for _, t := range s.settings.Targets {
		if _, ok := before[t.Path]; !ok {
			result.Patch.Skipped = append(result.Patch.Skipped, t.Path)
			s.logger.Info("optional path absent, skipping", "path", t.Path, "valuesFile", result.ValuesFile)
		}
	}

	if err := s.gitops.CreateBranch(ctx, dir, result.Branch); err != nil {
		return result, fmt.Errorf("creating branch: %w", err)
	}

	patch, err := s.patch(ctx, file, result.ValuesFile, targets, before, req.Version)
	if err != nil {
		return result, err
	}
	patch.Skipped = result.Patch.Skipped
	result.Patch = patch

	message := fmt.Sprintf("chore(%s): deploy %s to %s",
		domain.NormalizeFolderName(req.FolderName), req.Version, env)

	pushCtx, cancel := context.WithTimeout(ctx, s.settings.GitTimeout)
	sha, err := s.gitops.CommitAndPush(pushCtx, dir, result.Branch, message, result.ValuesFile)
	cancel()
	if err != nil {
		return result, fmt.Errorf("committing and pushing %s: %w", result.Branch, err)
	}
	result.CommitSHA = sha
	s.logger.Info("branch pushed", "branch", result.Branch, "commit", sha)

	result.PullRequestURL = s.pr.CompareURL(result.Branch)
	if req.OpenPR {
		prCtx, cancel := context.WithTimeout(ctx, s.settings.GitTimeout)
		url, err := s.pr.Open(prCtx, result.Branch, message, pullRequestBody(result, req.Version))
		cancel()
		if err != nil {
			return result, fmt.Errorf("opening pull request: %w", err)
		}
		result.PullRequestURL = url
		result.PullRequestOpened = true
		s.logger.Info("pull request opened", "url", url)
	}

	return result, nil
}

// readTargets reads the current value of every configured path. Required
// paths must exist; optional ones are dropped from the returned targets when
// absent. A missing values file is reported with the environments that do exist.
func (s *ReleaseService) readTargets(
	ctx context.Context,
	dir, file, folderName, relFile string,
) ([]domain.PatchTarget, map[string]domain.FieldValue, error) {
	values, err := s.values.Read(ctx, file, targetPaths(s.settings.Targets))
	if err != nil {
		var notFound *domain.PathNotFoundError
		if errors.As(err, &notFound) && notFound.Path == "" {
			available, listErr := s.envs.ListEnvironments(ctx, dir, folderName)
			if listErr != nil {
				s.logger.Warn("failed to list environments", "folder", folderName, "error", listErr)
			}
			return nil, nil, fmt.Errorf("reading values: %w",
				&domain.PathNotFoundError{File: relFile, Available: available})
		}
		return nil, nil, fmt.Errorf("reading values: %w", err)
	}

	before := make(map[string]domain.FieldValue, len(values))
	var targets []domain.PatchTarget
	for i, t := range s.settings.Targets {
		v := values[i]
		if !v.Found {
			if t.Optional {
				continue
			}
			return nil, nil, &domain.PathNotFoundError{File: relFile, Path: t.Path}
		}
		before[t.Path] = v
		targets = append(targets, t)
	}
	return targets, before, nil
}

// patch writes version to every target and proves the write took effect by
// reading the file back.
func (s *ReleaseService) patch(
	ctx context.Context,
	file, relFile string,
	targets []domain.PatchTarget,
	before map[string]domain.FieldValue,
	version string,
) (domain.PatchResult, error) {
	paths := targetPaths(targets)

	oldContent, newContent, err := s.values.Write(ctx, file, paths, version)
	if err != nil {
		return domain.PatchResult{}, fmt.Errorf("writing values: %w", err)
	}

	after, err := s.values.Read(ctx, file, paths)
	if err != nil {
		return domain.PatchResult{}, fmt.Errorf("re-reading values: %w", err)
	}

	result := domain.PatchResult{File: relFile, Version: version}
	for i, t := range targets {
		if domain.AlreadyAligned(t, before[t.Path], after[i], version) {
			result.Aligned = append(result.Aligned, t.Path)
			s.logger.Info("optional path already at target", "path", t.Path, "value", version)
			continue
		}
		if err := domain.VerifyPatch(relFile, t, before[t.Path], after[i], version); err != nil {
			return domain.PatchResult{}, err
		}
		result.Changes = append(result.Changes, domain.FieldChange{
			Path:   t.Path,
			Before: before[t.Path].Value,
			After:  after[i].Value,
		})
		s.logger.Info("value updated", "path", t.Path, "before", before[t.Path].Value, "after", after[i].Value)
	}

	if len(result.Changes) == 0 && len(result.Aligned) > 0 {
		return domain.PatchResult{}, &domain.PatchNoOpError{
			File: relFile, Path: result.Aligned[0], Before: version, After: version, Want: version,
		}
	}

	result.Diff = s.diff.ComputeDiff("a/"+relFile, "b/"+relFile, oldContent, newContent)
	s.logger.Debug("values diff", "diff", result.Diff)

	return result, nil
}

func targetPaths(targets []domain.PatchTarget) []string {
	paths := make([]string, len(targets))
	for i, t := range targets {
		paths[i] = t.Path
	}
	return paths
}

func pullRequestBody(result domain.UpdateResult, version string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Deploys `%s` to **%s**.\n\n", version, result.Environment)
	sb.WriteString("| Path | Before | After |\n")
	sb.WriteString("|------|--------|-------|\n")
	for _, c := range result.Patch.Changes {
		fmt.Fprintf(&sb, "| `%s` | `%s` | `%s` |\n", c.Path, c.Before, c.After)
	}
	if result.Patch.Diff != "" {
		fmt.Fprintf(&sb, "\n```diff\n%s\n```\n", result.Patch.Diff)
	}
	return sb.String()
}
