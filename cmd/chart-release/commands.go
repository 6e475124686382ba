package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nathantilsley/chart-release/internal/platform/cioutput"
	"github.com/nathantilsley/chart-release/internal/platform/config"
	"github.com/nathantilsley/chart-release/internal/platform/logger"
	"github.com/nathantilsley/chart-release/internal/release/domain"
)

// cli carries state shared by all commands. Flags write straight into cfg,
// so environment values act as flag defaults.
type cli struct {
	cfg *config.Config
	log *slog.Logger
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	c := &cli{cfg: cfg}

	root := &cobra.Command{
		Use:   "chart-release",
		Short: "Resolve CI build versions and roll them out through GitOps",
		Long: `chart-release computes the version of the current build from git tags,
the branch and the NEXT_VERSION file, then writes that version into the
environment's values file of a GitOps repository on a review branch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			c.log = logger.New(c.cfg.LogLevel)
		},
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error (LOG_LEVEL)")

	root.AddCommand(
		c.versionCmd(),
		c.classifyCmd(),
		c.updateGitOpsCmd(),
		c.releaseCmd(),
	)
	return root
}

func (c *cli) versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the resolved version of the current checkout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.ValidateVersion(); err != nil {
				return err
			}
			return c.withContainer(cmd.Context(), func(ctr *Container) error {
				version, err := c.resolve(cmd.Context(), ctr)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), version)
				return err
			})
		},
	}
	c.addVersionFlags(cmd)
	return cmd
}

func (c *cli) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <version>",
		Short: "Print the deployment environment for a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := domain.Classify(args[0])
			if err != nil {
				return err
			}
			if err := cioutput.New(c.cfg.OutputFile).Write(cioutput.Output{Key: "environment", Value: string(env)}); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), env)
			return err
		},
	}
}

func (c *cli) updateGitOpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-gitops <version>",
		Short: "Write a version into the GitOps values file and push a review branch",
		Long: `Classifies the version into stage, qa or dev, clones the GitOps repository,
sets .image.tag (and .migrationJob.image.tag when present) in
helm-values/<folder>/value-overrides-<env>.yaml, commits the change on
automated/<folder>-<version> and pushes it. The pull request URL is
printed on stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.ValidateGitOps(); err != nil {
				return err
			}
			return c.withContainer(cmd.Context(), func(ctr *Container) error {
				return c.update(cmd, ctr, args[0])
			})
		},
	}
	c.addGitOpsFlags(cmd)
	return cmd
}

func (c *cli) releaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Resolve the version and roll it out to the GitOps repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := errors.Join(c.cfg.ValidateVersion(), c.cfg.ValidateGitOps()); err != nil {
				return err
			}
			return c.withContainer(cmd.Context(), func(ctr *Container) error {
				version, err := c.resolve(cmd.Context(), ctr)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), version); err != nil {
					return err
				}
				return c.update(cmd, ctr, version)
			})
		},
	}
	c.addVersionFlags(cmd)
	c.addGitOpsFlags(cmd)
	return cmd
}

func (c *cli) addVersionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&c.cfg.RepoPath, "repo-path", c.cfg.RepoPath, "Path inside the git checkout to version (REPO_PATH)")
	f.StringVar(&c.cfg.NextVersionFile, "next-version-file", c.cfg.NextVersionFile, "Version override file, relative to --repo-path (NEXT_VERSION_FILE)")
	f.StringVar(&c.cfg.MainBranch, "main-branch", c.cfg.MainBranch, "Branch that produces release candidates (MAIN_BRANCH)")
	f.StringVar(&c.cfg.CIBranch, "branch", c.cfg.CIBranch, "Branch name to use when HEAD is detached (GITHUB_HEAD_REF, GITHUB_REF_NAME)")
	f.IntVar(&c.cfg.RunNumber, "run-number", c.cfg.RunNumber, "CI run number (GITHUB_RUN_NUMBER)")
}

func (c *cli) addGitOpsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&c.cfg.GitOpsRepoURL, "gitops-repo", c.cfg.GitOpsRepoURL, "GitOps repository clone URL (GITOPS_REPO_URL)")
	f.StringVar(&c.cfg.GitOpsBaseBranch, "gitops-base-branch", c.cfg.GitOpsBaseBranch, "Branch to clone and target (GITOPS_BASE_BRANCH)")
	f.StringVar(&c.cfg.GitOpsFolder, "folder", c.cfg.GitOpsFolder, "Service folder under helm-values/ (GITOPS_FOLDER)")
	f.DurationVar(&c.cfg.GitTimeout, "git-timeout", c.cfg.GitTimeout, "Timeout for each clone, push and API call (GIT_TIMEOUT)")
	f.BoolVar(&c.cfg.OpenPullRequest, "open-pr", c.cfg.OpenPullRequest, "Open the pull request instead of only printing its URL (OPEN_PULL_REQUEST)")
}

// withContainer builds the container, runs fn and flushes telemetry.
func (c *cli) withContainer(ctx context.Context, fn func(*Container) error) (err error) {
	ctr, err := NewContainer(ctx, *c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("building container: %w", err)
	}
	defer func() {
		if shutdownErr := ctr.Telemetry.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			c.log.Warn("telemetry shutdown failed", "error", shutdownErr)
		}
	}()
	return fn(ctr)
}

func (c *cli) resolve(ctx context.Context, ctr *Container) (string, error) {
	res, err := ctr.ReleaseService.ResolveVersion(ctx, c.cfg.RunNumber)
	if err != nil {
		return "", err
	}

	outputs := []cioutput.Output{
		{Key: "version", Value: res.Version},
		{Key: "kind", Value: res.Kind.String()},
	}
	if env, err := domain.Classify(res.Version); err == nil {
		outputs = append(outputs, cioutput.Output{Key: "environment", Value: string(env)})
	} else {
		c.log.Warn("resolved version has no deployment environment", "version", res.Version, "error", err)
	}
	if err := ctr.Output.Write(outputs...); err != nil {
		return "", err
	}
	return res.Version, nil
}

func (c *cli) update(cmd *cobra.Command, ctr *Container, version string) error {
	result, err := ctr.ReleaseService.UpdateGitOps(cmd.Context(), domain.UpdateRequest{
		Version:    version,
		FolderName: c.cfg.GitOpsFolder,
		OpenPR:     c.cfg.OpenPullRequest,
	})
	if err != nil {
		var noop *domain.PatchNoOpError
		if errors.As(err, &noop) {
			c.log.Error("values file was not changed", "file", noop.File, "path", noop.Path, "value", noop.After)
		}
		return err
	}

	if err := ctr.Output.Write(
		cioutput.Output{Key: "environment", Value: string(result.Environment)},
		cioutput.Output{Key: "branch", Value: result.Branch},
		cioutput.Output{Key: "values_file", Value: result.ValuesFile},
		cioutput.Output{Key: "commit_sha", Value: result.CommitSHA},
		cioutput.Output{Key: "pr_url", Value: result.PullRequestURL},
	); err != nil {
		return err
	}

	c.log.Info("gitops update pushed",
		"environment", result.Environment,
		"branch", result.Branch,
		"commit", result.CommitSHA,
		"prOpened", result.PullRequestOpened,
	)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), result.PullRequestURL)
	return err
}
