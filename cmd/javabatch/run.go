package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mostlydev/javabatch/internal/artman"
	"github.com/mostlydev/javabatch/internal/batch"
	"github.com/mostlydev/javabatch/internal/discovery"
	"github.com/mostlydev/javabatch/internal/doctor"
	"github.com/mostlydev/javabatch/internal/settings"
	"github.com/spf13/cobra"
)

type runFlags struct {
	RootDir      string
	Namespace    string
	UserConfig   string
	PolicyPath   string
	LocalRepoDir string
	GCJRepoDir   string
	APIList      string
	Exclude      string
	Tool         string
	LocalMode    bool
	G3Artman     bool
	DryRun       bool
	Jobs         int
}

var (
	runOpts   runFlags
	dockerRun bool

	// Swapped out in tests.
	commandRunner batch.Runner
	dockerPing    doctor.Pinger = doctor.DockerPing
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate and stage Java artifacts for each selected API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := runOpts
		f.RootDir = rootDir
		f.Namespace = namespace
		f.UserConfig = userConfig
		f.PolicyPath = policyPath
		f.Tool = defaults.Tool
		f.LocalMode = localMode(cmd, runOpts.LocalMode, dockerRun)
		return runBatch(cmd.Context(), f, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func runBatch(ctx context.Context, f runFlags, out, errOut io.Writer) error {
	root, err := resolveRoot(f.RootDir, f.UserConfig)
	if err != nil {
		return err
	}
	policy, err := loadPolicy(f.PolicyPath)
	if err != nil {
		return err
	}

	reg, err := discover(root, f.Namespace, policy, errOut)
	if err != nil {
		return err
	}
	if len(reg) == 0 {
		fmt.Fprintf(out, "%sno artman configs found under %s\n", batch.LogPrefix, filepath.Join(root, f.Namespace))
		return nil
	}

	selected, err := batch.Plan(reg, policy, discovery.SplitList(f.APIList), discovery.SplitList(f.Exclude))
	if err != nil {
		return err
	}

	if f.GCJRepoDir != "" {
		// Copy-only mode lists the APIs eligible for copying into the
		// google-cloud-java checkout. It runs no generation and no cleanup.
		for _, sel := range batch.CopyCandidates(policy, selected) {
			fmt.Fprintf(out, "%scopy: %s -> %s\n", batch.LogPrefix, sel.API, f.GCJRepoDir)
		}
		return nil
	}

	if !f.LocalMode && !f.DryRun {
		check := doctor.CheckDocker(ctx, dockerPing)
		if !check.OK {
			return fmt.Errorf("docker mode needs a reachable Docker daemon (use --local-mode to run artman locally): %s", check.Detail)
		}
	}

	tool := toolName(f.Tool, f.G3Artman)
	opts := batch.Options{
		RootDir:      root,
		LocalRepoDir: f.LocalRepoDir,
		Tool:         tool,
		Local:        f.LocalMode,
		DryRun:       f.DryRun,
		Jobs:         f.Jobs,
	}
	if f.Jobs > 1 {
		out = batch.SyncWriter(out)
		errOut = batch.SyncWriter(errOut)
	}
	run := commandRunner
	if run == nil {
		run = batch.ExecRunner(out, errOut)
	}
	results := batch.NewDispatcher(opts, policy, run, out).Dispatch(ctx, selected)

	if err := ctx.Err(); err != nil {
		batch.WriteSummary(out, results)
		fmt.Fprintf(errOut, "%sinterrupted, skipping cleanup\n", batch.LogPrefix)
		return err
	}

	cleaner := &batch.Cleaner{
		Policy:       policy,
		Registry:     reg,
		LocalRepoDir: f.LocalRepoDir,
		DryRun:       f.DryRun,
		Out:          out,
	}
	_, cleanErr := cleaner.Clean()

	batch.WriteSummary(out, results)
	if cleanErr != nil {
		return fmt.Errorf("cleanup: %w", cleanErr)
	}
	if failed := len(batch.Failed(results)); failed > 0 {
		return &batchFailedError{failed: failed}
	}
	return nil
}

// localMode reports whether artman should run locally: either --local-mode
// was given or --docker-mode was explicitly turned off.
func localMode(cmd *cobra.Command, local, docker bool) bool {
	return local || (cmd.Flags().Changed("docker-mode") && !docker)
}

// toolName picks the publishing tool binary. --g3artman overrides base.
func toolName(base string, g3 bool) string {
	if g3 {
		return artman.G3Tool
	}
	if base == "" {
		return artman.DefaultTool
	}
	return base
}

func resolveRoot(explicit, userConfigPath string) (string, error) {
	cfg, err := settings.ReadUserConfig(userConfigPath)
	if err != nil {
		return "", err
	}
	return settings.ResolveRootDir(explicit, cfg)
}

func loadPolicy(path string) (batch.Policy, error) {
	if path == "" {
		return batch.DefaultPolicy(), nil
	}
	return batch.LoadPolicy(path)
}

// discover scans <root>/<namespace>, drops blacklisted files and maps the
// rest by API name. Duplicate API names are reported on errOut.
func discover(root, namespace string, policy batch.Policy, errOut io.Writer) (discovery.Registry, error) {
	files, err := discovery.Scan(filepath.Join(root, namespace))
	if err != nil {
		return nil, err
	}
	files = discovery.FilterExclusion(files, policy.Blacklist)
	for _, api := range discovery.Duplicates(files) {
		fmt.Fprintf(errOut, "%swarning: more than one %s found, using the last one scanned\n", batch.LogPrefix, discovery.FileName(api))
	}
	return discovery.NewRegistry(files), nil
}

func init() {
	flags := runCmd.Flags()
	flags.StringVar(&runOpts.LocalRepoDir, "local-repo-dir", defaults.LocalRepoDir, "api-client-staging repo directory")
	flags.StringVar(&runOpts.GCJRepoDir, "gcj-repo-dir", "", "google-cloud-java repo directory; when set only the copy task runs")
	flags.StringVar(&runOpts.APIList, "api-list", "", "Comma-separated APIs to generate (default: the policy API list)")
	flags.StringVar(&runOpts.Exclude, "exclude", "", "Comma-separated APIs removed from the policy API list")
	flags.BoolVar(&dockerRun, "docker-mode", true, "Run artman in docker mode (default)")
	flags.BoolVar(&runOpts.LocalMode, "local-mode", false, "Run artman in local mode")
	flags.BoolVar(&runOpts.G3Artman, "g3artman", false, "Run g3artman instead of artman")
	flags.BoolVar(&runOpts.DryRun, "dry-run", false, "Print artman commands without running them")
	flags.IntVarP(&runOpts.Jobs, "jobs", "j", defaults.Jobs, "APIs to generate concurrently")
	runCmd.MarkFlagsMutuallyExclusive("docker-mode", "local-mode")
	rootCmd.AddCommand(runCmd)
}
