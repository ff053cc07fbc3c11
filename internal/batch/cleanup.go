package batch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mostlydev/javabatch/internal/artman"
	"github.com/mostlydev/javabatch/internal/discovery"
)

// Cleaner removes staged output that excluded sub-artifacts leave behind.
type Cleaner struct {
	Policy       Policy
	Registry     discovery.Registry
	LocalRepoDir string
	DryRun       bool
	Out          io.Writer
	// Remove deletes a directory tree. Defaults to os.RemoveAll.
	Remove func(path string) error
}

// Clean visits the proto exclusion table and then the grpc exclusion table.
// It returns the directories it deleted (or would delete in dry-run). Parse
// and delete failures stop the pass.
func (c *Cleaner) Clean() ([]string, error) {
	var removed []string
	passes := []struct {
		apis    []string
		mapping string
	}{
		{c.Policy.ProtoExclusion, ProtoMapping},
		{c.Policy.GRPCExclusion, GRPCMapping},
	}
	for _, pass := range passes {
		for _, api := range pass.apis {
			dir, err := c.cleanOne(api, pass.mapping)
			if err != nil {
				return removed, err
			}
			if dir != "" {
				removed = append(removed, dir)
			}
		}
	}
	return removed, nil
}

func (c *Cleaner) cleanOne(api, mapping string) (string, error) {
	config, ok := c.Registry[api]
	if !ok {
		c.logf("cleanup: %s has no config, skipping %s", api, mapping)
		return "", nil
	}

	cfg, err := artman.Parse(config)
	if err != nil {
		return "", fmt.Errorf("cleanup %s: %w", api, err)
	}

	artifact := c.Policy.CleanupArtifact
	if artifact == "" {
		artifact = artman.KindGapic
	}
	dest, ok := cfg.StagingDir(artifact, mapping)
	if !ok || dest == "" {
		return "", nil
	}
	dir := dest
	if !filepath.IsAbs(dir) && c.LocalRepoDir != "" {
		dir = filepath.Join(c.LocalRepoDir, dir)
	}

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logf("cleanup: %s does not exist, nothing to delete", dir)
			return "", nil
		}
		return "", apiErrorf(ErrDelete, api, "stat %s: %v", dir, err)
	}

	if c.DryRun {
		c.logf("would delete: %s", dir)
		return dir, nil
	}
	c.logf("deleting: %s", dir)
	remove := c.Remove
	if remove == nil {
		remove = os.RemoveAll
	}
	if err := remove(dir); err != nil {
		return "", apiErrorf(ErrDelete, api, "remove %s: %v", dir, err)
	}
	return dir, nil
}

func (c *Cleaner) logf(format string, args ...any) {
	if c.Out == nil {
		return
	}
	fmt.Fprintf(c.Out, LogPrefix+format+"\n", args...)
}
