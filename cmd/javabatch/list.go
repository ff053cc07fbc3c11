package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mostlydev/javabatch/internal/artman"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered artman configs with their task type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(rootDir, namespace, userConfig, policyPath, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func runList(explicitRoot, ns, userConfigPath, policyFile string, out, errOut io.Writer) error {
	root, err := resolveRoot(explicitRoot, userConfigPath)
	if err != nil {
		return err
	}
	policy, err := loadPolicy(policyFile)
	if err != nil {
		return err
	}
	reg, err := discover(root, ns, policy, errOut)
	if err != nil {
		return err
	}

	for _, api := range reg.APIs() {
		path := reg[api]
		task := artman.TaskUnknown
		if content, err := os.ReadFile(path); err == nil {
			task = artman.Classify(string(content))
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		fmt.Fprintf(out, "%-32s %-10s %s\n", api, task, rel)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
}
