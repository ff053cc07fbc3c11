package main

import (
	"fmt"

	"github.com/mostlydev/javabatch/internal/settings"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Flag defaults come from JAVA_BATCH_* before any init registers flags.
var defaults, defaultsErr = settings.LoadDefaults()

var (
	rootDir    string
	namespace  string
	userConfig string
	policyPath string
)

var rootCmd = &cobra.Command{
	Use:          "javabatch",
	Short:        "Run artman Java generation across every API in a googleapis checkout",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return defaultsErr
	},
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootDir, "root-dir", defaults.RootDir, "googleapis repo directory (falls back to local_paths.googleapis in the artman user config)")
	flags.StringVar(&namespace, "namespace", defaults.Namespace, "Subdirectory of the root dir scanned for artman_*.yaml")
	flags.StringVar(&userConfig, "user-config", defaults.UserConfig, "artman user config file")
	flags.StringVar(&policyPath, "policy", defaults.Policy, "YAML file overriding the built-in API list and exclusion tables")
}
