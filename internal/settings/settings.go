package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	env "github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrNoRootDir means neither the flag, the environment, nor the user config
// named a googleapis checkout.
var ErrNoRootDir = errors.New("`--root-dir` or `googleapis` field in artman user config must be specified")

// Defaults seeds CLI flag defaults from JAVA_BATCH_* environment variables.
type Defaults struct {
	RootDir      string `env:"ROOT_DIR" envDefault:""`
	LocalRepoDir string `env:"LOCAL_REPO_DIR" envDefault:"../api-client-staging"`
	UserConfig   string `env:"USER_CONFIG" envDefault:"~/.artman/config.yaml"`
	Namespace    string `env:"NAMESPACE" envDefault:"google"`
	Tool         string `env:"TOOL" envDefault:"artman"`
	Policy       string `env:"POLICY" envDefault:""`
	Jobs         int    `env:"JOBS" envDefault:"1"`
}

func LoadDefaults() (Defaults, error) {
	var d Defaults
	if err := env.ParseWithOptions(&d, env.Options{Prefix: "JAVA_BATCH_"}); err != nil {
		return Defaults{}, fmt.Errorf("read JAVA_BATCH_ environment: %w", err)
	}
	return d, nil
}

// UserConfig is the slice of the artman user config this tool reads.
type UserConfig struct {
	LocalPaths struct {
		Googleapis string `yaml:"googleapis"`
		Reporoot   string `yaml:"reporoot"`
	} `yaml:"local_paths"`
}

// ReadUserConfig loads path. A missing file yields an empty config.
func ReadUserConfig(path string) (*UserConfig, error) {
	var cfg UserConfig
	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read user config %s: %w", expanded, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse user config %s: %w", expanded, err)
	}
	return &cfg, nil
}

// ResolveRootDir picks the googleapis checkout: explicit value first, then
// local_paths.googleapis, then <local_paths.reporoot>/googleapis.
func ResolveRootDir(explicit string, cfg *UserConfig) (string, error) {
	root := strings.TrimSpace(explicit)
	if root == "" && cfg != nil {
		switch {
		case cfg.LocalPaths.Googleapis != "":
			root = cfg.LocalPaths.Googleapis
		case cfg.LocalPaths.Reporoot != "":
			root = filepath.Join(cfg.LocalPaths.Reporoot, "googleapis")
		}
	}
	if root == "" {
		return "", ErrNoRootDir
	}
	return ExpandHome(root)
}

// ExpandHome replaces a leading ~ with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
