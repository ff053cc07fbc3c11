package artman

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// StagingTarget is the publish target whose directory mappings receive
// dry-run output.
const StagingTarget = "staging"

// ErrParse marks a config that could not be decoded into Config.
var ErrParse = errors.New("parse artman config")

// Config is the subset of an artman config this tool reads. Unknown keys are
// ignored.
type Config struct {
	Artifacts []Artifact `yaml:"artifacts"`
}

type Artifact struct {
	Name           string          `yaml:"name"`
	Type           string          `yaml:"type"`
	PublishTargets []PublishTarget `yaml:"publish_targets"`
}

type PublishTarget struct {
	Name              string       `yaml:"name"`
	Type              string       `yaml:"type"`
	DirectoryMappings []DirMapping `yaml:"directory_mappings"`
}

type DirMapping struct {
	Name string `yaml:"name"`
	Src  string `yaml:"src"`
	Dest string `yaml:"dest"`
}

// Decode reads a config from r. An empty document decodes to an empty Config.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &cfg, nil
}

// Parse opens and decodes the config at path.
func Parse(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artman config %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// StagingDir walks artifact -> staging target -> mapping and returns the
// first matching dest. ok is false when any step has no match.
func (c *Config) StagingDir(artifact, mapping string) (dest string, ok bool) {
	if c == nil {
		return "", false
	}
	for _, a := range c.Artifacts {
		if a.Name != artifact {
			continue
		}
		for _, target := range a.PublishTargets {
			if target.Name != StagingTarget {
				continue
			}
			for _, m := range target.DirectoryMappings {
				if m.Name == mapping {
					return m.Dest, true
				}
			}
		}
	}
	return "", false
}
