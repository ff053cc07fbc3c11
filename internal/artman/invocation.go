package artman

import "strings"

const (
	DefaultTool = "artman"
	G3Tool      = "g3artman"
)

// Invocation is one publishing-tool run for a single artifact kind. The tool
// is always pointed at the staging target with its own --dry-run; whether the
// command runs at all is the caller's decision.
type Invocation struct {
	Tool         string
	Local        bool
	Config       string
	RootDir      string
	LocalRepoDir string
	Artifact     string
}

// Args returns the full argv, tool first.
func (inv Invocation) Args() []string {
	tool := inv.Tool
	if tool == "" {
		tool = DefaultTool
	}
	args := []string{tool}
	if inv.Local {
		args = append(args, "--local")
	}
	args = append(args,
		"--config", inv.Config,
		"--root-dir", inv.RootDir,
		"publish",
		"--local-repo-dir", inv.LocalRepoDir,
		"--dry-run",
		"--target", StagingTarget,
		inv.Artifact,
	)
	return args
}

func (inv Invocation) String() string {
	return strings.Join(inv.Args(), " ")
}
