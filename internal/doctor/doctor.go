package doctor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/docker/docker/client"
)

type Runner func(name string, args ...string) ([]byte, error)

// Pinger answers whether a Docker daemon is reachable and reports its API
// version.
type Pinger func(ctx context.Context) (string, error)

type CheckResult struct {
	Name    string
	OK      bool
	Version string
	Detail  string
}

func defaultRunner(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	stdout, err := cmd.Output()
	if err == nil {
		return stdout, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		combined := make([]byte, 0, len(stdout)+len(exitErr.Stderr))
		combined = append(combined, stdout...)
		combined = append(combined, exitErr.Stderr...)
		return combined, err
	}

	return stdout, err
}

// DockerPing pings the daemon named by the DOCKER_* environment.
func DockerPing(ctx context.Context) (string, error) {
	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return "", fmt.Errorf("create docker client: %w", err)
	}
	defer docker.Close()

	ping, err := docker.Ping(ctx)
	if err != nil {
		return "", err
	}
	return ping.APIVersion, nil
}

// CheckTool runs `<tool> --version`.
func CheckTool(run Runner, tool string) CheckResult {
	return check(tool, run, tool, "--version")
}

// CheckDocker pings the daemon artman's docker mode will use.
func CheckDocker(ctx context.Context, ping Pinger) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	version, err := ping(ctx)
	if err != nil {
		return CheckResult{Name: "docker", OK: false, Detail: err.Error()}
	}
	return CheckResult{Name: "docker", OK: true, Version: "api " + version}
}

// RunAll checks the publishing tool and, when dockerMode is set, the Docker
// daemon.
func RunAll(ctx context.Context, tool string, dockerMode bool) []CheckResult {
	return RunAllWith(ctx, defaultRunner, DockerPing, tool, dockerMode)
}

func RunAllWith(ctx context.Context, run Runner, ping Pinger, tool string, dockerMode bool) []CheckResult {
	results := []CheckResult{CheckTool(run, tool)}
	if dockerMode {
		results = append(results, CheckDocker(ctx, ping))
	}
	return results
}

func check(name string, run Runner, binary string, args ...string) CheckResult {
	output, err := run(binary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return CheckResult{
			Name:   name,
			OK:     false,
			Detail: detail,
		}
	}

	version := strings.TrimSpace(firstLine(string(output)))
	return CheckResult{
		Name:    name,
		OK:      version != "",
		Version: version,
	}
}

func firstLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[0])
}
