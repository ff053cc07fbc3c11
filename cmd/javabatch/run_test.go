package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mostlydev/javabatch/internal/discovery"
	"github.com/mostlydev/javabatch/internal/settings"
)

func writeTree(t *testing.T) (root, policy string) {
	t.Helper()
	root = t.TempDir()
	files := map[string]string{
		"google/foo/v1/artman_foo.yaml":                            "artifacts:\n- name: java_gapic\n",
		"google/bar/artman_bar.yaml":                               "artifacts:\n- name: java_proto\n- name: java_grpc\n",
		"google/streetview/publish/artman_streetview_publish.yaml": "artifacts:\n- name: java_gapic\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	policy = filepath.Join(t.TempDir(), "policy.yaml")
	data := "apis: []\nproto_exclusion: [bar]\ngrpc_exclusion: []\ncopy_exclusion: [foo]\n"
	if err := os.WriteFile(policy, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, policy
}

func baseFlags(root, policy string) runFlags {
	return runFlags{
		RootDir:      root,
		Namespace:    "google",
		UserConfig:   filepath.Join(root, "no-user-config.yaml"),
		PolicyPath:   policy,
		LocalRepoDir: filepath.Join(root, "staging"),
		Jobs:         1,
	}
}

func runningLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "running: ") {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestRunBatchDryRun(t *testing.T) {
	root, policy := writeTree(t)
	f := baseFlags(root, policy)
	f.DryRun = true
	f.LocalMode = true

	commandRunner = func(context.Context, []string) error {
		t.Fatal("dry run must not execute")
		return nil
	}
	defer func() { commandRunner = nil }()

	var out, errOut bytes.Buffer
	if err := runBatch(context.Background(), f, &out, &errOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := runningLines(out.String())
	if len(lines) != 2 {
		t.Fatalf("expected 2 commands, got %d:\n%s", len(lines), out.String())
	}
	if !strings.HasSuffix(lines[0], "--config google/bar/artman_bar.yaml --root-dir "+root+
		" publish --local-repo-dir "+f.LocalRepoDir+" --dry-run --target staging java_grpc") {
		t.Fatalf("unexpected bar command: %s", lines[0])
	}
	if !strings.Contains(lines[1], "artman --local --config google/foo/v1/artman_foo.yaml") {
		t.Fatalf("unexpected foo command: %s", lines[1])
	}
	if strings.Contains(out.String(), "streetview_publish") {
		t.Fatalf("blacklisted config leaked:\n%s", out.String())
	}
}

func TestRunBatchUnknownAPIIsFatal(t *testing.T) {
	root, policy := writeTree(t)
	f := baseFlags(root, policy)
	f.DryRun = true
	f.APIList = "foo,nope"

	var out bytes.Buffer
	err := runBatch(context.Background(), f, &out, &bytes.Buffer{})
	if !errors.Is(err, discovery.ErrUnknownAPI) {
		t.Fatalf("expected ErrUnknownAPI, got %v", err)
	}
	if exitCode(err) != exitFailure {
		t.Fatalf("expected exit %d, got %d", exitFailure, exitCode(err))
	}
	if len(runningLines(out.String())) != 0 {
		t.Fatalf("expected no commands before failing, got:\n%s", out.String())
	}
}

func TestRunBatchMissingRootDir(t *testing.T) {
	f := runFlags{UserConfig: filepath.Join(t.TempDir(), "config.yaml"), Namespace: "google"}
	err := runBatch(context.Background(), f, &bytes.Buffer{}, &bytes.Buffer{})
	if !errors.Is(err, settings.ErrNoRootDir) {
		t.Fatalf("expected ErrNoRootDir, got %v", err)
	}
}

func TestRunBatchRootFromUserConfig(t *testing.T) {
	root, policy := writeTree(t)
	userCfg := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(userCfg, []byte("local_paths:\n  googleapis: "+root+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := baseFlags("", policy)
	f.UserConfig = userCfg
	f.DryRun = true

	var out bytes.Buffer
	if err := runBatch(context.Background(), f, &out, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if len(runningLines(out.String())) != 2 {
		t.Fatalf("expected 2 commands, got:\n%s", out.String())
	}
}

func TestRunBatchEmptyDiscoveryIsNoop(t *testing.T) {
	f := baseFlags(t.TempDir(), "")
	var out bytes.Buffer
	if err := runBatch(context.Background(), f, &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "no artman configs found") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRunBatchReportsFailures(t *testing.T) {
	root, policy := writeTree(t)
	f := baseFlags(root, policy)
	f.LocalMode = true

	var calls []string
	commandRunner = func(_ context.Context, args []string) error {
		calls = append(calls, args[len(args)-1])
		if args[len(args)-1] == "java_grpc" {
			return errors.New("exit status 1")
		}
		return nil
	}
	defer func() { commandRunner = nil }()

	var out bytes.Buffer
	err := runBatch(context.Background(), f, &out, &bytes.Buffer{})
	var batchErr *batchFailedError
	if !errors.As(err, &batchErr) || batchErr.failed != 1 {
		t.Fatalf("expected one failed api, got %v", err)
	}
	if exitCode(err) != exitBatchFailed {
		t.Fatalf("expected exit %d, got %d", exitBatchFailed, exitCode(err))
	}
	if strings.Join(calls, ",") != "java_grpc,java_gapic" {
		t.Fatalf("expected foo to run after bar failed, got %v", calls)
	}
	if !strings.Contains(out.String(), "2 apis, 1 failed") {
		t.Fatalf("expected summary, got:\n%s", out.String())
	}
}

func TestRunBatchDockerPreflight(t *testing.T) {
	root, policy := writeTree(t)
	f := baseFlags(root, policy)

	origPing := dockerPing
	dockerPing = func(context.Context) (string, error) {
		return "", errors.New("Cannot connect to the Docker daemon")
	}
	commandRunner = func(context.Context, []string) error {
		t.Fatal("commands must not run when docker is unreachable")
		return nil
	}
	defer func() {
		commandRunner = nil
		dockerPing = origPing
	}()

	err := runBatch(context.Background(), f, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "Docker daemon") {
		t.Fatalf("expected docker preflight error, got %v", err)
	}
}

func TestRunBatchCopyOnly(t *testing.T) {
	root, policy := writeTree(t)
	f := baseFlags(root, policy)
	f.GCJRepoDir = filepath.Join(root, "google-cloud-java")

	var out bytes.Buffer
	if err := runBatch(context.Background(), f, &out, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	if !strings.Contains(text, "copy: bar") || strings.Contains(text, "copy: foo") {
		t.Fatalf("unexpected copy output:\n%s", text)
	}
	if len(runningLines(text)) != 0 {
		t.Fatalf("copy mode must not dispatch:\n%s", text)
	}
}

func TestRunList(t *testing.T) {
	root, policy := writeTree(t)
	var out bytes.Buffer
	if err := runList(root, "google", filepath.Join(root, "none.yaml"), policy, &out, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries, got:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[0], "bar") || !strings.Contains(lines[0], "JAVA_GRPC") {
		t.Fatalf("unexpected bar line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "foo") || !strings.Contains(lines[1], "JAVA_GAPIC") {
		t.Fatalf("unexpected foo line %q", lines[1])
	}
}

func TestRunBatchCancelSkipsRestAndCleanup(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"google/aaa/artman_aaa.yaml": "artifacts:\n- name: java_gapic\n",
		"google/foo/artman_foo.yaml": "artifacts:\n- name: java_gapic\n  publish_targets:\n  - name: staging\n" +
			"    directory_mappings:\n    - dest: generated/java/gapic-foo\n    - name: proto\n      dest: generated/java/proto-foo\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	policy := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(policy, []byte("apis: []\nproto_exclusion: [foo]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := baseFlags(root, policy)
	f.LocalMode = true
	staged := filepath.Join(f.LocalRepoDir, "generated", "java", "proto-foo")
	if err := os.MkdirAll(staged, 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	commandRunner = func(ctx context.Context, _ []string) error {
		calls++
		cancel()
		return ctx.Err()
	}
	defer func() { commandRunner = nil }()

	var out bytes.Buffer
	err := runBatch(ctx, f, &out, &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 runner call after cancel, got %d", calls)
	}
	if _, err := os.Stat(staged); err != nil {
		t.Fatalf("cleanup ran after cancel: %v", err)
	}
	if strings.Contains(out.String(), "deleting: ") {
		t.Fatalf("unexpected cleanup output:\n%s", out.String())
	}
}

func TestRunBatchUsesConfiguredTool(t *testing.T) {
	root, policy := writeTree(t)
	f := baseFlags(root, policy)
	f.DryRun = true
	f.LocalMode = true
	f.Tool = "/opt/artman/bin/artman"

	var out bytes.Buffer
	if err := runBatch(context.Background(), f, &out, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	for _, line := range runningLines(out.String()) {
		if !strings.Contains(line, "running: /opt/artman/bin/artman --local") {
			t.Fatalf("expected configured tool, got %s", line)
		}
	}

	f.G3Artman = true
	out.Reset()
	if err := runBatch(context.Background(), f, &out, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	for _, line := range runningLines(out.String()) {
		if !strings.Contains(line, "running: g3artman --local") {
			t.Fatalf("expected g3artman to override the tool, got %s", line)
		}
	}
}

func TestToolNameDefaultsToArtman(t *testing.T) {
	if got := toolName("", false); got != "artman" {
		t.Fatalf("expected artman, got %q", got)
	}
}

func TestLocalModeFromDockerModeFlag(t *testing.T) {
	flag := runCmd.Flags().Lookup("docker-mode")
	defer func() {
		dockerRun = true
		flag.Value.Set("true")
		flag.Changed = false
	}()

	if localMode(runCmd, false, dockerRun) {
		t.Fatal("expected docker mode by default")
	}
	if err := runCmd.Flags().Set("docker-mode", "false"); err != nil {
		t.Fatal(err)
	}
	if !localMode(runCmd, false, dockerRun) {
		t.Fatal("expected --docker-mode=false to select local mode")
	}
	if err := runCmd.Flags().Set("docker-mode", "true"); err != nil {
		t.Fatal(err)
	}
	if localMode(runCmd, false, dockerRun) {
		t.Fatal("expected --docker-mode=true to keep docker mode")
	}
	if !localMode(runCmd, true, dockerRun) {
		t.Fatal("expected --local-mode to win")
	}
}
