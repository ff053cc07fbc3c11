package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mostlydev/javabatch/internal/artman"
	"github.com/mostlydev/javabatch/internal/discovery"
)

// LogPrefix starts every operator-facing line the batch writes.
const LogPrefix = "JAVA_BATCH> "

// State is where an API ended up in a dispatch pass.
type State string

const (
	StatePending    State = "PENDING"
	StateClassified State = "CLASSIFIED"
	StateOK         State = "EXECUTED_OK"
	StateFailed     State = "EXECUTED_FAIL"
	StateSkipped    State = "SKIPPED"
)

// Runner executes one argv to completion. A non-nil error means the command
// did not succeed.
type Runner func(ctx context.Context, args []string) error

// ExecRunner runs commands as child processes wired to stdout and stderr.
func ExecRunner(stdout, stderr io.Writer) Runner {
	return func(ctx context.Context, args []string) error {
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		return cmd.Run()
	}
}

// SyncWriter serializes writes to w. Child processes and log lines share the
// same writer when APIs dispatch concurrently.
func SyncWriter(w io.Writer) io.Writer {
	return &lockedWriter{w: w}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Options carries the resolved CLI flags the dispatcher needs.
type Options struct {
	RootDir      string
	LocalRepoDir string
	Tool         string
	Local        bool
	DryRun       bool
	// Jobs bounds how many APIs dispatch at once. Values below 2 run
	// strictly sequentially.
	Jobs int
}

// Result is the outcome for one API.
type Result struct {
	API      string
	Config   string
	Task     artman.TaskType
	State    State
	Commands []string
	Err      error
}

func (r Result) OK() bool { return r.State == StateOK }

type Dispatcher struct {
	Options Options
	Policy  Policy
	Run     Runner
	Out     io.Writer

	mu sync.Mutex
}

func NewDispatcher(opts Options, policy Policy, run Runner, out io.Writer) *Dispatcher {
	if run == nil {
		run = ExecRunner(os.Stdout, os.Stderr)
	}
	if out == nil {
		out = io.Discard
	}
	return &Dispatcher{Options: opts, Policy: policy, Run: run, Out: out}
}

// Dispatch runs every selection and returns results in selection order. A
// failing API never stops the others. Once ctx is cancelled the remaining
// APIs are recorded as skipped without running anything.
func (d *Dispatcher) Dispatch(ctx context.Context, selected []discovery.Selection) []Result {
	results := make([]Result, len(selected))
	if d.Options.Jobs < 2 {
		for i, sel := range selected {
			if err := ctx.Err(); err != nil {
				results[i] = cancelled(sel, err)
				continue
			}
			results[i] = d.DispatchOne(ctx, sel)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(d.Options.Jobs)
	for i, sel := range selected {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = cancelled(sel, err)
				return nil
			}
			results[i] = d.DispatchOne(ctx, sel)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// DispatchOne classifies a single API's config and runs its commands in order.
func (d *Dispatcher) DispatchOne(ctx context.Context, sel discovery.Selection) Result {
	res := Result{API: sel.API, Config: sel.Config, State: StatePending}

	content, err := os.ReadFile(sel.Config)
	if err != nil {
		res.State = StateFailed
		res.Err = fmt.Errorf("%s: read config: %w", sel.API, err)
		d.logf("%v", res.Err)
		return res
	}
	res.Task = artman.Classify(string(content))
	res.State = StateClassified

	var kinds []string
	switch res.Task {
	case artman.TaskClient:
		kinds = []string{artman.KindGapic}
	case artman.TaskTransport:
		if !contains(d.Policy.ProtoExclusion, sel.API) {
			kinds = append(kinds, artman.KindProto)
		}
		if !contains(d.Policy.GRPCExclusion, sel.API) {
			kinds = append(kinds, artman.KindGRPC)
		}
		if len(kinds) == 0 {
			d.logf("%s: java_proto and java_grpc both excluded, nothing to run", sel.API)
		}
	default:
		res.State = StateSkipped
		res.Err = apiErrorf(ErrUnclassified, sel.API, "no java_gapic or java_proto+java_grpc markers in %s", sel.Config)
		d.logf("skipping: %v", res.Err)
		return res
	}

	for _, kind := range kinds {
		if err := ctx.Err(); err != nil {
			res.State = StateSkipped
			res.Err = fmt.Errorf("%s: %w", sel.API, err)
			return res
		}
		inv := d.invocation(sel.Config, kind)
		line := inv.String()
		res.Commands = append(res.Commands, line)
		d.logf("running: %s", line)
		if d.Options.DryRun {
			continue
		}
		if err := d.Run(ctx, inv.Args()); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.State = StateSkipped
				res.Err = fmt.Errorf("%s: %s interrupted: %w", sel.API, kind, ctxErr)
				d.logf("interrupted: %s %s", sel.API, kind)
				return res
			}
			res.State = StateFailed
			res.Err = apiErrorf(ErrCommandFailed, sel.API, "%s: %v", kind, err)
			d.logf("failed: %v", res.Err)
			return res
		}
	}
	res.State = StateOK
	return res
}

func cancelled(sel discovery.Selection, err error) Result {
	return Result{
		API:    sel.API,
		Config: sel.Config,
		State:  StateSkipped,
		Err:    fmt.Errorf("%s: %w", sel.API, err),
	}
}

func (d *Dispatcher) invocation(config, kind string) artman.Invocation {
	return artman.Invocation{
		Tool:         d.Options.Tool,
		Local:        d.Options.Local,
		Config:       relativeTo(d.Options.RootDir, config),
		RootDir:      d.Options.RootDir,
		LocalRepoDir: d.Options.LocalRepoDir,
		Artifact:     kind,
	}
}

func (d *Dispatcher) logf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.Out, LogPrefix+format+"\n", args...)
}

// relativeTo expresses path relative to root when path lives under it.
func relativeTo(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// Failed returns the results that did not end in StateOK.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// WriteSummary prints one line per API followed by totals.
func WriteSummary(w io.Writer, results []Result) {
	for _, r := range results {
		line := fmt.Sprintf("%s%-28s %-13s %s", LogPrefix, r.API, r.State, r.Task)
		var apiErr *Error
		if r.Err != nil && !errors.As(r.Err, &apiErr) {
			line += " (" + r.Err.Error() + ")"
		} else if apiErr != nil {
			line += " (" + apiErr.Kind.Error() + ")"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "%s%d apis, %d failed\n", LogPrefix, len(results), len(Failed(results)))
}
