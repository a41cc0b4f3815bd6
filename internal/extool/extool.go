// Package extool runs the external conversion engines (robot, semsql via
// docker, runoak, the rxnorm rewrite script) and classifies their output.
//
// The engines predate this tool and report problems inconsistently: some
// write to stderr and exit zero, some print "ERROR" on stdout, and the
// snapshot builder signals an up-to-date output with a message rather than
// an exit code. All of that knowledge lives behind Classify so the rest of
// the pipeline only sees typed outcomes.
package extool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Outcome is the classification of a completed engine invocation.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeAlreadyExists means the engine found its output already built.
	// Recoverable: the caller either accepts the existing output or deletes
	// it and retries.
	OutcomeAlreadyExists
	OutcomeHardFailure
)

// ErrAlreadyExists is returned by Run when the engine reports its output is
// already up to date.
var ErrAlreadyExists = errors.New("engine output already exists")

// Result captures the streams of a completed invocation.
type Result struct {
	Stdout string
	Stderr string
}

// Runner abstracts engine invocation so pipeline tests can substitute fakes.
type Runner interface {
	// Run executes argv in dir (empty dir means the current directory) and
	// blocks until the process exits. A non-OK classification is returned
	// as an error: ErrAlreadyExists for the recoverable case, otherwise a
	// hard failure carrying the offending output.
	Run(ctx context.Context, dir string, argv ...string) (Result, error)
}

// stderr lines that are terminal-capability noise, not failures.
const benignStderrSignature = "Unable to create a system terminal, creating a dumb terminal"

// stdout substring the snapshot builder prints when the target is current.
const upToDateSignature = ".db' is up to date"

// Classify applies the shared output rules: non-benign stderr or an error
// marker on stdout is a hard failure; the up-to-date message is the distinct
// already-exists condition.
func Classify(stdout, stderr string) Outcome {
	if stderr != "" && !strings.Contains(stderr, benignStderrSignature) {
		return OutcomeHardFailure
	}
	if strings.Contains(stdout, upToDateSignature) {
		return OutcomeAlreadyExists
	}
	if strings.Contains(stdout, "error") || strings.Contains(stdout, "ERROR") {
		return OutcomeHardFailure
	}
	if strings.Contains(stdout, "make: Nothing to be done") {
		return OutcomeHardFailure
	}
	return OutcomeOK
}

// ExecRunner runs commands with os/exec. The zero value is ready to use.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

func (ExecRunner) Run(ctx context.Context, dir string, argv ...string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running external tool", "argv", argv, "dir", dir)
	runErr := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	switch Classify(res.Stdout, res.Stderr) {
	case OutcomeAlreadyExists:
		return res, ErrAlreadyExists
	case OutcomeHardFailure:
		out := res.Stderr
		if strings.TrimSpace(out) == "" || strings.Contains(out, benignStderrSignature) {
			out = res.Stdout
		}
		return res, fmt.Errorf("%s failed: %s", argv[0], strings.TrimSpace(out))
	}
	if runErr != nil {
		return res, fmt.Errorf("%s: %w", argv[0], runErr)
	}
	return res, nil
}
