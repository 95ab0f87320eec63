// Package invoke runs external version-control clients.
//
// Every call is synchronous: stdin is optionally piped, stdout and stderr are
// captured in full, and the exit status is checked against an allowed set.
package invoke

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
)

// Runner abstracts process execution so backends can be tested with fakes.
type Runner interface {
	Run(args []string, opts RunOptions) (Result, error)
}

type RunOptions struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Stdin is piped to the process when non-nil.
	Stdin []byte
	// Expect lists the allowed exit codes. Nil means only 0.
	Expect []int
}

type Result struct {
	Status int
	Stdout string
	Stderr string
}

// CommandError reports a process that exited outside the allowed set, or one
// that could not be started at all (Status -1, Err set).
type CommandError struct {
	Args   []string
	Status int
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	cmdline := shellquote.Join(e.Args...)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", cmdline, e.Err)
	}
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s: exit status %d", cmdline, e.Status)
	}
	return fmt.Sprintf("%s: exit status %d: %s", cmdline, e.Status, stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err comes from a client binary missing on PATH.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// Invoker is the default Runner backed by os/exec.
type Invoker struct {
	// Verbose logs every command line and its outcome at debug level.
	Verbose bool
	Logger  *slog.Logger

	// command builds the process; tests swap it for a helper process.
	command func(name string, args ...string) *exec.Cmd
}

func New(verbose bool) *Invoker {
	return &Invoker{Verbose: verbose}
}

func (i *Invoker) Run(args []string, opts RunOptions) (Result, error) {
	if len(args) == 0 || args[0] == "" {
		return Result{}, errors.New("invoke: empty command")
	}
	expect := opts.Expect
	if len(expect) == 0 {
		expect = []int{0}
	}
	logger := i.logger()
	if i.Verbose {
		logger.Debug("invoke",
			slog.String("dir", opts.Dir),
			slog.String("cmd", shellquote.Join(args...)),
		)
	}

	build := exec.Command
	if i.command != nil {
		build = i.command
	}
	cmd := build(args[0], args[1:]...)
	cmd.Dir = opts.Dir
	if opts.Stdin != nil {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	status := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, &CommandError{Args: args, Status: -1, Err: err}
		}
		status = exitErr.ExitCode()
	}
	res := Result{Status: status, Stdout: stdout.String(), Stderr: stderr.String()}
	if i.Verbose {
		logger.Debug("invoke done",
			slog.String("cmd", args[0]),
			slog.Int("status", status),
			slog.Int("stdout_bytes", len(res.Stdout)),
			slog.String("stderr", strings.TrimSpace(res.Stderr)),
		)
	}
	if !slices.Contains(expect, status) {
		return res, &CommandError{Args: args, Status: status, Stderr: res.Stderr}
	}
	return res, nil
}

func (i *Invoker) logger() *slog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}
