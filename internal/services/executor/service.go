// Package executor runs external programs and reports their exit outcome.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Service defines the interface for running external commands.
type Service interface {
	Run(ctx context.Context, cmd Command) (ExitOutcome, error)
}

// Command describes one external invocation.
type Command struct {
	Program string
	Args    []string
	Env     []string // appended to the parent environment
	Stdin   string   // piped to the child if non-empty
	Quiet   bool     // discard child output instead of passing it through
}

// ExitOutcome carries how a launched process terminated. It is only
// meaningful when Run returned a nil error.
type ExitOutcome struct {
	Code     int
	Signaled bool // terminated by a signal, Code is not meaningful
}

// Success reports a clean zero exit.
func (o ExitOutcome) Success() bool {
	return !o.Signaled && o.Code == 0
}

// Impl implements the executor Service interface.
type Impl struct {
	logger zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

// New creates a new executor whose children share the parent's standard
// streams.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		logger: logger,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// NewWithStreams creates a new executor with custom output streams (for
// testing).
func NewWithStreams(logger zerolog.Logger, stdout, stderr io.Writer) *Impl {
	return &Impl{
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}
}

// Run blocks until the child terminates; there is no watchdog, so a hung
// child hangs the caller until the context is cancelled. A non-nil error
// means the program could not be launched at all; a non-zero or signaled
// exit is reported through the outcome, not the error.
func (s *Impl) Run(ctx context.Context, cmd Command) (ExitOutcome, error) {
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)

	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	if !cmd.Quiet {
		c.Stdout = s.stdout
		c.Stderr = s.stderr
	}

	s.logger.Debug().Str("program", cmd.Program).Strs("args", cmd.Args).Msg("running command")

	err := c.Run()
	if err == nil {
		return ExitOutcome{}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ExitOutcome{}, fmt.Errorf("failed to run %s: %w", cmd.Program, err)
	}

	code := exitErr.ExitCode()
	if code < 0 {
		// No exit code means the child was killed by a signal.
		return ExitOutcome{Signaled: true}, nil
	}
	return ExitOutcome{Code: code}, nil
}
