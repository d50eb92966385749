// Package journal appends timestamped lines to the cycle log file and
// mirrors them to standard output.
package journal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Journal is an open log sink for one backup cycle.
type Journal interface {
	// Write appends one "[YYYY-MM-DD HH:MM:SS] message" line. File write
	// failures are swallowed; a cycle must not fail because logging did.
	Write(message string)
	Close()
}

// Service defines the interface for opening the cycle log.
type Service interface {
	Open(path string) (Journal, error)
}

// Impl implements the journal Service interface.
type Impl struct {
	logger zerolog.Logger
	echo   io.Writer
	now    func() time.Time
}

// New creates a new journal service echoing to standard output.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		logger: logger,
		echo:   os.Stdout,
		now:    time.Now,
	}
}

// NewWithEcho creates a new journal service with a custom echo stream and
// clock (for testing).
func NewWithEcho(logger zerolog.Logger, echo io.Writer, now func() time.Time) *Impl {
	return &Impl{
		logger: logger,
		echo:   echo,
		now:    now,
	}
}

// Open opens the log file for appending, creating it if absent. The file
// is never truncated.
func (s *Impl) Open(path string) (Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &fileJournal{
		file:   file,
		echo:   s.echo,
		now:    s.now,
		logger: s.logger,
	}, nil
}

type fileJournal struct {
	file   *os.File
	echo   io.Writer
	now    func() time.Time
	logger zerolog.Logger
}

func (j *fileJournal) Write(message string) {
	line := fmt.Sprintf("[%s] %s\n", j.now().Format("2006-01-02 15:04:05"), message)

	// Console echo always happens, even when the file write fails.
	fmt.Fprint(j.echo, line)

	if _, err := j.file.WriteString(line); err != nil {
		j.logger.Warn().Err(err).Msg("failed to write log line")
	}
}

func (j *fileJournal) Close() {
	_ = j.file.Close()
}
