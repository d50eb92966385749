// Package lock provides the advisory marker-file lock that serializes
// backup cycles.
package lock

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// ErrHeld is returned when the marker file already exists, meaning another
// cycle is presumed to be running.
var ErrHeld = errors.New("another backup may be running")

// Service defines the interface for acquiring the cycle lock.
type Service interface {
	Acquire(path string) error
	Release(path string)
}

// Impl implements the lock Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new lock service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// Acquire creates the marker file, failing with ErrHeld if it already
// exists. The check and the create are two separate filesystem operations:
// two invocations racing through this window can both succeed. The lock is
// advisory and only guards against accidental concurrent runs; operators
// remove a stale marker by hand after a crash.
func (s *Impl) Acquire(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("lock file exists at %s: %w", path, ErrHeld)
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	s.logger.Debug().Str("path", path).Msg("lock acquired")
	return nil
}

// Release removes the marker file. Removing an already absent marker is
// not an error.
func (s *Impl) Release(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to remove lock file")
		return
	}
	s.logger.Debug().Str("path", path).Msg("lock released")
}
