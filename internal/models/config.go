// Package models contains the data structures used throughout borgtm.
package models

import "time"

// Config holds the complete configuration for one invocation. It is loaded
// once and never mutated afterwards.
type Config struct {
	Repository    RepositoryConfig
	Jobs          []Job
	Exclusions    []string // global exclude patterns, applied before any job
	Compression   string   // borg codec spec, e.g. "lz4" or "zstd,10"
	Options       Options
	Retention     RetentionPolicy
	Notifications NotificationsConfig
	Logging       LoggingConfig
	Maintenance   MaintenanceConfig
	Security      SecurityConfig
	WOL           *WOLConfig         // nil if not configured
	SSHShutdown   *SSHShutdownConfig // nil if not configured

	// Hostname is the short host name resolved at load time. It prefixes
	// every archive name and scopes the prune --prefix filter, so the two
	// always agree.
	Hostname string
}

// RepositoryConfig identifies the borg repository.
type RepositoryConfig struct {
	Path       string
	Encryption string // borg encryption scheme, e.g. "repokey-blake2"
}

// Job is one backup source. Names are human labels and are not required to
// be unique.
type Job struct {
	Name        string
	Source      string
	Destination string // informational only
	Enabled     bool
	Exclude     []string // patterns scoped to this job's source
}

// Options holds the borg create flag toggles.
type Options struct {
	OneFileSystem bool
	ExcludeCaches bool
	ShowProgress  bool
	ShowStats     bool
}

// RetentionPolicy defines how many archives prune keeps. Zero values are
// passed to borg verbatim.
type RetentionPolicy struct {
	Within  string // e.g. "24H"
	Hourly  int
	Daily   int
	Weekly  int
	Monthly int
	Yearly  int
}

// NotificationsConfig holds the failure notification target.
type NotificationsConfig struct {
	Enabled bool
	Email   string
}

// LoggingConfig holds the cycle log and lock marker paths.
type LoggingConfig struct {
	LogFile  string
	LockFile string
}

// MaintenanceConfig holds the compact and integrity check schedule.
type MaintenanceConfig struct {
	CheckDay    int // ISO weekday 1 (Monday) to 7 (Sunday); 0 disables the check
	AutoCompact bool
}

// CheckDue reports whether the integrity check is scheduled for the given
// time. CheckDay 0 disables the check regardless of date.
func (m MaintenanceConfig) CheckDue(t time.Time) bool {
	if m.CheckDay == 0 {
		return false
	}
	iso := int(t.Weekday())
	if iso == 0 {
		iso = 7
	}
	return iso == m.CheckDay
}

// SecurityConfig holds the passphrase source. Passphrase is filled in at
// startup from PassphraseFile and only ever leaves the process as an
// environment variable on borg invocations. It must never be logged.
type SecurityConfig struct {
	PassphraseFile string
	Passphrase     string
}

// EnabledJobs returns the jobs that contribute to a backup cycle, in
// configuration order.
func (c *Config) EnabledJobs() []Job {
	jobs := make([]Job, 0, len(c.Jobs))
	for _, job := range c.Jobs {
		if job.Enabled {
			jobs = append(jobs, job)
		}
	}
	return jobs
}
