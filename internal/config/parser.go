// Package config provides configuration file parsing.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/borgtm/internal/models"
	"github.com/spf13/viper"
)

// DefaultConfig is the embedded example configuration. It is written out
// by generate-config and parsed when no --config flag is given.
//
//go:embed default.yaml
var DefaultConfig []byte

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// LoadDefault loads the embedded example configuration.
func (p *Parser) LoadDefault() (*models.Config, error) {
	if err := p.v.ReadConfig(bytes.NewReader(DefaultConfig)); err != nil {
		return nil, fmt.Errorf("reading default config: %w", err)
	}

	return p.parse()
}

// rawJob mirrors models.Job with an optional enabled flag so that absence
// defaults to true.
type rawJob struct {
	Name        string   `mapstructure:"name"`
	Source      string   `mapstructure:"source"`
	Destination string   `mapstructure:"destination"`
	Enabled     *bool    `mapstructure:"enabled"`
	Exclude     []string `mapstructure:"exclude"`
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	// Repository (required).
	cfg.Repository = models.RepositoryConfig{
		Path:       p.expandEnv(p.v.GetString("repository.path")),
		Encryption: p.v.GetString("repository.encryption"),
	}
	if cfg.Repository.Path == "" {
		return nil, fmt.Errorf("repository.path is required")
	}
	if cfg.Repository.Encryption == "" {
		cfg.Repository.Encryption = "repokey-blake2"
	}

	// Jobs (at least one required).
	var rawJobs []rawJob
	if err := p.v.UnmarshalKey("jobs", &rawJobs); err != nil {
		return nil, fmt.Errorf("parsing jobs: %w", err)
	}
	if len(rawJobs) == 0 {
		return nil, fmt.Errorf("at least one job is required")
	}
	for _, raw := range rawJobs {
		if raw.Source == "" {
			return nil, fmt.Errorf("job %q: source is required", raw.Name)
		}
		job := models.Job{
			Name:        raw.Name,
			Source:      raw.Source,
			Destination: raw.Destination,
			Enabled:     raw.Enabled == nil || *raw.Enabled,
			Exclude:     raw.Exclude,
		}
		cfg.Jobs = append(cfg.Jobs, job)
	}

	cfg.Exclusions = p.v.GetStringSlice("exclusions")

	cfg.Compression = p.v.GetString("compression")
	if cfg.Compression == "" {
		cfg.Compression = "lz4"
	}

	cfg.Options = models.Options{
		OneFileSystem: p.v.GetBool("options.one_file_system"),
		ExcludeCaches: p.v.GetBool("options.exclude_caches"),
		ShowProgress:  p.v.GetBool("options.show_progress"),
		ShowStats:     p.v.GetBool("options.show_stats"),
	}

	// Retention knobs are passed to borg verbatim, zeros included; only
	// within gets a default because borg rejects an empty --keep-within.
	cfg.Retention = models.RetentionPolicy{
		Within:  p.v.GetString("retention.within"),
		Hourly:  p.v.GetInt("retention.hourly"),
		Daily:   p.v.GetInt("retention.daily"),
		Weekly:  p.v.GetInt("retention.weekly"),
		Monthly: p.v.GetInt("retention.monthly"),
		Yearly:  p.v.GetInt("retention.yearly"),
	}
	if cfg.Retention.Within == "" {
		cfg.Retention.Within = "24H"
	}

	cfg.Notifications = models.NotificationsConfig{
		Enabled: p.v.GetBool("notifications.enabled"),
		Email:   p.expandEnv(p.v.GetString("notifications.email")),
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Email == "" {
		return nil, fmt.Errorf("notifications.email is required when notifications are enabled")
	}

	cfg.Logging = models.LoggingConfig{
		LogFile:  p.expandEnv(p.v.GetString("logging.log_file")),
		LockFile: p.expandEnv(p.v.GetString("logging.lock_file")),
	}
	if cfg.Logging.LogFile == "" {
		cfg.Logging.LogFile = "/var/log/borgtm.log"
	}
	if cfg.Logging.LockFile == "" {
		cfg.Logging.LockFile = "/var/run/borgtm.lock"
	}

	cfg.Maintenance = models.MaintenanceConfig{
		CheckDay:    p.v.GetInt("maintenance.check_day"),
		AutoCompact: p.v.GetBool("maintenance.auto_compact"),
	}
	if cfg.Maintenance.CheckDay < 0 || cfg.Maintenance.CheckDay > 7 {
		return nil, fmt.Errorf("maintenance.check_day must be between 0 and 7")
	}

	cfg.Security = models.SecurityConfig{
		PassphraseFile: p.expandEnv(p.v.GetString("security.passphrase_file")),
	}
	if cfg.Security.PassphraseFile == "" {
		return nil, fmt.Errorf("security.passphrase_file is required")
	}

	// Optional WOL section.
	if p.v.IsSet("wol") {
		cfg.WOL = &models.WOLConfig{
			MACAddress:   p.v.GetString("wol.mac_address"),
			BroadcastIP:  p.v.GetString("wol.broadcast_ip"),
			PingURL:      p.v.GetString("wol.ping_url"),
			Timeout:      p.v.GetDuration("wol.timeout"),
			PollInterval: p.v.GetDuration("wol.poll_interval"),
		}

		if cfg.WOL.MACAddress == "" {
			return nil, fmt.Errorf("wol.mac_address is required when wol is configured")
		}
		if cfg.WOL.BroadcastIP == "" {
			cfg.WOL.BroadcastIP = "255.255.255.255"
		}
		if cfg.WOL.Timeout == 0 {
			cfg.WOL.Timeout = 5 * time.Minute
		}
		if cfg.WOL.PollInterval == 0 {
			cfg.WOL.PollInterval = 10 * time.Second
		}
	}

	// Optional SSH shutdown section.
	if p.v.IsSet("ssh_shutdown") {
		cfg.SSHShutdown = &models.SSHShutdownConfig{
			Host:         p.v.GetString("ssh_shutdown.host"),
			Port:         p.v.GetInt("ssh_shutdown.port"),
			Username:     p.v.GetString("ssh_shutdown.username"),
			KeyPath:      p.expandEnv(p.v.GetString("ssh_shutdown.key_path")),
			DelayMinutes: p.v.GetInt("ssh_shutdown.delay_minutes"),
		}

		if cfg.SSHShutdown.Host == "" {
			return nil, fmt.Errorf("ssh_shutdown.host is required when ssh_shutdown is configured")
		}
		if cfg.SSHShutdown.KeyPath == "" {
			return nil, fmt.Errorf("ssh_shutdown.key_path is required when ssh_shutdown is configured")
		}
		if cfg.SSHShutdown.Port == 0 {
			cfg.SSHShutdown.Port = 22
		}
		if cfg.SSHShutdown.Username == "" {
			cfg.SSHShutdown.Username = "root"
		}
	}

	cfg.Hostname = shortHostname()

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// shortHostname returns the host name truncated at the first dot, the way
// `hostname -s` reports it.
func shortHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	if i := strings.IndexByte(hostname, '.'); i > 0 {
		hostname = hostname[:i]
	}
	return hostname
}

// LoadPassphrase reads the repository passphrase from its restricted file
// into the config. The value lives only in process memory and is handed to
// borg through its environment.
func LoadPassphrase(cfg *models.Config) error {
	content, err := os.ReadFile(cfg.Security.PassphraseFile)
	if err != nil {
		return fmt.Errorf("reading passphrase file %s: %w", cfg.Security.PassphraseFile, err)
	}

	cfg.Security.Passphrase = strings.TrimSpace(string(content))
	if cfg.Security.Passphrase == "" {
		return fmt.Errorf("passphrase file %s is empty", cfg.Security.PassphraseFile)
	}
	return nil
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Repository.Path == "" {
		return fmt.Errorf("repository.path is required")
	}

	if len(cfg.Jobs) == 0 {
		return fmt.Errorf("at least one job is required")
	}

	if cfg.Security.PassphraseFile == "" {
		return fmt.Errorf("security.passphrase_file is required")
	}

	return nil
}
