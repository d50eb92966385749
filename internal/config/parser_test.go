package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
repository:
  path: /backup/borg
jobs:
  - name: etc
    source: /etc
security:
  passphrase_file: /etc/borgtm/passphrase
`

const fullConfig = `
repository:
  path: /backup/borg
  encryption: keyfile
jobs:
  - name: system-config
    source: /etc
    destination: system
  - name: scratch
    source: /var/scratch
    enabled: false
    exclude:
      - "*.tmp"
exclusions:
  - "*.pyc"
compression: zstd,10
options:
  one_file_system: true
  exclude_caches: true
  show_progress: true
  show_stats: true
retention:
  within: 7d
  hourly: 12
  daily: 14
  weekly: 8
  monthly: 12
  yearly: 2
notifications:
  enabled: true
  email: admin@example.com
logging:
  log_file: /var/log/backups/borgtm.log
  lock_file: /run/borgtm.lock
maintenance:
  check_day: 3
  auto_compact: true
security:
  passphrase_file: /etc/borgtm/passphrase
`

func TestLoadReader_FullConfig(t *testing.T) {
	cfg, err := NewParser().LoadReader(fullConfig)

	require.NoError(t, err)
	assert.Equal(t, "/backup/borg", cfg.Repository.Path)
	assert.Equal(t, "keyfile", cfg.Repository.Encryption)
	assert.Equal(t, "zstd,10", cfg.Compression)
	assert.Equal(t, []string{"*.pyc"}, cfg.Exclusions)
	assert.True(t, cfg.Options.OneFileSystem)
	assert.True(t, cfg.Options.ShowProgress)
	assert.Equal(t, "7d", cfg.Retention.Within)
	assert.Equal(t, 12, cfg.Retention.Hourly)
	assert.Equal(t, 14, cfg.Retention.Daily)
	assert.Equal(t, 2, cfg.Retention.Yearly)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, "admin@example.com", cfg.Notifications.Email)
	assert.Equal(t, "/var/log/backups/borgtm.log", cfg.Logging.LogFile)
	assert.Equal(t, "/run/borgtm.lock", cfg.Logging.LockFile)
	assert.Equal(t, 3, cfg.Maintenance.CheckDay)
	assert.True(t, cfg.Maintenance.AutoCompact)
	assert.Equal(t, "/etc/borgtm/passphrase", cfg.Security.PassphraseFile)
	assert.NotEmpty(t, cfg.Hostname)
	assert.NotContains(t, cfg.Hostname, ".")
	assert.Nil(t, cfg.WOL)
	assert.Nil(t, cfg.SSHShutdown)
}

func TestLoadReader_Jobs(t *testing.T) {
	cfg, err := NewParser().LoadReader(fullConfig)

	require.NoError(t, err)
	require.Len(t, cfg.Jobs, 2)

	assert.Equal(t, "system-config", cfg.Jobs[0].Name)
	assert.Equal(t, "/etc", cfg.Jobs[0].Source)
	assert.Equal(t, "system", cfg.Jobs[0].Destination)
	assert.True(t, cfg.Jobs[0].Enabled, "enabled should default to true")

	assert.False(t, cfg.Jobs[1].Enabled)
	assert.Equal(t, []string{"*.tmp"}, cfg.Jobs[1].Exclude)

	enabled := cfg.EnabledJobs()
	require.Len(t, enabled, 1)
	assert.Equal(t, "system-config", enabled[0].Name)
}

func TestLoadReader_Defaults(t *testing.T) {
	cfg, err := NewParser().LoadReader(minimalConfig)

	require.NoError(t, err)
	assert.Equal(t, "repokey-blake2", cfg.Repository.Encryption)
	assert.Equal(t, "lz4", cfg.Compression)
	assert.Equal(t, "24H", cfg.Retention.Within)
	assert.Zero(t, cfg.Retention.Daily)
	assert.Equal(t, "/var/log/borgtm.log", cfg.Logging.LogFile)
	assert.Equal(t, "/var/run/borgtm.lock", cfg.Logging.LockFile)
	assert.Zero(t, cfg.Maintenance.CheckDay)
	assert.False(t, cfg.Maintenance.AutoCompact)
	assert.False(t, cfg.Notifications.Enabled)
}

func TestLoadReader_MissingRepository(t *testing.T) {
	_, err := NewParser().LoadReader(`
jobs:
  - name: etc
    source: /etc
security:
  passphrase_file: /etc/borgtm/passphrase
`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository.path is required")
}

func TestLoadReader_MissingJobs(t *testing.T) {
	_, err := NewParser().LoadReader(`
repository:
  path: /backup/borg
security:
  passphrase_file: /etc/borgtm/passphrase
`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one job is required")
}

func TestLoadReader_JobWithoutSource(t *testing.T) {
	_, err := NewParser().LoadReader(`
repository:
  path: /backup/borg
jobs:
  - name: broken
security:
  passphrase_file: /etc/borgtm/passphrase
`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `job "broken": source is required`)
}

func TestLoadReader_MissingPassphraseFile(t *testing.T) {
	_, err := NewParser().LoadReader(`
repository:
  path: /backup/borg
jobs:
  - name: etc
    source: /etc
`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "security.passphrase_file is required")
}

func TestLoadReader_InvalidCheckDay(t *testing.T) {
	_, err := NewParser().LoadReader(minimalConfig + `
maintenance:
  check_day: 8
`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "check_day must be between 0 and 7")
}

func TestLoadReader_NotificationsRequireEmail(t *testing.T) {
	_, err := NewParser().LoadReader(minimalConfig + `
notifications:
  enabled: true
`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "notifications.email is required")
}

func TestLoadReader_WOLSection(t *testing.T) {
	cfg, err := NewParser().LoadReader(minimalConfig + `
wol:
  mac_address: "aa:bb:cc:dd:ee:ff"
`)

	require.NoError(t, err)
	require.NotNil(t, cfg.WOL)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", cfg.WOL.MACAddress)
	assert.Equal(t, "255.255.255.255", cfg.WOL.BroadcastIP)
	assert.Equal(t, 5*time.Minute, cfg.WOL.Timeout)
	assert.Equal(t, 10*time.Second, cfg.WOL.PollInterval)
}

func TestLoadReader_WOLRequiresMAC(t *testing.T) {
	_, err := NewParser().LoadReader(minimalConfig + `
wol:
  broadcast_ip: "192.168.1.255"
`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "wol.mac_address is required")
}

func TestLoadReader_SSHShutdownSection(t *testing.T) {
	cfg, err := NewParser().LoadReader(minimalConfig + `
ssh_shutdown:
  host: nas.local
  key_path: /root/.ssh/id_ed25519
`)

	require.NoError(t, err)
	require.NotNil(t, cfg.SSHShutdown)
	assert.Equal(t, "nas.local", cfg.SSHShutdown.Host)
	assert.Equal(t, 22, cfg.SSHShutdown.Port)
	assert.Equal(t, "root", cfg.SSHShutdown.Username)
	assert.Zero(t, cfg.SSHShutdown.DelayMinutes)
}

func TestLoadReader_SSHShutdownRequiresKey(t *testing.T) {
	_, err := NewParser().LoadReader(minimalConfig + `
ssh_shutdown:
  host: nas.local
`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh_shutdown.key_path is required")
}

func TestLoadDefault(t *testing.T) {
	cfg, err := NewParser().LoadDefault()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/borg", cfg.Repository.Path)
	assert.Equal(t, "lz4", cfg.Compression)
	assert.NotEmpty(t, cfg.Jobs)
	assert.Equal(t, "24H", cfg.Retention.Within)
	assert.Equal(t, 24, cfg.Retention.Hourly)
	assert.Equal(t, 7, cfg.Retention.Daily)

	for _, job := range cfg.Jobs {
		assert.True(t, job.Enabled)
	}
}

func TestLoadPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passphrase")
	require.NoError(t, os.WriteFile(path, []byte("correct horse battery staple\n"), 0o600))

	cfg, err := NewParser().LoadReader(minimalConfig)
	require.NoError(t, err)
	cfg.Security.PassphraseFile = path

	require.NoError(t, LoadPassphrase(cfg))
	assert.Equal(t, "correct horse battery staple", cfg.Security.Passphrase)
}

func TestLoadPassphrase_MissingFile(t *testing.T) {
	cfg, err := NewParser().LoadReader(minimalConfig)
	require.NoError(t, err)
	cfg.Security.PassphraseFile = filepath.Join(t.TempDir(), "missing")

	err = LoadPassphrase(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading passphrase file")
}

func TestLoadPassphrase_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passphrase")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	cfg, err := NewParser().LoadReader(minimalConfig)
	require.NoError(t, err)
	cfg.Security.PassphraseFile = path

	err = LoadPassphrase(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestValidate(t *testing.T) {
	cfg, err := NewParser().LoadReader(minimalConfig)
	require.NoError(t, err)

	assert.NoError(t, Validate(cfg))
	assert.Error(t, Validate(nil))

	broken := *cfg
	broken.Jobs = nil
	assert.Error(t, Validate(&broken))
}
