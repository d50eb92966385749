package models

// SSHShutdownConfig holds the optional post-cycle shutdown of the backup
// target host.
type SSHShutdownConfig struct {
	Host         string
	Port         int
	Username     string
	KeyPath      string // path to the private key file
	DelayMinutes int    // minutes before shutdown; 0 shuts down immediately
}
