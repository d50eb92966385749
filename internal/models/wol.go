package models

import "time"

// WOLConfig holds Wake-on-LAN configuration for the backup target host.
type WOLConfig struct {
	MACAddress   string
	BroadcastIP  string
	PingURL      string        // URL polled until the target answers; empty skips the wait
	Timeout      time.Duration // max time to wait for the target
	PollInterval time.Duration // how often to poll PingURL
}
