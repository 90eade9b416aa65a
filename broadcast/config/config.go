package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/maelnode/maelnode/pkg/log"
)

type BroadcastConfig struct {
	// RetryInterval is the interval between re-sends of unacknowledged
	// gossip. A tunable, not a correctness-affecting constant: a gossip
	// send simply waits for the next tick before assuming loss.
	RetryInterval time.Duration `json:"retry_interval" yaml:"retry_interval"`
}

func (c *BroadcastConfig) Validate() error {
	if c.RetryInterval == 0 {
		return fmt.Errorf("missing retry interval")
	}
	return nil
}

func (c *BroadcastConfig) RegisterFlags(fs *pflag.FlagSet) {
	fs.DurationVar(
		&c.RetryInterval,
		"broadcast.retry-interval",
		c.RetryInterval,
		`
The interval between re-sends of gossip messages that have not yet been
acknowledged by the target neighbor.

Each interval every unacknowledged send is re-sent with a fresh message ID.`,
	)
}

type AdminConfig struct {
	// BindAddr is the address to bind the admin HTTP server. Empty disables
	// the server.
	BindAddr string `json:"bind_addr" yaml:"bind_addr"`
}

func (c *AdminConfig) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(
		&c.BindAddr,
		"admin.bind-addr",
		c.BindAddr,
		`
The host/port to listen on for admin connections, exposing '/healthz',
'/metrics' and '/status' routes.

The admin server is disabled when no bind address is configured.`,
	)
}

type Config struct {
	Broadcast BroadcastConfig `json:"broadcast" yaml:"broadcast"`

	Admin AdminConfig `json:"admin" yaml:"admin"`

	Log log.Config `json:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Broadcast: BroadcastConfig{
			RetryInterval: time.Second,
		},
		Log: log.Config{
			Level: "info",
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Broadcast.Validate(); err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	c.Broadcast.RegisterFlags(fs)
	c.Admin.RegisterFlags(fs)
	c.Log.RegisterFlags(fs)
}
