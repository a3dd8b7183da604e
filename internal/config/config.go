package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/qaznotquaz/aLexA/internal/envelope"
)

// Config represents the complete playbill configuration
type Config struct {
	Cast         []CastMember       `mapstructure:"cast"`
	Network      NetworkConfig      `mapstructure:"network"`
	PeerWait     PeerWaitConfig     `mapstructure:"peer_wait"`
	Startup      StartupConfig      `mapstructure:"startup"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Script       ScriptConfig       `mapstructure:"script"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// CastMember is one participant of the closed cast
type CastMember struct {
	Name  string `mapstructure:"name"`
	Port  int    `mapstructure:"port"`
	Color string `mapstructure:"color"` // Hex "#RGB"/"#RRGGBB" or an ANSI index "0".."255"
}

// Identity returns the wire identity of the member
func (m CastMember) Identity() envelope.Identity {
	return envelope.Identity{Name: m.Name, Color: m.Color, Port: m.Port}
}

// NetworkConfig controls how actors reach each other
type NetworkConfig struct {
	// Host is the address every actor listens on and dials (default: localhost)
	Host string `mapstructure:"host"`
	// DialTimeoutMs bounds a single connection attempt
	DialTimeoutMs int `mapstructure:"dial_timeout_ms"`
	// HandshakeTimeoutMs bounds the wait for a roll-call response
	HandshakeTimeoutMs int `mapstructure:"handshake_timeout_ms"`
}

// PeerWaitConfig controls the wait for onstage peers before each cue
type PeerWaitConfig struct {
	// IntervalMs is the longest sleep between two checks (default: 6000)
	IntervalMs int `mapstructure:"interval_ms"`
	// RedialRounds is how many consecutive failed rounds trigger a redial (default: 3)
	RedialRounds int `mapstructure:"redial_rounds"`
	// TimeoutMs bounds the whole wait; exceeding it aborts the performance (default: 60000)
	TimeoutMs int `mapstructure:"timeout_ms"`
	// MaxRounds caps the number of failed rounds (0 = no cap)
	MaxRounds int `mapstructure:"max_rounds"`
}

// StartupConfig controls the startup barrier
type StartupConfig struct {
	// TimeoutMs bounds the wait for the whole cast to handshake (0 = wait indefinitely)
	TimeoutMs int `mapstructure:"timeout_ms"`
}

// ConversationConfig controls conversation directives
type ConversationConfig struct {
	// ConfirmTimeoutMs bounds the wait for confirmations of a sent line
	ConfirmTimeoutMs int `mapstructure:"confirm_timeout_ms"`
}

// ScriptConfig selects the script to perform
type ScriptConfig struct {
	// Dir holds ep{E}/ep{E}act{A}.json|yaml files
	Dir     string `mapstructure:"dir"`
	Episode int    `mapstructure:"episode"`
	Act     int    `mapstructure:"act"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir receives one {name}.log per actor; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Cast: []CastMember{
			{Name: "Lexa", Port: 4000, Color: "#00FFFF"},
			{Name: "Xander", Port: 4001, Color: "#FF5555"},
			{Name: "Fate", Port: 4002, Color: "#AA55FF"},
			{Name: "CallMeKey", Port: 4003, Color: "#FFFF55"},
		},
		Network: NetworkConfig{
			Host:               "localhost",
			DialTimeoutMs:      2000,
			HandshakeTimeoutMs: 5000,
		},
		PeerWait: PeerWaitConfig{
			IntervalMs:   6000,
			RedialRounds: 3,
			TimeoutMs:    60000, // One minute before a cue gives up on its peers
			MaxRounds:    0,
		},
		Startup: StartupConfig{
			TimeoutMs: 0, // Wait for the whole cast
		},
		Conversation: ConversationConfig{
			ConfirmTimeoutMs: 10000,
		},
		Script: ScriptConfig{
			Dir:     "scripts",
			Episode: 1,
			Act:     1,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// DialTimeout returns the dial timeout as a time.Duration
func (c *NetworkConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMs) * time.Millisecond
}

// HandshakeTimeout returns the handshake timeout as a time.Duration
func (c *NetworkConfig) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMs) * time.Millisecond
}

// Interval returns the peer wait interval as a time.Duration
func (c *PeerWaitConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Timeout returns the overall peer wait timeout as a time.Duration
func (c *PeerWaitConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Timeout returns the startup timeout as a time.Duration (0 means unbounded)
func (c *StartupConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ConfirmTimeout returns the confirmation timeout as a time.Duration
func (c *ConversationConfig) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutMs) * time.Millisecond
}

// Member returns the cast member called name
func (c *Config) Member(name string) (CastMember, bool) {
	for _, m := range c.Cast {
		if m.Name == name {
			return m, true
		}
	}
	return CastMember{}, false
}

// Identities returns the wire identities of the cast in order
func (c *Config) Identities() []envelope.Identity {
	ids := make([]envelope.Identity, len(c.Cast))
	for i, m := range c.Cast {
		ids[i] = m.Identity()
	}
	return ids
}

// Names returns the cast names in order
func (c *Config) Names() []string {
	names := make([]string, len(c.Cast))
	for i, m := range c.Cast {
		names[i] = m.Name
	}
	return names
}

// Ports returns the cast ports in order
func (c *Config) Ports() []int {
	ports := make([]int, len(c.Cast))
	for i, m := range c.Cast {
		ports[i] = m.Port
	}
	return ports
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Cast defaults; viper keeps slices of structs as plain maps
	cast := make([]map[string]any, len(defaults.Cast))
	for i, m := range defaults.Cast {
		cast[i] = map[string]any{"name": m.Name, "port": m.Port, "color": m.Color}
	}
	viper.SetDefault("cast", cast)

	// Network defaults
	viper.SetDefault("network.host", defaults.Network.Host)
	viper.SetDefault("network.dial_timeout_ms", defaults.Network.DialTimeoutMs)
	viper.SetDefault("network.handshake_timeout_ms", defaults.Network.HandshakeTimeoutMs)

	// Peer wait defaults
	viper.SetDefault("peer_wait.interval_ms", defaults.PeerWait.IntervalMs)
	viper.SetDefault("peer_wait.redial_rounds", defaults.PeerWait.RedialRounds)
	viper.SetDefault("peer_wait.timeout_ms", defaults.PeerWait.TimeoutMs)
	viper.SetDefault("peer_wait.max_rounds", defaults.PeerWait.MaxRounds)

	// Startup defaults
	viper.SetDefault("startup.timeout_ms", defaults.Startup.TimeoutMs)

	// Conversation defaults
	viper.SetDefault("conversation.confirm_timeout_ms", defaults.Conversation.ConfirmTimeoutMs)

	// Script defaults
	viper.SetDefault("script.dir", defaults.Script.Dir)
	viper.SetDefault("script.episode", defaults.Script.Episode)
	viper.SetDefault("script.act", defaults.Script.Act)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "playbill")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".playbill"
	}
	return filepath.Join(home, ".config", "playbill")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Get returns the current configuration, falling back to defaults if
// the loaded configuration does not validate.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}
