package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qaznotquaz/aLexA/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create playbill configuration",
	Long: `View or create playbill configuration.

Without arguments, displays the current configuration.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/playbill/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintln(out, "Current configuration:")
	_, _ = fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		_, _ = fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		_, _ = fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprintln(out, "cast:")
	for _, m := range cfg.Cast {
		_, _ = fmt.Fprintf(out, "  - %s (port %d, color %s)\n", m.Name, m.Port, m.Color)
	}

	_, _ = fmt.Fprintln(out, "network:")
	_, _ = fmt.Fprintf(out, "  host: %s\n", cfg.Network.Host)
	_, _ = fmt.Fprintf(out, "  dial_timeout_ms: %d\n", cfg.Network.DialTimeoutMs)
	_, _ = fmt.Fprintf(out, "  handshake_timeout_ms: %d\n", cfg.Network.HandshakeTimeoutMs)

	_, _ = fmt.Fprintln(out, "peer_wait:")
	_, _ = fmt.Fprintf(out, "  interval_ms: %d\n", cfg.PeerWait.IntervalMs)
	_, _ = fmt.Fprintf(out, "  redial_rounds: %d\n", cfg.PeerWait.RedialRounds)
	_, _ = fmt.Fprintf(out, "  timeout_ms: %d\n", cfg.PeerWait.TimeoutMs)
	_, _ = fmt.Fprintf(out, "  max_rounds: %d\n", cfg.PeerWait.MaxRounds)

	_, _ = fmt.Fprintln(out, "startup:")
	_, _ = fmt.Fprintf(out, "  timeout_ms: %d\n", cfg.Startup.TimeoutMs)

	_, _ = fmt.Fprintln(out, "conversation:")
	_, _ = fmt.Fprintf(out, "  confirm_timeout_ms: %d\n", cfg.Conversation.ConfirmTimeoutMs)

	_, _ = fmt.Fprintln(out, "script:")
	_, _ = fmt.Fprintf(out, "  dir: %s\n", cfg.Script.Dir)
	_, _ = fmt.Fprintf(out, "  episode: %d\n", cfg.Script.Episode)
	_, _ = fmt.Fprintf(out, "  act: %d\n", cfg.Script.Act)

	_, _ = fmt.Fprintln(out, "logging:")
	_, _ = fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	_, _ = fmt.Fprintf(out, "  dir: %q\n", cfg.Logging.Dir)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Playbill Configuration

# The closed cast. Every actor must list the same cast.
cast:
  - {name: Lexa, port: 4000, color: "#00FFFF"}
  - {name: Xander, port: 4001, color: "#FF5555"}
  - {name: Fate, port: 4002, color: "#AA55FF"}
  - {name: CallMeKey, port: 4003, color: "#FFFF55"}

network:
  # Address every actor listens on and dials
  host: localhost
  dial_timeout_ms: 2000
  handshake_timeout_ms: 5000

# Waiting for onstage peers before each cue
peer_wait:
  # Longest sleep between two checks
  interval_ms: 6000
  # Failed rounds before the handshake is retried
  redial_rounds: 3
  # Overall bound; exceeding it aborts the performance
  timeout_ms: 60000
  # Cap on failed rounds (0 = no cap)
  max_rounds: 0

startup:
  # Bound on waiting for the whole cast (0 = wait indefinitely)
  timeout_ms: 0

conversation:
  # How long a speaker waits for confirmations of a line
  confirm_timeout_ms: 10000

script:
  dir: scripts
  episode: 1
  act: 1

logging:
  # debug, info, warn or error
  level: info
  # Directory for {name}.log files; empty logs to stderr
  dir: ""
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Created config file at %s\n", configFile)
	_, _ = fmt.Fprintln(out, "Edit this file to customize the cast and timings.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		_, _ = fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		_, _ = fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	_, _ = fmt.Fprintln(out, "\nSearch paths:")
	_, _ = fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	_, _ = fmt.Fprintf(out, "  2. $HOME/.config/playbill/config.yaml\n")
	_, _ = fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	_, _ = fmt.Fprintln(out, "\nEnvironment variables: PLAYBILL_* (e.g., PLAYBILL_PEER_WAIT_INTERVAL_MS)")

	return nil
}
