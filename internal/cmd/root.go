package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qaznotquaz/aLexA/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "playbill",
	Short: "Networked multi-actor script performer",
	Long: `Playbill performs a scripted scene across a fixed cast of actors.

Each actor runs as its own process, listens on its configured port, and
handshakes with the rest of the cast before following the script cue by
cue: speaking monologues, exchanging direct messages, and leaving the
stage when the script says so.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/playbill/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/playbill")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PLAYBILL")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PLAYBILL_PEER_WAIT_INTERVAL_MS for peer_wait.interval_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
