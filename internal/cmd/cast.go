package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qaznotquaz/aLexA/internal/config"
	"github.com/qaznotquaz/aLexA/internal/display"
)

var castCmd = &cobra.Command{
	Use:   "cast",
	Short: "List the configured cast",
	Long:  `List every configured actor with its port and display color.`,
	Args:  cobra.NoArgs,
	RunE:  runCast,
}

func init() {
	rootCmd.AddCommand(castCmd)
}

func runCast(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprint(out, display.RenderCast(out, cfg.Identities()))
	return nil
}
