package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qaznotquaz/aLexA/internal/config"
	"github.com/qaznotquaz/aLexA/internal/playscript"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a script against the cast",
	Long: `Decode a .json or .yaml script and validate it against the configured cast.

Every transition target must exist, line numbers must run from 1 without
gaps, and every named actor must belong to the cast.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	script, err := playscript.LoadFile(args[0])
	if err != nil {
		return err
	}
	if err := script.Validate(cfg.Names()); err != nil {
		return err
	}

	header := script.Header
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s: episode %d, act %d\n", args[0], header.Episode, header.Act)
	_, _ = fmt.Fprintf(out, "  scenes: %d, cues: %d, starts at %s\n",
		len(script.Scenes), len(script.Cues()), header.Initial)
	for _, cue := range script.Cues() {
		if !cue.Type.Implemented() {
			_, _ = fmt.Fprintf(out, "  note: %s is a %s cue and will be skipped\n", cue.Position(), cue.Type)
		}
	}
	_, _ = fmt.Fprintln(out, "OK")
	return nil
}
