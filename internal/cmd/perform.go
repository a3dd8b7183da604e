package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/qaznotquaz/aLexA/internal/actor"
	"github.com/qaznotquaz/aLexA/internal/config"
	"github.com/qaznotquaz/aLexA/internal/display"
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/logging"
	"github.com/qaznotquaz/aLexA/internal/playscript"
)

var performCmd = &cobra.Command{
	Use:   "perform <name>",
	Short: "Perform the script as one member of the cast",
	Long: `Start the actor called <name> and perform the configured script.

The actor listens on its cast port, waits until every other cast member
has handshaked, then follows the script from its initial cue. It exits
once the script sends it offstage.

Examples:
  # Perform episode 1, act 1 as Lexa
  playbill perform Lexa

  # Perform another act from a custom scripts directory
  playbill perform Xander --episode 2 --act 3 --scripts ./plays`,
	Args: cobra.ExactArgs(1),
	RunE: runPerform,
}

func init() {
	rootCmd.AddCommand(performCmd)

	performCmd.Flags().Int("episode", 0, "Episode to perform (default from config)")
	performCmd.Flags().Int("act", 0, "Act to perform (default from config)")
	performCmd.Flags().String("scripts", "", "Directory holding ep{E}/ep{E}act{A} scripts")
	performCmd.Flags().String("log-dir", "", "Directory for {name}.log files (default: stderr)")
	performCmd.Flags().String("log-level", "", "Log level (debug/info/warn/error)")

	_ = viper.BindPFlag("script.episode", performCmd.Flags().Lookup("episode"))
	_ = viper.BindPFlag("script.act", performCmd.Flags().Lookup("act"))
	_ = viper.BindPFlag("script.dir", performCmd.Flags().Lookup("scripts"))
	_ = viper.BindPFlag("logging.dir", performCmd.Flags().Lookup("log-dir"))
	_ = viper.BindPFlag("logging.level", performCmd.Flags().Lookup("log-level"))
}

func runPerform(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, ok := cfg.Member(name); !ok {
		return fmt.Errorf("%q is not in the cast (cast: %v)", name, cfg.Names())
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, name, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	script, path, err := playscript.Load(cfg.Script.Dir, cfg.Script.Episode, cfg.Script.Act)
	if err != nil {
		logger.WithActor(name).Error("script load failed", "error", err)
		return err
	}

	var opts []display.ConsoleOption
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		opts = append(opts, display.WithWidth(width))
	}
	console := display.NewConsole(cmd.OutOrStdout(), name, cfg.Identities(), opts...)

	bus := event.NewBus(event.WithLogger(logger))
	a, err := actor.New(cfg, name, script,
		actor.WithLogger(logger),
		actor.WithBus(bus),
		actor.WithDisplay(console),
	)
	if err != nil {
		logger.WithActor(name).Error("script rejected", "path", path, "error", err)
		return err
	}
	display.NewRecorder(logger.WithActor(name).WithRun(a.RunID())).Attach(bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}
