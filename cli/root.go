// Package cli wires configuration, storage and services into the coursefetch commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/meghashyamc/coursefetch/config"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/spf13/cobra"
)

type app struct {
	env      string
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

// NewRootCommand builds the coursefetch command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "coursefetch",
		Short:         "Fetch course PDFs from Scribd, extract their text and store them in MongoDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.env, "env", "", "config environment to load, defaults to $ENV or local")

	rootCmd.AddCommand(
		newScrapeCommand(a),
		newCatalogCommand(a),
		newBackfillCommand(a),
		newServeCommand(a),
		newStatusCommand(a),
	)

	return rootCmd
}

func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) setup() error {
	cfg, err := config.Load(a.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.NewWithFile(cfg.GetLogLevel(), cfg.GetLogFile())
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a.cfg = cfg
	a.logger = log
	a.closeLog = closeLog
	return nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
