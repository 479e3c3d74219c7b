package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/meghashyamc/coursefetch/api"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"github.com/meghashyamc/coursefetch/services/pipeline"
	"github.com/spf13/cobra"
)

type runFunc func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error)

func newScrapeCommand(a *app) *cobra.Command {
	var term string
	var force bool

	cmd := &cobra.Command{
		Use:   "scrape [--term <search term>] [--force]",
		Short: "Search, download, extract and store course PDFs",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.OptionsFromConfig(a.cfg)
			if cmd.Flags().Changed("term") {
				opts.Search.Term = term
			}
			opts.Force = force
			if err := a.validateOptions(opts); err != nil {
				return err
			}

			return a.runPipeline(cmd, opts, true, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.Scrape(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&term, "term", "", "search term, overrides SCRIBD_SEARCH_TERM")
	cmd.Flags().BoolVar(&force, "force", false, "reprocess documents the ledger marks as persisted")

	return cmd
}

func newCatalogCommand(a *app) *cobra.Command {
	var term string

	cmd := &cobra.Command{
		Use:   "catalog [--term <search term>]",
		Short: "Store search results as records without downloading them",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.OptionsFromConfig(a.cfg)
			if cmd.Flags().Changed("term") {
				opts.Search.Term = term
			}
			if err := a.validateOptions(opts); err != nil {
				return err
			}

			return a.runPipeline(cmd, opts, false, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.Catalog(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&term, "term", "", "search term, overrides SCRIBD_SEARCH_TERM")

	return cmd
}

func newBackfillCommand(a *app) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "backfill [--limit <n>]",
		Short: "Download and extract text for stored records that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("limit must not be negative, got %d", limit)
			}
			opts := pipeline.OptionsFromConfig(a.cfg)

			return a.runPipeline(cmd, opts, true, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Report, error) {
				return p.Backfill(ctx, limit)
			})
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 0, "maximum number of records to backfill, 0 for all")

	return cmd
}

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the documents, search, index and runs HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return api.Run(cmd.Context(), a.logger, a.cfg)
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Print the recorded outcome of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kvDB, err := kvdb.New(a.logger, a.cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer kvDB.Close()

			run, err := kvdb.NewLedger(kvDB).GetRun(args[0])
			if errors.Is(err, kvdb.ErrNotFound) {
				return fmt.Errorf("no run recorded with id %s", args[0])
			}
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), run)
		},
	}
}

func (a *app) runPipeline(cmd *cobra.Command, opts pipeline.Options, withBrowser bool, run runFunc) error {
	ctx := cmd.Context()
	s, err := a.openStores(ctx)
	defer func() {
		if err := s.close(); err != nil {
			a.logger.Warn("could not close stores", "err", err.Error())
		}
	}()
	if err != nil {
		return err
	}

	p, cleanup, err := a.newPipeline(ctx, s, opts, withBrowser)
	defer cleanup()
	if err != nil {
		return err
	}

	report, err := run(ctx, p)
	if report != nil {
		if printErr := printJSON(cmd.OutOrStdout(), report); printErr != nil {
			a.logger.Warn("could not print report", "err", printErr.Error())
		}
	}
	return err
}
