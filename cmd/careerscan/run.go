package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"careerscan-engine/internal/batch"
	"careerscan-engine/internal/config"
	"careerscan-engine/internal/domain"
	"careerscan-engine/internal/export"
	"careerscan-engine/internal/ingest"
	"careerscan-engine/internal/scrape/util"

	"github.com/spf13/cobra"
)

var errInterrupted = errors.New("run interrupted; partial results written")

func newRunCmd(root *rootOptions, newResolver resolverFactory) *cobra.Command {
	var (
		in, out      string
		workers      int
		pace         time.Duration
		hostInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve careers pages for every organization in a CSV or XLSX file",
		Example: `  careerscan run --in orgs.csv --out careers.csv
  careerscan run --in orgs.xlsx --out careers.xlsx --workers 8 --pace 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Batch.Workers = workers
			}
			if cmd.Flags().Changed("pace") {
				cfg.Batch.PaceMS = int(pace / time.Millisecond)
			}
			if cmd.Flags().Changed("host-interval") {
				cfg.Batch.HostIntervalMS = int(hostInterval / time.Millisecond)
			}
			if _, v := config.NormalizeAndValidate(cfg); !v.OK() {
				return fmt.Errorf("invalid settings: %v", v.Errors)
			}

			format, err := export.FormatFromName(out)
			if err != nil {
				return err
			}
			orgs, err := ingest.ReadFile(in)
			if err != nil {
				return fmt.Errorf("read %s: %w", in, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var hosts *util.HostLimiter
			if cfg.HostInterval() > 0 {
				hosts = util.NewHostLimiter(cfg.HostInterval(), 1)
			}
			stdout := cmd.OutOrStdout()
			runner := batch.New(newResolver(cfg.FetcherConfig(), log), batch.Options{
				Workers: cfg.Batch.Workers,
				Pace:    cfg.Pace(),
				Hosts:   hosts,
				Logger:  log,
				OnLog: func(l domain.LogLine) {
					fmt.Fprintln(stdout, l.Text)
				},
			})

			result := runner.Run(ctx, orgs)
			if err := export.SaveAtomic(out, result.Rows, format); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(stdout, "Found %d careers pages for %d of %d domains; wrote %s\n",
				result.Found, len(result.Rows), result.Total, out)
			if result.Cancelled {
				return errInterrupted
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Input file (.csv or .xlsx) with columns id, name, domains")
	cmd.Flags().StringVar(&out, "out", "careers.csv", "Output file (.csv or .xlsx)")
	cmd.Flags().IntVar(&workers, "workers", batch.DefaultWorkers, "Number of concurrent workers")
	cmd.Flags().DurationVar(&pace, "pace", batch.DefaultPace, "Delay between two domains handled by the same worker")
	cmd.Flags().DurationVar(&hostInterval, "host-interval", 0, "Minimum spacing between requests to the same domain (0 disables)")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
