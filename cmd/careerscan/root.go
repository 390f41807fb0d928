package main

import (
	"careerscan-engine/internal/batch"
	"careerscan-engine/internal/config"
	"careerscan-engine/internal/logging"
	"careerscan-engine/internal/scrape"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type resolverFactory func(fc scrape.FetcherConfig, log logrus.FieldLogger) batch.Resolver

type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
	timeout    int
}

func newRootCmd(newResolver resolverFactory) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "careerscan",
		Short: "Find the careers page of organizations from their homepages",
		Long: `careerscan fetches the homepage of each domain (https first, then http)
and reports the first link that looks like a careers or jobs page.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a config.yml (defaults apply when empty)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (default from LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "Emit logs as JSON")
	cmd.PersistentFlags().IntVar(&opts.timeout, "timeout", 0, "Per-request timeout in seconds (overrides config)")

	cmd.AddCommand(newRunCmd(opts, newResolver))
	cmd.AddCommand(newCheckCmd(opts, newResolver))
	return cmd
}

// load resolves the effective config: file or defaults, then env, then flags.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	boot := logging.New(o.logLevel, o.logJSON)
	boot.SetOutput(cmd.ErrOrStderr())
	config.LoadEnv(boot)

	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return cfg, nil, err
		}
		cfg = loaded
	}
	config.ApplyEnv(&cfg)
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.timeout > 0 {
		cfg.Fetch.TimeoutSeconds = o.timeout
	}

	log := logging.New(cfg.Log.Level, cfg.Log.JSON || o.logJSON)
	log.SetOutput(cmd.ErrOrStderr())
	return cfg, log, nil
}
