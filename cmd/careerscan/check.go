package main

import (
	"fmt"
	"text/tabwriter"

	"careerscan-engine/internal/domain"

	"github.com/spf13/cobra"
)

func newCheckCmd(root *rootOptions, newResolver resolverFactory) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "check <domain>...",
		Short: "Resolve the careers page of one or more domains",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load(cmd)
			if err != nil {
				return err
			}
			resolver := newResolver(cfg.FetcherConfig(), log)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer tw.Flush()

			for _, d := range args {
				res, err := resolver.Resolve(cmd.Context(), d)
				if err != nil {
					fmt.Fprintf(tw, "%s\terror: %v\n", d, err)
					continue
				}
				link := domain.NotFound
				if res.Found {
					link = res.URL
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", res.Domain, link, res.Outcome)
				if !verbose {
					continue
				}
				for _, a := range res.Attempts {
					detail := fmt.Sprintf("links=%d", a.Links)
					if a.Reason != "" {
						detail = fmt.Sprintf("absent (%s)", a.Reason)
					}
					fmt.Fprintf(tw, "  %s\t%s\t\n", a.BaseURL, detail)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show each probed base URL")
	return cmd
}
