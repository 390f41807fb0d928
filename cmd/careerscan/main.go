package main

import (
	"os"

	"careerscan-engine/internal/batch"
	"careerscan-engine/internal/scrape"

	"github.com/sirupsen/logrus"
)

func liveResolver(fc scrape.FetcherConfig, log logrus.FieldLogger) batch.Resolver {
	return scrape.NewResolver(scrape.NewFetcher(fc), nil, log)
}

func main() {
	if err := newRootCmd(liveResolver).Execute(); err != nil {
		os.Exit(1)
	}
}
