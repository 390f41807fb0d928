package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"careerscan-engine/internal/logging"
	"careerscan-engine/internal/metrics"
	"careerscan-engine/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

var ErrInvalidDomain = errors.New("invalid domain")

// schemes are probed in this order; the first accepted link wins.
var schemes = []string{"https", "http"}

type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) FetchResult
}

type Outcome string

const (
	OutcomeFound       Outcome = "found"
	OutcomeNoMatch     Outcome = "no_match"    // a homepage loaded but no link was accepted
	OutcomeUnreachable Outcome = "unreachable" // no scheme variant produced a homepage
)

// Attempt records one scheme variant that was tried.
type Attempt struct {
	BaseURL string
	Reason  AbsenceReason
	Links   int
	Err     error
}

type Resolution struct {
	Domain   string
	URL      string
	Found    bool
	Outcome  Outcome
	Attempts []Attempt
}

type Resolver struct {
	fetcher PageFetcher
	metrics *metrics.Collector
	log     logrus.FieldLogger
}

func NewResolver(f PageFetcher, m *metrics.Collector, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logging.Discard()
	}
	return &Resolver{fetcher: f, metrics: m, log: log}
}

// Resolve probes https://domain then http://domain and returns the first
// career link found on a homepage, resolved to an absolute URL. A domain that
// cannot be reached is not an error; the only error is a malformed domain.
func (r *Resolver) Resolve(ctx context.Context, domain string) (Resolution, error) {
	host, ok := util.NormalizeDomain(domain)
	if !ok {
		return Resolution{Domain: domain, Outcome: OutcomeUnreachable}, fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}

	res := Resolution{Domain: domain, Outcome: OutcomeUnreachable}
	for _, scheme := range schemes {
		baseURL := scheme + "://" + host
		base, err := url.Parse(baseURL)
		if err != nil {
			return res, fmt.Errorf("%w: %q: %v", ErrInvalidDomain, domain, err)
		}

		fr := r.fetcher.Fetch(ctx, baseURL)
		if fr.Absent() {
			r.metrics.FetchAttempt(scheme, string(fr.Reason))
			r.log.WithFields(logrus.Fields{"url": baseURL, "reason": fr.Reason, "err": fr.Err}).Debug("[resolve] homepage absent")
			res.Attempts = append(res.Attempts, Attempt{BaseURL: baseURL, Reason: fr.Reason, Err: fr.Err})
			continue
		}
		r.metrics.FetchAttempt(scheme, "ok")
		if fr.Page.Truncated {
			r.log.WithField("url", baseURL).Debug("[resolve] homepage truncated at size limit")
		}

		link, scanned, err := findCareerLink(base, fr.Page.Body)
		res.Attempts = append(res.Attempts, Attempt{BaseURL: baseURL, Links: scanned, Err: err})
		if err != nil {
			r.log.WithFields(logrus.Fields{"url": baseURL, "err": err}).Debug("[resolve] unparseable homepage")
		}
		res.Outcome = OutcomeNoMatch
		if link != "" {
			res.URL = link
			res.Found = true
			res.Outcome = OutcomeFound
			return res, nil
		}
	}
	return res, nil
}

// findCareerLink scans anchors carrying an href in document order and returns
// the first accepted one resolved against base. A parse failure is reported
// alongside zero links so callers can move on to the next variant.
func findCareerLink(base *url.URL, body []byte) (link string, scanned int, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		scanned++
		href, _ := a.Attr("href")
		if !IsCareerLink(href, util.CleanText(a.Text())) {
			return true
		}
		abs, ok := util.ResolveHref(base, href)
		if !ok {
			return true
		}
		link = abs
		return false
	})
	return link, scanned, nil
}
