package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout      = 8 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultMaxBodyBytes = 5 << 20
)

// AbsenceReason says why a fetch produced no page. Callers outside this
// package only care that the page is absent.
type AbsenceReason string

const (
	ReasonNone      AbsenceReason = ""
	ReasonRequest   AbsenceReason = "request"   // URL could not be turned into a request
	ReasonTransport AbsenceReason = "transport" // DNS, connect, TLS, timeout, redirect failure
	ReasonStatus    AbsenceReason = "status"    // response other than 200
	ReasonBody      AbsenceReason = "body"      // body unreadable
)

type Page struct {
	StatusCode  int
	Body        []byte
	FinalURL    string
	ContentType string
	// Truncated is set when the body was cut at the size limit. The prefix
	// is still parsed; careers links usually sit in the page header.
	Truncated bool
}

// FetchResult is either a Page or an absence with its reason.
type FetchResult struct {
	Page   *Page
	Reason AbsenceReason
	Err    error
}

func (r FetchResult) Absent() bool { return r.Page == nil }

func absent(reason AbsenceReason, err error) FetchResult {
	return FetchResult{Reason: reason, Err: err}
}

type FetcherConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// Fetcher performs one GET per call. It keeps no state between calls beyond
// the connection pool of its http.Client and never returns an error: every
// failure becomes an absent FetchResult.
type Fetcher struct {
	hc        *http.Client
	userAgent string
	maxBody   int64
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Fetcher{
		hc:        &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return absent(ReasonRequest, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.hc.Do(req)
	if err != nil {
		return absent(ReasonTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return absent(ReasonStatus, fmt.Errorf("status %s", resp.Status))
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return absent(ReasonBody, err)
	}
	truncated := int64(len(b)) > f.maxBody
	if truncated {
		b = b[:f.maxBody]
	}

	ct := resp.Header.Get("Content-Type")
	return FetchResult{Page: &Page{
		StatusCode:  resp.StatusCode,
		Body:        toUTF8(b, ct),
		FinalURL:    resp.Request.URL.String(),
		ContentType: ct,
		Truncated:   truncated,
	}}
}

// toUTF8 decodes b using the charset from the Content-Type header or the
// document's meta tags. Undecodable input is returned unchanged.
func toUTF8(b []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(b), contentType)
	if err != nil {
		return b
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return b
	}
	return out
}
