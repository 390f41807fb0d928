package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned homepages by URL; anything else is unreachable.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) FetchResult {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()

	body, ok := f.pages[rawURL]
	if !ok {
		return FetchResult{Reason: ReasonTransport, Err: errors.New("dial tcp: no such host")}
	}
	return FetchResult{Page: &Page{StatusCode: http.StatusOK, Body: []byte(body), FinalURL: rawURL}}
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("resolves a relative careers link against the fetched base url", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{
			"https://example.com": `<html><body><a href="/about">About</a><a href="/careers">Careers</a></body></html>`,
		}}

		res, err := NewResolver(f, nil, nil).Resolve(context.Background(), "example.com")

		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, OutcomeFound, res.Outcome)
		assert.Equal(t, "https://example.com/careers", res.URL)
		assert.Equal(t, []string{"https://example.com"}, f.calls, "http variant must not be tried after a match")
	})

	t.Run("prefers https when both schemes would match", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{
			"https://d.test": `<a href="/jobs">Jobs</a>`,
			"http://d.test":  `<a href="/careers">Careers</a>`,
		}}

		res, err := NewResolver(f, nil, nil).Resolve(context.Background(), "d.test")

		require.NoError(t, err)
		assert.Equal(t, "https://d.test/jobs", res.URL)
	})

	t.Run("falls back to http when https is unreachable", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{
			"http://acme.test": `<a href="jobs">Open roles</a>`,
		}}

		res, err := NewResolver(f, nil, nil).Resolve(context.Background(), "acme.test")

		require.NoError(t, err)
		assert.Equal(t, "http://acme.test/jobs", res.URL)
		require.Len(t, res.Attempts, 2)
		assert.Equal(t, ReasonTransport, res.Attempts[0].Reason)
	})

	t.Run("tries http when the https homepage has no career link", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{
			"https://x.test": `<a href="/about">About</a>`,
			"http://x.test":  `<a href="/work-with-us">Team</a>`,
		}}

		res, err := NewResolver(f, nil, nil).Resolve(context.Background(), "x.test")

		require.NoError(t, err)
		assert.Equal(t, "http://x.test/work-with-us", res.URL)
	})

	t.Run("returns absent without error when nothing is reachable", func(t *testing.T) {
		f := &fakeFetcher{}

		res, err := NewResolver(f, nil, nil).Resolve(context.Background(), "nowhere.invalid")

		require.NoError(t, err)
		assert.False(t, res.Found)
		assert.Empty(t, res.URL)
		assert.Equal(t, OutcomeUnreachable, res.Outcome)
		assert.Equal(t, []string{"https://nowhere.invalid", "http://nowhere.invalid"}, f.calls)
	})

	t.Run("distinguishes a loaded page without matches from an unreachable one", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{"https://plain.test": `<p>hello</p>`}}

		res, err := NewResolver(f, nil, nil).Resolve(context.Background(), "plain.test")

		require.NoError(t, err)
		assert.False(t, res.Found)
		assert.Equal(t, OutcomeNoMatch, res.Outcome)
	})

	t.Run("returns the first match in document order", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{
			"https://o.test": `<footer><a href="/newsletter">Join our newsletter</a></footer><nav><a href="/careers">Careers</a></nav>`,
		}}

		res, _ := NewResolver(f, nil, nil).Resolve(context.Background(), "o.test")

		assert.Equal(t, "https://o.test/newsletter", res.URL)
	})

	t.Run("ignores anchors without href and non-web schemes", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{
			"https://m.test": `<a name="careers">Careers</a>
				<a href="mailto:jobs@m.test">Jobs</a>
				<a href="javascript:openCareers()">Careers</a>
				<a href="https://jobs.m.test/">Openings</a>`,
		}}

		res, _ := NewResolver(f, nil, nil).Resolve(context.Background(), "m.test")

		assert.Equal(t, "https://jobs.m.test/", res.URL)
	})

	t.Run("tolerates malformed html", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{
			"https://broken.test": `<html><div><a href="/jobs"<b>Jobs</a></div><<<>>><a href='/careers'>`,
		}}

		res, err := NewResolver(f, nil, nil).Resolve(context.Background(), "broken.test")

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.URL, "https://broken.test/"), res.URL)
	})

	t.Run("strips an accidental scheme from the domain", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{"https://s.test": `<a href="/jobs">x</a>`}}

		res, err := NewResolver(f, nil, nil).Resolve(context.Background(), " https://s.test/ ")

		require.NoError(t, err)
		assert.Equal(t, "https://s.test/jobs", res.URL)
	})

	t.Run("rejects a domain that cannot be a host", func(t *testing.T) {
		f := &fakeFetcher{}

		_, err := NewResolver(f, nil, nil).Resolve(context.Background(), "  ")

		assert.ErrorIs(t, err, ErrInvalidDomain)
		assert.Empty(t, f.calls)
	})
}

func TestResolverAgainstLiveServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><a href="/jobs">Jobs</a></body></html>`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")

	// The plain-HTTP test server fails the TLS handshake, so only the http
	// variant yields a homepage.
	res, err := NewResolver(NewFetcher(FetcherConfig{}), nil, nil).Resolve(context.Background(), host)

	require.NoError(t, err)
	assert.Equal(t, "http://"+host+"/jobs", res.URL)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, ReasonTransport, res.Attempts[0].Reason)
}
