package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Run("returns the page for a 200 response with the client identity header", func(t *testing.T) {
		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<a href="/jobs">Jobs</a>`))
		}))
		defer srv.Close()

		res := NewFetcher(FetcherConfig{}).Fetch(context.Background(), srv.URL)

		require.False(t, res.Absent())
		assert.Equal(t, http.StatusOK, res.Page.StatusCode)
		assert.Contains(t, string(res.Page.Body), `href="/jobs"`)
		assert.Equal(t, DefaultUserAgent, gotUA)
		assert.Equal(t, ReasonNone, res.Reason)
	})

	t.Run("treats any non-200 status as absent", func(t *testing.T) {
		for _, code := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusInternalServerError} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			res := NewFetcher(FetcherConfig{}).Fetch(context.Background(), srv.URL)
			srv.Close()

			assert.True(t, res.Absent(), "status %d", code)
			assert.Equal(t, ReasonStatus, res.Reason)
		}
	})

	t.Run("follows redirects and reports the final url", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/home", http.StatusFound)
		})
		mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		res := NewFetcher(FetcherConfig{}).Fetch(context.Background(), srv.URL)
		require.False(t, res.Absent())
		assert.Equal(t, srv.URL+"/home", res.Page.FinalURL)
	})

	t.Run("normalizes connection failures to absent", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		res := NewFetcher(FetcherConfig{}).Fetch(context.Background(), url)
		assert.True(t, res.Absent())
		assert.Equal(t, ReasonTransport, res.Reason)
		assert.Error(t, res.Err)
	})

	t.Run("bounds latency with the request timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		start := time.Now()
		res := NewFetcher(FetcherConfig{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL)
		assert.True(t, res.Absent())
		assert.Equal(t, ReasonTransport, res.Reason)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("rejects unusable urls without a request", func(t *testing.T) {
		res := NewFetcher(FetcherConfig{}).Fetch(context.Background(), "http://[::1")
		assert.True(t, res.Absent())
		assert.Equal(t, ReasonRequest, res.Reason)
	})

	t.Run("keeps the head of bodies over the size limit", func(t *testing.T) {
		head := `<html><body><nav><a href="/careers">Careers</a></nav>`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(head + strings.Repeat("<p>filler</p>", 64) + "</body></html>"))
		}))
		defer srv.Close()

		limit := int64(len(head) + 10)
		res := NewFetcher(FetcherConfig{MaxBodyBytes: limit}).Fetch(context.Background(), srv.URL)
		require.False(t, res.Absent())
		assert.True(t, res.Page.Truncated)
		assert.Len(t, res.Page.Body, int(limit))

		base, err := url.Parse(srv.URL)
		require.NoError(t, err)
		link, _, err := findCareerLink(base, res.Page.Body)
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/careers", link)
	})

	t.Run("does not flag bodies within the limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 16)))
		}))
		defer srv.Close()

		res := NewFetcher(FetcherConfig{MaxBodyBytes: 16}).Fetch(context.Background(), srv.URL)
		require.False(t, res.Absent())
		assert.False(t, res.Page.Truncated)
	})

	t.Run("decodes legacy charsets to utf-8", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			_, _ = w.Write([]byte("<a href=\"/emplois\">Carri\xe8res</a>"))
		}))
		defer srv.Close()

		res := NewFetcher(FetcherConfig{}).Fetch(context.Background(), srv.URL)
		require.False(t, res.Absent())
		assert.Contains(t, string(res.Page.Body), "Carrières")
	})
}
