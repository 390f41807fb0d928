package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"careerscan-engine/internal/batch"
	"careerscan-engine/internal/scrape"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, domain string) (scrape.Resolution, error)

func (f resolverFunc) Resolve(ctx context.Context, d string) (scrape.Resolution, error) {
	return f(ctx, d)
}

func fakeFactory(seen *scrape.FetcherConfig) resolverFactory {
	return func(fc scrape.FetcherConfig, _ logrus.FieldLogger) batch.Resolver {
		if seen != nil {
			*seen = fc
		}
		return resolverFunc(func(_ context.Context, d string) (scrape.Resolution, error) {
			if strings.HasPrefix(d, "acme") {
				return scrape.Resolution{Domain: d, URL: "https://" + d + "/careers", Found: true, Outcome: scrape.OutcomeFound}, nil
			}
			return scrape.Resolution{Domain: d, Outcome: scrape.OutcomeUnreachable}, nil
		})
	}
}

func execute(t *testing.T, f resolverFactory, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(f)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "orgs.csv")
	out := filepath.Join(dir, "careers.csv")
	require.NoError(t, os.WriteFile(in, []byte("id,name,domains\n1,Acme,\"['acme.test']\"\n2,Globex,\"['globex.test']\"\n"), 0o644))

	var fc scrape.FetcherConfig
	stdout, err := execute(t, fakeFactory(&fc), "run", "--in", in, "--out", out, "--workers", "1", "--pace", "0s", "--timeout", "3")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Searching Acme - acme.test...")
	assert.Contains(t, stdout, "Found: https://acme.test/careers")
	assert.Contains(t, stdout, "Found 1 careers pages for 2 of 2 domains")
	assert.Equal(t, 3, int(fc.Timeout.Seconds()))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "company_name", "domain", "careers_page_url"},
		{"1", "Acme", "acme.test", "https://acme.test/careers"},
		{"2", "Globex", "globex.test", "Not Found"},
	}, records)
}

func TestRunCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, fakeFactory(nil), "run", "--out", filepath.Join(dir, "x.csv"))
	assert.Error(t, err, "--in is required")

	in := filepath.Join(dir, "orgs.csv")
	require.NoError(t, os.WriteFile(in, []byte("id,name\n1,Acme\n"), 0o644))
	_, err = execute(t, fakeFactory(nil), "run", "--in", in, "--out", filepath.Join(dir, "x.csv"), "--pace", "0s")
	assert.Error(t, err)

	_, err = execute(t, fakeFactory(nil), "run", "--in", in, "--out", filepath.Join(dir, "x.pdf"))
	assert.Error(t, err)

	_, err = execute(t, fakeFactory(nil), "run", "--in", in, "--workers", "0")
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	stdout, err := execute(t, fakeFactory(nil), "check", "acme.test", "globex.test")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "https://acme.test/careers")
	assert.Contains(t, lines[1], "Not Found")
	assert.Contains(t, lines[1], "unreachable")

	_, err = execute(t, fakeFactory(nil), "check")
	assert.Error(t, err)
}
