package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

const phenotypeHTML = `<html><body>
<table id="users">
  <tr><th>User</th><th>Variation</th></tr>
  <tr><td><a href="/users/user1">Alice</a></td><td> Yes </td></tr>
  <tr><td><a href="/users/user2">Bob</a></td><td>Yes</td></tr>
  <tr><td><a href="/users/user3/">Carol</a></td><td>No</td></tr>
  <tr><td><a href="/phenotypes/99">other phenotype</a></td><td>No</td></tr>
</table>
<a href="/users/outside">not in the table</a>
</body></html>`

func newOpenSNPServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestOpenSNPClient(t *testing.T, baseURL string, retry models.RetryConfig) *OpenSNPClient {
	t.Helper()
	client, err := NewOpenSNPClient(models.OpenSNPConfig{BaseURL: baseURL + "/"}, testHTTPConfig(), retry, testLogger())
	require.NoError(t, err)
	return client
}

func TestOpenSNPClient_FetchPhenotypeUsers(t *testing.T) {
	server := newOpenSNPServer(t, map[string]string{"/phenotypes/24": phenotypeHTML})
	client := newTestOpenSNPClient(t, server.URL, noRetry())

	index, err := client.FetchPhenotypeUsers(context.Background(), 24)
	require.NoError(t, err)

	want := models.PhenotypeIndex{
		"Yes": {"user1", "user2"},
		"No":  {"user3"},
	}
	if diff := cmp.Diff(want, index); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenSNPClient_FetchPhenotypeUsers_NotFoundIsFatal(t *testing.T) {
	server := newOpenSNPServer(t, map[string]string{})
	client := newTestOpenSNPClient(t, server.URL, noRetry())

	_, err := client.FetchPhenotypeUsers(context.Background(), 7)

	var genoErr *lib.GenoError
	require.ErrorAs(t, err, &genoErr)
	assert.Equal(t, http.StatusNotFound, genoErr.HTTPStatus)
}

func TestOpenSNPClient_ResolveGenotypeFile(t *testing.T) {
	server := newOpenSNPServer(t, map[string]string{
		"/users/user1": `<div id="genotypes">
			<a href="/data/user1.ancestry.11?1400">ancestry</a>
			<a href="/data/user1.23andme.12?1401">23andme</a>
			<a href="/data/user1.23andme.13">second</a>
		</div>`,
		"/users/user2": `<div id="genotypes"><a href="/data/user2.ftdna-illumina.20">ftdna</a></div>
			<a href="/data/user2.23andme.21">outside genotypes</a>`,
		"/users/user3": `<div id="genotypes"><a href="https://cdn.example/user3.23andme.31">abs</a></div>`,
	})
	client := newTestOpenSNPClient(t, server.URL, noRetry())
	ctx := context.Background()

	got, err := client.ResolveGenotypeFile(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/data/user1.23andme.12?1401", got, "first matching link, resolved against the page")

	got, err = client.ResolveGenotypeFile(ctx, "user2")
	require.NoError(t, err)
	assert.Empty(t, got, "no matching link is absent, not an error")

	got, err = client.ResolveGenotypeFile(ctx, "user3")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/user3.23andme.31", got)

	_, err = client.ResolveGenotypeFile(ctx, "ghost")
	assert.Error(t, err, "missing profile page is reported to the caller")
}

func TestOpenSNPClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, phenotypeHTML)
	}))
	defer server.Close()

	retry := models.RetryConfig{MaxAttempts: 3, InitialBackoffMs: 1, MaxBackoffMs: 2}
	client := newTestOpenSNPClient(t, server.URL, retry)

	index, err := client.FetchPhenotypeUsers(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 3, index.UserCount())
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenSNPClient_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestOpenSNPClient(t, server.URL, noRetry())
	_, err := client.FetchPhenotypeUsers(context.Background(), 24)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIsGenotypeExport(t *testing.T) {
	assert.True(t, isGenotypeExport("/data/1234.23andme.5678"))
	assert.True(t, isGenotypeExport("https://x/data/1234.23andme.5678?99"))
	assert.False(t, isGenotypeExport("/data/1234.ancestry.5678"))
	assert.False(t, isGenotypeExport("/data/23andme"))
	assert.False(t, isGenotypeExport("/data/1234.23andMe.1"))
}

func TestOpenSNPClient_URLs(t *testing.T) {
	client := newTestOpenSNPClient(t, "https://opensnp.org", noRetry())
	assert.Equal(t, "https://opensnp.org/phenotypes/24", client.PhenotypeURL(24))
	assert.Equal(t, "https://opensnp.org/users/42", client.UserURL("42"))
}
