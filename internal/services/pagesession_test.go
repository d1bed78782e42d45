package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		visible bool
	}{
		{"plain", `<a id="x" href="/f">f</a>`, true},
		{"hidden attribute", `<a id="x" hidden>f</a>`, false},
		{"display none", `<a id="x" style="color: red; display: none">f</a>`, false},
		{"visibility hidden", `<a id="x" style="VISIBILITY:HIDDEN">f</a>`, false},
		{"hidden class", `<a id="x" class="hidden">f</a>`, false},
		{"unrelated class", `<a id="x" class="btn hidden-xs">f</a>`, true},
		{"absent", `<p>nothing</p>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := testPage(t, "http://host/", tt.html)
			assert.Equal(t, tt.visible, IsVisible(page.Doc.Find("#x")))
		})
	}
}

func TestPage_Resolve(t *testing.T) {
	page := testPage(t, "https://opensnp.org/users/42", "")

	got, err := page.Resolve("/data/42.23andme.1")
	require.NoError(t, err)
	assert.Equal(t, "https://opensnp.org/data/42.23andme.1", got)

	got, err = page.Resolve("  files/a.txt ")
	require.NoError(t, err)
	assert.Equal(t, "https://opensnp.org/users/files/a.txt", got)

	got, err = page.Resolve("https://other.example/x")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example/x", got)

	_, err = page.Resolve("http://[::1")
	assert.Error(t, err)
}

func TestLastPathSegment(t *testing.T) {
	assert.Equal(t, "user1", lastPathSegment("/users/user1"))
	assert.Equal(t, "user1", lastPathSegment("/users/user1/"))
	assert.Equal(t, "1.23andme.2", lastPathSegment("https://opensnp.org/data/1.23andme.2?1400"))
	assert.Equal(t, "plain", lastPathSegment("plain"))
	assert.Equal(t, "", lastPathSegment("/"))
}

func TestGetPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new/page", http.StatusFound)
			return
		}
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<h1 id="title">Not here</h1>`)
			return
		}
		assert.Equal(t, "genograb-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `<h1 id="title">Hello</h1>`)
	}))
	defer server.Close()

	client, err := newPageClient("test", testHTTPConfig(), testLogger())
	require.NoError(t, err)

	page, err := getPage(context.Background(), client, server.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, "/new/page", page.URL.Path, "page URL follows redirects")
	assert.Equal(t, "Hello", page.Doc.Find("#title").Text())

	page, err = getPage(context.Background(), client, server.URL+"/missing")
	require.Error(t, err)
	require.NotNil(t, page, "non-200 pages are still returned")
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
}
