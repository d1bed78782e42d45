package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

// Page is a fetched and parsed HTML page
type Page struct {
	URL        *url.URL // Final URL after redirects, used to resolve relative links
	StatusCode int
	Doc        *goquery.Document
}

// newPageClient builds the resty client shared by the page-driven services:
// cookie jar, fixed user agent, optional timeout and service-call logging
func newPageClient(service string, httpConfig models.HTTPConfig, logger *lib.Logger) (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	if httpConfig.UserAgent != "" {
		client.SetHeader("User-Agent", httpConfig.UserAgent)
	}
	if httpConfig.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(httpConfig.TimeoutSeconds) * time.Second)
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		lib.LogServiceCall(logger, service, req.URL, req.Method)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		lib.LogServiceResponse(logger, service, res.StatusCode(), res.Time())
		return nil
	})

	return client, nil
}

// parsePage turns a resty response into a Page
func parsePage(res *resty.Response) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html from %s: %w", res.Request.URL, err)
	}

	var pageURL *url.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		pageURL = res.RawResponse.Request.URL
	} else if u, err := url.Parse(res.Request.URL); err == nil {
		pageURL = u
	}

	return &Page{
		URL:        pageURL,
		StatusCode: res.StatusCode(),
		Doc:        doc,
	}, nil
}

// getPage fetches and parses pageURL. Non-200 responses are returned as a page
// together with ErrPageUnavailable so callers can decide whether that is fatal.
func getPage(ctx context.Context, client *resty.Client, pageURL string) (*Page, error) {
	res, err := client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, lib.ErrNetworkUnreachable(pageURL, err)
	}

	page, err := parsePage(res)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		return page, lib.ErrPageUnavailable(pageURL, res.StatusCode())
	}
	return page, nil
}

// Resolve resolves a possibly relative href against the page URL
func (p *Page) Resolve(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	if p.URL == nil {
		return ref.String(), nil
	}
	return p.URL.ResolveReference(ref).String(), nil
}

// IsVisible reports whether the first element of sel would be rendered:
// present, not marked hidden and not styled away
func IsVisible(sel *goquery.Selection) bool {
	if sel.Length() == 0 {
		return false
	}
	el := sel.First()
	if _, hidden := el.Attr("hidden"); hidden {
		return false
	}

	style := strings.ToLower(strings.ReplaceAll(el.AttrOr("style", ""), " ", ""))
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return false
	}

	for _, class := range strings.Fields(el.AttrOr("class", "")) {
		if class == "hidden" || class == "d-none" {
			return false
		}
	}
	return true
}

// lastPathSegment returns the final non-empty segment of a URL path
func lastPathSegment(href string) string {
	if u, err := url.Parse(href); err == nil {
		href = u.Path
	}
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}
