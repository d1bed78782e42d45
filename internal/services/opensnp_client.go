package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

const (
	selectorPhenotypeUsers = "#users a[href]"
	selectorGenotypeLinks  = "#genotypes a[href]"
)

// OpenSNPClient reads phenotype and user pages from openSNP.
// Safe for concurrent use once constructed.
type OpenSNPClient struct {
	baseURL string
	http    *resty.Client
	retry   lib.RetryConfig
	logger  *lib.Logger
}

// NewOpenSNPClient creates a client for the openSNP instance at config.BaseURL
func NewOpenSNPClient(config models.OpenSNPConfig, httpConfig models.HTTPConfig, retryConfig models.RetryConfig, logger *lib.Logger) (*OpenSNPClient, error) {
	client, err := newPageClient("opensnp", httpConfig, logger)
	if err != nil {
		return nil, err
	}
	return &OpenSNPClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		http:    client,
		retry:   lib.NewRetryConfigFromModel(retryConfig),
		logger:  logger,
	}, nil
}

// PhenotypeURL returns the page listing the users who reported phenotypeID
func (c *OpenSNPClient) PhenotypeURL(phenotypeID int) string {
	return fmt.Sprintf("%s/phenotypes/%d", c.baseURL, phenotypeID)
}

// UserURL returns the profile page of userID
func (c *OpenSNPClient) UserURL(userID string) string {
	return fmt.Sprintf("%s/users/%s", c.baseURL, userID)
}

// FetchPhenotypeUsers groups every user listed for phenotypeID by the variant they reported.
// Any failure to load the page is fatal for the whole scrape.
func (c *OpenSNPClient) FetchPhenotypeUsers(ctx context.Context, phenotypeID int) (models.PhenotypeIndex, error) {
	page, err := c.fetch(ctx, c.PhenotypeURL(phenotypeID))
	if err != nil {
		return nil, err
	}

	index := models.PhenotypeIndex{}
	page.Doc.Find(selectorPhenotypeUsers).Each(func(_ int, link *goquery.Selection) {
		href := link.AttrOr("href", "")
		if !strings.Contains(href, "/users/") {
			return
		}
		userID := lastPathSegment(href)
		if userID == "" {
			return
		}
		variant := strings.TrimSpace(link.Closest("tr").Find("td").Eq(1).Text())
		index.Add(variant, userID)
	})

	c.logger.Debug("Phenotype users collected",
		"phenotype", phenotypeID,
		"users", index.UserCount(),
		"variants", len(index))
	return index, nil
}

// ResolveGenotypeFile returns the absolute URL of the first 23andMe export on the
// user's profile, or "" when the user has none. Only page retrieval failures are errors.
func (c *OpenSNPClient) ResolveGenotypeFile(ctx context.Context, userID string) (string, error) {
	page, err := c.fetch(ctx, c.UserURL(userID))
	if err != nil {
		return "", err
	}

	var fileURL string
	var resolveErr error
	page.Doc.Find(selectorGenotypeLinks).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href := link.AttrOr("href", "")
		if !isGenotypeExport(href) {
			return true
		}
		fileURL, resolveErr = page.Resolve(href)
		return false
	})
	if resolveErr != nil {
		return "", resolveErr
	}

	if fileURL == "" {
		c.logger.Debug("No 23andMe file on profile", "user", userID)
	}
	return fileURL, nil
}

// fetch loads a page, retrying transient failures when retry.max_attempts allows it
func (c *OpenSNPClient) fetch(ctx context.Context, pageURL string) (*Page, error) {
	var page *Page
	err := lib.ExecuteWithRetry(ctx, func() error {
		var err error
		page, err = getPage(ctx, c.http, pageURL)
		return err
	}, c.retry, func(err error) bool {
		var genoErr *lib.GenoError
		retryable := errors.As(err, &genoErr) && genoErr.IsRetryable && ctx.Err() == nil
		if retryable {
			c.logger.Debug("Transient page fetch failure", "url", pageURL, "error", err)
		}
		return retryable
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// isGenotypeExport checks the openSNP naming scheme <user>.<kind>.<id>.txt
// for a kind of 23andme
func isGenotypeExport(href string) bool {
	parts := strings.Split(lastPathSegment(href), ".")
	return len(parts) > 1 && parts[1] == models.GenotypeFileKind
}
