package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

// Page element ids the imputation service exposes
const (
	selectorInputFile = "#inputfile"
	selectorJobID     = "#jobid"
	selectorOutLink   = "#outlink"
	selectorStatus    = "#status"

	submitButtonValue = "Submit"
	checkButtonValue  = "Check"

	statusError = "ERROR"
)

// ErrSessionClosed is returned by operations on a closed session
var ErrSessionClosed = errors.New("imputation session is closed")

// ImputationSession is an explicitly owned handle on the Haplotype Imputer web UI.
// It is not safe for concurrent use: every step is a blocking round trip over one
// cookie-bearing session, separated by a fixed settle delay.
type ImputationSession struct {
	baseURL     string
	http        *resty.Client
	settleDelay time.Duration
	logger      *lib.Logger
	closed      bool
}

// OpenImputationSession establishes a session by loading the service landing page.
// The caller owns the session and must Close it on every exit path.
func OpenImputationSession(ctx context.Context, config models.ImputationConfig, httpConfig models.HTTPConfig, logger *lib.Logger) (*ImputationSession, error) {
	client, err := newPageClient("imputation", httpConfig, logger)
	if err != nil {
		return nil, err
	}

	s := &ImputationSession{
		baseURL:     config.BaseURL,
		http:        client,
		settleDelay: time.Duration(config.SettleDelayMs) * time.Millisecond,
		logger:      logger,
	}

	if _, err := s.landingPage(ctx); err != nil {
		s.Close()
		return nil, err
	}

	logger.Debug("Imputation session opened", "url", config.BaseURL)
	return s, nil
}

// Close releases the session's connections. Safe to call more than once.
func (s *ImputationSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.http.GetClient().CloseIdleConnections()
	s.logger.Debug("Imputation session closed")
}

// Submit uploads one genotype file and returns the job id the service assigned
func (s *ImputationSession) Submit(ctx context.Context, filePath string) (string, error) {
	if s.closed {
		return "", ErrSessionClosed
	}

	page, err := s.landingPage(ctx)
	if err != nil {
		return "", err
	}

	fileInput := page.Doc.Find(selectorInputFile)
	if fileInput.Length() == 0 {
		return "", lib.ErrPageElementMissing(s.baseURL, selectorInputFile)
	}
	form, err := formFor(page, fileInput.Closest("form"), submitButtonValue)
	if err != nil {
		return "", err
	}

	res, err := s.http.R().
		SetContext(ctx).
		SetFormData(form.fields).
		SetFile(fileInput.AttrOr("name", "inputfile"), filePath).
		Post(form.action)
	if err != nil {
		return "", lib.ErrNetworkUnreachable(form.action, err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", lib.ErrPageUnavailable(form.action, res.StatusCode())
	}
	if err := lib.Sleep(ctx, s.settleDelay); err != nil {
		return "", err
	}

	result, err := parsePage(res)
	if err != nil {
		return "", err
	}

	jobID := elementValue(result.Doc.Find(selectorJobID))
	if jobID == "" {
		return "", lib.ErrPageElementMissing("submission result for "+filepath.Base(filePath), selectorJobID)
	}

	if err := lib.Sleep(ctx, s.settleDelay); err != nil {
		return "", err
	}
	return jobID, nil
}

// Check asks the service for the status of jobID
func (s *ImputationSession) Check(ctx context.Context, jobID string) (models.JobStatusReport, error) {
	if s.closed {
		return models.JobStatusReport{}, ErrSessionClosed
	}

	page, err := s.landingPage(ctx)
	if err != nil {
		return models.JobStatusReport{}, err
	}

	idInput := page.Doc.Find(selectorJobID)
	if idInput.Length() == 0 {
		return models.JobStatusReport{}, lib.ErrPageElementMissing(s.baseURL, selectorJobID)
	}
	form, err := formFor(page, idInput.Closest("form"), checkButtonValue)
	if err != nil {
		return models.JobStatusReport{}, err
	}
	form.fields[idInput.AttrOr("name", "jobid")] = jobID

	res, err := s.http.R().
		SetContext(ctx).
		SetFormData(form.fields).
		Post(form.action)
	if err != nil {
		return models.JobStatusReport{}, lib.ErrNetworkUnreachable(form.action, err)
	}
	if res.StatusCode() != http.StatusOK {
		return models.JobStatusReport{}, lib.ErrPageUnavailable(form.action, res.StatusCode())
	}
	if err := lib.Sleep(ctx, s.settleDelay); err != nil {
		return models.JobStatusReport{}, err
	}

	result, err := parsePage(res)
	if err != nil {
		return models.JobStatusReport{}, err
	}
	return readStatus(result)
}

// readStatus maps the status page onto a job state:
// visible download link -> complete, status ERROR -> error, anything else -> pending
func readStatus(page *Page) (models.JobStatusReport, error) {
	statusText := strings.TrimSpace(page.Doc.Find(selectorStatus).First().Text())
	report := models.JobStatusReport{
		State:      models.JobStatePending,
		StatusText: statusText,
	}

	link := page.Doc.Find(selectorOutLink)
	if href := strings.TrimSpace(link.AttrOr("href", "")); href != "" && IsVisible(link) {
		downloadURL, err := page.Resolve(href)
		if err != nil {
			return report, err
		}
		report.State = models.JobStateComplete
		report.DownloadURL = downloadURL
		return report, nil
	}

	if statusText == statusError {
		report.State = models.JobStateError
	}
	return report, nil
}

func (s *ImputationSession) landingPage(ctx context.Context) (*Page, error) {
	page, err := getPage(ctx, s.http, s.baseURL)
	if err != nil {
		return nil, err
	}
	if err := lib.Sleep(ctx, s.settleDelay); err != nil {
		return nil, err
	}
	return page, nil
}

// htmlForm is a form ready to be posted
type htmlForm struct {
	action string
	fields map[string]string
}

// formFor collects the action and the default field values of form, including the
// submit button whose value is buttonValue so the server sees which button was pressed
func formFor(page *Page, form *goquery.Selection, buttonValue string) (htmlForm, error) {
	action := page.URL.String()
	if form.Length() > 0 {
		if a := strings.TrimSpace(form.AttrOr("action", "")); a != "" {
			resolved, err := page.Resolve(a)
			if err != nil {
				return htmlForm{}, err
			}
			action = resolved
		}
	} else {
		form = page.Doc.Selection
	}

	fields := map[string]string{}
	form.Find("input[name]").Each(func(_ int, in *goquery.Selection) {
		name := in.AttrOr("name", "")
		switch strings.ToLower(in.AttrOr("type", "text")) {
		case "file":
			return
		case "submit", "button":
			if in.AttrOr("value", "") != buttonValue {
				return
			}
		case "checkbox", "radio":
			if _, checked := in.Attr("checked"); !checked {
				return
			}
		}
		fields[name] = in.AttrOr("value", "")
	})

	if page.Doc.Find(fmt.Sprintf(`input[value=%q]`, buttonValue)).Length() == 0 {
		return htmlForm{}, lib.ErrPageElementMissing(action, fmt.Sprintf(`input[value=%q]`, buttonValue))
	}

	return htmlForm{action: action, fields: fields}, nil
}

// elementValue returns the visible text of an element, or its value attribute for inputs
func elementValue(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	if text := strings.TrimSpace(sel.First().Text()); text != "" {
		return text
	}
	return strings.TrimSpace(sel.First().AttrOr("value", ""))
}
