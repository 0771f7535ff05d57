// Package jobdesc turns a job posting URL into plain text that can be fed to
// the tailoring prompt.
package jobdesc

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"resumetex/internal/common"
	"resumetex/internal/config"
	"resumetex/internal/errors"
	"resumetex/internal/types"
	"resumetex/internal/upstream"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultUserAgent is sent when none is configured
const DefaultUserAgent = "Mozilla/5.0 (compatible; resumetex/1.0)"

// minTextLength matches the shortest job description the tailorer accepts
const minTextLength = 16

// Fetcher downloads job postings and extracts their main text
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	maxBody   int64
	userAgent string
	logger    *errors.Logger
}

// NewFetcher creates a fetcher from configuration
func NewFetcher(cfg config.JobDescConfig, client *http.Client, logger *errors.Logger) *Fetcher {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    client,
		timeout:   cfg.Timeout,
		maxBody:   cfg.MaxBodySize,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Fetch retrieves rawURL and returns the posting title and text
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*types.JobDescription, error) {
	if err := common.ValidateStruct(types.JobDescriptionRequest{URL: rawURL}, errors.ErrCodeInvalidRequest); err != nil {
		return nil, err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job posting URL must use http or https", err)
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to build request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, cancel, err := upstream.Do(ctx, f.client, req, f.timeout)
	defer cancel()
	if err != nil {
		if stderrors.Is(err, upstream.ErrBlockedAddress) {
			return nil, errors.NewValidationError(errors.ErrCodeBlockedURL,
				"job posting URL resolves to a non-public address", err).
				WithContext("url", rawURL)
		}
		return nil, errors.NewUpstreamTransientError(errors.ErrCodeFetchFailed, "failed to fetch job posting", err).
			WithContext("url", rawURL)
	}

	body, err := upstream.ReadBody(resp, f.maxBody)
	if err != nil {
		return nil, errors.NewUpstreamExhaustedError(errors.ErrCodeFetchFailed, "failed to read job posting", err).
			WithContext("url", rawURL)
	}

	if resp.StatusCode != http.StatusOK {
		cause := &upstream.StatusError{StatusCode: resp.StatusCode, Body: upstream.Snippet(string(body), 200)}
		if upstream.IsTransient(cause) {
			return nil, errors.NewUpstreamTransientError(errors.ErrCodeFetchFailed, "job posting site is unavailable", cause).
				WithContext("url", rawURL)
		}
		return nil, errors.NewUpstreamExhaustedError(errors.ErrCodeFetchFailed,
			fmt.Sprintf("job posting returned HTTP %d", resp.StatusCode), cause).
			WithContext("url", rawURL)
	}

	result, err := Extract(body)
	if err != nil {
		return nil, err
	}
	result.URL = rawURL

	if f.logger != nil {
		f.logger.Info("Job posting fetched",
			"url", rawURL,
			"title", result.Title,
			"text_length", len(result.Text))
	}
	return result, nil
}

// Extract pulls the title and main text out of an HTML or plain text body
func Extract(body []byte) (*types.JobDescription, error) {
	mtype := mimetype.Detect(body)

	var result *types.JobDescription
	switch {
	case mtype.Is("text/html"):
		title, text, err := ExtractMainText(string(body), JobPostingSelectors())
		if err != nil {
			return nil, errors.NewUpstreamExhaustedError(errors.ErrCodeFetchFailed, "failed to parse job posting", err)
		}
		result = &types.JobDescription{Title: title, Text: text}
	case isText(mtype):
		result = &types.JobDescription{Text: cleanWhitespace(string(body))}
	default:
		return nil, errors.NewValidationError(errors.ErrCodeUnsupportedFile,
			fmt.Sprintf("job posting has unsupported content type %s", mtype.String()), nil)
	}

	if utf8.RuneCountInString(result.Text) < minTextLength {
		return nil, errors.NewValidationError(errors.ErrCodeJobDescTooShort, "job posting has no readable text", nil)
	}
	return result, nil
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// ExtractMainText parses HTML, drops page chrome and returns the page title
// and the text of the first element matching contentSelectors, or of the
// body when none match.
func ExtractMainText(html string, contentSelectors []string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find("nav, footer, header, script, style, noscript, form, .ad, .advertisement, .sidebar, .cookie-banner, .popup").Remove()

	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}
	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	// Block elements become line breaks so list items stay separate.
	mainContent.Find("p, li, br, h1, h2, h3, h4, div, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return title, cleanWhitespace(mainContent.Text()), nil
}

// JobPostingSelectors returns selectors for the main content of job boards
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		".job-content",
		"#job-description",
		"#job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		".content",
		"#content",
	}
}

func cleanWhitespace(text string) string {
	var cleaned []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
