package latex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resumetex/internal/upstream"
)

// maxPackageSize bounds a single fetched style file
const maxPackageSize = 2 * 1024 * 1024

// PackageMirror fetches LaTeX style files by package name
type PackageMirror interface {
	Fetch(ctx context.Context, pkg string) ([]byte, error)
}

// CTANMirror fetches {base}/{pkg}/{pkg}.sty from a CTAN contrib tree
type CTANMirror struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

var _ PackageMirror = (*CTANMirror)(nil)

// NewCTANMirror creates a mirror client
func NewCTANMirror(baseURL string, client *http.Client, timeout time.Duration) *CTANMirror {
	return &CTANMirror{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		Timeout: timeout,
	}
}

func (m *CTANMirror) Fetch(ctx context.Context, pkg string) ([]byte, error) {
	if !packageNamePattern.MatchString(pkg) {
		return nil, fmt.Errorf("invalid package name %q", pkg)
	}

	escaped := url.PathEscape(pkg)
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/%s/%s.sty", m.BaseURL, escaped, escaped), nil)
	if err != nil {
		return nil, err
	}

	resp, cancel, err := upstream.Do(ctx, m.Client, req, m.Timeout)
	defer cancel()
	if err != nil {
		return nil, fmt.Errorf("mirror request for %s failed: %w", pkg, err)
	}

	body, err := upstream.ReadBody(resp, maxPackageSize)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &upstream.StatusError{StatusCode: resp.StatusCode, Body: upstream.Snippet(string(body), 200)}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("mirror returned an empty file for %s", pkg)
	}
	return body, nil
}
