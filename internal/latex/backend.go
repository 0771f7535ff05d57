package latex

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resumetex/internal/types"
	"resumetex/internal/upstream"
)

// maxResponseSize bounds PDFs and logs read from the compilation service
const maxResponseSize = 50 * 1024 * 1024

// Calling conventions for the direct endpoint
const (
	MethodPost = "POST"
	MethodGet  = "GET"
)

// Response is a raw compilation service reply
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Backend is the hosted compilation service
type Backend interface {
	// Direct compiles raw LaTeX text with the given engine using method.
	Direct(ctx context.Context, engine types.Engine, method string, source string) (*Response, error)
	// Archive uploads a tar or tar.bz2 and compiles target inside it.
	Archive(ctx context.Context, archive []byte, fileName string, target string, engine types.Engine) (*Response, error)
}

// HTTPBackend talks to a latexonline-style service:
//
//	POST/GET {base}/compile?command=E[&text=...]
//	POST     {base}/data?target=main.tex&command=E  (multipart "file")
type HTTPBackend struct {
	baseURL        string
	client         *http.Client
	directTimeout  time.Duration
	archiveTimeout time.Duration
	breaker        *upstream.Breaker[*Response]
}

var _ Backend = (*HTTPBackend)(nil)

// NewHTTPBackend creates a compilation service client
func NewHTTPBackend(baseURL string, client *http.Client, directTimeout, archiveTimeout time.Duration, breaker *upstream.Breaker[*Response]) *HTTPBackend {
	return &HTTPBackend{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         client,
		directTimeout:  directTimeout,
		archiveTimeout: archiveTimeout,
		breaker:        breaker,
	}
}

func (b *HTTPBackend) Direct(ctx context.Context, engine types.Engine, method string, source string) (*Response, error) {
	query := url.Values{}
	query.Set("command", string(engine))

	var req *http.Request
	var err error
	switch method {
	case MethodPost:
		req, err = http.NewRequest(http.MethodPost, b.baseURL+"/compile?"+query.Encode(), strings.NewReader(source))
		if err == nil {
			req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		}
	case MethodGet:
		query.Set("text", source)
		req, err = http.NewRequest(http.MethodGet, b.baseURL+"/compile?"+query.Encode(), nil)
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build compile request: %w", err)
	}

	return b.send(ctx, req, b.directTimeout)
}

func (b *HTTPBackend) Archive(ctx context.Context, archive []byte, fileName string, target string, engine types.Engine) (*Response, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(archive); err != nil {
		return nil, fmt.Errorf("failed to write archive to multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	query := url.Values{}
	query.Set("target", target)
	query.Set("command", string(engine))

	req, err := http.NewRequest(http.MethodPost, b.baseURL+"/data?"+query.Encode(), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build archive request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return b.send(ctx, req, b.archiveTimeout)
}

// send performs one call. Only transport failures and 5xx replies count
// against the breaker; compile errors are ordinary responses.
func (b *HTTPBackend) send(ctx context.Context, req *http.Request, timeout time.Duration) (*Response, error) {
	var reply *Response
	_, err := b.breaker.Execute(func() (*Response, error) {
		resp, cancel, err := upstream.Do(ctx, b.client, req, timeout)
		defer cancel()
		if err != nil {
			return nil, err
		}

		body, err := upstream.ReadBody(resp, maxResponseSize)
		if err != nil {
			return nil, err
		}
		reply = &Response{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
		}
		if resp.StatusCode >= http.StatusInternalServerError && !IsPDF(reply.ContentType, body) {
			return reply, &upstream.StatusError{StatusCode: resp.StatusCode}
		}
		return reply, nil
	})
	if reply != nil {
		return reply, nil
	}
	return nil, err
}

// GetCircuitBreakerStats reports the compilation service breaker state
func (b *HTTPBackend) GetCircuitBreakerStats() map[string]any {
	return b.breaker.GetStats()
}

// IsHealthy is false while the breaker is open
func (b *HTTPBackend) IsHealthy() bool {
	return b.breaker.IsHealthy()
}
