package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/fontpeek/inspector/internal/errkind"
)

// DefaultProxyEndpoint is the public allorigins endpoint.
const DefaultProxyEndpoint = "https://api.allorigins.win/get"

// maxEnvelope caps the proxy response. Markup is JSON-escaped inside it, so
// it is larger than the page cap.
const maxEnvelope = 32 << 20

// Retriever fetches the raw markup of a remote page.
type Retriever interface {
	Retrieve(ctx context.Context, pageURL string) (string, error)
}

// ProxyClient retrieves pages through an allorigins-compatible endpoint:
// GET <endpoint>?url=<escaped> returning {"contents": "<markup>"}.
type ProxyClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// ProxyOption configures a ProxyClient.
type ProxyOption func(*ProxyClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ProxyOption {
	return func(p *ProxyClient) { p.client = c }
}

// WithProxyLogger sets a custom logger.
func WithProxyLogger(l *slog.Logger) ProxyOption {
	return func(p *ProxyClient) { p.logger = l }
}

// NewProxyClient creates a client for endpoint. Empty means DefaultProxyEndpoint.
func NewProxyClient(endpoint string, opts ...ProxyOption) *ProxyClient {
	if endpoint == "" {
		endpoint = DefaultProxyEndpoint
	}
	p := &ProxyClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RequestURL returns the proxy URL that retrieves pageURL.
func (p *ProxyClient) RequestURL(pageURL string) string {
	sep := "?"
	if strings.Contains(p.endpoint, "?") {
		sep = "&"
	}
	return p.endpoint + sep + "url=" + url.QueryEscape(pageURL)
}

// Retrieve performs the single outbound call. Network failures and non-2xx
// answers are Transport errors; an unreadable envelope is a Parse error.
func (p *ProxyClient) Retrieve(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.RequestURL(pageURL), nil)
	if err != nil {
		return "", errkind.New(errkind.Transport, "loader: proxy request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", errkind.Errorf(errkind.Transport, "loader: proxy", "request timed out")
		}
		return "", errkind.New(errkind.Transport, "loader: proxy", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", errkind.Errorf(errkind.Transport, "loader: proxy", "proxy returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelope))
	if err != nil {
		return "", errkind.New(errkind.Transport, "loader: proxy read", err)
	}

	var env struct {
		Contents *string `json:"contents"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return "", errkind.New(errkind.Parse, "loader: proxy envelope", fmt.Errorf("malformed response: %w", err))
	}
	if env.Contents == nil {
		return "", errkind.Errorf(errkind.Parse, "loader: proxy envelope", "response has no contents field")
	}

	p.logger.Debug("loader: retrieved", "url", pageURL, "size", len(*env.Contents))
	return *env.Contents, nil
}
