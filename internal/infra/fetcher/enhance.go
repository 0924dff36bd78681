package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/resilience/circuitbreaker"
	"dailybrief/internal/utils/text"

	"github.com/go-shiori/go-readability"
	"github.com/sony/gobreaker"
)

// Enhancement failure modes surfaced to callers.
var (
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrBodyTooLarge     = errors.New("response body exceeds size limit")
	ErrNoContent        = errors.New("no readable content")
)

// EnhanceConfig controls article page fetching for thin feed items.
type EnhanceConfig struct {
	// Timeout bounds one page fetch. Default: 10s
	Timeout time.Duration

	// MaxBodySize caps the response body read from a page.
	// Default: 10MB
	MaxBodySize int64

	// MaxRedirects caps redirect hops per request. Default: 5
	MaxRedirects int

	// UserAgent is sent on every page request.
	UserAgent string

	// DenyPrivateHosts blocks pages whose host resolves to a private
	// address. Redirect targets are screened the same way.
	DenyPrivateHosts bool
}

// DefaultEnhanceConfig returns the production limits for page fetching.
func DefaultEnhanceConfig() EnhanceConfig {
	return EnhanceConfig{
		Timeout:          10 * time.Second,
		MaxBodySize:      10 * 1024 * 1024,
		MaxRedirects:     5,
		UserAgent:        "dailybrief/1.0 (+https://github.com/dailybrief)",
		DenyPrivateHosts: true,
	}
}

// Enhancer fetches article pages and extracts readable text using the
// Mozilla Readability algorithm. Requests run through a circuit
// breaker; response bodies are size limited and every redirect hop is
// revalidated. Safe for concurrent use.
type Enhancer struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         EnhanceConfig
}

// NewEnhancer creates an Enhancer with its own HTTP client. The client
// enforces TLS 1.2+ and validates each redirect target against the
// same URL screening as the original request.
func NewEnhancer(cfg EnhanceConfig) *Enhancer {
	e := &Enhancer{
		circuitBreaker: circuitbreaker.New(circuitbreaker.ContentScrapeConfig()),
		config:         cfg,
	}

	e.client = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("%w: %d hops", ErrTooManyRedirects, len(via))
			}
			if err := entity.ValidateFetchURL(req.URL.String(), cfg.DenyPrivateHosts); err != nil {
				return fmt.Errorf("redirect target rejected: %w", err)
			}
			return nil
		},
	}

	return e
}

// Extract fetches pageURL and returns the readable article text.
func (e *Enhancer) Extract(ctx context.Context, pageURL string) (string, error) {
	if err := entity.ValidateFetchURL(pageURL, e.config.DenyPrivateHosts); err != nil {
		return "", err
	}

	result, err := e.circuitBreaker.Execute(func() (interface{}, error) {
		return e.doFetch(ctx, pageURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("content fetch circuit breaker open, request rejected",
				slog.String("service", e.circuitBreaker.Name()),
				slog.String("url", pageURL))
		}
		return "", err
	}

	return result.(string), nil
}

// doFetch performs the HTTP request and readability extraction. This
// is called by Extract through the circuit breaker.
func (e *Enhancer) doFetch(ctx context.Context, pageURL string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.config.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("page fetch exceeded %v: %w", e.config.Timeout, context.DeadlineExceeded)
		}
		// Redirect validation failures come wrapped in url.Error;
		// surface the cause so callers see the rejection itself.
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Err != nil {
			return "", urlErr.Err
		}
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.config.MaxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > e.config.MaxBodySize {
		return "", fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}

	// Relative links inside the page resolve against the final URL
	// after redirects.
	pageRef := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		pageRef = resp.Request.URL
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageRef)
	if err != nil {
		return "", fmt.Errorf("readability extraction: %w", err)
	}

	extracted := text.CollapseWhitespace(article.TextContent)
	if extracted == "" {
		extracted = sanitizeHTML(article.Content)
	}
	if extracted == "" {
		return "", ErrNoContent
	}

	return extracted, nil
}
