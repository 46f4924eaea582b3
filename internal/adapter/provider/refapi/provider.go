// Package refapi fetches reference dictionaries from the platform's
// dictionaries-with-items endpoint.
package refapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/heartmarshall/refdict/internal/config"
	"github.com/heartmarshall/refdict/internal/domain"
)

const listPath = "/dictionaries/with-items"

// Provider is an HTTP client for the reference-data API.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	retryWait  time.Duration
	log        *slog.Logger
}

// NewProvider creates a Provider from configuration.
func NewProvider(cfg config.RefAPIConfig, logger *slog.Logger) *Provider {
	return &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retryWait:  cfg.RetryWait,
		log:        logger.With("adapter", "refapi"),
	}
}

// NewProviderWithURL creates a Provider with default timeouts against baseURL.
func NewProviderWithURL(baseURL string, logger *slog.Logger) *Provider {
	return NewProvider(config.RefAPIConfig{
		BaseURL:   baseURL,
		Timeout:   10 * time.Second,
		RetryWait: 500 * time.Millisecond,
	}, logger)
}

// ListDictionariesWithItems fetches one page of dictionaries with their
// forests. Pages are 1-based. Any transport failure, non-2xx response,
// undecodable body or non-success status field is returned as an error
// wrapping domain.ErrFetchFailed.
func (p *Provider) ListDictionariesWithItems(ctx context.Context, page, pageSize int) (*domain.DictionaryPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	reqURL := p.baseURL + listPath + "?" + q.Encode()

	p.log.DebugContext(ctx, "refapi request", slog.Int("page", page), slog.Int("page_size", pageSize))

	resp, err := p.doWithRetry(ctx, reqURL, page)
	if err != nil {
		p.log.ErrorContext(ctx, "refapi request failed", slog.Int("page", page), slog.String("error", err.Error()))
		return nil, fmt.Errorf("refapi: request failed: %w: %w", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refapi: unexpected status %d: %w", resp.StatusCode, domain.ErrFetchFailed)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("refapi: read body: %w: %w", domain.ErrFetchFailed, err)
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("refapi: decode json: %w: %w", domain.ErrFetchFailed, err)
	}
	if !payload.ok() {
		return nil, fmt.Errorf("refapi: server status %d %q: %w", payload.Status, payload.Message, domain.ErrFetchFailed)
	}

	result := mapPage(payload)

	p.log.DebugContext(ctx, "refapi response",
		slog.Int("page", page),
		slog.Int("total_pages", result.TotalPages),
		slog.Int("dictionaries", len(result.Dictionaries)),
	)

	return result, nil
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (p *Provider) doWithRetry(ctx context.Context, reqURL string, page int) (*http.Response, error) {
	resp, err := p.do(ctx, reqURL)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	p.log.WarnContext(ctx, "refapi retry", slog.Int("page", page), slog.String("reason", reason))

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.retryWait):
	}

	return p.do(ctx, reqURL)
}

func (p *Provider) do(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return p.httpClient.Do(req)
}
