package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"
)

var _ output.PageFetcher = (*HTTPFetcher)(nil)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 10 << 20
	userAgent       = "kairos-evaluator/1.0"
)

type Config struct {
	Timeout  time.Duration
	MaxBytes int64
	// Clean runs fetched pages through CleanHTML.
	Clean  bool
	Logger output.LoggerPort
}

type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	clean    bool
	logger   output.LoggerPort
}

func New(cfg Config) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		maxBytes: cfg.MaxBytes,
		clean:    cfg.Clean,
		logger:   cfg.Logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", entity.ErrFetch, url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", entity.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s: status %d", entity.ErrFetch, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", entity.ErrFetch, url, err)
	}

	page := string(body)
	if f.clean {
		cleaned := CleanHTML(page, nil)
		if f.logger != nil {
			f.logger.Debug("Page cleaned", "url", url, "rawBytes", len(page), "cleanBytes", len(cleaned))
		}
		page = cleaned
	}
	return page, nil
}
