package notion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/phrazzld/coursegen/internal/platform/logger"
	"github.com/phrazzld/coursegen/internal/publishing"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultBaseURL    = "https://api.notion.com"
	DefaultAPIVersion = "2022-06-28"
	DefaultTimeout    = 30 * time.Second

	// maxChildrenPerRequest is the API limit on blocks per create or append call.
	maxChildrenPerRequest = 100
)

// ErrInvalidConfig is returned by New when the token, parent page or base URL
// is unusable.
var ErrInvalidConfig = errors.New("invalid notion configuration")

// Config configures the publisher.
type Config struct {
	Token        string
	ParentPageID string
	// BaseURL redirects API calls, e.g. to a test server.
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
	// MaxRetries applies to rate limited and 5xx responses. Zero disables
	// retries.
	MaxRetries uint64
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Publisher creates Notion pages under a fixed parent page.
type Publisher struct {
	cfg    Config
	client *notionapi.Client
	logger *slog.Logger
}

var _ publishing.Publisher = (*Publisher)(nil)

// New creates a Publisher. Token and ParentPageID are required.
func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.ParentPageID) == "" {
		return nil, fmt.Errorf("%w: parent page id is required", ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		httpClient = &c
	}
	if cfg.BaseURL != DefaultBaseURL {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil || base.Scheme == "" || base.Host == "" {
			return nil, fmt.Errorf("%w: base url %q", ErrInvalidConfig, cfg.BaseURL)
		}
		next := httpClient.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		httpClient.Transport = &baseURLTransport{base: base, next: next}
	}

	if logger == nil {
		logger = slog.Default()
	}

	client := notionapi.NewClient(notionapi.Token(cfg.Token),
		notionapi.WithHTTPClient(httpClient),
		notionapi.WithVersion(cfg.APIVersion),
		// The client gives up on the n-th consecutive 429, so n-1 retries.
		notionapi.WithRetry(int(cfg.MaxRetries)+1),
	)

	return &Publisher{
		cfg:    cfg,
		client: client,
		logger: logger.With(slog.String("component", "notion_publisher")),
	}, nil
}

// Publish creates a page titled page.Title whose body is page.Markdown.
// Bodies longer than one request are appended in batches after creation.
// When an append fails the created page id is returned with the error.
func (p *Publisher) Publish(ctx context.Context, page publishing.Page) (string, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	blocks := markdownToBlocks(page.Markdown)
	first := blocks
	if len(first) > maxChildrenPerRequest {
		first = blocks[:maxChildrenPerRequest]
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(p.cfg.ParentPageID),
		},
		Properties: notionapi.Properties{
			"title": notionapi.TitleProperty{
				Type:  notionapi.PropertyTypeTitle,
				Title: splitRichText(truncateTitle(page.Title)),
			},
		},
		Children: first,
	}

	var created *notionapi.Page
	err := p.withRetry(ctx, "create_page", func(ctx context.Context) error {
		var err error
		created, err = p.client.Page.Create(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create notion page: %w", err)
	}
	pageID := string(created.ID)
	if pageID == "" {
		return "", errors.New("notion returned a page without an id")
	}

	for start := maxChildrenPerRequest; start < len(blocks); start += maxChildrenPerRequest {
		end := min(start+maxChildrenPerRequest, len(blocks))
		batch := &notionapi.AppendBlockChildrenRequest{Children: blocks[start:end]}
		err := p.withRetry(ctx, "append_children", func(ctx context.Context) error {
			_, err := p.client.Block.AppendChildren(ctx, notionapi.BlockID(pageID), batch)
			return err
		})
		if err != nil {
			return pageID, fmt.Errorf("page %s created but appending blocks failed: %w", pageID, err)
		}
	}

	log.Info("published page to notion",
		slog.String("page_id", pageID),
		slog.Int("blocks", len(blocks)))
	return pageID, nil
}

// withRetry retries 5xx responses with exponential backoff. Rate limits are
// retried inside the client, which honours Retry-After.
func (p *Publisher) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(p.cfg.MaxRetries, retry.NewExponential(p.cfg.RetryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if isRetryable(err) {
			logger.FromContextOrDefault(ctx, p.logger).Warn("retrying notion request",
				slog.String("operation", op),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return err
	})
}

func isRetryable(err error) bool {
	var apiErr *notionapi.Error
	return errors.As(err, &apiErr) && apiErr.Status >= http.StatusInternalServerError
}

// baseURLTransport sends every request to base instead of the public API host.
type baseURLTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *baseURLTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	r.URL.Path = strings.TrimRight(t.base.Path, "/") + req.URL.Path
	r.Host = t.base.Host
	return t.next.RoundTrip(r)
}
