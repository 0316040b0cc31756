// Package registry searches a remote model registry. The response contract is
// configuration: either the HTML library listing or a JSON API described by
// gjson paths.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ollamatui/internal/errkind"
	"ollamatui/internal/models"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

const (
	DefaultURL = "https://ollama.com/library"

	SearchLimit   = 50
	TrendingLimit = 30

	maxBodyBytes   = 8 << 20
	requestTimeout = 20 * time.Second
	userAgent      = "ollamatui"
)

// Config describes where the registry lives and how to read its answers.
type Config struct {
	URL    string `yaml:"url"`
	Format Format `yaml:"format"`

	// QueryParam carries the search text. Trending requests omit it.
	QueryParam string `yaml:"query_param"`

	// JSON contract. ResultsPath selects the array of results; the field
	// paths are evaluated relative to each element.
	ResultsPath      string `yaml:"results_path"`
	NameField        string `yaml:"name_field"`
	DescriptionField string `yaml:"description_field"`
	TagsField        string `yaml:"tags_field"`
	URLField         string `yaml:"url_field"`
}

func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		Format:           FormatHTML,
		QueryParam:       "q",
		ResultsPath:      "results",
		NameField:        "name",
		DescriptionField: "description",
		TagsField:        "tags",
		URLField:         "url",
	}
}

func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("registry url %q is not an absolute URL", c.URL)
	}
	switch c.Format {
	case FormatHTML:
	case FormatJSON:
		if c.NameField == "" {
			return errors.New("registry name_field is required for the json format")
		}
	default:
		return fmt.Errorf("unknown registry format %q (want html or json)", c.Format)
	}
	return nil
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient returns a registry client. A nil httpClient selects one with a
// request timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.QueryParam == "" {
		cfg.QueryParam = "q"
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Search returns matches for query, or the trending set when query is empty.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)

	reqURL, err := c.requestURL(query)
	if err != nil {
		return nil, errkind.New(errkind.Unknown, "search", err)
	}

	body, err := c.fetch(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var results []models.SearchResult
	switch c.cfg.Format {
	case FormatJSON:
		results, err = parseJSON(body, c.cfg)
		if err != nil {
			return nil, errkind.New(errkind.MalformedResponse, "search", err)
		}
	default:
		results, err = parseHTML(body, c.origin())
		if err != nil {
			return nil, errkind.New(errkind.MalformedResponse, "search", err)
		}
	}

	results = dedupe(results)
	limit := TrendingLimit
	if query != "" {
		results = rank(results, query)
		limit = SearchLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}

	c.logger.Debug("registry search", "query", query, "url", reqURL, "results", len(results))
	return results, nil
}

func (c *Client) requestURL(query string) (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	switch {
	case query != "":
		q.Set(c.cfg.QueryParam, query)
	case c.cfg.Format != FormatJSON:
		q.Set("sort", "popular")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) origin() string {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errkind.New(errkind.Unknown, "search", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errkind.Wrap("search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errkind.New(errkind.ServerRejected, "search", fmt.Errorf("registry returned %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errkind.Wrap("search", fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

func dedupe(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		r.Tags = tagSet(r.Tags)
		out = append(out, r)
	}
	return out
}

func tagSet(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
