// Package feed pulls opportunities from a remote paginated JSON feed.
package feed

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

const (
	contentType     = "application/json"
	acceptEncoding  = "gzip"
	userAgent       = "spigell/opportunity-matcher"
	defaultPerPage  = 100
	defaultTimeout  = 10 * time.Second
	defaultMaxPages = 50
)

// Params are sent as query parameters. The feedparam tag names the parameter.
type Params struct {
	Text       string   `feedparam:"text" mapstructure:"text"`
	Categories []string `feedparam:"category" mapstructure:"categories"`
	Platforms  []string `feedparam:"platform" mapstructure:"platforms"`
	PerPage    int      `feedparam:"per_page" mapstructure:"per-page"`
}

type page struct {
	Items   []any `json:"items"`
	Found   int   `json:"found"`
	Pages   int   `json:"pages"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	// MaxPages caps how many pages one Fetch may request.
	MaxPages int
}

func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:  token,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		UserAgent: userAgent,
		MaxPages:  defaultMaxPages,
	}
}

// Fetch requests every page of the feed at feedURL and decodes the items.
func (c *Client) Fetch(ctx context.Context, feedURL string, params Params) ([]*opportunity.Opportunity, error) {
	if params.PerPage <= 0 {
		params.PerPage = defaultPerPage
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	c.setHeaders(req)

	q := req.URL.Query()
	for key, values := range buildParams(params) {
		q[key] = values
	}
	req.URL.RawQuery = q.Encode()

	response, err := c.getPage(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got response from feed", zap.Int("pages", response.Pages), zap.Int("found", response.Found))

	items := append([]any(nil), response.Items...)
	requested := 1
	for response.Page < response.Pages-1 {
		if requested >= c.MaxPages {
			c.logger.Warn("feed page limit reached", zap.Int("max_pages", c.MaxPages), zap.Int("pages", response.Pages))
			break
		}

		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", response.Page+1, response.Pages),
		))

		response, err = c.getPage(addPage(req, response.Page+1))
		if err != nil {
			return nil, err
		}
		requested++
		items = append(items, response.Items...)
	}

	opps, err := opportunity.DecodeOpportunities(items)
	if err != nil {
		return nil, err
	}

	c.logger.Info("fetched opportunities from feed", zap.Int("count", len(opps)), zap.Int("pages", requested))
	return opps, nil
}

func (c *Client) getPage(req *http.Request) (*page, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read gzip feed: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	var p page
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode feed page: %w", err)
	}
	return &p, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", acceptEncoding)
}

func buildParams(params Params) url.Values {
	q := url.Values{}
	value := reflect.ValueOf(params)
	for _, field := range reflect.VisibleFields(value.Type()) {
		key := field.Tag.Get("feedparam")
		if key == "" {
			continue
		}

		switch v := value.FieldByIndex(field.Index).Interface().(type) {
		case []string:
			for _, item := range v {
				if item != "" {
					q.Add(key, item)
				}
			}
		case int:
			if v != 0 {
				q.Set(key, strconv.Itoa(v))
			}
		case string:
			if v != "" {
				q.Set(key, v)
			}
		}
	}
	return q
}

// addPage sets the page parameter on a copy of req.
func addPage(req *http.Request, n int) *http.Request {
	next := req.Clone(req.Context())
	q := next.URL.Query()
	q.Set("page", strconv.Itoa(n))
	next.URL.RawQuery = q.Encode()
	return next
}
