package tumblr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"artcollector/pkg/errors"
	"artcollector/pkg/logger"
	"artcollector/pkg/ratelimit"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

// Options configures a Client
type Options struct {
	BaseURL  string
	APIKey   string
	Token    string
	PageSize int
	Timeout  time.Duration
	Limiter  ratelimit.Limiter
	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
}

// Client talks to the Tumblr v2 API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a new Tumblr API client. A non-empty token is sent as an
// OAuth2 bearer token; the api key is sent as a query parameter.
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: opts.Timeout}
	}

	httpClient := base
	if opts.Token != "" {
		transport := base.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		httpClient = &http.Client{
			Timeout: base.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}),
				Base:   transport,
			},
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		pageSize:   clampLimit(opts.PageSize),
		limiter:    opts.Limiter,
		logger:     log.WithField("component", "tumblr"),
	}
}

// PageSize returns the page size used for listings
func (c *Client) PageSize() int {
	return c.pageSize
}

// Following fetches one page of followed blog names
func (c *Client) Following(ctx context.Context, offset int) (*FollowingPage, error) {
	var env envelope[followingResponse]
	if err := c.getJSON(ctx, FollowingURL(c.baseURL, c.apiKey, c.pageSize, offset), &env); err != nil {
		return nil, err
	}

	page := &FollowingPage{Total: env.Response.TotalBlogs}
	for _, b := range env.Response.Blogs {
		if b.Name != "" {
			page.Blogs = append(page.Blogs, b.Name)
		}
	}
	return page, nil
}

// AllFollowing pages through the following listing until a short page
func (c *Client) AllFollowing(ctx context.Context) ([]string, error) {
	var blogs []string
	for offset := 0; ; offset += c.pageSize {
		page, err := c.Following(ctx, offset)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, page.Blogs...)
		if len(page.Blogs) < c.pageSize || (page.Total > 0 && len(blogs) >= page.Total) {
			return blogs, nil
		}
	}
}

// Posts fetches one page of a blog's posts. A zero after lists from the newest post.
func (c *Client) Posts(ctx context.Context, blog string, after time.Time, offset int) (*PostsPage, error) {
	var env envelope[postsResponse]
	if err := c.getJSON(ctx, PostsURL(c.baseURL, c.apiKey, blog, after, c.pageSize, offset), &env); err != nil {
		return nil, err
	}

	page := &PostsPage{
		Total: env.Response.TotalPosts,
		Posts: make([]Post, 0, len(env.Response.Posts)),
	}
	for _, raw := range env.Response.Posts {
		if raw.BlogName == "" {
			raw.BlogName = blog
		}
		page.Posts = append(page.Posts, raw.toPost())
	}
	return page, nil
}

// getJSON performs a rate limited GET and decodes the JSON body into target
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, 0, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrorTypeNetwork, 0, fmt.Sprintf("GET %s", redact(url)), err)
	}
	defer resp.Body.Close()
	logger.LogRequest(c.logger, http.MethodGet, redact(url), resp.StatusCode, float64(time.Since(start).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.FromStatusCode(resp.StatusCode, redact(url))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, resp.StatusCode, "failed to read response body", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("Failed to parse JSON response", map[string]interface{}{
			"url":          redact(url),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errors.Wrap(errors.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON", err)
	}

	return nil
}
