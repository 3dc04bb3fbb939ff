package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// Config holds the connection settings of the platform bridge.
type Config struct {
	// BaseURL of the REST bridge, e.g. https://bridge.example.com/v1
	BaseURL string
	// Token is a static bearer token. Ignored when client credentials are set.
	Token string
	// ClientID, ClientSecret and TokenURL enable the OAuth2 client-credentials flow.
	ClientID     string
	ClientSecret string
	TokenURL     string
	// Timeout is the HTTP timeout per request.
	Timeout time.Duration
	// PostInterval is the minimum pause between two published posts.
	PostInterval time.Duration
}

// DefaultConfig returns the default bridge configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		PostInterval: 2 * time.Second,
	}
}

// HTTPClient talks to a REST bridge in front of the social platform.
type HTTPClient struct {
	config      *Config
	httpClient  *http.Client
	postLimiter *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a bridge client.
func NewHTTPClient(ctx context.Context, config *Config) (*HTTPClient, error) {
	if config == nil || config.BaseURL == "" {
		return nil, errors.New("platform base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	if config.ClientID != "" {
		cc := &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
		}
		httpClient = cc.Client(ctx)
		httpClient.Timeout = config.Timeout
	}

	limit := rate.Inf
	if config.PostInterval > 0 {
		limit = rate.Every(config.PostInterval)
	}

	return &HTTPClient{
		config:      config,
		httpClient:  httpClient,
		postLimiter: rate.NewLimiter(limit, 1),
	}, nil
}

type searchResponse struct {
	Mentions []*Mention `json:"mentions"`
}

type postRequest struct {
	Text      string `json:"text"`
	InReplyTo string `json:"inReplyTo,omitempty"`
}

func (c *HTTPClient) Search(ctx context.Context, query string, limit int, mode SearchMode) ([]*Mention, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("mode", string(mode))

	var resp searchResponse
	if _, err := c.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to search %q", query)
	}
	return resp.Mentions, nil
}

func (c *HTTPClient) GetMention(ctx context.Context, id string) (*Mention, error) {
	var mention Mention
	status, err := c.do(ctx, http.MethodGet, "/mentions/"+url.PathEscape(id), nil, &mention)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get mention %s", id)
	}
	return &mention, nil
}

// PostReply publishes the parts in order. On failure the parts already
// published are returned together with the error.
func (c *HTTPClient) PostReply(ctx context.Context, text string, inReplyTo string) ([]*Mention, error) {
	parts := SplitPost(text, MaxPostLength)
	if len(parts) == 0 {
		return nil, errors.New("refusing to post empty text")
	}

	posted := make([]*Mention, 0, len(parts))
	replyTo := inReplyTo
	for i, part := range parts {
		if err := c.postLimiter.Wait(ctx); err != nil {
			return posted, errors.Wrap(err, "post rate limiter")
		}
		var mention Mention
		if _, err := c.do(ctx, http.MethodPost, "/mentions", &postRequest{Text: part, InReplyTo: replyTo}, &mention); err != nil {
			return posted, errors.Wrapf(err, "failed to post part %d/%d", i+1, len(parts))
		}
		slog.Debug("posted reply part", slog.String("id", mention.ID), slog.String("in_reply_to", replyTo))
		posted = append(posted, &mention)
		replyTo = mention.ID
	}
	return posted, nil
}

// Me returns the profile of the authenticated account.
func (c *HTTPClient) Me(ctx context.Context) (*Profile, error) {
	var profile Profile
	if _, err := c.do(ctx, http.MethodGet, "/me", nil, &profile); err != nil {
		return nil, errors.Wrap(err, "failed to get own profile")
	}
	return &profile, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.config.BaseURL, "/")+path, reader)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.ClientID == "" && c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, errors.Errorf("platform returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, errors.Wrap(err, "failed to decode response")
		}
	}
	return resp.StatusCode, nil
}
