package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/backend"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Client talks to a Server. It implements ports.Collaborator and
// ports.TreeSource for one conversation.
type Client struct {
	baseURL      *url.URL
	conversation string
	http         *http.Client
}

var (
	_ ports.Collaborator = (*Client)(nil)
	_ ports.TreeSource   = (*Client)(nil)
)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithConversation selects the conversation; default "default".
func WithConversation(id string) ClientOption {
	return func(c *Client) {
		if id = strings.TrimSpace(id); id != "" {
			c.conversation = id
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	c := &Client{
		baseURL:      u,
		conversation: backend.DefaultConversation,
		http:         &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Conversation returns the conversation id the client is bound to.
func (c *Client) Conversation() string { return c.conversation }

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	q := u.Query()
	q.Set(ConversationParam, c.conversation)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(raw, &er); err != nil || er.Error == "" {
			er = ErrorResponse{Error: strings.TrimSpace(string(raw)), Code: CodeInternal}
		}
		return &StatusError{Status: resp.StatusCode, Code: er.Code, Message: er.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Ask implements ports.Collaborator.
func (c *Client) Ask(ctx context.Context, req ports.AskRequest) (ports.AskResult, error) {
	var res ports.AskResult
	if err := c.do(ctx, http.MethodPost, "/api/ask", req, &res); err != nil {
		return ports.AskResult{}, err
	}
	return res, nil
}

// Clear implements ports.Collaborator.
func (c *Client) Clear(ctx context.Context) error {
	var res struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/clear", nil, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("server did not confirm clear")
	}
	return nil
}

// Tree implements ports.TreeSource.
func (c *Client) Tree(ctx context.Context) (*domain.Tree, error) {
	tree := domain.NewTree()
	if err := c.do(ctx, http.MethodGet, "/api/tree", nil, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Layout fetches the server's layout of the current tree.
func (c *Client) Layout(ctx context.Context) (domain.Positions, error) {
	var res LayoutResponse
	if err := c.do(ctx, http.MethodGet, "/api/layout", nil, &res); err != nil {
		return nil, err
	}
	if res.Positions == nil {
		res.Positions = domain.Positions{}
	}
	return res.Positions, nil
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
