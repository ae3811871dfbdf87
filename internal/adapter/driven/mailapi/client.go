// Package mailapi implements the MailGateway port against the disposable
// mail provider's REST API.
package mailapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

const (
	nameLength  = 8
	nameCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

	// maxErrorBody caps how much of an error response is kept for the message.
	maxErrorBody = 4096
)

// Compile-time interface satisfaction check.
var _ driven.MailGateway = (*Client)(nil)

// Client implements driven.MailGateway over HTTP.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	domains []string
	logger  *slog.Logger
}

// NewClient creates a gateway client with the following transport stack:
//  1. httpcache (ETag/Cache-Control conditional request caching; only
//     unauthenticated requests are eligible, see do)
//  2. http.DefaultTransport
//
// domains lists the mail domains the provider accepts; the first one is used
// for generated addresses.
func NewClient(baseURL string, domains []string, logger *slog.Logger) (*Client, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = http.DefaultTransport
	return NewClientWithHTTPClient(&http.Client{Transport: cacheTransport}, baseURL, domains, logger)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, domains []string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if len(domains) == 0 {
		return nil, errors.New("at least one mail domain is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:    httpClient,
		baseURL: u,
		domains: domains,
		logger:  logger,
	}, nil
}

// Domains returns the configured mail domains.
func (c *Client) Domains() []string {
	return append([]string(nil), c.domains...)
}

type newAddressRequest struct {
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	CFToken string `json:"cf_token"`
}

type newAddressResponse struct {
	JWT     string `json:"jwt"`
	Address string `json:"address"`
}

// CreateAddress mints a new address on the first configured domain. An empty
// nameHint is replaced by a random 8-character lowercase alphanumeric name.
func (c *Client) CreateAddress(ctx context.Context, nameHint string) (model.Mailbox, error) {
	name := nameHint
	if name == "" {
		generated, err := RandomName()
		if err != nil {
			return model.Mailbox{}, model.NewError(model.KindTransport, "create address", err)
		}
		name = generated
	}
	return c.createAddress(ctx, "create address", name, c.domains[0])
}

// CreateCustomAddress claims name@domain.
func (c *Client) CreateCustomAddress(ctx context.Context, name, domain string) (model.Mailbox, error) {
	return c.createAddress(ctx, "create custom address", name, domain)
}

func (c *Client) createAddress(ctx context.Context, op, name, domain string) (model.Mailbox, error) {
	var resp newAddressResponse
	body := newAddressRequest{Name: name, Domain: domain}
	if err := c.do(ctx, op, http.MethodPost, "/api/new_address", nil, "", body, &resp); err != nil {
		return model.Mailbox{}, err
	}
	if resp.JWT == "" {
		return model.Mailbox{}, model.NewError(model.KindTransport, op, errors.New("no JWT token received"))
	}

	addr := model.Address(resp.Address)
	if addr.IsZero() {
		addr = model.NewAddress(name, domain)
	}
	c.logger.Info("mail address created", "address", addr)
	return model.Mailbox{Address: addr, Credential: model.Credential(resp.JWT)}, nil
}

type mailJSON struct {
	ID        flexID `json:"id"`
	Source    string `json:"source"`
	Address   string `json:"address"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Raw       string `json:"raw"`
	CreatedAt string `json:"created_at"`
}

type mailsResponse struct {
	Results []mailJSON `json:"results"`
	Count   int        `json:"count"`
}

// ListMessages returns one page of messages for the mailbox cred belongs to,
// and the total message count.
func (c *Client) ListMessages(ctx context.Context, cred model.Credential, limit, offset int) ([]model.RawMessage, int, error) {
	const op = "list messages"
	if cred.IsZero() {
		return nil, 0, model.NewError(model.KindUnauthenticated, op, model.ErrCredentialUnavailable)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var resp mailsResponse
	if err := c.do(ctx, op, http.MethodGet, "/api/mails", q, cred, nil, &resp); err != nil {
		return nil, 0, err
	}

	msgs := make([]model.RawMessage, 0, len(resp.Results))
	for _, m := range resp.Results {
		msgs = append(msgs, m.toModel())
	}
	return msgs, resp.Count, nil
}

// GetMessage fetches a single message by id.
func (c *Client) GetMessage(ctx context.Context, cred model.Credential, id string) (model.RawMessage, error) {
	const op = "get message"
	if cred.IsZero() {
		return model.RawMessage{}, model.NewError(model.KindUnauthenticated, op, model.ErrCredentialUnavailable)
	}

	var resp mailJSON
	if err := c.do(ctx, op, http.MethodGet, "/api/mail/"+url.PathEscape(id), nil, cred, nil, &resp); err != nil {
		return model.RawMessage{}, err
	}
	return resp.toModel(), nil
}

// DeleteMessage removes a message by id.
func (c *Client) DeleteMessage(ctx context.Context, cred model.Credential, id string) error {
	const op = "delete message"
	if cred.IsZero() {
		return model.NewError(model.KindUnauthenticated, op, model.ErrCredentialUnavailable)
	}
	return c.do(ctx, op, http.MethodDelete, "/api/mails/"+url.PathEscape(id), nil, cred, nil, nil)
}

type settingsResponse struct {
	Address     string `json:"address"`
	AutoReply   bool   `json:"auto_reply"`
	SendBalance int    `json:"send_balance"`
}

// GetSettings returns the provider-side settings of the mailbox.
func (c *Client) GetSettings(ctx context.Context, cred model.Credential) (model.Settings, error) {
	const op = "get settings"
	if cred.IsZero() {
		return model.Settings{}, model.NewError(model.KindUnauthenticated, op, model.ErrCredentialUnavailable)
	}

	var resp settingsResponse
	if err := c.do(ctx, op, http.MethodGet, "/api/settings", nil, cred, nil, &resp); err != nil {
		return model.Settings{}, err
	}
	return model.Settings{
		Address:     model.Address(resp.Address),
		AutoReply:   resp.AutoReply,
		SendBalance: resp.SendBalance,
	}, nil
}

// do performs one request. A non-empty cred is sent as a bearer token. in,
// when non-nil, is JSON-encoded as the body; out, when non-nil, receives the
// decoded response.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, cred model.Credential, in, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return model.NewError(model.KindTransport, op, fmt.Errorf("encoding request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return model.NewError(model.KindTransport, op, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !cred.IsZero() {
		req.Header.Set("Authorization", "Bearer "+cred.String())
		// The cache is keyed on URL alone, so mailbox-scoped responses must
		// neither be served from it nor stored in it.
		req.Header.Set("Cache-Control", "no-cache, no-store")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return model.NewError(model.KindTransport, op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("mail api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"cached", resp.Header.Get(httpcache.XFromCache) != "",
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return model.NewError(classifyStatus(resp.StatusCode, string(text)), op,
			fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(text))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewError(model.KindTransport, op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// classifyStatus maps a provider error response onto an error kind.
// The provider signals a taken name only through its message text, so the
// duplicate check matches on it in addition to 409.
func classifyStatus(status int, body string) model.ErrorKind {
	lower := strings.ToLower(body)
	switch {
	case status == http.StatusConflict,
		strings.Contains(lower, "already exists"),
		strings.Contains(body, "已存在"):
		return model.KindDuplicateAddress
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return model.KindUnauthenticated
	default:
		return model.KindTransport
	}
}

// RandomName returns an 8-character lowercase alphanumeric mailbox name.
// Bytes at or above the largest multiple of the charset size are discarded
// so every character is equally likely.
func RandomName() (string, error) {
	const limit = 256 - 256%len(nameCharset)

	name := make([]byte, 0, nameLength)
	buf := make([]byte, nameLength*2)
	for len(name) < nameLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating name: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			name = append(name, nameCharset[int(b)%len(nameCharset)])
			if len(name) == nameLength {
				break
			}
		}
	}
	return string(name), nil
}
