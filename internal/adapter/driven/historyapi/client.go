// Package historyapi implements the CloudHistory and SubscriptionChecker
// ports against the server-persisted history API.
package historyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.CloudHistory        = (*Client)(nil)
	_ driven.SubscriptionChecker = (*Client)(nil)
)

// Client talks to the history API on behalf of one signed-in user. An empty
// session token means anonymous: every call fails with KindUnauthenticated
// without touching the network.
type Client struct {
	http         *http.Client
	baseURL      *url.URL
	sessionToken string
}

// NewClient creates a history API client. httpClient may be nil.
func NewClient(httpClient *http.Client, baseURL, sessionToken string) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{http: httpClient, baseURL: u, sessionToken: sessionToken}, nil
}

// envelope is the {code, message, data} wrapper every endpoint returns.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type historyItem struct {
	Email string  `json:"email"`
	JWT   *string `json:"jwt"`
}

// Fetch returns the cloud ledger, most-recent-first.
func (c *Client) Fetch(ctx context.Context) ([]model.HistoryEntry, error) {
	const op = "fetch cloud history"

	env, err := c.do(ctx, op, http.MethodGet, "/api/user/email-history", nil)
	if err != nil {
		return nil, err
	}

	var items []historyItem
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, model.NewError(model.KindTransport, op, fmt.Errorf("decoding history: %w", err))
		}
	}

	entries := make([]model.HistoryEntry, 0, len(items))
	for _, item := range items {
		var cred model.Credential
		if item.JWT != nil {
			cred = model.Credential(*item.JWT)
		}
		entries = append(entries, model.NewHistoryEntry(model.Address(item.Email), cred))
	}
	return entries, nil
}

// Push upserts addr as the newest cloud entry. An empty cred is sent as null.
func (c *Client) Push(ctx context.Context, addr model.Address, cred model.Credential) error {
	body := historyItem{Email: string(addr)}
	if !cred.IsZero() {
		s := cred.String()
		body.JWT = &s
	}
	_, err := c.do(ctx, "push cloud history", http.MethodPost, "/api/user/email-history", body)
	return err
}

// IsPremium reports whether the user has an active subscription.
func (c *Client) IsPremium(ctx context.Context) (bool, error) {
	env, err := c.do(ctx, "check subscription", http.MethodGet, "/api/user/get-subscription-status", nil)
	if err != nil {
		return false, err
	}
	data := bytes.TrimSpace(env.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null")), nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in any) (*envelope, error) {
	if c.sessionToken == "" {
		return nil, model.NewError(model.KindUnauthenticated, op, model.ErrUnauthenticated)
	}

	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, model.NewError(model.KindTransport, op, fmt.Errorf("encoding request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, model.NewError(model.KindTransport, op, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.sessionToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, model.NewError(model.KindTransport, op, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || env.Code == http.StatusUnauthorized:
		return nil, model.NewError(model.KindUnauthenticated, op, fmt.Errorf("%w: %s", model.ErrUnauthenticated, env.Message))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, model.NewError(model.KindTransport, op, fmt.Errorf("history API error %d: %s", resp.StatusCode, env.Message))
	case decodeErr != nil:
		return nil, model.NewError(model.KindTransport, op, fmt.Errorf("decoding response: %w", decodeErr))
	case env.Code != 0:
		return nil, model.NewError(model.KindTransport, op, fmt.Errorf("history API code %d: %s", env.Code, env.Message))
	}
	return &env, nil
}
