// Package apiclient is a small typed client for the lead service. Token
// cookies are held in a cookie jar; when a call comes back 401, the client
// refreshes the access token and retries once. Concurrent callers hitting
// 401 at the same time share a single refresh request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Lead mirrors the service's lead shape.
type Lead struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Phone          *string   `json:"phone"`
	Company        *string   `json:"company"`
	City           *string   `json:"city"`
	State          *string   `json:"state"`
	Source         string    `json:"source"`
	Status         string    `json:"status"`
	Score          int       `json:"score"`
	LeadValue      *float64  `json:"leadValue"`
	IsQualified    bool      `json:"isQualified"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// LeadPage is the listing envelope.
type LeadPage struct {
	Data       []Lead `json:"data"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int64  `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// User mirrors the service's public user shape.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Filter is one field constraint for List.
type Filter struct {
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// ListOptions controls pagination and filtering.
type ListOptions struct {
	Page    int
	Limit   int
	Filters map[string]Filter
}

// Client talks to one lead-service instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	refresh    singleflight.Group
}

// New builds a client with its own cookie jar.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Register creates an account and leaves the session cookies in the jar.
func (c *Client) Register(ctx context.Context, firstName, lastName, email, password string) (*User, error) {
	body := map[string]string{
		"firstName": firstName,
		"lastName":  lastName,
		"email":     email,
		"password":  password,
	}
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/users/register", body, &resp, false); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Login authenticates and stores the token cookies.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/users/login", body, &resp, false); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Me fetches the current profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/users/logout", nil, nil, true)
}

// ListLeads fetches one page of leads.
func (c *Client) ListLeads(ctx context.Context, opts ListOptions) (*LeadPage, error) {
	values := url.Values{}
	if opts.Page > 0 {
		values.Set("page", fmt.Sprint(opts.Page))
	}
	if opts.Limit > 0 {
		values.Set("limit", fmt.Sprint(opts.Limit))
	}
	for field, f := range opts.Filters {
		encoded, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		values.Set(field, string(encoded))
	}
	path := "/api/leads"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var page LeadPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetLead fetches a single lead.
func (c *Client) GetLead(ctx context.Context, id string) (*Lead, error) {
	var resp struct {
		Lead Lead `json:"lead"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/leads/"+id, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp.Lead, nil
}

// CreateLead creates a lead. Fields follows the create payload shape.
func (c *Client) CreateLead(ctx context.Context, fields map[string]any) (*Lead, error) {
	var resp struct {
		Lead Lead `json:"lead"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/leads", fields, &resp, true); err != nil {
		return nil, err
	}
	return &resp.Lead, nil
}

// UpdateLead applies a partial patch.
func (c *Client) UpdateLead(ctx context.Context, id string, fields map[string]any) (*Lead, error) {
	var resp struct {
		Lead Lead `json:"lead"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/leads/"+id, fields, &resp, true); err != nil {
		return nil, err
	}
	return &resp.Lead, nil
}

// DeleteLead removes a lead.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/leads/"+id, nil, nil, true)
}

// do executes one request. On a 401 for an authenticated call it refreshes
// the access token, coalescing concurrent refreshes into one, and retries
// the original request a single time.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authenticated bool) error {
	err := c.once(ctx, method, path, body, out)
	if !authenticated {
		return err
	}

	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return err
	}

	if _, refreshErr, _ := c.refresh.Do("refresh", func() (any, error) {
		return nil, c.once(ctx, http.MethodPost, "/api/users/refresh", nil, nil)
	}); refreshErr != nil {
		return err
	}

	return c.once(ctx, method, path, body, out)
}

func (c *Client) once(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := resp.Status
		var envelope struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Message != "" {
			message = envelope.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
