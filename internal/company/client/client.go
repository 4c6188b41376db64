// Package client is a Go client for the company directory REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gregjones/httpcache"
)

const companiesPath = "/api/companies"

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int
	Message string
	Fields  []e.FieldError
}

func (a *APIError) Error() string {
	if len(a.Fields) == 0 {
		return fmt.Sprintf("%d: %s", a.Status, a.Message)
	}
	parts := make([]string, 0, len(a.Fields))
	for _, f := range a.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%d: %s (%s)", a.Status, a.Message, strings.Join(parts, "; "))
}

// Unwrap maps 404 and 400 responses onto the shared sentinels.
func (a *APIError) Unwrap() error {
	switch a.Status {
	case http.StatusNotFound:
		return e.ErrNotFound
	case http.StatusBadRequest:
		return e.ErrInvalidInput
	default:
		return nil
	}
}

// Client talks to a company directory server. GET responses are kept in an
// in-memory cache and revalidated with their ETag.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *httpcache.MemoryCache

	mu      sync.Mutex
	fetched map[string]struct{}
}

type Option func(*Client)

// WithTransport sets the transport underneath the cache.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport.(*httpcache.Transport).Transport = rt
	}
}

// New creates a Client for the server at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) *Client {
	cache := httpcache.NewMemoryCache()
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: httpcache.NewTransport(cache)},
		cache:      cache,
		fetched:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListCompanies(ctx context.Context, spec filter.Spec) ([]*models.Company, error) {
	u := c.baseURL + companiesPath
	if q := spec.Query(); len(q) > 0 {
		u += "?" + q.Encode()
	}

	var companies []*models.Company
	if err := c.get(ctx, u, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (c *Client) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := c.get(ctx, c.companyURL(id), &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (c *Client) CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error) {
	var company models.Company
	if err := c.send(ctx, http.MethodPost, c.baseURL+companiesPath, in, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (c *Client) UpdateCompany(ctx context.Context, id string, update *models.CompanyUpdate) (*models.Company, error) {
	var company models.Company
	if err := c.send(ctx, http.MethodPut, c.companyURL(id), update, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (c *Client) DeleteCompany(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, c.companyURL(id), nil, nil)
}

func (c *Client) companyURL(id string) string {
	return c.baseURL + companiesPath + "/" + url.PathEscape(id)
}

func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if err := c.do(req, out); err != nil {
		return err
	}

	c.mu.Lock()
	c.fetched[u] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *Client) send(ctx context.Context, method, u string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := c.do(req, out); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// invalidate drops every cached GET after a successful mutation.
func (c *Client) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.fetched {
		c.cache.Delete(key)
	}
	c.fetched = make(map[string]struct{})
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

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
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Message string         `json:"message"`
			Errors  []e.FieldError `json:"errors"`
		}
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Message
			apiErr.Fields = body.Errors
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
