// Package client is the HTTP client for the billtrack API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billtrack/billtrack/internal/model"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("billtrack: not found")
	// ErrTransport wraps failures where no response was received.
	ErrTransport = errors.New("billtrack: request failed")
)

// StatusError is a non-success response other than 404.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("billtrack: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("billtrack: unexpected status %d", e.StatusCode)
}

// Client talks to one billtrack server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL. A nil httpClient uses a default one.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListQuery selects a page of a user's bills. Zero values use the server defaults.
type ListQuery struct {
	Filter string
	Page   int
	Limit  int
}

// ListBills returns one page of the bills visible to email.
func (c *Client) ListBills(ctx context.Context, email string, q ListQuery) ([]model.Bill, error) {
	params := url.Values{}
	if q.Filter != "" {
		params.Set("filter", q.Filter)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	path := "/bills/user/" + url.PathEscape(email)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var bills []model.Bill
	if err := c.do(ctx, http.MethodGet, path, nil, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

// ListAllBills returns every bill.
func (c *Client) ListAllBills(ctx context.Context) ([]model.Bill, error) {
	var bills []model.Bill
	if err := c.do(ctx, http.MethodGet, "/bills/", nil, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

// GetBill fetches one bill.
func (c *Client) GetBill(ctx context.Context, id string) (*model.Bill, error) {
	var bill model.Bill
	if err := c.do(ctx, http.MethodGet, "/bills/"+url.PathEscape(id), nil, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

// NewBill is the body of a create request.
type NewBill struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  model.Date      `json:"dueDate"`
	Receiver string          `json:"receiver"`
	Biller   string          `json:"biller"`
}

// CreateBill stores a new bill and returns it.
func (c *Client) CreateBill(ctx context.Context, in NewBill) (*model.Bill, error) {
	var bill model.Bill
	if err := c.do(ctx, http.MethodPost, "/bills/", in, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

// UpdateBill sends a merge patch and returns the stored bill.
func (c *Client) UpdateBill(ctx context.Context, id string, patch model.BillPatch) (*model.Bill, error) {
	var bill model.Bill
	if err := c.do(ctx, http.MethodPatch, "/bills/"+url.PathEscape(id), patch, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

// ListUniqueReceivers returns the sorted distinct receivers.
func (c *Client) ListUniqueReceivers(ctx context.Context) ([]string, error) {
	var receivers []string
	if err := c.do(ctx, http.MethodGet, "/bills/unique-receivers", nil, &receivers); err != nil {
		return nil, err
	}
	return receivers, nil
}

// GetUserDetails looks up a user's role.
func (c *Client) GetUserDetails(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/user-details/"+url.PathEscape(email), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUser creates the user or changes its role.
func (c *Client) UpsertUser(ctx context.Context, email string, userType model.UserType) (*model.User, error) {
	body := struct {
		UserType model.UserType `json:"userType"`
	}{userType}

	var user model.User
	if err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(email), body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("billtrack: encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("billtrack: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, errorMessage(data, path))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{StatusCode: resp.StatusCode}
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(data, &apiErr) == nil {
			se.Code = apiErr.Code
			se.Message = apiErr.Error
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("billtrack: decoding response: %w", err)
	}
	return nil
}

func errorMessage(data []byte, fallback string) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return fallback
}
