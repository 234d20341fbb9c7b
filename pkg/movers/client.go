// Package movers is a Go client for the movers HTTP API.
package movers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"movers/internal/httpapi"
)

// Response types shared with the server.
type (
	Source          = httpapi.SourceJSON
	LatestResponse  = httpapi.LatestResponse
	HistoryResponse = httpapi.HistoryResponse
	DatesResponse   = httpapi.DatesResponse
	SymbolResponse  = httpapi.SymbolResponse
)

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("movers api: %d %s", e.Status, e.Message)
}

// Client provides a Go SDK for interacting with the movers API.
type Client struct {
	http *resty.Client
}

// NewClient creates a new movers API client.
func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	var apiErr httpapi.ErrorResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return err
	}
	if res.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = res.Status()
		}
		return &APIError{Status: res.StatusCode(), Message: msg}
	}
	return nil
}

// Sources lists the configured screener sources.
func (c *Client) Sources(ctx context.Context) ([]Source, error) {
	var resp httpapi.SourcesResponse
	if err := c.get(ctx, "/api/sources", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

// Latest returns the most recent ranked snapshot of source.
func (c *Client) Latest(ctx context.Context, source string) (*LatestResponse, error) {
	var resp LatestResponse
	if err := c.get(ctx, "/api/"+url.PathEscape(source)+"/latest", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns the stored history of source for date (YYYY-MM-DD). An
// empty date selects the most recent day.
func (c *Client) History(ctx context.Context, source, date string) (*HistoryResponse, error) {
	path := "/api/" + url.PathEscape(source) + "/history"
	if date != "" {
		path += "/" + url.PathEscape(date)
	}
	var resp HistoryResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Dates lists the days with stored history for source.
func (c *Client) Dates(ctx context.Context, source string) ([]string, error) {
	var resp DatesResponse
	if err := c.get(ctx, "/api/"+url.PathEscape(source)+"/dates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Dates, nil
}

// Records returns stored records of symbol across sources, newest first.
// A non-positive limit uses the server default.
func (c *Client) Records(ctx context.Context, symbol string, limit int) (*SymbolResponse, error) {
	q := map[string]string{"symbol": symbol}
	if limit > 0 {
		q["limit"] = strconv.Itoa(limit)
	}
	var resp SymbolResponse
	if err := c.get(ctx, "/api/records", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
