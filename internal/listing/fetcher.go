package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
)

// Backend is the remote side of the list controller.
type Backend interface {
	Fetch(ctx context.Context, q Query) (models.RecordPage, error)
	BulkDelete(ctx context.Context, ids []int64) (DeleteResult, error)
	UpdateStatus(ctx context.Context, id, statusID int64) (string, error)
}

// DeleteResult mirrors the bulk-delete response body.
type DeleteResult struct {
	Message    string  `json:"message"`
	DeletedIDs []int64 `json:"deletedIds"`
}

// APIClient talks to the dashboard API with a bearer token. It keeps no
// state between calls and never retries.
type APIClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *APIClient) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Fetch reads one page of the list.
func (c *APIClient) Fetch(ctx context.Context, q Query) (models.RecordPage, error) {
	path := "/api/hki"
	if enc := Encode(q).Encode(); enc != "" {
		path += "?" + enc
	}
	var page models.RecordPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return models.RecordPage{}, err
	}
	if page.Records == nil {
		page.Records = []models.HKI{}
	}
	return page, nil
}

func (c *APIClient) BulkDelete(ctx context.Context, ids []int64) (DeleteResult, error) {
	var out DeleteResult
	err := c.do(ctx, http.MethodPost, "/api/hki/bulk-delete", map[string]any{"ids": ids}, &out)
	return out, err
}

// UpdateStatus returns the server confirmation message.
func (c *APIClient) UpdateStatus(ctx context.Context, id, statusID int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/hki/%d/status", id), map[string]any{"statusId": statusID}, &out)
	return out.Message, err
}

// StatusOptions loads the status list used for optimistic status changes.
func (c *APIClient) StatusOptions(ctx context.Context) ([]models.StatusHKI, error) {
	var opts models.FormOptions
	if err := c.do(ctx, http.MethodGet, "/api/options", nil, &opts); err != nil {
		return nil, err
	}
	return opts.StatusOptions, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return domain.RemoteError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return domain.RemoteError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return domain.RemoteError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.RemoteError{Status: resp.StatusCode, Message: serverMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.RemoteError{Status: resp.StatusCode, Err: fmt.Errorf("respons tidak valid: %w", err)}
	}
	return nil
}

// serverMessage prefers "message", then "error"; "" when the body has neither.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if m := strings.TrimSpace(body.Message); m != "" {
		return m
	}
	return strings.TrimSpace(body.Error)
}
