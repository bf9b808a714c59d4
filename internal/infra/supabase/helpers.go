package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/resilience"
)

// ============================================================
// HTTP helpers for GET, POST, PATCH, DELETE
// ============================================================

// statusError is a non-2xx PostgREST response.
type statusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// classify turns a status error into the error the retry loop should see.
// Conflicts become *domain.ErrDuplicate; other client errors are not retried.
func classify(err *statusError) error {
	switch {
	case err.Status == http.StatusConflict:
		return &domain.ErrDuplicate{Key: err.Body}
	case err.Status == http.StatusRequestTimeout || err.Status == http.StatusTooManyRequests:
		return err
	case err.Status >= 400 && err.Status < 500:
		return resilience.Permanent(err)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return nil, classify(&statusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(respBody)})
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return respBody, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	return c.send(ctx, method, path, nil, "")
}

// doPost inserts one object or an array of objects.
func (c *Client) doPost(ctx context.Context, path string, data any) error {
	_, err := c.send(ctx, http.MethodPost, path, data, "return=minimal")
	return err
}

// doUpsert inserts rows, merging on the path's on_conflict columns.
func (c *Client) doUpsert(ctx context.Context, path string, data any) error {
	_, err := c.send(ctx, http.MethodPost, path, data, "resolution=merge-duplicates,return=minimal")
	return err
}

// doPatch returns the number of rows it changed.
func (c *Client) doPatch(ctx context.Context, path string, data any) (int, error) {
	body, err := c.send(ctx, http.MethodPatch, path, data, "return=representation")
	if err != nil {
		return 0, err
	}
	return countRows(body)
}

// doDelete returns the number of rows it removed.
func (c *Client) doDelete(ctx context.Context, path string) (int, error) {
	body, err := c.send(ctx, http.MethodDelete, path, nil, "return=representation")
	if err != nil {
		return 0, err
	}
	return countRows(body)
}

func countRows(body []byte) (int, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return 0, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, resilience.Permanent(fmt.Errorf("decode representation: %w", err))
	}
	return len(rows), nil
}

func decodeRows[T any](body []byte) ([]T, error) {
	out := []T{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode rows: %w", err))
	}
	return out, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
