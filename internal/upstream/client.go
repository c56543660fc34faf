package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/router-panel/router-panel-pro/internal/models"
)

// ErrUnavailable means the datastore gave no response at all (not running,
// unreachable). Distinguished from StatusError so callers can tell the
// operator "the database service is not running" instead of a generic 500.
var ErrUnavailable = errors.New("upstream datastore unavailable")

// StatusError is a non-2xx response from the datastore
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream rejected request: %d %s", e.Status, e.Message)
}

// Store is the small query/command surface the gateway needs from the panel
// datastore. The datastore itself (schema, billing tables, settings) is an
// external collaborator.
type Store interface {
	// ListDevices fetches all device profiles visible to the caller.
	// The caller's Authorization header is passed through unchanged.
	ListDevices(ctx context.Context, authorization string) ([]*models.DeviceProfile, error)

	// UpsertCustomer records customer metadata keyed by subscriber name.
	// Best-effort from the orchestrator's point of view.
	UpsertCustomer(ctx context.Context, authorization, name string, fields map[string]any) error
}

// Client talks to the panel datastore's records API
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a datastore client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: timeout},
	}
}

// ListDevices implements Store
func (c *Client) ListDevices(ctx context.Context, authorization string) ([]*models.DeviceProfile, error) {
	var out struct {
		Items []*models.DeviceProfile `json:"items"`
	}
	u := c.base + "/api/collections/devices/records?perPage=500"
	if err := c.do(ctx, http.MethodGet, u, authorization, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// UpsertCustomer implements Store
func (c *Client) UpsertCustomer(ctx context.Context, authorization, name string, fields map[string]any) error {
	var found struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	filter := url.QueryEscape(fmt.Sprintf("(name='%s')", name))
	u := c.base + "/api/collections/customers/records?filter=" + filter
	if err := c.do(ctx, http.MethodGet, u, authorization, nil, &found); err != nil {
		return err
	}

	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["name"] = name

	if len(found.Items) > 0 {
		u = c.base + "/api/collections/customers/records/" + found.Items[0].ID
		return c.do(ctx, http.MethodPatch, u, authorization, body, nil)
	}
	u = c.base + "/api/collections/customers/records"
	return c.do(ctx, http.MethodPost, u, authorization, body, nil)
}

// do performs one datastore request and decodes the response into out
func (c *Client) do(ctx context.Context, method, u, authorization string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", u).Msg("Upstream request failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := decodeErrorMessage(resp.Body)
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeErrorMessage pulls a human-readable message out of an error body
func decodeErrorMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
