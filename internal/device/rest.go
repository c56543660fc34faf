package device

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RESTClient speaks the HTTP/JSON control API of newer firmware. Stateless:
// construction opens no socket, every call is one bounded request.
type RESTClient struct {
	base     string
	username string
	password string
	http     *http.Client
}

// NewRESTClient creates a REST protocol client. Device control planes are
// LAN-local with self-signed certificates, so TLS verification is off.
func NewRESTClient(host string, port int, useTLS bool, username, password string, timeout time.Duration) *RESTClient {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	return &RESTClient{
		base:     fmt.Sprintf("%s://%s:%d/rest", scheme, host, port),
		username: username,
		password: password,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Get implements Client
func (c *RESTClient) Get(ctx context.Context, path string, query map[string]string) ([]Record, error) {
	u := c.base + path
	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		u += "?" + values.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords(body)
}

// Add implements Client
func (c *RESTClient) Add(ctx context.Context, path string, params Record) (Record, error) {
	body, err := c.do(ctx, http.MethodPost, c.base+path, params)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

// Set implements Client
func (c *RESTClient) Set(ctx context.Context, path, id string, params Record) (Record, error) {
	body, err := c.do(ctx, http.MethodPatch, c.base+path+"/"+url.PathEscape(id), params)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

// Remove implements Client
func (c *RESTClient) Remove(ctx context.Context, path, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.base+path+"/"+url.PathEscape(id), nil)
	return err
}

// Command implements Client
func (c *RESTClient) Command(ctx context.Context, path string, params Record) ([]Record, error) {
	body, err := c.do(ctx, http.MethodPost, c.base+path, params)
	if err != nil {
		return nil, err
	}
	return decodeRecords(body)
}

// do performs one request and returns the raw body, mapping non-2xx
// responses to DeviceError with the device's own status and message
func (c *RESTClient) do(ctx context.Context, method, u string, params Record) ([]byte, error) {
	var reader io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &DeviceError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DeviceError{Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DeviceError{
			Status:  resp.StatusCode,
			Message: restErrorMessage(resp.StatusCode, body),
		}
	}
	return body, nil
}

// restErrorMessage extracts the device's error detail from an error body
func restErrorMessage(status int, body []byte) string {
	var e struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Message != "" {
			return e.Message
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}

// decodeRecords decodes a REST payload that may be an array, a single
// object, or empty (204 with no body), normalizing identifiers throughout
func decodeRecords(body []byte) ([]Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []Record{}, nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode device response: %w", err)
	}
	v = NormalizeREST(v)

	switch t := v.(type) {
	case []any:
		records := make([]Record, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				records = append(records, m)
			}
		}
		return records, nil
	case map[string]any:
		return []Record{t}, nil
	default:
		// scalar reply, e.g. a bare count
		return []Record{{"value": fmt.Sprint(v)}}, nil
	}
}

// decodeRecord decodes a single-object REST payload
func decodeRecord(body []byte) (Record, error) {
	records, err := decodeRecords(body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return Record{}, nil
	}
	return records[0], nil
}
