// Package rest provides access to the JSON/REST proxy of the CRM platform.
package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mdzio/go-logging"
)

const (
	// max. size of a valid response, if not specified: 10 MB
	responseSizeLimit = 10 * 1024 * 1024

	// DefaultPath is the path of the REST proxy endpoint.
	DefaultPath = "/api/rest"
)

var clnLog = logging.Get("rest-client")

// StatusError is returned for HTTP responses outside of 2xx.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s failed with code: %s", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s failed with code: %s: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client provides access to a JSON/REST API. Authorization is left to the
// transport of HTTPClient, see package transport.
type Client struct {
	// base URL, e.g. http://localhost:8080
	Addr string
	// path prefix of the REST endpoint, DefaultPath if empty
	Path string

	HTTPClient        *http.Client
	ResponseSizeLimit int64
}

// Get retrieves a resource into out.
func (c *Client) Get(path string, query url.Values, out interface{}) error {
	return c.Do(http.MethodGet, path, query, nil, out)
}

// Post creates a resource.
func (c *Client) Post(path string, in, out interface{}) error {
	return c.Do(http.MethodPost, path, nil, in, out)
}

// Patch updates a resource.
func (c *Client) Patch(path string, in, out interface{}) error {
	return c.Do(http.MethodPatch, path, nil, in, out)
}

// Delete deletes a resource.
func (c *Client) Delete(path string) error {
	return c.Do(http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) url(path string, query url.Values) string {
	p := c.Path
	if p == "" {
		p = DefaultPath
	}
	u := strings.TrimSuffix(c.Addr, "/") + p + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do executes a request. in is sent as JSON body, if not nil. The JSON
// response is decoded into out, if not nil.
func (c *Client) Do(method, path string, query url.Values, in, out interface{}) error {
	u := c.url(path, query)
	clnLog.Tracef("Sending %s %s", method, u)

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("Encoding of request for %s %s failed: %w", method, path, err)
		}
		if clnLog.TraceEnabled() {
			clnLog.Tracef("Request JSON: %s", string(buf))
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return fmt.Errorf("Invalid request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	limit := c.ResponseSizeLimit
	if limit == 0 {
		limit = responseSizeLimit
	}
	respBuf, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return fmt.Errorf("Reading of response for %s %s failed: %w", method, path, err)
	}
	if clnLog.TraceEnabled() {
		clnLog.Tracef("Response JSON: %s", string(respBuf))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   strings.TrimSpace(string(respBuf)),
		}
	}
	if out == nil || len(bytes.TrimSpace(respBuf)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBuf, out); err != nil {
		return fmt.Errorf("Decoding of response for %s %s failed: %w", method, path, err)
	}
	return nil
}
