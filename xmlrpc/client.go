package xmlrpc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mdzio/go-logging"

	"golang.org/x/text/encoding"
)

const (
	// max. size of a valid response, if not specified: 10 MB
	responseSizeLimit = 10 * 1024 * 1024

	// DefaultPath is the path of the XML-RPC proxy endpoint.
	DefaultPath = "/api/xmlrpc"
)

// Caller is an interface for calling XML-RPC functions.
type Caller interface {
	Call(method string, params Values) (Value, error)
}

// Credentials yields the current bearer token. It is asked on every call.
type Credentials interface {
	Token() (string, error)
}

// CredentialsFunc is an adapter to use ordinary functions as Credentials.
type CredentialsFunc func() (string, error)

// Token implements Credentials.
func (f CredentialsFunc) Token() (string, error) {
	return f()
}

// StaticToken returns Credentials with a fixed token.
func StaticToken(token string) Credentials {
	return CredentialsFunc(func() (string, error) { return token, nil })
}

var clnLog = logging.Get("xmlrpc-client")

// Client provides access to an XML-RPC server. The token of the credentials
// is sent as bearer token and prepended as first parameter of each call.
// Calls are never retried.
type Client struct {
	// base URL, e.g. http://localhost:8080
	Addr string
	// path of the XML-RPC endpoint, DefaultPath if empty
	Path string

	Credentials       Credentials
	HTTPClient        *http.Client
	ResponseSizeLimit int64

	// character encoding of requests, UTF-8 if nil
	Encoding encoding.Encoding
}

func (c *Client) url() string {
	p := c.Path
	if p == "" {
		p = DefaultPath
	}
	return strings.TrimSuffix(c.Addr, "/") + p
}

// Call executes a remote procedure call. Call implements Caller.
func (c *Client) Call(method string, params Values) (Value, error) {
	url := c.url()
	clnLog.Tracef("Calling method %s on %s", method, url)

	if c.Credentials == nil {
		return nil, fmt.Errorf("No credentials for call of method %s", method)
	}
	token, err := c.Credentials.Token()
	if err != nil {
		return nil, fmt.Errorf("Credentials for call of method %s not available: %w", method, err)
	}

	// key is the implicit first parameter
	args := make(Values, 0, len(params)+1)
	args = append(args, String(token))
	args = append(args, params...)
	reqBuf, err := EncodeCall(method, args, c.Encoding)
	if err != nil {
		return nil, err
	}
	if clnLog.TraceEnabled() {
		clnLog.Tracef("Request XML: %s", string(reqBuf))
	}

	// http post
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqBuf))
	if err != nil {
		return nil, &TransportError{method, err}
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("Authorization", "Bearer "+token)
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	httpResp, err := hc.Do(req)
	if err != nil {
		return nil, &TransportError{method, err}
	}
	defer httpResp.Body.Close()

	// check status
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &TransportError{method, errors.New("HTTP status " + httpResp.Status)}
	}

	// read response
	limit := c.ResponseSizeLimit
	if limit == 0 {
		limit = responseSizeLimit
	}
	respBuf, err := io.ReadAll(io.LimitReader(httpResp.Body, limit))
	if err != nil {
		return nil, &TransportError{method, fmt.Errorf("Reading of response failed: %w", err)}
	}
	if clnLog.TraceEnabled() {
		clnLog.Tracef("Response XML: %s", string(respBuf))
	}

	v, err := ParseResponse(respBuf)
	if err != nil {
		clnLog.Debugf("Call of method %s on %s failed: %v", method, url, err)
		return nil, err
	}
	return v, nil
}
