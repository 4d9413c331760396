// Package transport provides the HTTP round tripper used for the REST proxy.
package transport

import (
	"io"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/mdzio/go-logging"
)

// RequestIDHeader carries a unique ID of each request for log correlation.
const RequestIDHeader = "X-Request-ID"

var log = logging.Get("http-transport")

// Credentials yields the current bearer token.
type Credentials interface {
	Token() (string, error)
}

// Refresher obtains a new bearer token.
type Refresher interface {
	Refresh() (string, error)
}

// Bearer is a http.RoundTripper, which attaches a bearer token to each
// request. If the server answers with 401 Unauthorized, the token is
// refreshed and the request is repeated once. XML-RPC requests (Content-Type
// text/xml) are never refreshed nor repeated.
type Bearer struct {
	// underlying transport, http.DefaultTransport if nil
	Base        http.RoundTripper
	Credentials Credentials
	// optional, no refresh if nil
	Refresher Refresher
}

func (b *Bearer) base() http.RoundTripper {
	if b.Base == nil {
		return http.DefaultTransport
	}
	return b.Base
}

// RoundTrip implements http.RoundTripper.
func (b *Bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := b.Credentials.Token()
	if err != nil {
		closeBody(req)
		return nil, err
	}
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	r := authorize(req, token, id)
	resp, err := b.base().RoundTrip(r)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// refresh and retry once
	if b.Refresher == nil || isXMLRPC(req) {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		log.Debugf("Request %s %s can not be repeated", req.Method, req.URL)
		return resp, nil
	}
	log.Debugf("Unauthorized on %s %s, refreshing token", req.Method, req.URL)
	token, err = b.Refresher.Refresh()
	if err != nil {
		log.Warningf("Refreshing of token failed: %v", err)
		return resp, nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	r = authorize(req, token, id)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return b.base().RoundTrip(r)
}

// authorize returns a copy of the request with authorization header and
// request ID.
func authorize(req *http.Request, token, id string) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set(RequestIDHeader, id)
	return r
}

func isXMLRPC(req *http.Request) bool {
	mt, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	return err == nil && mt == "text/xml"
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}

// NewClient creates a http.Client using a Bearer transport.
func NewClient(creds Credentials, refresher Refresher) *http.Client {
	return &http.Client{Transport: &Bearer{Credentials: creds, Refresher: refresher}}
}
