// Package proxy provides the HTTP server of the console. It forwards XML-RPC
// calls and REST requests to the CRM platform and attaches the credentials of
// the server, if the caller sends none.
package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mdzio/go-logging"

	"github.com/mdzio/go-keap/rest"
	"github.com/mdzio/go-keap/transport"
	"github.com/mdzio/go-keap/xmlrpc"
)

// max. size of a forwarded request body, if not specified: 10 MB
const requestSizeLimit = 10 * 1024 * 1024

var svrLog = logging.Get("proxy-server")

// Config configures a Server.
type Config struct {
	// upstream XML-RPC endpoint, e.g. https://api.infusionsoft.com/crm/xmlrpc/v1
	XMLRPCURL string
	// upstream REST base, e.g. https://api.infusionsoft.com/crm/rest
	RESTURL string

	// used for requests without Authorization header, optional
	Credentials transport.Credentials
	// refreshes the server credentials on 401 for REST requests, optional
	Refresher transport.Refresher

	// transport to the upstream, http.DefaultTransport if nil
	Transport        http.RoundTripper
	RequestSizeLimit int64
}

// Server forwards requests to the CRM platform.
type Server struct {
	router *gin.Engine
	cfg    Config
}

// New creates a Server. The routes are registered at the fixed paths of the
// XML-RPC and REST clients.
func New(cfg Config) (*Server, error) {
	xmlrpcURL, err := parseUpstream("XML-RPC", cfg.XMLRPCURL)
	if err != nil {
		return nil, err
	}
	restURL, err := parseUpstream("REST", cfg.RESTURL)
	if err != nil {
		return nil, err
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	rt := &upstream{base: base}
	if cfg.Credentials != nil {
		rt.server = &transport.Bearer{Base: base, Credentials: cfg.Credentials, Refresher: cfg.Refresher}
	}

	s := &Server{router: gin.New(), cfg: cfg}
	s.router.Use(gin.Recovery(), requestID, accessLog)

	xmlrpcProxy := reverseProxy(xmlrpcURL, rt)
	restProxy := reverseProxy(restURL, rt)
	api := s.router.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST(strings.TrimPrefix(xmlrpc.DefaultPath, "/api"), func(c *gin.Context) {
			c.Request.URL.Path = ""
			xmlrpcProxy.ServeHTTP(c.Writer, c.Request)
		})
		api.Any(strings.TrimPrefix(rest.DefaultPath, "/api")+"/*path", func(c *gin.Context) {
			if err := s.bufferBody(c.Request); err != nil {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": err.Error()})
				return
			}
			c.Request.URL.Path = c.Param("path")
			restProxy.ServeHTTP(c.Writer, c.Request)
		})
	}
	return s, nil
}

func parseUpstream(name, raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("Upstream %s URL missing", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("Invalid upstream %s URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("Invalid upstream %s URL (scheme must be http or https): %s", name, raw)
	}
	return u, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"xmlrpc":             s.cfg.XMLRPCURL,
		"rest":               s.cfg.RESTURL,
		"server_credentials": s.cfg.Credentials != nil,
	})
}

// bufferBody reads the request body, so that the request can be repeated
// after a token refresh.
func (s *Server) bufferBody(r *http.Request) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	limit := s.cfg.RequestSizeLimit
	if limit == 0 {
		limit = requestSizeLimit
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	r.Body.Close()
	if err != nil {
		return fmt.Errorf("Reading of request failed: %w", err)
	}
	if int64(len(buf)) > limit {
		return errors.New("Request body too large")
	}
	r.Body = io.NopCloser(bytes.NewReader(buf))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	r.ContentLength = int64(len(buf))
	return nil
}

// upstream forwards requests with the caller's Authorization header
// unchanged. Other requests get the server credentials, if configured.
type upstream struct {
	base   http.RoundTripper
	server *transport.Bearer
}

func (u *upstream) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" || u.server == nil {
		return u.base.RoundTrip(req)
	}
	return u.server.RoundTrip(req)
}

func reverseProxy(target *url.URL, rt http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			out := pr.Out.URL
			out.Scheme = target.Scheme
			out.Host = target.Host
			out.Path = strings.TrimSuffix(target.Path, "/") + pr.In.URL.Path
			out.RawPath = ""
			switch {
			case target.RawQuery == "":
			case out.RawQuery == "":
				out.RawQuery = target.RawQuery
			default:
				out.RawQuery = target.RawQuery + "&" + out.RawQuery
			}
			pr.Out.Host = ""
			pr.SetXForwarded()
		},
		Transport: rt,
		ModifyResponse: func(resp *http.Response) error {
			// set by requestID
			resp.Header.Del(transport.RequestIDHeader)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			svrLog.Warningf("Forwarding of %s %s failed (request %s): %v", r.Method, r.URL, r.Header.Get(transport.RequestIDHeader), err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, `{"message":"Upstream not reachable"}`)
		},
	}
}

// requestID assigns an ID to each request, if the caller sent none. The ID is
// forwarded to the upstream and returned to the caller.
func requestID(c *gin.Context) {
	id := c.GetHeader(transport.RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
		c.Request.Header.Set(transport.RequestIDHeader, id)
	}
	c.Header(transport.RequestIDHeader, id)
	c.Next()
}

func accessLog(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path
	c.Next()
	svrLog.Debugf("%s %s from %s: %d (%s, request %s)", c.Request.Method, path, c.ClientIP(),
		c.Writer.Status(), time.Since(start), c.Writer.Header().Get(transport.RequestIDHeader))
}
