package transport

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokens struct {
	current   string
	next      string
	refreshes int32
	err       error
}

func (t *tokens) Token() (string, error) { return t.current, nil }

func (t *tokens) Refresh() (string, error) {
	atomic.AddInt32(&t.refreshes, 1)
	if t.err != nil {
		return "", t.err
	}
	t.current = t.next
	return t.current, nil
}

// newServer accepts only the token "good" and echoes the request body.
func newServer(t *testing.T, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
}

func TestBearer_Authorized(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()

	tk := &tokens{current: "good"}
	c := NewClient(tk, tk)
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), hits)
	assert.Equal(t, int32(0), tk.refreshes)
}

func TestBearer_RefreshOnce(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()

	tk := &tokens{current: "expired", next: "good"}
	c := NewClient(tk, tk)
	resp, err := c.Post(srv.URL, "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"a":1}`, string(body))
	assert.Equal(t, int32(2), hits)
	assert.Equal(t, int32(1), tk.refreshes)
}

func TestBearer_RefreshStillUnauthorized(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()

	tk := &tokens{current: "expired", next: "revoked"}
	c := NewClient(tk, tk)
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	// exactly one retry
	assert.Equal(t, int32(2), hits)
	assert.Equal(t, int32(1), tk.refreshes)
}

func TestBearer_RefreshFails(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()

	tk := &tokens{current: "expired", err: errors.New("invalid_grant")}
	c := NewClient(tk, tk)
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), hits)
}

func TestBearer_SkipsXMLRPC(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defer srv.Close()

	tk := &tokens{current: "expired", next: "good"}
	c := NewClient(tk, tk)
	resp, err := c.Post(srv.URL, "text/xml; charset=utf-8", strings.NewReader("<methodCall/>"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), hits)
	assert.Equal(t, int32(0), tk.refreshes)
}

func TestBearer_KeepsRequestID(t *testing.T) {
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(RequestIDHeader))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	tk := &tokens{current: "expired", next: "good"}
	c := NewClient(tk, tk)
	req, _ := http.NewRequest(http.MethodDelete, srv.URL, nil)
	req.Header.Set(RequestIDHeader, "fixed")
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []string{"fixed", "fixed"}, ids)
}
