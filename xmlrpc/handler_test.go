package xmlrpc

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func newEchoHandler() *Handler {
	d := &BasicDispatcher{}
	d.AddSystemMethods()
	d.HandleFunc("echo", func(args Values) (Value, error) {
		// first argument is the key
		if len(args) != 2 {
			return nil, errors.New("invalid len")
		}
		return args[1], nil
	})
	d.HandleFunc("fail", func(Values) (Value, error) {
		return nil, &MethodError{Code: 8, Message: "Record not found"}
	})
	return &Handler{Dispatcher: d}
}

func TestServerBadRequest(t *testing.T) {
	h := &Handler{Dispatcher: &BasicDispatcher{}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	buf := bytes.NewBufferString("invalid request")
	resp, err := http.Post(srv.URL, "text/plain", buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	msg, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Decoding of request failed: Malformed XML: EOF\n", string(msg))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer(t *testing.T) {
	srv := httptest.NewServer(newEchoHandler())
	defer srv.Close()

	cln := &Client{Addr: srv.URL, Path: "/", Credentials: StaticToken("key")}

	resp, err := cln.Call("echo", Values{Int(123)})
	require.NoError(t, err)
	assert.Equal(t, Int(123), resp)

	resp, err = cln.Call("echo", Values{Int(123), String("force error")})
	assert.Nil(t, resp)
	assert.Equal(t, &MethodError{Code: -1, Message: "invalid len"}, err)

	_, err = cln.Call("fail", nil)
	assert.Equal(t, &MethodError{Code: 8, Message: "Record not found"}, err)

	resp, err = cln.Call("system.listMethods", Values{})
	require.NoError(t, err)
	methods := Q(resp).Strings()
	assert.Contains(t, methods, "system.multicall")
	assert.Contains(t, methods, "system.listMethods")
	assert.Contains(t, methods, "echo")
}

func TestServerMulticall(t *testing.T) {
	h := newEchoHandler()

	res, err := h.Dispatch("system.multicall", Values{Array{
		Struct{"methodName": String("echo"), "params": Array{String("k"), String("a")}},
		Struct{"methodName": String("fail"), "params": Array{}},
		Struct{"methodName": String("echo"), "params": Array{String("k"), Int(2)}},
	}})
	require.NoError(t, err)
	assert.Equal(t, Array{
		Array{String("a")},
		Struct{"faultCode": Int(8), "faultString": String("Record not found")},
		Array{Int(2)},
	}, res)

	// an invalid entry fails only its own slot
	res, err = h.Dispatch("system.multicall", Values{Array{
		Struct{"methodName": String("echo"), "params": Array{String("k"), String("a")}},
		Struct{"methodName": String("echo")},
		Struct{"methodName": String("echo"), "params": String("x")},
		String("no struct"),
		Struct{"methodName": String("echo"), "params": Array{String("k"), Int(3)}},
	}})
	require.NoError(t, err)
	a, ok := res.(Array)
	require.True(t, ok)
	require.Len(t, a, 5)
	assert.Equal(t, Array{String("a")}, a[0])
	for _, i := range []int{1, 2, 3} {
		f, ok := a[i].(Struct)
		if assert.True(t, ok, "entry %d", i) {
			assert.Equal(t, Int(-1), f["faultCode"])
			assert.Contains(t, string(f["faultString"].(String)), "Invalid call")
		}
	}
	assert.Equal(t, Array{Int(3)}, a[4])

	_, err = h.Dispatch("system.multicall", Values{String("x")})
	assert.Error(t, err)
}

func TestServerUnknownHook(t *testing.T) {
	d := &BasicDispatcher{}
	d.HandleUnknownFunc(func(name string, _ Values) (Value, error) {
		return String("handled " + name), nil
	})
	res, err := d.Dispatch("anything", nil)
	require.NoError(t, err)
	assert.Equal(t, String("handled anything"), res)
}

func TestServerEncoding(t *testing.T) {
	h := newEchoHandler()
	h.Encoding = charmap.ISO8859_1
	srv := httptest.NewServer(h)
	defer srv.Close()

	cln := &Client{Addr: srv.URL, Path: "/", Credentials: StaticToken("key"), Encoding: charmap.ISO8859_1}
	resp, err := cln.Call("echo", Values{String("Grüße")})
	require.NoError(t, err)
	assert.Equal(t, String("Grüße"), resp)
}
