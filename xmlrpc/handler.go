package xmlrpc

import (
	"io"
	"net/http"
	"strconv"

	"github.com/mdzio/go-logging"

	"golang.org/x/text/encoding"
)

// max. size of a valid request, if not specified: 10 MB
const requestSizeLimit = 10 * 1024 * 1024

var svrLog = logging.Get("xmlrpc-server")

// Handler implements a http.Handler which can handle XML-RPC requests. Remote
// calls are dispatched to the registered Method's.
type Handler struct {
	Dispatcher
	RequestSizeLimit int64

	// character encoding of responses, UTF-8 if nil
	Encoding encoding.Encoding
}

func (h *Handler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	svrLog.Tracef("Request received from %s, URI %s", req.RemoteAddr, req.RequestURI)

	if req.Method != http.MethodPost {
		http.Error(resp, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// read request
	limit := h.RequestSizeLimit
	if limit == 0 {
		limit = requestSizeLimit
	}
	reqBuf, err := io.ReadAll(http.MaxBytesReader(resp, req.Body, limit))
	if err != nil {
		svrLog.Errorf("Reading of request failed from %s: %v", req.RemoteAddr, err)
		http.Error(resp, "Reading of request failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if svrLog.TraceEnabled() {
		svrLog.Tracef("Request XML: %s", string(reqBuf))
	}

	// decode request from xml
	method, args, err := ParseCall(reqBuf)
	if err != nil {
		svrLog.Errorf("Decoding of request from %s failed: %v", req.RemoteAddr, err)
		http.Error(resp, "Decoding of request failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// dispatch call
	var respBuf []byte
	res, err := h.Dispatch(method, args)
	if err != nil {
		svrLog.Warningf("Sending error response to %s: %v", req.RemoteAddr, err)
		respBuf, err = EncodeFault(err, h.Encoding)
	} else {
		respBuf, err = EncodeResponse(res, h.Encoding)
	}
	if err != nil {
		svrLog.Errorf("Encoding of response for %s failed: %v", req.RemoteAddr, err)
		http.Error(resp, "Encoding of response failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if svrLog.TraceEnabled() {
		svrLog.Tracef("Response XML: %s", string(respBuf))
	}

	// send response
	resp.Header().Set("Content-Type", "text/xml")
	resp.Header().Set("Content-Length", strconv.Itoa(len(respBuf)))
	if _, err = resp.Write(respBuf); err != nil {
		svrLog.Warningf("Sending of response for %s failed: %v", req.RemoteAddr, err)
	}
}
