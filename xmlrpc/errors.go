package xmlrpc

import (
	"fmt"
	"strings"
)

// MethodError encapsulates an XML-RPC fault response.
type MethodError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (f *MethodError) Error() string {
	return fmt.Sprintf("XML-RPC fault (code: %d, message: %s)", f.Code, f.Message)
}

// TransportError is returned, if the XML-RPC server could not be reached or
// answered with an HTTP error.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Call of method %s failed: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedError is returned, if a document is not parseable XML.
type MalformedError struct {
	// first line of the XML parser diagnostic
	Diagnostic string
}

func (e *MalformedError) Error() string {
	return "Malformed XML: " + e.Diagnostic
}

func newMalformedError(err error) *MalformedError {
	d := err.Error()
	if i := strings.IndexByte(d, '\n'); i >= 0 {
		d = d[:i]
	}
	return &MalformedError{Diagnostic: d}
}

// StructureError is returned, if a document is valid XML but lacks the
// expected XML-RPC elements.
type StructureError struct {
	// actual root element
	Root string
	Msg  string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("Invalid XML-RPC document (root element: %s): %s", e.Root, e.Msg)
}

// DecodeError is returned, if the content of a value can not be converted to
// its declared type. Path locates the value, e.g. [2].Contacts.member[1].
type DecodeError struct {
	Path string
	Msg  string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "Decoding of XML-RPC value failed: " + e.Msg
	}
	return fmt.Sprintf("Decoding of XML-RPC value at %s failed: %s", e.Path, e.Msg)
}

// within prefixes the path with the location of the enclosing element.
func (e *DecodeError) within(seg string) *DecodeError {
	switch {
	case e.Path == "":
		e.Path = seg
	case strings.HasPrefix(e.Path, "["):
		e.Path = seg + e.Path
	default:
		e.Path = seg + "." + e.Path
	}
	return e
}

func decodeErrorf(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Msg: fmt.Sprintf(format, args...)}
}
