package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// EncodeCall builds an XML-RPC methodCall document. If enc is nil, UTF-8 is
// used.
func EncodeCall(method string, args Values, enc encoding.Encoding) ([]byte, error) {
	ps, err := encodeParams(args)
	if err != nil {
		return nil, fmt.Errorf("Encoding of request for %s failed: %v", method, err)
	}
	doc := &methodCall{
		XMLName:    xml.Name{Local: "methodCall"},
		MethodName: method,
		Params:     ps,
	}
	return encodeDocument(doc, enc)
}

// EncodeResponse builds an XML-RPC methodResponse document with a single
// result value.
func EncodeResponse(result Value, enc encoding.Encoding) ([]byte, error) {
	v, err := encodeValue(result)
	if err != nil {
		return nil, fmt.Errorf("Encoding of response failed: %v", err)
	}
	doc := &methodResponse{
		XMLName: xml.Name{Local: "methodResponse"},
		Params:  &params{Param: []*param{{Value: v}}},
	}
	return encodeDocument(doc, enc)
}

// EncodeFault builds an XML-RPC fault response. A *MethodError keeps its code,
// any other error is reported with code -1.
func EncodeFault(err error, enc encoding.Encoding) ([]byte, error) {
	code := -1
	message := err.Error()
	if me, ok := err.(*MethodError); ok {
		code = me.Code
		message = me.Message
	}
	v, _ := encodeValue(Struct{
		"faultCode":   Int(code),
		"faultString": String(message),
	})
	doc := &methodResponse{
		XMLName: xml.Name{Local: "methodResponse"},
		Fault:   &fault{Value: v},
	}
	return encodeDocument(doc, enc)
}

func encodeParams(args Values) (*params, error) {
	ps := &params{Param: make([]*param, len(args))}
	for i, a := range args {
		v, err := encodeValue(a)
		if err != nil {
			return nil, fmt.Errorf("Parameter %d: %v", i, err)
		}
		ps.Param[i] = &param{Value: v}
	}
	return ps, nil
}

func encodeDocument(doc interface{}, enc encoding.Encoding) ([]byte, error) {
	name := "UTF-8"
	if enc != nil {
		n, err := ianaindex.MIME.Name(enc)
		if err != nil {
			n, err = ianaindex.IANA.Name(enc)
			if err != nil {
				return nil, fmt.Errorf("Unknown character encoding: %v", err)
			}
		}
		name = n
	}

	var buf bytes.Buffer
	var w io.Writer = &buf
	var tw *transform.Writer
	if enc != nil {
		tw = transform.NewWriter(&buf, enc.NewEncoder())
		w = tw
	}

	// write xml header
	if _, err := io.WriteString(w, "<?xml version=\"1.0\" encoding=\""+name+"\"?>\n"); err != nil {
		return nil, err
	}
	if err := xml.NewEncoder(w).Encode(doc); err != nil {
		return nil, err
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeDocument(doc []byte, out interface{}) error {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(out); err != nil {
		return newMalformedError(err)
	}
	// only whitespace, comments and processing instructions may follow the
	// root element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return newMalformedError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return newMalformedError(fmt.Errorf("Unexpected element after root: %s", t.Name.Local))
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return newMalformedError(fmt.Errorf("Unexpected text after root element"))
			}
		}
	}
}

// ParseResponse decodes an XML-RPC methodResponse document. It returns either
// the result value or an error, never both. A fault response is returned as
// *MethodError, other errors are *MalformedError, *StructureError or
// *DecodeError.
func ParseResponse(doc []byte) (Value, error) {
	resp := &methodResponse{}
	if err := decodeDocument(doc, resp); err != nil {
		return nil, err
	}
	root := resp.XMLName.Local
	if root != "methodResponse" {
		return nil, &StructureError{Root: root, Msg: "Expected methodResponse"}
	}

	// fault takes precedence over params
	if resp.Fault != nil {
		return nil, parseFault(resp.Fault)
	}

	if resp.Params == nil || len(resp.Params.Param) == 0 || resp.Params.Param[0].Value == nil {
		return nil, &StructureError{Root: root, Msg: "Missing params/param/value"}
	}
	if len(resp.Params.Param) != 1 {
		return nil, &StructureError{
			Root: root,
			Msg:  "Expected exactly one parameter, found " + strconv.Itoa(len(resp.Params.Param)),
		}
	}
	v, derr := decodeValue(resp.Params.Param[0].Value)
	if derr != nil {
		return nil, derr
	}
	return v, nil
}

func parseFault(f *fault) error {
	if f.Value == nil {
		return &DecodeError{Path: "fault", Msg: "Missing value"}
	}
	v, derr := decodeValue(f.Value)
	if derr != nil {
		return derr.within("fault")
	}
	q := Q(v)
	code := q.Key("faultCode").Int()
	message := q.Key("faultString").String()
	if q.Err() != nil {
		return &DecodeError{Path: "fault", Msg: q.Err().Error()}
	}
	return &MethodError{Code: code, Message: message}
}

// ParseCall decodes an XML-RPC methodCall document.
func ParseCall(doc []byte) (string, Values, error) {
	call := &methodCall{}
	if err := decodeDocument(doc, call); err != nil {
		return "", nil, err
	}
	root := call.XMLName.Local
	if root != "methodCall" {
		return "", nil, &StructureError{Root: root, Msg: "Expected methodCall"}
	}
	if call.MethodName == "" {
		return "", nil, &StructureError{Root: root, Msg: "Missing methodName"}
	}
	var args Values
	if call.Params != nil {
		args = make(Values, len(call.Params.Param))
		for i, p := range call.Params.Param {
			if p.Value == nil {
				return "", nil, &StructureError{Root: root, Msg: "Missing value of parameter " + strconv.Itoa(i)}
			}
			v, derr := decodeValue(p.Value)
			if derr != nil {
				return "", nil, derr.within("[" + strconv.Itoa(i) + "]")
			}
			args[i] = v
		}
	}
	return call.MethodName, args, nil
}
