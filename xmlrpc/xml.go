package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Wire model of the XML-RPC documents. Pointers mark the presence of an
// element, so that e.g. <string/> and a missing <string> can be told apart.

type methodCall struct {
	XMLName    xml.Name
	MethodName string  `xml:"methodName"`
	Params     *params `xml:"params"`
}

type methodResponse struct {
	XMLName xml.Name
	Params  *params `xml:"params"`
	Fault   *fault  `xml:"fault"`
}

type fault struct {
	Value *value `xml:"value"`
}

type params struct {
	Param []*param `xml:"param"`
}

type param struct {
	Value *value `xml:"value"`
}

type value struct {
	Array    *array     `xml:"array"`
	Struct   *structure `xml:"struct"`
	String   *string    `xml:"string"`
	I4       *string    `xml:"i4"`
	Int      *string    `xml:"int"`
	Boolean  *string    `xml:"boolean"`
	Double   *string    `xml:"double"`
	DateTime *string    `xml:"dateTime.iso8601"`
	Base64   *string    `xml:"base64"`
	Text     string     `xml:",chardata"`
}

type structure struct {
	Members []*member `xml:"member"`
}

type member struct {
	Name  *string `xml:"name"`
	Value *value  `xml:"value"`
}

type array struct {
	Data *data `xml:"data"`
}

type data struct {
	Values []*value `xml:"value"`
}

// dateTimeLayout is the canonical XML-RPC dateTime.iso8601 format. It has no
// zone, times are always encoded and decoded as UTC.
const dateTimeLayout = "20060102T15:04:05"

// accepted variants on decoding
var dateTimeLayouts = []string{
	dateTimeLayout,
	"2006-01-02T15:04:05",
	"20060102T150405",
	time.RFC3339,
}

// decodeValue converts the wire model into a Value. The first matching
// element wins: array, struct, string, i4/int, boolean, double,
// dateTime.iso8601, base64. Without any of them the trimmed text content is
// returned as String.
func decodeValue(v *value) (Value, *DecodeError) {
	switch {
	case v.Array != nil && v.Array.Data != nil:
		vs := v.Array.Data.Values
		a := make(Array, len(vs))
		for i, e := range vs {
			d, err := decodeValue(e)
			if err != nil {
				return nil, err.within("[" + strconv.Itoa(i) + "]")
			}
			a[i] = d
		}
		return a, nil

	case v.Struct != nil:
		s := make(Struct, len(v.Struct.Members))
		for i, m := range v.Struct.Members {
			if m.Name == nil {
				return nil, decodeErrorf("Member %d has no name", i)
			}
			if m.Value == nil {
				return nil, decodeErrorf("Member %d (%s) has no value", i, *m.Name)
			}
			d, err := decodeValue(m.Value)
			if err != nil {
				return nil, err.within(memberSegment(i, *m.Name))
			}
			s[*m.Name] = d
		}
		return s, nil

	case v.String != nil:
		return String(*v.String), nil

	case v.I4 != nil || v.Int != nil:
		t := v.I4
		if t == nil {
			t = v.Int
		}
		i, err := strconv.ParseInt(strings.TrimSpace(*t), 10, 32)
		if err != nil {
			return nil, decodeErrorf("Invalid int: %q", *t)
		}
		return Int(i), nil

	case v.Boolean != nil:
		return Bool(*v.Boolean == "1"), nil

	case v.Double != nil:
		d, err := strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
		if err != nil {
			return nil, decodeErrorf("Invalid double: %q", *v.Double)
		}
		return Double(d), nil

	case v.DateTime != nil:
		t := strings.TrimSpace(*v.DateTime)
		for _, l := range dateTimeLayouts {
			if d, err := time.Parse(l, t); err == nil {
				return DateTime(d), nil
			}
		}
		return nil, decodeErrorf("Invalid dateTime.iso8601: %q", *v.DateTime)

	case v.Base64 != nil:
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(*v.Base64), ""))
		if err != nil {
			return nil, decodeErrorf("Invalid base64: %v", err)
		}
		return Base64(b), nil
	}
	return String(strings.TrimSpace(v.Text)), nil
}

func memberSegment(idx int, name string) string {
	if name == "" {
		return "member[" + strconv.Itoa(idx) + "]"
	}
	return name
}

// encodeValue converts a Value into the wire model.
func encodeValue(in Value) (*value, error) {
	switch v := in.(type) {
	case String:
		s := string(v)
		return &value{String: &s}, nil
	case Int:
		s := strconv.FormatInt(int64(v), 10)
		return &value{Int: &s}, nil
	case Double:
		s := strconv.FormatFloat(float64(v), 'f', -1, 64)
		return &value{Double: &s}, nil
	case Bool:
		s := "0"
		if v {
			s = "1"
		}
		return &value{Boolean: &s}, nil
	case DateTime:
		s := time.Time(v).UTC().Format(dateTimeLayout)
		return &value{DateTime: &s}, nil
	case Base64:
		s := base64.StdEncoding.EncodeToString(v)
		return &value{Base64: &s}, nil
	case Array:
		d := &data{Values: make([]*value, len(v))}
		for i, e := range v {
			w, err := encodeValue(e)
			if err != nil {
				return nil, err
			}
			d.Values[i] = w
		}
		return &value{Array: &array{Data: d}}, nil
	case Struct:
		// sorted member names for a stable document
		s := &structure{Members: make([]*member, 0, len(v))}
		for _, n := range sortedKeys(v) {
			w, err := encodeValue(v[n])
			if err != nil {
				return nil, err
			}
			name := n
			s.Members = append(s.Members, &member{Name: &name, Value: w})
		}
		return &value{Struct: s}, nil
	case nil:
		return nil, errors.New("Encoding of a nil value is not supported")
	default:
		return nil, fmt.Errorf("Encoding of type %T is not supported", in)
	}
}

func sortedKeys(s Struct) []string {
	ns := make([]string, 0, len(s))
	for n := range s {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}
