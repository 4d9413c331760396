package xmlrpc

import (
	"fmt"
	"math"
	"time"
)

// Value is an XML-RPC value. The set of implementations is closed: String,
// Int, Double, Bool, DateTime, Base64, Array and Struct.
type Value interface {
	isValue()
}

// Values is an ordered list of XML-RPC values, e.g. the parameters of a method
// call.
type Values []Value

// String is an XML-RPC string. Values without a type tag are decoded as
// String.
type String string

// Int is an XML-RPC int or i4.
type Int int32

// Double is an XML-RPC double.
type Double float64

// Bool is an XML-RPC boolean.
type Bool bool

// DateTime is an XML-RPC dateTime.iso8601. The wire format carries no time
// zone.
type DateTime time.Time

// Base64 is an XML-RPC base64 encoded binary.
type Base64 []byte

// Array is an XML-RPC array.
type Array []Value

// Struct is an XML-RPC struct.
type Struct map[string]Value

func (String) isValue()   {}
func (Int) isValue()      {}
func (Double) isValue()   {}
func (Bool) isValue()     {}
func (DateTime) isValue() {}
func (Base64) isValue()   {}
func (Array) isValue()    {}
func (Struct) isValue()   {}

// Time returns the wrapped time.
func (d DateTime) Time() time.Time {
	return time.Time(d)
}

// NewValue creates a value from a native data type. Supported types: Value,
// bool, int, int32, int64, float64, string, time.Time, []byte, []string,
// []int, []interface{}, map[string]interface{} and map[string]string.
func NewValue(in interface{}) (Value, error) {
	switch val := in.(type) {
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return newInt(int64(val))
	case int32:
		return Int(val), nil
	case int64:
		return newInt(val)
	case float64:
		return Double(val), nil
	case string:
		return String(val), nil
	case time.Time:
		return DateTime(val), nil
	case []byte:
		return Base64(val), nil
	case []string:
		a := make(Array, len(val))
		for i, e := range val {
			a[i] = String(e)
		}
		return a, nil
	case []int:
		a := make(Array, len(val))
		for i, e := range val {
			v, err := newInt(int64(e))
			if err != nil {
				return nil, err
			}
			a[i] = v
		}
		return a, nil
	case []interface{}:
		a := make(Array, len(val))
		for i, e := range val {
			v, err := NewValue(e)
			if err != nil {
				return nil, err
			}
			a[i] = v
		}
		return a, nil
	case map[string]interface{}:
		s := make(Struct, len(val))
		for n, e := range val {
			v, err := NewValue(e)
			if err != nil {
				return nil, err
			}
			s[n] = v
		}
		return s, nil
	case map[string]string:
		s := make(Struct, len(val))
		for n, e := range val {
			s[n] = String(e)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("Conversion of type %[1]T with value %[1]v is not supported", in)
	}
}

func newInt(i int64) (Value, error) {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return nil, fmt.Errorf("Integer out of XML-RPC int range: %d", i)
	}
	return Int(i), nil
}

// MustValue is like NewValue, but panics on unsupported types. It simplifies
// building parameters from literals.
func MustValue(in interface{}) Value {
	v, err := NewValue(in)
	if err != nil {
		panic(err)
	}
	return v
}
