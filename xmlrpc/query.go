package xmlrpc

import (
	"errors"
	"fmt"
	"time"
)

// Query helps to extract values from decoded XML-RPC values. The first
// encountered error is kept and shared by all derived queries.
type Query struct {
	value Value
	err   *error
	// faster lookup for structs
	lookup map[string]*Query
	// cache arrays
	array []*Query
}

// Q creates a new Query for the specified Value.
func Q(v Value) *Query {
	var err error
	return &Query{value: v, err: &err}
}

// Err returns the first encountered error.
func (q *Query) Err() error {
	return *q.err
}

// Value returns the wrapped Value.
func (q *Query) Value() Value {
	return q.value
}

// Int gets an XML-RPC int or i4 value.
func (q *Query) Int() int {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return 0
	}
	i, ok := q.value.(Int)
	if !ok {
		*q.err = fmt.Errorf("Not an int: %T", q.value)
		return 0
	}
	return int(i)
}

// Bool gets an XML-RPC boolean value.
func (q *Query) Bool() bool {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return false
	}
	b, ok := q.value.(Bool)
	if !ok {
		*q.err = fmt.Errorf("Not a bool: %T", q.value)
		return false
	}
	return bool(b)
}

// String gets an XML-RPC string value.
func (q *Query) String() string {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return ""
	}
	s, ok := q.value.(String)
	if !ok {
		*q.err = fmt.Errorf("Not a string: %T", q.value)
		return ""
	}
	return string(s)
}

// Float64 gets an XML-RPC double value. Integers are converted.
func (q *Query) Float64() float64 {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return 0
	}
	switch v := q.value.(type) {
	case Double:
		return float64(v)
	case Int:
		return float64(v)
	}
	*q.err = fmt.Errorf("Not a double: %T", q.value)
	return 0
}

// Time gets an XML-RPC dateTime.iso8601 value.
func (q *Query) Time() time.Time {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return time.Time{}
	}
	d, ok := q.value.(DateTime)
	if !ok {
		*q.err = fmt.Errorf("Not a dateTime.iso8601: %T", q.value)
		return time.Time{}
	}
	return time.Time(d)
}

// IsEmpty returns true, if there is no previous error and the value is
// missing or an empty string.
func (q *Query) IsEmpty() bool {
	// previous error?
	if q.Err() != nil {
		return false
	}
	if q.value == nil {
		return true
	}
	s, ok := q.value.(String)
	return ok && s == ""
}

// Any returns the native Go value: int, bool, float64, string, time.Time,
// []byte, []interface{}, map[string]interface{} or nil for an empty optional.
func (q *Query) Any() interface{} {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return nil
	}
	return native(q.value)
}

func native(v Value) interface{} {
	switch v := v.(type) {
	case String:
		return string(v)
	case Int:
		return int(v)
	case Double:
		return float64(v)
	case Bool:
		return bool(v)
	case DateTime:
		return time.Time(v)
	case Base64:
		return []byte(v)
	case Array:
		a := make([]interface{}, len(v))
		for i, e := range v {
			a[i] = native(e)
		}
		return a
	case Struct:
		m := make(map[string]interface{}, len(v))
		for n, e := range v {
			m[n] = native(e)
		}
		return m
	}
	return nil
}

// Map returns all members of an XML-RPC struct.
func (q *Query) Map() map[string]*Query {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		// return empty map
		return nil
	}
	// is map already created?
	if q.lookup != nil {
		return q.lookup
	}
	// create map
	s, ok := q.value.(Struct)
	if !ok {
		*q.err = fmt.Errorf("Not a struct: %T", q.value)
		return nil
	}
	q.lookup = make(map[string]*Query, len(s))
	for n, v := range s {
		q.lookup[n] = &Query{value: v, err: q.err}
	}
	return q.lookup
}

// key gets the specified member from a struct.
func (q *Query) key(name string, must bool) *Query {
	m := q.Map()
	// previous error?
	if q.Err() != nil {
		return &Query{err: q.err}
	}
	// empty optional?
	if q.value == nil {
		return &Query{err: q.err}
	}
	// lookup
	f, ok := m[name]
	if !ok {
		if must {
			*q.err = fmt.Errorf("Field not found: %s", name)
		}
		return &Query{err: q.err}
	}
	return f
}

// Key sets an error, if the specified member is missing.
func (q *Query) Key(name string) *Query {
	return q.key(name, true)
}

// TryKey does not set an error, if the specified member is missing.
func (q *Query) TryKey(name string) *Query {
	return q.key(name, false)
}

// Slice returns all array elements.
func (q *Query) Slice() []*Query {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		// return empty slice
		return nil
	}
	// array already created?
	if q.array != nil {
		return q.array
	}
	// create array
	a, ok := q.value.(Array)
	if !ok {
		*q.err = errors.New("Not an array")
		return nil
	}
	q.array = make([]*Query, len(a))
	for i, v := range a {
		q.array[i] = &Query{value: v, err: q.err}
	}
	return q.array
}

// Strings returns a string array.
func (q *Query) Strings() []string {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		// return empty slice
		return nil
	}
	// create array
	var r []string
	for _, e := range q.Slice() {
		r = append(r, e.String())
	}
	if q.Err() != nil {
		// return empty slice
		return nil
	}
	return r
}

// Idx returns the array element at i.
func (q *Query) Idx(i int) *Query {
	s := q.Slice()
	// previous error
	if q.Err() != nil {
		return &Query{err: q.err}
	}
	// check bounds
	if i < 0 || i >= len(s) {
		*q.err = fmt.Errorf("Index out of bounds (array length: %d): %d", len(s), i)
		return &Query{err: q.err}
	}
	return s[i]
}
