package xmlrpc

import (
	"reflect"
	"testing"
	"time"
)

func TestQuery_Int(t *testing.T) {
	cases := []struct {
		in        Value
		wanted    int
		errWanted bool
	}{
		{String(""), 0, true},
		{Double(1), 0, true},
		{Int(123), 123, false},
		{Int(-456), -456, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		e := Q(c.in)
		i := e.Int()
		err := e.Err()
		if i != c.wanted || (err != nil) != c.errWanted {
			t.Errorf("unexpected result for %v: %d, %v", c.in, i, err)
		}
	}
}

func TestQuery_Bool(t *testing.T) {
	cases := []struct {
		in        Value
		wanted    bool
		errWanted bool
	}{
		{String("1"), false, true},
		{Int(1), false, true},
		{Bool(false), false, false},
		{Bool(true), true, false},
	}
	for _, c := range cases {
		u := Q(c.in)
		b := u.Bool()
		err := u.Err()
		if b != c.wanted || (err != nil) != c.errWanted {
			t.Errorf("unexpected result for %v: %t, %v", c.in, b, err)
		}
	}
}

func TestQuery_String(t *testing.T) {
	e := Q(String(" def"))
	if s := e.String(); s != " def" || e.Err() != nil {
		t.Errorf("unexpected result: %q, %v", s, e.Err())
	}
	e = Q(Int(1))
	if s := e.String(); s != "" || e.Err() == nil {
		t.Error("error expected")
	}
}

func TestQuery_Float64(t *testing.T) {
	cases := []struct {
		in        Value
		wanted    float64
		errWanted bool
	}{
		{String("1"), 0.0, true},
		{Double(0), 0.0, false},
		{Double(-1e3), -1000.0, false},
		{Int(3), 3.0, false},
	}
	for _, c := range cases {
		u := Q(c.in)
		d := u.Float64()
		err := u.Err()
		if d != c.wanted || (err != nil) != c.errWanted {
			t.Errorf("unexpected result for %v: %f, %v", c.in, d, err)
		}
	}
}

func TestQuery_Time(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	e := Q(DateTime(ts))
	if !e.Time().Equal(ts) || e.Err() != nil {
		t.Error("unexpected time")
	}
	e = Q(String("20210304T05:06:07"))
	e.Time()
	if e.Err() == nil {
		t.Error("error expected")
	}
}

func TestQuery_Key(t *testing.T) {
	e := Q(Struct{})
	e.Key("unknown")
	if e.Err() == nil {
		t.Fail()
	}

	e = Q(Struct{"name1": Int(123), "name2": String("abc")})

	e.Key("unknown")
	if e.Err() == nil {
		t.Fail()
	}
	*e.err = nil

	f := e.Key("name1")
	if e.Err() != nil {
		t.Fail()
	}
	i := f.Int()
	if f.Err() != nil || i != 123 {
		t.Fail()
	}

	s := e.Key("name2").String()
	if e.Err() != nil || s != "abc" {
		t.Fail()
	}

	s = e.Key("name2").Key("unknown").Key("unknown2").String()
	if e.Err() == nil || s != "" {
		t.Fail()
	}
}

func TestQuery_TryKey(t *testing.T) {
	e := Q(Struct{"name1": Int(123), "name2": String("abc")})
	i := e.TryKey("name1").Int()
	if i != 123 || e.Err() != nil {
		t.Fail()
	}
	i = e.TryKey("unknown").Int()
	if i != 0 || e.Err() != nil {
		t.Fail()
	}
	if !e.TryKey("unknown").IsEmpty() {
		t.Error("missing member should be empty")
	}
	i = e.TryKey("name1").TryKey("unkown").Int()
	if i != 0 || e.Err() == nil {
		t.Fail()
	}
}

func TestQuery_Array(t *testing.T) {
	e := Q(Array{String("abc"), Int(4)})
	if len(e.Slice()) != 2 {
		t.Fail()
	}
	s := e.Slice()[0].String()
	i := e.Idx(1).Int()
	if s != "abc" || i != 4 || e.Err() != nil {
		t.Fail()
	}
	e.Slice()[0].Int()
	if e.Err() == nil {
		t.Fail()
	}
	*e.err = nil

	e.Idx(2)
	if e.Err() == nil {
		t.Error("index error expected")
	}

	e = Q(Double(123.456))
	e.Slice()
	if e.Err() == nil {
		t.Fail()
	}
}

func TestQuery_Strings(t *testing.T) {
	e := Q(Array{String("abc"), String("def")})
	s := e.Strings()
	if e.Err() != nil {
		t.Error(e.Err())
	}
	if !reflect.DeepEqual(s, []string{"abc", "def"}) {
		t.Error("invalid result: ", s)
	}

	e = Q(Array{String("abc"), Int(1)})
	if s := e.Strings(); s != nil || e.Err() == nil {
		t.Error("error expected")
	}
}

func TestQuery_Any(t *testing.T) {
	cases := []struct {
		v    Value
		want interface{}
	}{
		{Int(123), int(123)},
		{Bool(true), true},
		{Double(123.456), 123.456},
		{String("abc"), "abc"},
		{Array{Int(1), String("a")}, []interface{}{1, "a"}},
		{Struct{"k": Bool(false)}, map[string]interface{}{"k": false}},
		{nil, nil},
	}
	for _, c := range cases {
		e := Q(c.v)
		v := e.Any()
		if e.Err() != nil {
			t.Errorf("unexpected error: %v", e.Err())
		}
		if !reflect.DeepEqual(v, c.want) {
			t.Errorf("unexpected value: %v, expected: %v", v, c.want)
		}
	}
}

func TestNewValue(t *testing.T) {
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		want Value
		in   interface{}
	}{
		{Int(123), int(123)},
		{Int(5), int64(5)},
		{Bool(true), true},
		{Bool(false), false},
		{Double(123.456), 123.456},
		{String("abc"), "abc"},
		{DateTime(ts), ts},
		{Base64("abc"), []byte("abc")},
		{Array{String("abc")}, []string{"abc"}},
		{Array{Int(1), Int(2)}, []int{1, 2}},
		{Array{Double(123.456)}, []interface{}{123.456}},
		{Struct{"abc": Int(123)}, map[string]interface{}{"abc": 123}},
		{Struct{"k": String("v")}, map[string]string{"k": "v"}},
		{
			Struct{"k": Array{String("a"), String("b")}},
			map[string]interface{}{"k": []string{"a", "b"}},
		},
		{String("x"), String("x")},
	}
	for _, c := range cases {
		v, err := NewValue(c.in)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(v, c.want) {
			t.Errorf("unexpected value: %v, expected: %v", v, c.want)
		}
	}

	for _, in := range []interface{}{struct{}{}, int64(1) << 40, []float32{1}, nil} {
		if _, err := NewValue(in); err == nil {
			t.Errorf("error expected for %T", in)
		}
	}
}
