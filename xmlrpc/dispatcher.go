package xmlrpc

import (
	"fmt"
	"sort"
	"sync"
)

// Dispatcher dispatches a received XML-RPC call to registered handlers.
type Dispatcher interface {
	Dispatch(methodName string, args Values) (Value, error)
}

// A Method is dispatched from a Handler.
type Method interface {
	Call(args Values) (Value, error)
}

// MethodFunc is an adapter to use ordinary functions as Method's.
type MethodFunc func(Values) (Value, error)

// Call implements interface Method.
func (m MethodFunc) Call(args Values) (Value, error) {
	return m(args)
}

// BasicDispatcher dispatches an XML-RPC call to a registered function.
type BasicDispatcher struct {
	mutex   sync.RWMutex
	methods map[string]Method
	unknown func(string, Values) (Value, error)
}

// Handle registers a Method.
func (d *BasicDispatcher) Handle(name string, m Method) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.methods == nil {
		d.methods = make(map[string]Method)
	}
	d.methods[name] = m
}

// HandleFunc registers an ordinary function as Method.
func (d *BasicDispatcher) HandleFunc(name string, f func(Values) (Value, error)) {
	d.Handle(name, MethodFunc(f))
}

// HandleUnknownFunc registers an ordinary function to handle unknown methods
// names.
func (d *BasicDispatcher) HandleUnknownFunc(f func(string, Values) (Value, error)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.unknown = f
}

// AddSystemMethods adds system.multicall and system.listMethods.
func (d *BasicDispatcher) AddSystemMethods() {
	d.HandleFunc("system.multicall", d.multicall)

	d.HandleFunc(
		"system.listMethods",
		func(Values) (Value, error) {
			svrLog.Debug("Call of method system.listMethods received")
			d.mutex.RLock()
			names := make([]string, 0, len(d.methods))
			for name := range d.methods {
				names = append(names, name)
			}
			d.mutex.RUnlock()

			sort.Strings(names)
			a := make(Array, len(names))
			for i, n := range names {
				a[i] = String(n)
			}
			return a, nil
		},
	)
}

// multicall executes all calls. A successful result is wrapped in an array,
// a failed call is reported as fault struct.
func (d *BasicDispatcher) multicall(args Values) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("Invalid system.multicall: expected 1 parameter, got %d", len(args))
	}
	q := Q(args[0])
	calls := q.Slice()
	if q.Err() != nil {
		return nil, fmt.Errorf("Invalid system.multicall: %v", q.Err())
	}
	svrLog.Debugf("Call of method system.multicall with %d elements received", len(calls))
	results := make(Array, len(calls))
	for i, call := range calls {
		cq := Q(call.Value())
		methodName := cq.Key("methodName").String()
		pv := cq.Key("params").Value()
		if cq.Err() != nil {
			results[i] = faultStruct(fmt.Errorf("Invalid call %d in system.multicall: %v", i, cq.Err()))
			continue
		}
		a, ok := pv.(Array)
		if !ok {
			results[i] = faultStruct(fmt.Errorf("Invalid call %d in system.multicall: params is not an array", i))
			continue
		}
		ps := Values(a)
		if methodName == "system.multicall" {
			results[i] = faultStruct(fmt.Errorf("Recursive system.multicall"))
			continue
		}
		res, err := d.Dispatch(methodName, ps)
		if err != nil {
			results[i] = faultStruct(err)
			continue
		}
		results[i] = Array{res}
	}
	return results, nil
}

func faultStruct(err error) Struct {
	code := -1
	message := err.Error()
	if me, ok := err.(*MethodError); ok {
		code = me.Code
		message = me.Message
	}
	return Struct{"faultCode": Int(code), "faultString": String(message)}
}

// Dispatch dispatches a method call to a registered function.
func (d *BasicDispatcher) Dispatch(methodName string, args Values) (Value, error) {
	d.mutex.RLock()
	method, ok := d.methods[methodName]
	unknown := d.unknown
	d.mutex.RUnlock()

	if !ok {
		if unknown == nil {
			unknown = func(name string, _ Values) (Value, error) {
				return nil, fmt.Errorf("Unknown method: %s", name)
			}
		}
		return unknown(methodName, args)
	}
	return method.Call(args)
}
