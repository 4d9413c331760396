// Package keap provides the CRM operations of the administration console
// (contacts, tasks, orders, products, affiliates, campaigns and settings) on
// top of the XML-RPC API.
package keap

import (
	"fmt"

	"github.com/mdzio/go-keap/xmlrpc"
	"github.com/mdzio/go-logging"
)

const (
	// DefaultPageSize is used, if Page.Size is not set.
	DefaultPageSize = 20
	// MaxPageSize is the largest page the platform delivers.
	MaxPageSize = 1000
)

var clnLog = logging.Get("keap-client")

// Filter selects records by field values. String values may contain % as
// wildcard.
type Filter map[string]interface{}

// Page selects a page of a result list. Page numbers start with 0.
type Page struct {
	Number     int
	Size       int
	OrderBy    string
	Descending bool
}

func (p Page) size() int {
	switch {
	case p.Size <= 0:
		return DefaultPageSize
	case p.Size > MaxPageSize:
		return MaxPageSize
	}
	return p.Size
}

// Service provides the CRM operations over an XML-RPC caller. The caller
// must prepend the credential (see xmlrpc.Client).
type Service struct {
	Name string
	xmlrpc.Caller
}

// call executes a method with native parameters.
func (s *Service) call(method string, params ...interface{}) (*xmlrpc.Query, error) {
	args := make(xmlrpc.Values, len(params))
	for i, p := range params {
		v, err := xmlrpc.NewValue(p)
		if err != nil {
			return nil, fmt.Errorf("Invalid parameter %d for %s: %v", i, method, err)
		}
		args[i] = v
	}
	v, err := s.Call(method, args)
	if err != nil {
		return nil, err
	}
	return xmlrpc.Q(v), nil
}

// query executes DataService.query. The result is an array of structs.
func (s *Service) query(table string, f Filter, fields []string, p Page) (*xmlrpc.Query, error) {
	clnLog.Debugf("Calling method DataService.query(%s, %v, page %d) on %s", table, f, p.Number, s.Name)
	qd := map[string]interface{}(f)
	if qd == nil {
		// all records
		qd = map[string]interface{}{"Id": "%"}
	}
	if p.OrderBy == "" {
		return s.call("DataService.query", table, p.size(), p.Number, qd, fields)
	}
	return s.call("DataService.query", table, p.size(), p.Number, qd, fields, p.OrderBy, !p.Descending)
}

// load executes DataService.load.
func (s *Service) load(table string, id int, fields []string) (*xmlrpc.Query, error) {
	clnLog.Debugf("Calling method DataService.load(%s, %d) on %s", table, id, s.Name)
	return s.call("DataService.load", table, id, fields)
}

// add executes DataService.add and returns the ID of the new record.
func (s *Service) add(table string, data xmlrpc.Struct) (int, error) {
	clnLog.Debugf("Calling method DataService.add(%s) on %s", table, s.Name)
	e, err := s.call("DataService.add", table, data)
	if err != nil {
		return 0, err
	}
	id := e.Int()
	if e.Err() != nil {
		return 0, fmt.Errorf("Invalid XML response for DataService.add: %v", e.Err())
	}
	return id, nil
}

// update executes DataService.update.
func (s *Service) update(table string, id int, data xmlrpc.Struct) error {
	clnLog.Debugf("Calling method DataService.update(%s, %d) on %s", table, id, s.Name)
	e, err := s.call("DataService.update", table, id, data)
	if err != nil {
		return err
	}
	e.Int()
	if e.Err() != nil {
		return fmt.Errorf("Invalid XML response for DataService.update: %v", e.Err())
	}
	return nil
}

// delete executes DataService.delete.
func (s *Service) delete(table string, id int) error {
	clnLog.Debugf("Calling method DataService.delete(%s, %d) on %s", table, id, s.Name)
	e, err := s.call("DataService.delete", table, id)
	if err != nil {
		return err
	}
	ok := e.Bool()
	if e.Err() != nil {
		return fmt.Errorf("Invalid XML response for DataService.delete: %v", e.Err())
	}
	if !ok {
		return fmt.Errorf("Deletion of %s %d failed", table, id)
	}
	return nil
}

// count executes DataService.count.
func (s *Service) count(table string, f Filter) (int, error) {
	clnLog.Debugf("Calling method DataService.count(%s, %v) on %s", table, f, s.Name)
	qd := map[string]interface{}(f)
	if qd == nil {
		qd = map[string]interface{}{"Id": "%"}
	}
	e, err := s.call("DataService.count", table, qd)
	if err != nil {
		return 0, err
	}
	n := e.Int()
	if e.Err() != nil {
		return 0, fmt.Errorf("Invalid XML response for DataService.count: %v", e.Err())
	}
	return n, nil
}

// AppSetting reads a setting of the application, e.g. module "Contact" and
// setting "optiontypes".
func (s *Service) AppSetting(module, setting string) (string, error) {
	clnLog.Debugf("Calling method DataService.getAppSetting(%s, %s) on %s", module, setting, s.Name)
	e, err := s.call("DataService.getAppSetting", module, setting)
	if err != nil {
		return "", err
	}
	v := e.String()
	if e.Err() != nil {
		return "", fmt.Errorf("Invalid XML response for DataService.getAppSetting: %v", e.Err())
	}
	return v, nil
}

// fields collects the non-empty fields of a record.
type fields xmlrpc.Struct

func (f fields) str(name, v string) {
	if v != "" {
		f[name] = xmlrpc.String(v)
	}
}

func (f fields) int(name string, v int) {
	if v != 0 {
		f[name] = xmlrpc.Int(v)
	}
}
