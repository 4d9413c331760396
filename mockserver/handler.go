package mockserver

import (
	"fmt"

	"github.com/mdzio/go-keap/xmlrpc"
	"github.com/mdzio/go-logging"
)

// fault codes
const (
	FaultInvalidKey       = 2
	FaultInvalidParameter = 3
	FaultNotFound         = 4
)

var svrLog = logging.Get("mock-server")

// NewHandler creates an XML-RPC handler for the data and contact services.
// The first parameter of each call must be the key. If key is empty, any key
// is accepted.
func NewHandler(key string, store *Store) *xmlrpc.Handler {
	d := &xmlrpc.BasicDispatcher{}
	d.AddSystemMethods()
	m := &methods{key: key, store: store}

	d.HandleFunc("DataService.query", m.withKey("DataService.query", m.query))
	d.HandleFunc("DataService.count", m.withKey("DataService.count", m.count))
	d.HandleFunc("DataService.load", m.withKey("DataService.load", m.load))
	d.HandleFunc("DataService.add", m.withKey("DataService.add", m.add))
	d.HandleFunc("DataService.update", m.withKey("DataService.update", m.update))
	d.HandleFunc("DataService.delete", m.withKey("DataService.delete", m.delete))
	d.HandleFunc("DataService.getAppSetting", m.withKey("DataService.getAppSetting", m.appSetting))
	d.HandleFunc("ContactService.add", m.withKey("ContactService.add", m.addContact))
	d.HandleFunc("ContactService.load", m.withKey("ContactService.load", m.loadContact))
	d.HandleFunc("ContactService.update", m.withKey("ContactService.update", m.updateContact))
	d.HandleFunc("ContactService.addToCampaign", m.withKey("ContactService.addToCampaign", m.addToCampaign))
	d.HandleFunc("ContactService.removeFromCampaign", m.withKey("ContactService.removeFromCampaign", m.removeFromCampaign))

	return &xmlrpc.Handler{Dispatcher: d}
}

type methods struct {
	key   string
	store *Store
}

// withKey checks the key and the number of arguments. The wrapped function
// receives the arguments without the key.
func (m *methods) withKey(name string, f func(args *xmlrpc.Query) (xmlrpc.Value, error)) func(xmlrpc.Values) (xmlrpc.Value, error) {
	return func(args xmlrpc.Values) (xmlrpc.Value, error) {
		if len(args) == 0 {
			return nil, &xmlrpc.MethodError{Code: FaultInvalidKey, Message: "[InvalidKey]Key missing"}
		}
		k, ok := args[0].(xmlrpc.String)
		if !ok || (m.key != "" && string(k) != m.key) {
			svrLog.Warningf("Invalid key for method %s", name)
			return nil, &xmlrpc.MethodError{Code: FaultInvalidKey, Message: "[InvalidKey]Invalid key"}
		}
		svrLog.Debugf("Call of method %s received with %d arguments", name, len(args)-1)
		q := xmlrpc.Q(xmlrpc.Array(args[1:]))
		res, err := f(q)
		if err != nil {
			if _, ok := err.(*xmlrpc.MethodError); ok {
				return nil, err
			}
			return nil, &xmlrpc.MethodError{
				Code:    FaultInvalidParameter,
				Message: fmt.Sprintf("[InvalidParameter]%s: %v", name, err),
			}
		}
		return res, nil
	}
}

func argCount(q *xmlrpc.Query, min, max int) error {
	n := len(q.Slice())
	if n < min || n > max {
		if min == max {
			return fmt.Errorf("Expected %d arguments: %d", min, n)
		}
		return fmt.Errorf("Expected %d to %d arguments: %d", min, max, n)
	}
	return nil
}

func notFound(err error) error {
	return &xmlrpc.MethodError{Code: FaultNotFound, Message: "[RecordNotFound]" + err.Error()}
}

func structArg(q *xmlrpc.Query) xmlrpc.Struct {
	s, ok := q.Value().(xmlrpc.Struct)
	if !ok {
		// sets the error
		q.Map()
	}
	return s
}

// DataService.query(table, limit, page, queryData, fields[, orderBy, ascending])
func (m *methods) query(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 5, 7); err != nil {
		return nil, err
	}
	tbl := q.Idx(0).String()
	sq := Query{
		Limit:     q.Idx(1).Int(),
		Page:      q.Idx(2).Int(),
		Filter:    structArg(q.Idx(3)),
		Fields:    q.Idx(4).Strings(),
		Ascending: true,
	}
	if len(q.Slice()) > 5 {
		sq.OrderBy = q.Idx(5).String()
	}
	if len(q.Slice()) > 6 {
		sq.Ascending = q.Idx(6).Bool()
	}
	if q.Err() != nil {
		return nil, q.Err()
	}
	if sq.Limit > 1000 {
		return nil, fmt.Errorf("Limit exceeds 1000: %d", sq.Limit)
	}
	rs, err := m.store.Find(tbl, sq)
	if err != nil {
		return nil, err
	}
	a := make(xmlrpc.Array, len(rs))
	for i, r := range rs {
		a[i] = r
	}
	return a, nil
}

// DataService.count(table, queryData)
func (m *methods) count(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 2, 2); err != nil {
		return nil, err
	}
	tbl := q.Idx(0).String()
	f := structArg(q.Idx(1))
	if q.Err() != nil {
		return nil, q.Err()
	}
	n, err := m.store.Count(tbl, f)
	if err != nil {
		return nil, err
	}
	return xmlrpc.Int(n), nil
}

// DataService.load(table, id, fields)
func (m *methods) load(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 3, 3); err != nil {
		return nil, err
	}
	tbl := q.Idx(0).String()
	id := q.Idx(1).Int()
	fields := q.Idx(2).Strings()
	if q.Err() != nil {
		return nil, q.Err()
	}
	return m.record(tbl, id, fields)
}

func (m *methods) record(tbl string, id int, fields []string) (xmlrpc.Value, error) {
	if _, err := m.store.table(tbl); err != nil {
		return nil, err
	}
	r, err := m.store.Record(tbl, id, fields)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// DataService.add(table, values)
func (m *methods) add(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 2, 2); err != nil {
		return nil, err
	}
	tbl := q.Idx(0).String()
	rec := structArg(q.Idx(1))
	if q.Err() != nil {
		return nil, q.Err()
	}
	id, err := m.store.Insert(tbl, rec)
	if err != nil {
		return nil, err
	}
	return xmlrpc.Int(id), nil
}

// DataService.update(table, id, values)
func (m *methods) update(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 3, 3); err != nil {
		return nil, err
	}
	tbl := q.Idx(0).String()
	id := q.Idx(1).Int()
	rec := structArg(q.Idx(2))
	if q.Err() != nil {
		return nil, q.Err()
	}
	return m.updateRecord(tbl, id, rec)
}

func (m *methods) updateRecord(tbl string, id int, rec xmlrpc.Struct) (xmlrpc.Value, error) {
	if _, err := m.store.table(tbl); err != nil {
		return nil, err
	}
	if err := m.store.Update(tbl, id, rec); err != nil {
		if _, rerr := m.store.Record(tbl, id, nil); rerr != nil {
			return nil, notFound(err)
		}
		return nil, err
	}
	return xmlrpc.Int(id), nil
}

// DataService.delete(table, id)
func (m *methods) delete(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 2, 2); err != nil {
		return nil, err
	}
	tbl := q.Idx(0).String()
	id := q.Idx(1).Int()
	if q.Err() != nil {
		return nil, q.Err()
	}
	if _, err := m.store.table(tbl); err != nil {
		return nil, err
	}
	if err := m.store.Delete(tbl, id); err != nil {
		return nil, notFound(err)
	}
	return xmlrpc.Bool(true), nil
}

// DataService.getAppSetting(module, setting)
func (m *methods) appSetting(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 2, 2); err != nil {
		return nil, err
	}
	module := q.Idx(0).String()
	setting := q.Idx(1).String()
	if q.Err() != nil {
		return nil, q.Err()
	}
	return xmlrpc.String(m.store.AppSetting(module, setting)), nil
}

// ContactService.add(values)
func (m *methods) addContact(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 1, 1); err != nil {
		return nil, err
	}
	rec := structArg(q.Idx(0))
	if q.Err() != nil {
		return nil, q.Err()
	}
	id, err := m.store.Insert("Contact", rec)
	if err != nil {
		return nil, err
	}
	return xmlrpc.Int(id), nil
}

// ContactService.load(id, fields)
func (m *methods) loadContact(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 2, 2); err != nil {
		return nil, err
	}
	id := q.Idx(0).Int()
	fields := q.Idx(1).Strings()
	if q.Err() != nil {
		return nil, q.Err()
	}
	return m.record("Contact", id, fields)
}

// ContactService.update(id, values)
func (m *methods) updateContact(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 2, 2); err != nil {
		return nil, err
	}
	id := q.Idx(0).Int()
	rec := structArg(q.Idx(1))
	if q.Err() != nil {
		return nil, q.Err()
	}
	return m.updateRecord("Contact", id, rec)
}

// ContactService.addToCampaign(contactId, campaignId)
func (m *methods) addToCampaign(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 2, 2); err != nil {
		return nil, err
	}
	contactID := q.Idx(0).Int()
	campaignID := q.Idx(1).Int()
	if q.Err() != nil {
		return nil, q.Err()
	}
	if err := m.store.AddToCampaign(contactID, campaignID); err != nil {
		return nil, notFound(err)
	}
	return xmlrpc.Bool(true), nil
}

// ContactService.removeFromCampaign(contactId, campaignId)
func (m *methods) removeFromCampaign(q *xmlrpc.Query) (xmlrpc.Value, error) {
	if err := argCount(q, 2, 2); err != nil {
		return nil, err
	}
	contactID := q.Idx(0).Int()
	campaignID := q.Idx(1).Int()
	if q.Err() != nil {
		return nil, q.Err()
	}
	ok, err := m.store.RemoveFromCampaign(contactID, campaignID)
	if err != nil {
		return nil, notFound(err)
	}
	return xmlrpc.Bool(ok), nil
}
