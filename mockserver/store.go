// Package mockserver provides an in-memory CRM data service. It answers the
// XML-RPC methods of the data and contact services and a small JSON/REST
// contacts API. It is used for tests and local development.
package mockserver

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mdzio/go-keap/xmlrpc"
)

// Tables are the tables created by NewStore.
var Tables = []string{"Contact", "ContactAction", "Job", "Product", "Affiliate", "Campaign"}

// A Store holds the records of all tables. Records are XML-RPC structs with
// an Id member.
type Store struct {
	// Now returns the current time. Timestamps are stored with a resolution
	// of one second.
	Now func() time.Time

	mtx         sync.RWMutex
	tables      map[string]*table
	settings    map[string]string    // key: module.setting
	memberships map[int]map[int]bool // key: contact ID, campaign ID
}

type table struct {
	nextID  int
	records map[int]xmlrpc.Struct // key: Id
}

// NewStore creates a store with empty tables.
func NewStore() *Store {
	s := &Store{
		Now:         time.Now,
		tables:      make(map[string]*table),
		settings:    make(map[string]string),
		memberships: make(map[int]map[int]bool),
	}
	for _, n := range Tables {
		s.tables[n] = &table{nextID: 1, records: make(map[int]xmlrpc.Struct)}
	}
	return s
}

func (s *Store) now() xmlrpc.DateTime {
	return xmlrpc.DateTime(s.Now().UTC().Truncate(time.Second))
}

func (s *Store) table(name string) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("Unknown table: %s", name)
	}
	return t, nil
}

// Insert adds a record and returns its ID. DateCreated and LastUpdated are
// set for contacts.
func (s *Store) Insert(tableName string, rec xmlrpc.Struct) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	t, err := s.table(tableName)
	if err != nil {
		return 0, err
	}
	if _, ok := rec["Id"]; ok {
		return 0, fmt.Errorf("Field Id is read only in table %s", tableName)
	}
	id := t.nextID
	t.nextID++
	r := make(xmlrpc.Struct, len(rec)+3)
	for n, v := range rec {
		r[n] = v
	}
	r["Id"] = xmlrpc.Int(id)
	if tableName == "Contact" {
		r["DateCreated"] = s.now()
		r["LastUpdated"] = s.now()
	}
	t.records[id] = r
	return id, nil
}

// Update merges the fields into an existing record.
func (s *Store) Update(tableName string, id int, rec xmlrpc.Struct) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	t, err := s.table(tableName)
	if err != nil {
		return err
	}
	r, ok := t.records[id]
	if !ok {
		return fmt.Errorf("Record not found in table %s: %d", tableName, id)
	}
	if _, ok := rec["Id"]; ok {
		return fmt.Errorf("Field Id is read only in table %s", tableName)
	}
	for n, v := range rec {
		r[n] = v
	}
	if tableName == "Contact" {
		r["LastUpdated"] = s.now()
	}
	return nil
}

// Delete removes a record.
func (s *Store) Delete(tableName string, id int) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	t, err := s.table(tableName)
	if err != nil {
		return err
	}
	if _, ok := t.records[id]; !ok {
		return fmt.Errorf("Record not found in table %s: %d", tableName, id)
	}
	delete(t.records, id)
	if tableName == "Contact" {
		delete(s.memberships, id)
	}
	return nil
}

// Record returns the specified fields of a record. All fields are returned,
// if fields is empty.
func (s *Store) Record(tableName string, id int, fields []string) (xmlrpc.Struct, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	t, err := s.table(tableName)
	if err != nil {
		return nil, err
	}
	r, ok := t.records[id]
	if !ok {
		return nil, fmt.Errorf("Record not found in table %s: %d", tableName, id)
	}
	return project(r, fields), nil
}

// Query describes a selection of records.
type Query struct {
	Filter    xmlrpc.Struct
	Fields    []string
	Limit     int
	Page      int
	OrderBy   string
	Ascending bool
}

// Find returns a page of records matching the filter. String filter values
// may contain % as wildcard. Matching is case insensitive.
func (s *Store) Find(tableName string, q Query) ([]xmlrpc.Struct, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	t, err := s.table(tableName)
	if err != nil {
		return nil, err
	}
	rs, err := t.match(q.Filter)
	if err != nil {
		return nil, err
	}
	orderBy := q.OrderBy
	asc := q.Ascending
	if orderBy == "" {
		orderBy = "Id"
		asc = true
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if asc {
			return less(rs[i][orderBy], rs[j][orderBy])
		}
		return less(rs[j][orderBy], rs[i][orderBy])
	})
	if q.Limit <= 0 || q.Page < 0 {
		return nil, fmt.Errorf("Invalid page %d with limit %d", q.Page, q.Limit)
	}
	start := q.Page * q.Limit
	if start >= len(rs) {
		return []xmlrpc.Struct{}, nil
	}
	end := start + q.Limit
	if end > len(rs) {
		end = len(rs)
	}
	page := make([]xmlrpc.Struct, 0, end-start)
	for _, r := range rs[start:end] {
		page = append(page, project(r, q.Fields))
	}
	return page, nil
}

// Count returns the number of records matching the filter.
func (s *Store) Count(tableName string, filter xmlrpc.Struct) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	t, err := s.table(tableName)
	if err != nil {
		return 0, err
	}
	rs, err := t.match(filter)
	if err != nil {
		return 0, err
	}
	return len(rs), nil
}

// SetAppSetting sets an application setting.
func (s *Store) SetAppSetting(module, setting, value string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.settings[module+"."+setting] = value
}

// AppSetting returns an application setting or an empty string.
func (s *Store) AppSetting(module, setting string) string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.settings[module+"."+setting]
}

// AddToCampaign adds a contact to a campaign.
func (s *Store) AddToCampaign(contactID, campaignID int) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if err := s.exists("Contact", contactID); err != nil {
		return err
	}
	if err := s.exists("Campaign", campaignID); err != nil {
		return err
	}
	m := s.memberships[contactID]
	if m == nil {
		m = make(map[int]bool)
		s.memberships[contactID] = m
	}
	m[campaignID] = true
	return nil
}

// RemoveFromCampaign removes a contact from a campaign. False is returned, if
// the contact is not a member.
func (s *Store) RemoveFromCampaign(contactID, campaignID int) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if err := s.exists("Contact", contactID); err != nil {
		return false, err
	}
	m := s.memberships[contactID]
	if !m[campaignID] {
		return false, nil
	}
	delete(m, campaignID)
	return true, nil
}

// Campaigns returns the sorted campaign IDs of a contact.
func (s *Store) Campaigns(contactID int) []int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	var ids []int
	for id := range s.memberships[contactID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *Store) exists(tableName string, id int) error {
	t, err := s.table(tableName)
	if err != nil {
		return err
	}
	if _, ok := t.records[id]; !ok {
		return fmt.Errorf("Record not found in table %s: %d", tableName, id)
	}
	return nil
}

func (t *table) match(filter xmlrpc.Struct) ([]xmlrpc.Struct, error) {
	type cond struct {
		field string
		re    *regexp.Regexp
	}
	var conds []cond
	for n, v := range filter {
		re, err := pattern(v)
		if err != nil {
			return nil, fmt.Errorf("Invalid filter for field %s: %v", n, err)
		}
		conds = append(conds, cond{n, re})
	}
	var rs []xmlrpc.Struct
next:
	for _, r := range t.records {
		for _, c := range conds {
			if !c.re.MatchString(text(r[c.field])) {
				continue next
			}
		}
		rs = append(rs, r)
	}
	return rs, nil
}

// pattern converts a filter value into an anchored regular expression.
func pattern(v xmlrpc.Value) (*regexp.Regexp, error) {
	switch v.(type) {
	case xmlrpc.Array, xmlrpc.Struct, xmlrpc.Base64:
		return nil, fmt.Errorf("Unsupported filter value: %T", v)
	}
	parts := strings.Split(text(v), "%")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("(?is)^" + strings.Join(parts, ".*") + "$")
}

// text returns the string form of a primitive value. A missing value is an
// empty string.
func text(v xmlrpc.Value) string {
	switch v := v.(type) {
	case xmlrpc.String:
		return string(v)
	case xmlrpc.Int:
		return strconv.Itoa(int(v))
	case xmlrpc.Double:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case xmlrpc.Bool:
		if v {
			return "1"
		}
		return "0"
	case xmlrpc.DateTime:
		return v.Time().Format("2006-01-02 15:04:05")
	}
	return ""
}

func less(a, b xmlrpc.Value) bool {
	switch a := a.(type) {
	case xmlrpc.Int:
		if b, ok := b.(xmlrpc.Int); ok {
			return a < b
		}
	case xmlrpc.Double:
		if b, ok := b.(xmlrpc.Double); ok {
			return a < b
		}
	case xmlrpc.DateTime:
		if b, ok := b.(xmlrpc.DateTime); ok {
			return a.Time().Before(b.Time())
		}
	}
	return strings.ToLower(text(a)) < strings.ToLower(text(b))
}

func project(r xmlrpc.Struct, fields []string) xmlrpc.Struct {
	if len(fields) == 0 {
		p := make(xmlrpc.Struct, len(r))
		for n, v := range r {
			p[n] = v
		}
		return p
	}
	p := make(xmlrpc.Struct, len(fields))
	for _, n := range fields {
		if v, ok := r[n]; ok {
			p[n] = v
		}
	}
	return p
}
