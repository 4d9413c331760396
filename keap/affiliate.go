package keap

import (
	"errors"
	"fmt"

	"github.com/mdzio/go-keap/xmlrpc"
)

// AffiliateTable is the name of the affiliate table.
const AffiliateTable = "Affiliate"

// AffiliateFields are the fields retrieved for affiliates.
var AffiliateFields = []string{"Id", "ContactId", "AffCode", "AffName", "ParentId", "Status"}

// Affiliate is a contact promoting products for commission.
type Affiliate struct {
	ID        int
	ContactID int
	Code      string
	Name      string
	ParentID  int
	Active    bool
}

// ReadFrom reads the field values from an xmlrpc.Query.
func (a *Affiliate) ReadFrom(e *xmlrpc.Query) {
	a.ID = e.TryKey("Id").Int()
	a.ContactID = e.TryKey("ContactId").Int()
	a.Code = e.TryKey("AffCode").String()
	a.Name = e.TryKey("AffName").String()
	a.ParentID = e.TryKey("ParentId").Int()
	a.Active = e.TryKey("Status").Int() == 1
}

// ToValue returns the writable fields as xmlrpc.Struct.
func (a *Affiliate) ToValue() xmlrpc.Struct {
	f := fields{}
	f.int("ContactId", a.ContactID)
	f.str("AffCode", a.Code)
	f.str("AffName", a.Name)
	f.int("ParentId", a.ParentID)
	if a.Active {
		f["Status"] = xmlrpc.Int(1)
	} else {
		f["Status"] = xmlrpc.Int(0)
	}
	return xmlrpc.Struct(f)
}

// SearchAffiliates retrieves a page of affiliates matching the filter.
func (s *Service) SearchAffiliates(f Filter, p Page) ([]*Affiliate, error) {
	e, err := s.query(AffiliateTable, f, AffiliateFields, p)
	if err != nil {
		return nil, err
	}
	var r []*Affiliate
	for _, av := range e.Slice() {
		a := &Affiliate{}
		a.ReadFrom(av)
		r = append(r, a)
	}
	if e.Err() != nil {
		return nil, fmt.Errorf("Invalid XML response for DataService.query(%s): %v", AffiliateTable, e.Err())
	}
	return r, nil
}

// CreateAffiliate adds an affiliate and returns its ID.
func (s *Service) CreateAffiliate(a *Affiliate) (int, error) {
	if a.ContactID == 0 || a.Code == "" {
		return 0, errors.New("Affiliate needs a contact and a code")
	}
	id, err := s.add(AffiliateTable, a.ToValue())
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}
