package keap

import (
	"errors"
	"fmt"
	"time"

	"github.com/mdzio/go-keap/xmlrpc"
)

// ContactTable is the name of the contact table.
const ContactTable = "Contact"

// ContactFields are the fields retrieved for contacts.
var ContactFields = []string{
	"Id", "FirstName", "LastName", "Email", "Phone1", "Company",
	"City", "State", "Country", "Groups", "DateCreated", "LastUpdated",
}

// Contact is a person in the CRM.
type Contact struct {
	ID        int
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	City      string
	State     string
	Country   string
	// comma separated tag IDs
	Groups      string
	DateCreated time.Time
	LastUpdated time.Time
}

// Name returns the full name.
func (c *Contact) Name() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ReadFrom reads the field values from an xmlrpc.Query.
func (c *Contact) ReadFrom(e *xmlrpc.Query) {
	c.ID = e.TryKey("Id").Int()
	c.FirstName = e.TryKey("FirstName").String()
	c.LastName = e.TryKey("LastName").String()
	c.Email = e.TryKey("Email").String()
	c.Phone = e.TryKey("Phone1").String()
	c.Company = e.TryKey("Company").String()
	c.City = e.TryKey("City").String()
	c.State = e.TryKey("State").String()
	c.Country = e.TryKey("Country").String()
	c.Groups = e.TryKey("Groups").String()
	c.DateCreated = e.TryKey("DateCreated").Time()
	c.LastUpdated = e.TryKey("LastUpdated").Time()
}

// ToValue returns the writable, non-empty fields as xmlrpc.Struct.
func (c *Contact) ToValue() xmlrpc.Struct {
	f := fields{}
	f.str("FirstName", c.FirstName)
	f.str("LastName", c.LastName)
	f.str("Email", c.Email)
	f.str("Phone1", c.Phone)
	f.str("Company", c.Company)
	f.str("City", c.City)
	f.str("State", c.State)
	f.str("Country", c.Country)
	return xmlrpc.Struct(f)
}

// Contacts are the contact operations. They are provided by Service (XML-RPC)
// and RESTContacts (JSON/REST).
type Contacts interface {
	SearchContacts(f Filter, p Page) ([]*Contact, error)
	GetContact(id int) (*Contact, error)
	CreateContact(c *Contact) (int, error)
	UpdateContact(c *Contact) error
	DeleteContact(id int) error
}

// SearchContacts retrieves a page of contacts matching the filter.
func (s *Service) SearchContacts(f Filter, p Page) ([]*Contact, error) {
	e, err := s.query(ContactTable, f, ContactFields, p)
	if err != nil {
		return nil, err
	}
	var r []*Contact
	for _, av := range e.Slice() {
		c := &Contact{}
		c.ReadFrom(av)
		r = append(r, c)
	}
	if e.Err() != nil {
		return nil, fmt.Errorf("Invalid XML response for DataService.query(Contact): %v", e.Err())
	}
	return r, nil
}

// GetContact retrieves a single contact.
func (s *Service) GetContact(id int) (*Contact, error) {
	clnLog.Debugf("Calling method ContactService.load(%d) on %s", id, s.Name)
	e, err := s.call("ContactService.load", id, ContactFields)
	if err != nil {
		return nil, err
	}
	c := &Contact{}
	c.ReadFrom(e)
	if e.Err() != nil {
		return nil, fmt.Errorf("Invalid XML response for ContactService.load: %v", e.Err())
	}
	return c, nil
}

// CreateContact adds a contact and returns its ID.
func (s *Service) CreateContact(c *Contact) (int, error) {
	if c.FirstName == "" && c.LastName == "" && c.Email == "" {
		return 0, errors.New("Contact needs a name or an email address")
	}
	clnLog.Debugf("Calling method ContactService.add(%s) on %s", c.Name(), s.Name)
	e, err := s.call("ContactService.add", c.ToValue())
	if err != nil {
		return 0, err
	}
	id := e.Int()
	if e.Err() != nil {
		return 0, fmt.Errorf("Invalid XML response for ContactService.add: %v", e.Err())
	}
	c.ID = id
	return id, nil
}

// UpdateContact writes the non-empty fields of the contact.
func (s *Service) UpdateContact(c *Contact) error {
	if c.ID == 0 {
		return errors.New("Contact ID missing")
	}
	clnLog.Debugf("Calling method ContactService.update(%d) on %s", c.ID, s.Name)
	e, err := s.call("ContactService.update", c.ID, c.ToValue())
	if err != nil {
		return err
	}
	e.Int()
	if e.Err() != nil {
		return fmt.Errorf("Invalid XML response for ContactService.update: %v", e.Err())
	}
	return nil
}

// DeleteContact deletes a contact.
func (s *Service) DeleteContact(id int) error {
	return s.delete(ContactTable, id)
}

// CountContacts counts the contacts matching the filter.
func (s *Service) CountContacts(f Filter) (int, error) {
	return s.count(ContactTable, f)
}
