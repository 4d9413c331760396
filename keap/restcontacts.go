package keap

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mdzio/go-keap/rest"
)

// RESTContactsPath is the resource path of contacts in the REST API.
const RESTContactsPath = "/v1/contacts"

// RESTContacts provides the contact operations over the JSON/REST API.
type RESTContacts struct {
	*rest.Client
}

type restEmail struct {
	Email string `json:"email"`
	Field string `json:"field"`
}

type restPhone struct {
	Number string `json:"number"`
	Field  string `json:"field"`
}

type restAddress struct {
	Locality    string `json:"locality,omitempty"`
	Region      string `json:"region,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Field       string `json:"field"`
}

type restCompany struct {
	CompanyName string `json:"company_name"`
}

type restContact struct {
	ID             int           `json:"id,omitempty"`
	GivenName      string        `json:"given_name,omitempty"`
	FamilyName     string        `json:"family_name,omitempty"`
	EmailAddresses []restEmail   `json:"email_addresses,omitempty"`
	PhoneNumbers   []restPhone   `json:"phone_numbers,omitempty"`
	Addresses      []restAddress `json:"addresses,omitempty"`
	Company        *restCompany  `json:"company,omitempty"`
	TagIDs         []int         `json:"tag_ids,omitempty"`
	DateCreated    *time.Time    `json:"date_created,omitempty"`
	LastUpdated    *time.Time    `json:"last_updated,omitempty"`
}

type restContactList struct {
	Contacts []*restContact `json:"contacts"`
	Count    int            `json:"count"`
}

func toRESTContact(c *Contact) *restContact {
	r := &restContact{
		GivenName:  c.FirstName,
		FamilyName: c.LastName,
	}
	if c.Email != "" {
		r.EmailAddresses = []restEmail{{Email: c.Email, Field: "EMAIL1"}}
	}
	if c.Phone != "" {
		r.PhoneNumbers = []restPhone{{Number: c.Phone, Field: "PHONE1"}}
	}
	if c.City != "" || c.State != "" || c.Country != "" {
		r.Addresses = []restAddress{{Locality: c.City, Region: c.State, CountryCode: c.Country, Field: "BILLING"}}
	}
	if c.Company != "" {
		r.Company = &restCompany{CompanyName: c.Company}
	}
	return r
}

func (r *restContact) toContact() *Contact {
	c := &Contact{
		ID:        r.ID,
		FirstName: r.GivenName,
		LastName:  r.FamilyName,
	}
	if len(r.EmailAddresses) > 0 {
		c.Email = r.EmailAddresses[0].Email
	}
	if len(r.PhoneNumbers) > 0 {
		c.Phone = r.PhoneNumbers[0].Number
	}
	if len(r.Addresses) > 0 {
		c.City = r.Addresses[0].Locality
		c.State = r.Addresses[0].Region
		c.Country = r.Addresses[0].CountryCode
	}
	if r.Company != nil {
		c.Company = r.Company.CompanyName
	}
	for i, id := range r.TagIDs {
		if i > 0 {
			c.Groups += ","
		}
		c.Groups += strconv.Itoa(id)
	}
	if r.DateCreated != nil {
		c.DateCreated = *r.DateCreated
	}
	if r.LastUpdated != nil {
		c.LastUpdated = *r.LastUpdated
	}
	return c
}

// filter names of the REST API
var restFilterNames = map[string]string{
	"Email":     "email",
	"FirstName": "given_name",
	"LastName":  "family_name",
}

// order names of the REST API
var restOrderNames = map[string]string{
	"Id":          "id",
	"Email":       "email",
	"FirstName":   "given_name",
	"LastName":    "family_name",
	"DateCreated": "date_created",
}

// SearchContacts implements Contacts.
func (r RESTContacts) SearchContacts(f Filter, p Page) ([]*Contact, error) {
	q := url.Values{}
	for n, v := range f {
		rn, ok := restFilterNames[n]
		if !ok {
			return nil, fmt.Errorf("Filter field not supported by REST API: %s", n)
		}
		q.Set(rn, fmt.Sprint(v))
	}
	q.Set("limit", strconv.Itoa(p.size()))
	q.Set("offset", strconv.Itoa(p.Number*p.size()))
	if p.OrderBy != "" {
		on, ok := restOrderNames[p.OrderBy]
		if !ok {
			return nil, fmt.Errorf("Order field not supported by REST API: %s", p.OrderBy)
		}
		q.Set("order", on)
		if p.Descending {
			q.Set("order_direction", "DESCENDING")
		} else {
			q.Set("order_direction", "ASCENDING")
		}
	}
	clnLog.Debugf("Searching contacts via REST: %s", q.Encode())
	var l restContactList
	if err := r.Get(RESTContactsPath, q, &l); err != nil {
		return nil, err
	}
	var cs []*Contact
	for _, rc := range l.Contacts {
		cs = append(cs, rc.toContact())
	}
	return cs, nil
}

// GetContact implements Contacts.
func (r RESTContacts) GetContact(id int) (*Contact, error) {
	clnLog.Debugf("Retrieving contact %d via REST", id)
	var rc restContact
	if err := r.Get(RESTContactsPath+"/"+strconv.Itoa(id), nil, &rc); err != nil {
		return nil, err
	}
	return rc.toContact(), nil
}

// CreateContact implements Contacts.
func (r RESTContacts) CreateContact(c *Contact) (int, error) {
	if c.FirstName == "" && c.LastName == "" && c.Email == "" {
		return 0, errors.New("Contact needs a name or an email address")
	}
	clnLog.Debugf("Creating contact %s via REST", c.Name())
	var rc restContact
	if err := r.Post(RESTContactsPath, toRESTContact(c), &rc); err != nil {
		return 0, err
	}
	if rc.ID == 0 {
		return 0, errors.New("Invalid REST response for contact creation: ID missing")
	}
	c.ID = rc.ID
	return rc.ID, nil
}

// UpdateContact implements Contacts.
func (r RESTContacts) UpdateContact(c *Contact) error {
	if c.ID == 0 {
		return errors.New("Contact ID missing")
	}
	clnLog.Debugf("Updating contact %d via REST", c.ID)
	return r.Patch(RESTContactsPath+"/"+strconv.Itoa(c.ID), toRESTContact(c), nil)
}

// DeleteContact implements Contacts.
func (r RESTContacts) DeleteContact(id int) error {
	clnLog.Debugf("Deleting contact %d via REST", id)
	return r.Delete(RESTContactsPath + "/" + strconv.Itoa(id))
}
