package keap

import (
	"fmt"
	"time"

	"github.com/mdzio/go-keap/xmlrpc"
)

// OrderTable is the name of the order table.
const OrderTable = "Job"

// OrderFields are the fields retrieved for orders.
var OrderFields = []string{
	"Id", "JobTitle", "ContactId", "ProductId", "JobStatus", "OrderType",
	"JobNotes", "DateCreated", "StartDate", "DueDate",
}

// Order is a purchase of a contact.
type Order struct {
	ID          int
	Title       string
	ContactID   int
	ProductID   int
	Status      string
	Type        string
	Notes       string
	DateCreated time.Time
	StartDate   time.Time
	DueDate     time.Time
}

// ReadFrom reads the field values from an xmlrpc.Query.
func (o *Order) ReadFrom(e *xmlrpc.Query) {
	o.ID = e.TryKey("Id").Int()
	o.Title = e.TryKey("JobTitle").String()
	o.ContactID = e.TryKey("ContactId").Int()
	o.ProductID = e.TryKey("ProductId").Int()
	o.Status = e.TryKey("JobStatus").String()
	o.Type = e.TryKey("OrderType").String()
	o.Notes = e.TryKey("JobNotes").String()
	o.DateCreated = e.TryKey("DateCreated").Time()
	o.StartDate = e.TryKey("StartDate").Time()
	o.DueDate = e.TryKey("DueDate").Time()
}

// SearchOrders retrieves a page of orders matching the filter.
func (s *Service) SearchOrders(f Filter, p Page) ([]*Order, error) {
	e, err := s.query(OrderTable, f, OrderFields, p)
	if err != nil {
		return nil, err
	}
	var r []*Order
	for _, av := range e.Slice() {
		o := &Order{}
		o.ReadFrom(av)
		r = append(r, o)
	}
	if e.Err() != nil {
		return nil, fmt.Errorf("Invalid XML response for DataService.query(%s): %v", OrderTable, e.Err())
	}
	return r, nil
}

// GetOrder retrieves a single order.
func (s *Service) GetOrder(id int) (*Order, error) {
	e, err := s.load(OrderTable, id, OrderFields)
	if err != nil {
		return nil, err
	}
	o := &Order{}
	o.ReadFrom(e)
	if e.Err() != nil {
		return nil, fmt.Errorf("Invalid XML response for DataService.load(%s): %v", OrderTable, e.Err())
	}
	return o, nil
}
