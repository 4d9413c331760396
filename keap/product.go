package keap

import (
	"errors"
	"fmt"

	"github.com/mdzio/go-keap/xmlrpc"
)

// ProductTable is the name of the product table.
const ProductTable = "Product"

// ProductFields are the fields retrieved for products.
var ProductFields = []string{"Id", "ProductName", "ProductPrice", "Sku", "ShortDescription", "Status", "Taxable"}

// Product statuses
const (
	ProductInactive = 0
	ProductActive   = 1
)

// Product is an article for sale.
type Product struct {
	ID          int
	Name        string
	Price       float64
	SKU         string
	Description string
	Status      int
	Taxable     bool
}

// ReadFrom reads the field values from an xmlrpc.Query.
func (p *Product) ReadFrom(e *xmlrpc.Query) {
	p.ID = e.TryKey("Id").Int()
	p.Name = e.TryKey("ProductName").String()
	p.Price = e.TryKey("ProductPrice").Float64()
	p.SKU = e.TryKey("Sku").String()
	p.Description = e.TryKey("ShortDescription").String()
	p.Status = e.TryKey("Status").Int()
	p.Taxable = e.TryKey("Taxable").Int() != 0
}

// ToValue returns the writable fields as xmlrpc.Struct.
func (p *Product) ToValue() xmlrpc.Struct {
	f := fields{}
	f.str("ProductName", p.Name)
	f.str("Sku", p.SKU)
	f.str("ShortDescription", p.Description)
	f["ProductPrice"] = xmlrpc.Double(p.Price)
	f["Status"] = xmlrpc.Int(p.Status)
	if p.Taxable {
		f["Taxable"] = xmlrpc.Int(1)
	} else {
		f["Taxable"] = xmlrpc.Int(0)
	}
	return xmlrpc.Struct(f)
}

// SearchProducts retrieves a page of products matching the filter.
func (s *Service) SearchProducts(f Filter, p Page) ([]*Product, error) {
	e, err := s.query(ProductTable, f, ProductFields, p)
	if err != nil {
		return nil, err
	}
	var r []*Product
	for _, av := range e.Slice() {
		pr := &Product{}
		pr.ReadFrom(av)
		r = append(r, pr)
	}
	if e.Err() != nil {
		return nil, fmt.Errorf("Invalid XML response for DataService.query(%s): %v", ProductTable, e.Err())
	}
	return r, nil
}

// CreateProduct adds a product and returns its ID.
func (s *Service) CreateProduct(p *Product) (int, error) {
	if p.Name == "" {
		return 0, errors.New("Product name missing")
	}
	if p.Price < 0 {
		return 0, fmt.Errorf("Invalid product price: %g", p.Price)
	}
	id, err := s.add(ProductTable, p.ToValue())
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

// UpdateProduct writes all writable fields of the product.
func (s *Service) UpdateProduct(p *Product) error {
	if p.ID == 0 {
		return errors.New("Product ID missing")
	}
	return s.update(ProductTable, p.ID, p.ToValue())
}

// DeleteProduct deletes a product.
func (s *Service) DeleteProduct(id int) error {
	return s.delete(ProductTable, id)
}
