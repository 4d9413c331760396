package keap

import (
	"fmt"

	"github.com/mdzio/go-keap/xmlrpc"
)

// CampaignTable is the name of the campaign table.
const CampaignTable = "Campaign"

// CampaignFields are the fields retrieved for campaigns.
var CampaignFields = []string{"Id", "Name", "Status"}

// Campaign is a marketing automation sequence.
type Campaign struct {
	ID     int
	Name   string
	Status string
}

// ReadFrom reads the field values from an xmlrpc.Query.
func (c *Campaign) ReadFrom(e *xmlrpc.Query) {
	c.ID = e.TryKey("Id").Int()
	c.Name = e.TryKey("Name").String()
	c.Status = e.TryKey("Status").String()
}

// SearchCampaigns retrieves a page of campaigns matching the filter.
func (s *Service) SearchCampaigns(f Filter, p Page) ([]*Campaign, error) {
	e, err := s.query(CampaignTable, f, CampaignFields, p)
	if err != nil {
		return nil, err
	}
	var r []*Campaign
	for _, av := range e.Slice() {
		c := &Campaign{}
		c.ReadFrom(av)
		r = append(r, c)
	}
	if e.Err() != nil {
		return nil, fmt.Errorf("Invalid XML response for DataService.query(%s): %v", CampaignTable, e.Err())
	}
	return r, nil
}

// AddToCampaign starts the campaign for a contact.
func (s *Service) AddToCampaign(contactID, campaignID int) error {
	return s.campaignMembership("ContactService.addToCampaign", contactID, campaignID)
}

// RemoveFromCampaign stops the campaign for a contact.
func (s *Service) RemoveFromCampaign(contactID, campaignID int) error {
	return s.campaignMembership("ContactService.removeFromCampaign", contactID, campaignID)
}

func (s *Service) campaignMembership(method string, contactID, campaignID int) error {
	clnLog.Debugf("Calling method %s(%d, %d) on %s", method, contactID, campaignID, s.Name)
	e, err := s.call(method, contactID, campaignID)
	if err != nil {
		return err
	}
	ok := e.Bool()
	if e.Err() != nil {
		return fmt.Errorf("Invalid XML response for %s: %v", method, e.Err())
	}
	if !ok {
		return fmt.Errorf("%s for contact %d and campaign %d failed", method, contactID, campaignID)
	}
	return nil
}
