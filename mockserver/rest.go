package mockserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdzio/go-keap/xmlrpc"
)

type jsonEmail struct {
	Email string `json:"email"`
	Field string `json:"field"`
}

type jsonPhone struct {
	Number string `json:"number"`
	Field  string `json:"field"`
}

type jsonAddress struct {
	Locality    string `json:"locality,omitempty"`
	Region      string `json:"region,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Field       string `json:"field"`
}

type jsonCompany struct {
	CompanyName string `json:"company_name"`
}

type jsonContact struct {
	ID             int           `json:"id"`
	GivenName      string        `json:"given_name,omitempty"`
	FamilyName     string        `json:"family_name,omitempty"`
	EmailAddresses []jsonEmail   `json:"email_addresses,omitempty"`
	PhoneNumbers   []jsonPhone   `json:"phone_numbers,omitempty"`
	Addresses      []jsonAddress `json:"addresses,omitempty"`
	Company        *jsonCompany  `json:"company,omitempty"`
	TagIDs         []int         `json:"tag_ids,omitempty"`
	DateCreated    *time.Time    `json:"date_created,omitempty"`
	LastUpdated    *time.Time    `json:"last_updated,omitempty"`
}

// query parameters and order names of the REST API
var jsonFieldNames = map[string]string{
	"email":        "Email",
	"given_name":   "FirstName",
	"family_name":  "LastName",
	"id":           "Id",
	"date_created": "DateCreated",
}

func contactToJSON(r xmlrpc.Struct) *jsonContact {
	q := xmlrpc.Q(r)
	c := &jsonContact{
		ID:         q.TryKey("Id").Int(),
		GivenName:  q.TryKey("FirstName").String(),
		FamilyName: q.TryKey("LastName").String(),
	}
	if e := q.TryKey("Email").String(); e != "" {
		c.EmailAddresses = []jsonEmail{{Email: e, Field: "EMAIL1"}}
	}
	if p := q.TryKey("Phone1").String(); p != "" {
		c.PhoneNumbers = []jsonPhone{{Number: p, Field: "PHONE1"}}
	}
	city, state, country := q.TryKey("City").String(), q.TryKey("State").String(), q.TryKey("Country").String()
	if city != "" || state != "" || country != "" {
		c.Addresses = []jsonAddress{{Locality: city, Region: state, CountryCode: country, Field: "BILLING"}}
	}
	if co := q.TryKey("Company").String(); co != "" {
		c.Company = &jsonCompany{CompanyName: co}
	}
	for _, g := range strings.Split(q.TryKey("Groups").String(), ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(g)); err == nil {
			c.TagIDs = append(c.TagIDs, id)
		}
	}
	if t := q.TryKey("DateCreated").Time(); !t.IsZero() {
		c.DateCreated = &t
	}
	if t := q.TryKey("LastUpdated").Time(); !t.IsZero() {
		c.LastUpdated = &t
	}
	return c
}

func contactFromJSON(c *jsonContact) xmlrpc.Struct {
	r := xmlrpc.Struct{}
	set := func(n, v string) {
		if v != "" {
			r[n] = xmlrpc.String(v)
		}
	}
	set("FirstName", c.GivenName)
	set("LastName", c.FamilyName)
	if len(c.EmailAddresses) > 0 {
		set("Email", c.EmailAddresses[0].Email)
	}
	if len(c.PhoneNumbers) > 0 {
		set("Phone1", c.PhoneNumbers[0].Number)
	}
	if len(c.Addresses) > 0 {
		set("City", c.Addresses[0].Locality)
		set("State", c.Addresses[0].Region)
		set("Country", c.Addresses[0].CountryCode)
	}
	if c.Company != nil {
		set("Company", c.Company.CompanyName)
	}
	return r
}

type restAPI struct {
	key   string
	store *Store
}

// RegisterREST registers the contacts resource of the JSON/REST API under
// /v1/contacts. If key is not empty, it must be sent as bearer token.
func RegisterREST(r gin.IRouter, key string, store *Store) {
	a := &restAPI{key: key, store: store}
	v1 := r.Group("/v1", a.authorize)
	{
		v1.GET("/contacts", a.listContacts)
		v1.GET("/contacts/:id", a.getContact)
		v1.POST("/contacts", a.createContact)
		v1.PATCH("/contacts/:id", a.updateContact)
		v1.DELETE("/contacts/:id", a.deleteContact)
	}
}

// NewEngine creates a gin engine serving the XML-RPC endpoint at /api/xmlrpc
// and the REST API below /api/rest.
func NewEngine(key string, store *Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/api/xmlrpc", gin.WrapH(NewHandler(key, store)))
	RegisterREST(r.Group("/api/rest"), key, store)
	return r
}

func (a *restAPI) authorize(c *gin.Context) {
	if a.key == "" {
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+a.key {
		svrLog.Warningf("Invalid access token for %s %s", c.Request.Method, c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid Access Token"})
	}
}

func (a *restAPI) contactID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid contact ID: " + c.Param("id")})
		return 0, false
	}
	return id, true
}

func (a *restAPI) listContacts(c *gin.Context) {
	filter := xmlrpc.Struct{}
	for p, n := range jsonFieldNames {
		if v := c.Query(p); v != "" {
			filter[n] = xmlrpc.String(v)
		}
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "1000"))
	if err != nil || limit <= 0 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid limit: " + c.Query("limit")})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid offset: " + c.Query("offset")})
		return
	}
	q := Query{Filter: filter, Limit: limit, Page: offset / limit, Ascending: true}
	if o := c.Query("order"); o != "" {
		n, ok := jsonFieldNames[o]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order: " + o})
			return
		}
		q.OrderBy = n
		q.Ascending = c.Query("order_direction") != "DESCENDING"
	}
	rs, err := a.store.Find("Contact", q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	n, err := a.store.Count("Contact", filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	cs := make([]*jsonContact, len(rs))
	for i, r := range rs {
		cs[i] = contactToJSON(r)
	}
	c.JSON(http.StatusOK, gin.H{"contacts": cs, "count": n})
}

func (a *restAPI) getContact(c *gin.Context) {
	id, ok := a.contactID(c)
	if !ok {
		return
	}
	r, err := a.store.Record("Contact", id, nil)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contactToJSON(r))
}

func (a *restAPI) createContact(c *gin.Context) {
	var in jsonContact
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid contact: " + err.Error()})
		return
	}
	rec := contactFromJSON(&in)
	if len(rec) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Contact has no fields"})
		return
	}
	id, err := a.store.Insert("Contact", rec)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	r, err := a.store.Record("Contact", id, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, contactToJSON(r))
}

func (a *restAPI) updateContact(c *gin.Context) {
	id, ok := a.contactID(c)
	if !ok {
		return
	}
	var in jsonContact
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid contact: " + err.Error()})
		return
	}
	if err := a.store.Update("Contact", id, contactFromJSON(&in)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	r, err := a.store.Record("Contact", id, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contactToJSON(r))
}

func (a *restAPI) deleteContact(c *gin.Context) {
	id, ok := a.contactID(c)
	if !ok {
		return
	}
	if err := a.store.Delete("Contact", id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
