package mockserver

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdzio/go-keap/xmlrpc"
)

func newTestClient(t *testing.T, key string, store *Store) *xmlrpc.Client {
	srv := httptest.NewServer(NewHandler("secret", store))
	t.Cleanup(srv.Close)
	return &xmlrpc.Client{Addr: srv.URL, Path: "/", Credentials: xmlrpc.StaticToken(key)}
}

func TestHandler_InvalidKey(t *testing.T) {
	c := newTestClient(t, "wrong", newTestStore())
	_, err := c.Call("DataService.count", xmlrpc.Values{xmlrpc.String("Contact"), xmlrpc.Struct{}})
	assert.Equal(t, &xmlrpc.MethodError{Code: FaultInvalidKey, Message: "[InvalidKey]Invalid key"}, err)
}

func TestHandler_DataService(t *testing.T) {
	store := newTestStore()
	c := newTestClient(t, "secret", store)

	v, err := c.Call("DataService.add", xmlrpc.Values{
		xmlrpc.String("Product"),
		xmlrpc.Struct{"ProductName": xmlrpc.String("Book"), "ProductPrice": xmlrpc.Double(12.5)},
	})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Int(1), v)

	v, err = c.Call("DataService.load", xmlrpc.Values{
		xmlrpc.String("Product"), xmlrpc.Int(1), xmlrpc.Array{xmlrpc.String("ProductName")},
	})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Struct{"ProductName": xmlrpc.String("Book")}, v)

	v, err = c.Call("DataService.update", xmlrpc.Values{
		xmlrpc.String("Product"), xmlrpc.Int(1), xmlrpc.Struct{"Sku": xmlrpc.String("B-1")},
	})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Int(1), v)

	v, err = c.Call("DataService.query", xmlrpc.Values{
		xmlrpc.String("Product"), xmlrpc.Int(10), xmlrpc.Int(0),
		xmlrpc.Struct{"Sku": xmlrpc.String("B%")},
		xmlrpc.Array{xmlrpc.String("Id"), xmlrpc.String("Sku")},
	})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Array{xmlrpc.Struct{"Id": xmlrpc.Int(1), "Sku": xmlrpc.String("B-1")}}, v)

	v, err = c.Call("DataService.count", xmlrpc.Values{xmlrpc.String("Product"), xmlrpc.Struct{"Id": xmlrpc.String("%")}})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Int(1), v)

	v, err = c.Call("DataService.delete", xmlrpc.Values{xmlrpc.String("Product"), xmlrpc.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Bool(true), v)

	_, err = c.Call("DataService.delete", xmlrpc.Values{xmlrpc.String("Product"), xmlrpc.Int(1)})
	var me *xmlrpc.MethodError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, FaultNotFound, me.Code)
}

func TestHandler_InvalidParameters(t *testing.T) {
	c := newTestClient(t, "secret", newTestStore())

	cases := []struct {
		method string
		args   xmlrpc.Values
	}{
		{"DataService.count", xmlrpc.Values{xmlrpc.String("Unknown"), xmlrpc.Struct{}}},
		{"DataService.count", xmlrpc.Values{xmlrpc.String("Contact")}},
		{"DataService.load", xmlrpc.Values{xmlrpc.String("Contact"), xmlrpc.String("1"), xmlrpc.Array{}}},
		{"DataService.add", xmlrpc.Values{xmlrpc.String("Contact"), xmlrpc.Array{}}},
		{"DataService.query", xmlrpc.Values{
			xmlrpc.String("Contact"), xmlrpc.Int(1001), xmlrpc.Int(0), xmlrpc.Struct{}, xmlrpc.Array{},
		}},
		{"ContactService.add", xmlrpc.Values{xmlrpc.Struct{"Id": xmlrpc.Int(1)}}},
	}
	for _, cs := range cases {
		_, err := c.Call(cs.method, cs.args)
		var me *xmlrpc.MethodError
		if assert.ErrorAs(t, err, &me, cs.method) {
			assert.Equal(t, FaultInvalidParameter, me.Code, cs.method)
		}
	}
}

func TestHandler_ContactService(t *testing.T) {
	store := newTestStore()
	store.SetAppSetting("Contact", "optiontypes", "Lead")
	c := newTestClient(t, "secret", store)

	v, err := c.Call("ContactService.add", xmlrpc.Values{xmlrpc.Struct{"FirstName": xmlrpc.String("Ada")}})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Int(1), v)

	_, err = c.Call("ContactService.update", xmlrpc.Values{xmlrpc.Int(1), xmlrpc.Struct{"LastName": xmlrpc.String("Lovelace")}})
	require.NoError(t, err)
	_, err = c.Call("ContactService.update", xmlrpc.Values{xmlrpc.Int(2), xmlrpc.Struct{}})
	var me *xmlrpc.MethodError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, FaultNotFound, me.Code)

	v, err = c.Call("ContactService.load", xmlrpc.Values{
		xmlrpc.Int(1), xmlrpc.Array{xmlrpc.String("FirstName"), xmlrpc.String("LastName"), xmlrpc.String("DateCreated")},
	})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Struct{
		"FirstName":   xmlrpc.String("Ada"),
		"LastName":    xmlrpc.String("Lovelace"),
		"DateCreated": xmlrpc.DateTime(testNow),
	}, v)

	_, err = store.Insert("Campaign", xmlrpc.Struct{"Name": xmlrpc.String("Welcome")})
	require.NoError(t, err)
	v, err = c.Call("ContactService.addToCampaign", xmlrpc.Values{xmlrpc.Int(1), xmlrpc.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Bool(true), v)
	assert.Equal(t, []int{1}, store.Campaigns(1))
	v, err = c.Call("ContactService.removeFromCampaign", xmlrpc.Values{xmlrpc.Int(1), xmlrpc.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Bool(true), v)

	v, err = c.Call("DataService.getAppSetting", xmlrpc.Values{xmlrpc.String("Contact"), xmlrpc.String("optiontypes")})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.String("Lead"), v)
}
