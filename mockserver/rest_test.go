package mockserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdzio/go-keap/xmlrpc"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestREST_Unauthorized(t *testing.T) {
	r := NewEngine("secret", newTestStore())
	req := httptest.NewRequest(http.MethodGet, "/api/rest/v1/contacts", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Invalid Access Token"}`, w.Body.String())
}

func TestREST_Contacts(t *testing.T) {
	store := newTestStore()
	r := NewEngine("secret", store)

	w := serve(r, http.MethodPost, "/api/rest/v1/contacts",
		`{"given_name":"Ada","family_name":"Lovelace","email_addresses":[{"email":"ada@example.com","field":"EMAIL1"}],`+
			`"company":{"company_name":"Engines Ltd"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created jsonContact
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "Ada", created.GivenName)
	require.NotNil(t, created.DateCreated)
	assert.True(t, testNow.Equal(*created.DateCreated))

	rec, err := store.Record("Contact", 1, []string{"Email", "Company"})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Struct{
		"Email":   xmlrpc.String("ada@example.com"),
		"Company": xmlrpc.String("Engines Ltd"),
	}, rec)

	w = serve(r, http.MethodPatch, "/api/rest/v1/contacts/1", `{"phone_numbers":[{"number":"555-1","field":"PHONE1"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/rest/v1/contacts/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got jsonContact
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []jsonPhone{{Number: "555-1", Field: "PHONE1"}}, got.PhoneNumbers)
	assert.Equal(t, "Lovelace", got.FamilyName)

	w = serve(r, http.MethodGet, "/api/rest/v1/contacts?email=ada%25&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Contacts []jsonContact `json:"contacts"`
		Count    int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Contacts, 1)
	assert.Equal(t, 1, list.Contacts[0].ID)

	w = serve(r, http.MethodDelete, "/api/rest/v1/contacts/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = serve(r, http.MethodGet, "/api/rest/v1/contacts/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestREST_BadRequests(t *testing.T) {
	r := NewEngine("secret", newTestStore())
	cases := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/rest/v1/contacts/abc", ""},
		{http.MethodGet, "/api/rest/v1/contacts?limit=0", ""},
		{http.MethodGet, "/api/rest/v1/contacts?offset=-1", ""},
		{http.MethodGet, "/api/rest/v1/contacts?order=phone", ""},
		{http.MethodPost, "/api/rest/v1/contacts", "{"},
		{http.MethodPost, "/api/rest/v1/contacts", "{}"},
	}
	for _, c := range cases {
		w := serve(r, c.method, c.path, c.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, c.path)
	}
}

func TestEngine_XMLRPC(t *testing.T) {
	srv := httptest.NewServer(NewEngine("secret", newTestStore()))
	defer srv.Close()
	c := &xmlrpc.Client{Addr: srv.URL, Credentials: xmlrpc.StaticToken("secret")}
	v, err := c.Call("DataService.count", xmlrpc.Values{xmlrpc.String("Contact"), xmlrpc.Struct{"Id": xmlrpc.String("%")}})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Int(0), v)
}
