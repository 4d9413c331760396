package mockserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdzio/go-keap/xmlrpc"
)

var testNow = time.Date(2024, 3, 1, 12, 30, 15, 0, time.UTC)

func newTestStore() *Store {
	s := NewStore()
	s.Now = func() time.Time { return testNow }
	return s
}

func TestStore_InsertRecord(t *testing.T) {
	s := newTestStore()

	id, err := s.Insert("Contact", xmlrpc.Struct{"FirstName": xmlrpc.String("Ada")})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	id, err = s.Insert("Contact", xmlrpc.Struct{"FirstName": xmlrpc.String("Alan")})
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	r, err := s.Record("Contact", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Struct{
		"Id":          xmlrpc.Int(2),
		"FirstName":   xmlrpc.String("Alan"),
		"DateCreated": xmlrpc.DateTime(testNow),
		"LastUpdated": xmlrpc.DateTime(testNow),
	}, r)

	r, err = s.Record("Contact", 1, []string{"FirstName", "Missing"})
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Struct{"FirstName": xmlrpc.String("Ada")}, r)

	_, err = s.Record("Contact", 3, nil)
	assert.EqualError(t, err, "Record not found in table Contact: 3")
	_, err = s.Insert("Unknown", xmlrpc.Struct{})
	assert.EqualError(t, err, "Unknown table: Unknown")
	_, err = s.Insert("Contact", xmlrpc.Struct{"Id": xmlrpc.Int(5)})
	assert.Error(t, err)
}

func TestStore_UpdateDelete(t *testing.T) {
	s := newTestStore()
	id, err := s.Insert("Product", xmlrpc.Struct{"ProductName": xmlrpc.String("Book")})
	require.NoError(t, err)

	require.NoError(t, s.Update("Product", id, xmlrpc.Struct{"ProductPrice": xmlrpc.Double(9.5)}))
	r, err := s.Record("Product", id, nil)
	require.NoError(t, err)
	assert.Equal(t, xmlrpc.Double(9.5), r["ProductPrice"])
	assert.Equal(t, xmlrpc.String("Book"), r["ProductName"])

	assert.Error(t, s.Update("Product", 99, xmlrpc.Struct{}))
	require.NoError(t, s.Delete("Product", id))
	assert.Error(t, s.Delete("Product", id))
}

func TestStore_Find(t *testing.T) {
	s := newTestStore()
	for _, n := range []string{"Smith", "Miller", "smithers", "Jones"} {
		_, err := s.Insert("Contact", xmlrpc.Struct{"LastName": xmlrpc.String(n)})
		require.NoError(t, err)
	}

	cases := []struct {
		name  string
		query Query
		want  []string
	}{
		{"all", Query{Filter: xmlrpc.Struct{"Id": xmlrpc.String("%")}, Limit: 10}, []string{"Smith", "Miller", "smithers", "Jones"}},
		{"exact", Query{Filter: xmlrpc.Struct{"LastName": xmlrpc.String("Jones")}, Limit: 10}, []string{"Jones"}},
		{"wildcard", Query{Filter: xmlrpc.Struct{"LastName": xmlrpc.String("smith%")}, Limit: 10}, []string{"Smith", "smithers"}},
		{"by id", Query{Filter: xmlrpc.Struct{"Id": xmlrpc.Int(2)}, Limit: 10}, []string{"Miller"}},
		{"no match", Query{Filter: xmlrpc.Struct{"LastName": xmlrpc.String("X%")}, Limit: 10}, nil},
		{"page 1", Query{Limit: 3, Page: 1}, []string{"Jones"}},
		{"beyond", Query{Limit: 3, Page: 5}, nil},
		{"ordered", Query{Limit: 10, OrderBy: "LastName", Ascending: true}, []string{"Jones", "Miller", "Smith", "smithers"}},
		{"descending", Query{Limit: 2, OrderBy: "Id"}, []string{"Jones", "smithers"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rs, err := s.Find("Contact", c.query)
			require.NoError(t, err)
			var names []string
			for _, r := range rs {
				names = append(names, string(r["LastName"].(xmlrpc.String)))
			}
			assert.Equal(t, c.want, names)
		})
	}

	n, err := s.Count("Contact", xmlrpc.Struct{"LastName": xmlrpc.String("%s%")})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = s.Find("Contact", Query{Limit: 0})
	assert.Error(t, err)
	_, err = s.Find("Contact", Query{Limit: 1, Filter: xmlrpc.Struct{"Id": xmlrpc.Array{}}})
	assert.Error(t, err)
}

func TestStore_Campaigns(t *testing.T) {
	s := newTestStore()
	contact, _ := s.Insert("Contact", xmlrpc.Struct{"FirstName": xmlrpc.String("Ada")})
	campaign, _ := s.Insert("Campaign", xmlrpc.Struct{"Name": xmlrpc.String("Welcome")})

	assert.Error(t, s.AddToCampaign(contact, 42))
	assert.Error(t, s.AddToCampaign(42, campaign))
	require.NoError(t, s.AddToCampaign(contact, campaign))
	assert.Equal(t, []int{campaign}, s.Campaigns(contact))

	ok, err := s.RemoveFromCampaign(contact, campaign)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.RemoveFromCampaign(contact, campaign)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.Campaigns(contact))
}

func TestStore_AppSetting(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, "", s.AppSetting("Contact", "optiontypes"))
	s.SetAppSetting("Contact", "optiontypes", "Lead,Customer")
	assert.Equal(t, "Lead,Customer", s.AppSetting("Contact", "optiontypes"))
}
