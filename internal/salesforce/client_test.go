package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
)

func newTestClient(url string) *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		InstanceURL: url,
		AccessToken: "token",
		Logger:      logger.NewTestLogger(),
	})
}

func TestDescribeGlobal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/sobjects", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"sobjects": []map[string]any{
				{"name": "Account", "label": "Account", "labelPlural": "Accounts", "custom": false, "keyPrefix": "001", "queryable": true, "createable": true, "updateable": true, "deletable": true},
				{"name": "Custom__c", "label": "Custom", "custom": true},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	objects, err := client.DescribeGlobal(context.Background())
	assert.NoError(t, err)
	assert.Len(t, objects, 2)
	assert.Equal(t, "Account", objects[0].Name)
	assert.Equal(t, "001", objects[0].KeyPrefix)
	assert.True(t, objects[1].Custom)
	assert.Contains(t, string(objects[0].Raw), `"keyPrefix"`)
}

func TestDescribeSObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/sobjects/Account/describe", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"name": "Account",
			"fields": []map[string]any{
				{"name": "Id", "label": "Account ID", "type": "id", "length": 18, "nillable": false},
				{"name": "OwnerId", "label": "Owner", "type": "reference", "referenceTo": []string{"User"}, "relationshipName": "Owner"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	detail, err := client.DescribeSObject(context.Background(), "Account")
	assert.NoError(t, err)
	assert.Equal(t, "Account", detail.Name)
	assert.Len(t, detail.Fields, 2)
	assert.Equal(t, []string{"User"}, detail.Fields[1].ReferenceTo)
	assert.Contains(t, string(detail.Fields[0].Raw), `"length"`)
}

func TestQueryPagination(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/services/data/v59.0/query":
			assert.Equal(t, "SELECT Id FROM Account", r.URL.Query().Get("q"))
			json.NewEncoder(w).Encode(map[string]any{
				"totalSize":      3,
				"done":           false,
				"nextRecordsUrl": "/services/data/v59.0/query/01g-2000",
				"records":        []map[string]any{{"Id": "001A"}, {"Id": "001B"}},
			})
		case "/services/data/v59.0/query/01g-2000":
			json.NewEncoder(w).Encode(map[string]any{
				"totalSize": 3,
				"done":      true,
				"records":   []map[string]any{{"Id": "001C"}},
			})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	records, err := client.Query(context.Background(), "SELECT Id FROM Account")
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, records, 3)
	assert.Equal(t, "001C", records[2].GetString("Id"))
}

func TestToolingQueryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode([]map[string]any{
			{"message": "unexpected token", "errorCode": "MALFORMED_QUERY"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.ToolingQuery(context.Background(), "SELECT bogus")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MALFORMED_QUERY")
}

func TestFlowVersionMetadata(t *testing.T) {
	const xml = `<Flow xmlns="http://soap.sforce.com/2006/04/metadata"><status>Active</status></Flow>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/tooling/sobjects/Flow/301xx0000001/Metadata", r.URL.Path)
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		fmt.Fprint(w, xml)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	body, err := client.FlowVersionMetadata(context.Background(), "301xx0000001")
	assert.NoError(t, err)
	assert.Equal(t, xml, body)
}

func TestRecordAccessors(t *testing.T) {
	record := Record{
		"Name":   "Account",
		"Active": true,
		"Count":  float64(3),
		"ActiveVersion": map[string]any{
			"VersionNumber": float64(7),
		},
	}
	assert.Equal(t, "Account", record.GetString("Name"))
	assert.Equal(t, "", record.GetString("Missing"))
	assert.True(t, record.GetBool("Active"))
	assert.Equal(t, 3, record.GetInt("Count"))
	assert.Equal(t, 7, record.GetRecord("ActiveVersion").GetInt("VersionNumber"))
	assert.Nil(t, record.GetRecord("Missing"))
}
