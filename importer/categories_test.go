package importer

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/mzurek/go-catalog-sync/config"
	"github.com/mzurek/go-catalog-sync/models"
)

func newTestImporter(t *testing.T, transport *httpmock.MockTransport) *Importer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.APIURL = testAPI
	cfg.APIKey = "TESTKEY"

	im, err := New(cfg)
	if err != nil {
		t.Fatalf("new importer: %v", err)
	}
	im.client.httpc.Transport = transport
	return im
}

func TestCreateCategoriesMapsAllNodes(t *testing.T) {
	var nextID atomic.Int64
	nextID.Store(100)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", `=~^http://target\.test/api/categories`,
		func(*http.Request) (*http.Response, error) {
			id := nextID.Add(1)
			return httpmock.NewStringResponse(201,
				`{"category":{"id":`+itoa64(id)+`}}`), nil
		})

	forest := []*models.CategoryNode{
		{ID: 1, Name: "Literatura", Children: []*models.CategoryNode{
			{ID: 11, Name: "Powieść"},
			{ID: 12, Name: "Poezja"},
		}},
		{ID: 2, Name: "Historia"},
	}

	im := newTestImporter(t, transport)
	if ok := im.CreateCategories(context.Background(), forest); !ok {
		t.Fatalf("create categories reported failure")
	}

	summary := im.Ledger().Summary()
	if summary.CreatedCategories != 4 {
		t.Fatalf("created = %d, want 4", summary.CreatedCategories)
	}
	if summary.CategoryMappings != 4 {
		t.Fatalf("mappings = %d, want 4", summary.CategoryMappings)
	}
	for _, src := range []int{1, 11, 12, 2} {
		if _, ok := im.Ledger().CategoryID(src); !ok {
			t.Fatalf("missing mapping for source category %d", src)
		}
	}
}

func TestCreateCategoriesFailureSkipsSubtree(t *testing.T) {
	var nextID atomic.Int64
	nextID.Store(200)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", `=~^http://target\.test/api/categories`,
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			if strings.Contains(string(body), "Literatura") {
				return httpmock.NewStringResponse(500, `{}`), nil
			}
			id := nextID.Add(1)
			return httpmock.NewStringResponse(201,
				`{"category":{"id":`+itoa64(id)+`}}`), nil
		})

	forest := []*models.CategoryNode{
		{ID: 1, Name: "Literatura", Children: []*models.CategoryNode{
			{ID: 11, Name: "Powieść"},
		}},
		{ID: 2, Name: "Historia"},
	}

	im := newTestImporter(t, transport)
	if ok := im.CreateCategories(context.Background(), forest); ok {
		t.Fatalf("expected failure to be reported")
	}

	summary := im.Ledger().Summary()
	if summary.CreatedCategories != 1 {
		t.Fatalf("created = %d, want 1 (Historia only)", summary.CreatedCategories)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(summary.Failures))
	}
	if summary.Failures[0].Type != "category" {
		t.Fatalf("failure type = %q, want category", summary.Failures[0].Type)
	}
	// The child of the failed node must never have been attempted.
	if _, ok := im.Ledger().CategoryID(11); ok {
		t.Fatalf("subtree of failed category must be skipped")
	}
	if _, ok := im.Ledger().CategoryID(2); !ok {
		t.Fatalf("sibling of failed category must still be created")
	}
}

func TestCreateCategoriesEmptyForest(t *testing.T) {
	im := newTestImporter(t, httpmock.NewMockTransport())
	if ok := im.CreateCategories(context.Background(), nil); ok {
		t.Fatalf("empty forest must report false")
	}
}

func itoa64(v int64) string {
	return strconv.FormatInt(v, 10)
}
