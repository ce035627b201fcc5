package importer

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jarcoal/httpmock"

	"github.com/mzurek/go-catalog-sync/config"
	"github.com/mzurek/go-catalog-sync/models"
)

type recordingExecer struct {
	mu    sync.Mutex
	stmts []string
	args  [][]any
	fail  bool
}

func (r *recordingExecer) Exec(_ context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return pgconn.CommandTag{}, context.DeadlineExceeded
	}
	r.stmts = append(r.stmts, sql)
	r.args = append(r.args, arguments)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func carrierRecords() []*models.ProductRecord {
	shipping := models.ShippingInfo{
		Methods: []models.ShippingMethod{
			{ID: "1", Name: "Odbiór osobisty"},
			{ID: "2", Name: "Kurier"},
			{ID: "3", Name: "Paczkomat"},
		},
		ByCountry: map[string][]models.ShippingCost{
			"179": {
				{ID: "1", Name: "Odbiór osobisty", LowestCost: 0.0},
				{ID: "2", Name: "Kurier", LowestCost: 15.99},
				{ID: "3", Name: "Paczkomat", LowestCost: 9.99},
			},
		},
	}
	return []*models.ProductRecord{
		{ID: "1", Name: "A", Shipping: shipping},
		{ID: "2", Name: "B", Shipping: shipping},
	}
}

func TestCarrierCosts(t *testing.T) {
	costs := CarrierCosts(carrierRecords(), "179")
	if len(costs) != 2 {
		t.Fatalf("carriers = %v, want 2 entries", costs)
	}
	if costs["Kurier"] != 15.99 || costs["Paczkomat"] != 9.99 {
		t.Fatalf("costs = %v", costs)
	}
	if _, ok := costs["Odbiór osobisty"]; ok {
		t.Fatalf("zero-cost pickup must not become a carrier")
	}
}

func newProvisioner(t *testing.T, transport *httpmock.MockTransport, db Execer, states map[string]*models.CarrierState) (*CarrierProvisioner, *Ledger) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.APIURL = testAPI
	cfg.APIKey = "TESTKEY"

	client := newTestClient(t, transport)
	ledger := NewLedger()
	return NewCarrierProvisioner(cfg, client, db, ledger, states), ledger
}

func TestProvisionCreatesAllSteps(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^http://target\.test/api/carriers`,
		httpmock.NewStringResponder(200, `{}`))
	transport.RegisterResponder("POST", `=~^http://target\.test/api/carriers`,
		httpmock.NewStringResponder(201, `{"carrier":{"id":31}}`))
	transport.RegisterResponder("POST", `=~^http://target\.test/api/weight_ranges`,
		httpmock.NewStringResponder(201, `{"weight_range":{"id":41}}`))

	db := &recordingExecer{}
	provisioner, ledger := newProvisioner(t, transport, db, nil)

	states := provisioner.Provision(context.Background(), carrierRecords()[:1])

	st := states["Kurier"]
	if st == nil {
		t.Fatalf("missing state for Kurier, states = %v", states)
	}
	if st.CarrierID != 31 || st.RangeID != 41 {
		t.Fatalf("state ids = %d/%d, want 31/41", st.CarrierID, st.RangeID)
	}
	for _, step := range allSteps {
		if !st.Done(step) {
			t.Fatalf("step %q not marked done: %v", step, st.Completed)
		}
	}

	// Two carriers, each: one delivery row, three group rows, one zone row.
	if got := len(db.stmts); got != 10 {
		t.Fatalf("sql statements = %d, want 10:\n%v", got, db.stmts)
	}

	summary := ledger.Summary()
	if summary.CreatedCarriers != 2 {
		t.Fatalf("created carriers = %d, want 2", summary.CreatedCarriers)
	}
	if summary.FailedOperations != 0 {
		t.Fatalf("failures = %v", summary.Failures)
	}
}

func TestProvisionSkipsExistingCarrier(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^http://target\.test/api/carriers`,
		httpmock.NewStringResponder(200, `{"carriers":[{"id":7}]}`))

	db := &recordingExecer{}
	provisioner, ledger := newProvisioner(t, transport, db, nil)

	states := provisioner.Provision(context.Background(), carrierRecords()[:1])

	st := states["Kurier"]
	if st == nil || st.CarrierID != 7 {
		t.Fatalf("existing carrier id not adopted: %+v", st)
	}
	for _, step := range allSteps {
		if !st.Done(step) {
			t.Fatalf("existing carrier must be treated as fully provisioned")
		}
	}
	if len(db.stmts) != 0 {
		t.Fatalf("no sql must run for existing carriers, got %v", db.stmts)
	}
	if ledger.Summary().CreatedCarriers != 0 {
		t.Fatalf("existing carriers must not count as created")
	}
}

func TestProvisionResumesPartialState(t *testing.T) {
	transport := httpmock.NewMockTransport()
	// The carrier and its weight range already exist from an earlier
	// interrupted run; only the SQL steps remain.
	states := map[string]*models.CarrierState{
		"Kurier": {
			Name:      "Kurier",
			CarrierID: 31,
			RangeID:   41,
			Completed: []string{stepCarrier, stepWeightRange},
		},
		"Paczkomat": {
			Name:      "Paczkomat",
			CarrierID: 32,
			RangeID:   42,
			Completed: []string{stepCarrier, stepWeightRange, stepDeliveryPrice, stepCarrierGroups, stepCarrierZone},
		},
	}

	db := &recordingExecer{}
	provisioner, _ := newProvisioner(t, transport, db, states)

	got := provisioner.Provision(context.Background(), carrierRecords()[:1])

	// Kurier: one delivery, three groups, one zone. Paczkomat: nothing.
	if len(db.stmts) != 5 {
		t.Fatalf("sql statements = %d, want 5:\n%v", len(db.stmts), db.stmts)
	}
	if !got["Kurier"].Done(stepCarrierZone) {
		t.Fatalf("resumed carrier must complete remaining steps")
	}
	// No webservice call was needed at all.
	if info := transport.GetCallCountInfo(); len(info) != 0 {
		t.Fatalf("unexpected webservice calls: %v", info)
	}
}

func TestProvisionRecordsSQLFailures(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^http://target\.test/api/carriers`,
		httpmock.NewStringResponder(200, `{}`))
	transport.RegisterResponder("POST", `=~^http://target\.test/api/carriers`,
		httpmock.NewStringResponder(201, `{"carrier":{"id":31}}`))
	transport.RegisterResponder("POST", `=~^http://target\.test/api/weight_ranges`,
		httpmock.NewStringResponder(201, `{"weight_range":{"id":41}}`))

	db := &recordingExecer{fail: true}
	provisioner, ledger := newProvisioner(t, transport, db, nil)

	states := provisioner.Provision(context.Background(), carrierRecords()[:1])

	st := states["Kurier"]
	if !st.Done(stepCarrier) || !st.Done(stepWeightRange) {
		t.Fatalf("webservice steps must still complete: %v", st.Completed)
	}
	if st.Done(stepDeliveryPrice) || st.Done(stepCarrierZone) {
		t.Fatalf("failed sql steps must not be marked done: %v", st.Completed)
	}
	if ledger.Summary().FailedOperations == 0 {
		t.Fatalf("sql failures must be recorded in the ledger")
	}
}
