package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mzurek/go-catalog-sync/config"
	"github.com/mzurek/go-catalog-sync/models"
)

// Execer is the slice of a pgx pool the provisioner needs for the rows
// the REST surface does not expose.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Provisioning steps, in execution order. Names are persisted in the
// carrier state file; do not rename them.
const (
	stepCarrier       = "create_carrier"
	stepWeightRange   = "create_weight_range"
	stepDeliveryPrice = "insert_delivery_price"
	stepCarrierGroups = "insert_carrier_groups"
	stepCarrierZone   = "insert_carrier_zone"
)

var allSteps = []string{stepCarrier, stepWeightRange, stepDeliveryPrice, stepCarrierGroups, stepCarrierZone}

// CarrierProvisioner derives the unique shipping methods referenced by
// sampled product records and provisions them in the target system:
// the carrier itself and its weight bracket over the webservice, the
// delivery price, group visibility, and zone rows over SQL.
type CarrierProvisioner struct {
	cfg    *config.Config
	client *Client
	db     Execer
	ledger *Ledger
	states map[string]*models.CarrierState
}

// NewCarrierProvisioner wires a provisioner. states may come from a
// previous run's state file; nil starts fresh.
func NewCarrierProvisioner(cfg *config.Config, client *Client, db Execer, ledger *Ledger, states map[string]*models.CarrierState) *CarrierProvisioner {
	if states == nil {
		states = map[string]*models.CarrierState{}
	}
	return &CarrierProvisioner{cfg: cfg, client: client, db: db, ledger: ledger, states: states}
}

// CarrierCosts scans all records once and maps each carrier name to a
// representative positive cost for the destination. Pickup-style
// entries at zero cost never become carriers.
func CarrierCosts(records []*models.ProductRecord, destination string) map[string]float64 {
	costs := map[string]float64{}
	for _, record := range records {
		idToName := map[string]string{}
		for _, m := range record.Shipping.Methods {
			idToName[m.ID] = m.Name
		}
		for _, c := range record.Shipping.ByCountry[destination] {
			if c.LowestCost <= 0 {
				continue
			}
			name := c.Name
			if name == "" {
				name = idToName[c.ID]
			}
			if name == "" {
				continue
			}
			costs[name] = c.LowestCost
		}
	}
	return costs
}

// Provision ensures each unique carrier exists with its weight bracket,
// delivery price, group visibility, and zone membership. Carriers are
// processed in name order; each step's completion is recorded per
// carrier, so an interrupted run resumes where it stopped instead of
// duplicating rows. Step failures are logged and recorded, never fatal.
func (cp *CarrierProvisioner) Provision(ctx context.Context, records []*models.ProductRecord) map[string]*models.CarrierState {
	costs := CarrierCosts(records, cp.cfg.DestinationID)
	names := make([]string, 0, len(costs))
	for name := range costs {
		names = append(names, name)
	}
	sort.Strings(names)

	slog.Info("provisioning carriers", slog.Int("count", len(names)))
	for _, name := range names {
		cp.provisionCarrier(ctx, name, costs[name])
	}
	return cp.states
}

func (cp *CarrierProvisioner) provisionCarrier(ctx context.Context, name string, cost float64) {
	st := cp.states[name]
	if st == nil {
		st = &models.CarrierState{Name: name}
		cp.states[name] = st
	}

	if st.CarrierID == 0 && !st.Done(stepCarrier) {
		id, err := cp.client.FindID(ctx, "carriers", map[string]string{"name": name, "deleted": "0"})
		if err != nil {
			cp.stepFailed(name, "lookup", err)
			return
		}
		if id != 0 {
			// Preexisting carrier this run never touched; treat it as
			// fully provisioned rather than stacking duplicate rows.
			st.CarrierID = id
			for _, step := range allSteps {
				st.MarkDone(step)
			}
			slog.Info("carrier already exists",
				slog.String("name", name),
				slog.Int("carrier_id", id))
			return
		}
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{stepCarrier, func() error { return cp.createCarrier(ctx, st) }},
		{stepWeightRange, func() error { return cp.createWeightRange(ctx, st) }},
		{stepDeliveryPrice, func() error { return cp.insertDeliveryPrice(ctx, st, cost) }},
		{stepCarrierGroups, func() error { return cp.insertCarrierGroups(ctx, st) }},
		{stepCarrierZone, func() error { return cp.insertCarrierZone(ctx, st) }},
	}
	for _, step := range steps {
		if st.Done(step.name) {
			continue
		}
		if err := step.run(); err != nil {
			cp.stepFailed(name, step.name, err)
			if step.name == stepCarrier {
				// Nothing downstream can run without a carrier id.
				return
			}
			continue
		}
		st.MarkDone(step.name)
	}
}

func (cp *CarrierProvisioner) stepFailed(carrier, step string, err error) {
	slog.Error("carrier provisioning step failed",
		slog.String("carrier", carrier),
		slog.String("step", step),
		slog.Any("error", err))
	cp.ledger.Fail("carrier", map[string]string{"carrier": carrier, "step": step}, err)
}

func (cp *CarrierProvisioner) createCarrier(ctx context.Context, st *models.CarrierState) error {
	payload := CarrierSchema{
		Name:             st.Name,
		Active:           "1",
		Deleted:          "0",
		ShippingHandling: "0",
		IsFree:           "0",
		ShippingMethod:   "1",
		MaxWidth:         "0",
		MaxHeight:        "0",
		MaxDepth:         "0",
		MaxWeight:        "0",
		Grade:            "0",
		Delay:            lang("Standard delivery"),
	}
	id, err := cp.client.Add(ctx, "carriers", payload)
	if err != nil {
		return err
	}
	st.CarrierID = id
	cp.ledger.AddCarrier(id)
	slog.Info("created carrier",
		slog.String("name", st.Name),
		slog.Int("carrier_id", id))
	return nil
}

func (cp *CarrierProvisioner) createWeightRange(ctx context.Context, st *models.CarrierState) error {
	if st.CarrierID == 0 {
		return fmt.Errorf("carrier id missing")
	}
	payload := WeightRangeSchema{
		CarrierID:  strconv.Itoa(st.CarrierID),
		Delimiter1: "0.000000",
		Delimiter2: "10000.000000",
	}
	id, err := cp.client.Add(ctx, "weight_ranges", payload)
	if err != nil {
		return err
	}
	st.RangeID = id
	return nil
}

func (cp *CarrierProvisioner) insertDeliveryPrice(ctx context.Context, st *models.CarrierState, cost float64) error {
	if st.CarrierID == 0 || st.RangeID == 0 {
		return fmt.Errorf("carrier or weight range id missing")
	}
	if cp.db == nil {
		return fmt.Errorf("administrative sql path not configured")
	}
	_, err := cp.db.Exec(ctx,
		`INSERT INTO ps_delivery (id_carrier, id_range_price, id_range_weight, id_zone, price) VALUES ($1, 0, $2, $3, $4)`,
		st.CarrierID, st.RangeID, cp.cfg.ZoneID, cost)
	return err
}

func (cp *CarrierProvisioner) insertCarrierGroups(ctx context.Context, st *models.CarrierState) error {
	if st.CarrierID == 0 {
		return fmt.Errorf("carrier id missing")
	}
	if cp.db == nil {
		return fmt.Errorf("administrative sql path not configured")
	}
	for _, group := range cp.cfg.CustomerGroups {
		_, err := cp.db.Exec(ctx,
			`INSERT INTO ps_carrier_group (id_carrier, id_group) VALUES ($1, $2)`,
			st.CarrierID, group)
		if err != nil {
			return err
		}
	}
	return nil
}

func (cp *CarrierProvisioner) insertCarrierZone(ctx context.Context, st *models.CarrierState) error {
	if st.CarrierID == 0 {
		return fmt.Errorf("carrier id missing")
	}
	if cp.db == nil {
		return fmt.Errorf("administrative sql path not configured")
	}
	_, err := cp.db.Exec(ctx,
		`INSERT INTO ps_carrier_zone (id_carrier, id_zone) VALUES ($1, $2)`,
		st.CarrierID, cp.cfg.ZoneID)
	return err
}
