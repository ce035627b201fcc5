package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// FailureRecord captures one rejected create together with its original
// input, so a summary dump is enough to reconcile or re-run by hand.
type FailureRecord struct {
	Type  string `json:"type"`
	Data  any    `json:"data"`
	Error string `json:"error"`
}

// Summary is the end-of-run document: created ids plus every recorded
// failure. A run that "completed" may still carry failures here.
type Summary struct {
	CreatedCategories int             `json:"created_categories"`
	CreatedProducts   int             `json:"created_products"`
	CreatedCarriers   int             `json:"created_carriers"`
	FailedOperations  int             `json:"failed_operations"`
	CategoryMappings  int             `json:"category_id_mappings"`
	CategoryIDs       []int           `json:"category_ids"`
	ProductIDs        []int           `json:"product_ids"`
	CarrierIDs        []int           `json:"carrier_ids,omitempty"`
	Failures          []FailureRecord `json:"failures"`
}

// Save writes the summary document.
func (s *Summary) Save(path string) error {
	return writeJSON(path, s)
}

// CarrierState is the resumable provisioning record for one carrier.
// Completed lists the provisioning steps that finished, in order, so a
// later run can pick up a partially provisioned carrier instead of
// leaving it silently inconsistent.
type CarrierState struct {
	Name      string   `json:"name"`
	CarrierID int      `json:"carrier_id,omitempty"`
	RangeID   int      `json:"range_id,omitempty"`
	Completed []string `json:"completed,omitempty"`
}

// Done reports whether a step already completed for this carrier.
func (cs *CarrierState) Done(step string) bool {
	for _, s := range cs.Completed {
		if s == step {
			return true
		}
	}
	return false
}

// MarkDone records a completed step, once.
func (cs *CarrierState) MarkDone(step string) {
	if !cs.Done(step) {
		cs.Completed = append(cs.Completed, step)
	}
}

// SaveCarrierStates persists provisioning state keyed by carrier name.
func SaveCarrierStates(path string, states map[string]*CarrierState) error {
	return writeJSON(path, states)
}

// LoadCarrierStates reads provisioning state written by a previous run.
// A missing file yields an empty map.
func LoadCarrierStates(path string) (map[string]*CarrierState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]*CarrierState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read carrier state file: %w", err)
	}
	states := map[string]*CarrierState{}
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("decode carrier state file %s: %w", path, err)
	}
	return states, nil
}
