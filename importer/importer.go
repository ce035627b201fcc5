package importer

import (
	"context"
	"time"

	"github.com/mzurek/go-catalog-sync/config"
)

// Importer is the per-run import context: the webservice client, the
// entity caches, and the run ledger. Two runs never share state.
type Importer struct {
	cfg     *config.Config
	client  *Client
	caches  *entityCaches
	ledger  *Ledger
	Metrics *Metrics

	now func() time.Time
}

// New builds an importer from configuration.
func New(cfg *config.Config) (*Importer, error) {
	client, err := NewClient(cfg.APIURL, cfg.APIKey, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Importer{
		cfg:     cfg,
		client:  client,
		caches:  newEntityCaches(),
		ledger:  NewLedger(),
		Metrics: NewMetrics(),
		now:     time.Now,
	}, nil
}

// Client exposes the underlying webservice client for code that needs
// raw access, like the carrier provisioner.
func (im *Importer) Client() *Client { return im.client }

// Ledger exposes the run ledger for summary persistence.
func (im *Importer) Ledger() *Ledger { return im.ledger }

// TestConnection issues a cheap read to verify URL and key before
// starting a long run.
func (im *Importer) TestConnection(ctx context.Context) error {
	_, err := im.client.FindID(ctx, "languages", nil)
	return err
}
