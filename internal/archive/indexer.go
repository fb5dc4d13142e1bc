// Package archive indexes delivered content items into Elasticsearch for
// the admin search surface. Indexing is fire-and-forget: a failure is
// logged and never affects dispatch.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
)

const indexTimeout = 10 * time.Second

// Indexer writes delivered items to one Elasticsearch index.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

// Config holds Elasticsearch connection settings.
type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

// NewIndexer creates an archive indexer.
func NewIndexer(cfg Config, log logger.Logger) (*Indexer, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Indexer{client: client, index: cfg.Index, logger: log}, nil
}

type archivedItem struct {
	ExternalID         string    `json:"external_id"`
	SourceID           string    `json:"source_id"`
	Title              string    `json:"title"`
	URL                string    `json:"url"`
	DeliveredAt        time.Time `json:"delivered_at"`
	SucceededPlatforms []string  `json:"succeeded_platforms"`
}

// IndexDelivery stores one delivery record. Errors are logged, not
// returned; the archive is strictly best-effort.
func (ix *Indexer) IndexDelivery(ctx context.Context, record *domain.DeliveryRecord) {
	if ix == nil {
		return
	}

	doc := archivedItem{
		ExternalID:         record.ExternalID,
		SourceID:           record.SourceID,
		Title:              record.Title,
		URL:                record.URL,
		DeliveredAt:        record.DeliveredAt,
		SucceededPlatforms: record.SucceededPlatforms,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		ix.logger.Error("Failed to encode archive document", logger.Error(err))
		return
	}

	indexCtx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	docID := record.SourceID + ":" + record.ExternalID
	res, err := ix.client.Index(
		ix.index,
		&buf,
		ix.client.Index.WithContext(indexCtx),
		ix.client.Index.WithDocumentID(docID),
	)
	if err != nil {
		ix.logger.Error("Archive index request failed",
			logger.String("doc_id", docID),
			logger.Error(err),
		)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		ix.logger.Error("Archive index rejected document",
			logger.String("doc_id", docID),
			logger.String("status", res.Status()),
		)
		return
	}

	ix.logger.Debug("Delivery archived", logger.String("doc_id", docID))
}
