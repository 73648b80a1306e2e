package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/pokedex/internal/logging"
	"github.com/google/uuid"
)

// DefaultImportTimeout bounds fetch, mapping and insert once an import
// slot is held. Waiting for the slot is bounded by the limiter's maxWait.
const DefaultImportTimeout = 2 * time.Minute

// ImportResult summarizes a successful bulk import.
type ImportResult struct {
	ImportID string        `json:"import_id"`
	Fetched  int           `json:"fetched"`
	Inserted int           `json:"inserted"`
	FirstID  int64         `json:"first_id,omitempty"`
	LastID   int64         `json:"last_id,omitempty"`
	Duration time.Duration `json:"-"`
}

// Importer copies the external dataset into the store.
type Importer struct {
	store   Store
	source  Source
	limiter *ImportLimiter
	timeout time.Duration
}

// NewImporter creates an Importer. A nil limiter allows one import at a time.
func NewImporter(store Store, source Source, limiter *ImportLimiter, timeout time.Duration) *Importer {
	if limiter == nil {
		limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultImportWait)
	}
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	return &Importer{
		store:   store,
		source:  source,
		limiter: limiter,
		timeout: timeout,
	}
}

// Limiter exposes the import limiter so shutdown can drain it.
func (im *Importer) Limiter() *ImportLimiter {
	return im.limiter
}

// Run fetches the dataset, maps every entry and inserts them all in one
// transaction. Nothing is written unless every entry maps cleanly.
//
// There is no duplicate detection: each run appends a full copy with fresh
// ids continuing from the current maximum.
func (im *Importer) Run(ctx context.Context) (ImportResult, error) {
	if err := im.limiter.Acquire(ctx); err != nil {
		return ImportResult{}, err
	}
	defer im.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, im.timeout)
	defer cancel()

	start := time.Now()
	importID := uuid.New().String()
	logger := logging.WithFields(ctx,
		"import_id", importID,
		"source", im.source.Name(),
	)
	logger.Info("import started")

	external, err := im.source.Fetch(ctx)
	if err != nil {
		logger.Error("import fetch failed", "error", err)
		return ImportResult{}, err
	}
	logger.Info("data fetched", "entries", len(external))

	fields := make([]Fields, 0, len(external))
	for i, rec := range external {
		f, err := MapExternal(i, rec)
		if err != nil {
			logger.Error("import mapping failed", "error", err)
			return ImportResult{}, err
		}
		fields = append(fields, f)
	}

	res, err := im.store.BulkCreate(ctx, fields)
	if err != nil {
		logger.Error("import insert failed", "error", err)
		return ImportResult{}, fmt.Errorf("import %s: %w", importID, err)
	}

	result := ImportResult{
		ImportID: importID,
		Fetched:  len(external),
		Inserted: res.Inserted,
		FirstID:  res.FirstID,
		LastID:   res.LastID,
		Duration: time.Since(start),
	}
	logger.Info("import completed",
		"inserted", result.Inserted,
		"first_id", result.FirstID,
		"last_id", result.LastID,
		"duration", result.Duration,
	)
	return result, nil
}
