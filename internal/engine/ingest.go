package engine

import (
	"context"
	"fmt"

	"github.com/pulsetrace/pulsetrace/internal/models"
)

// MaxBatchSize is the hard cap on records per ingestion call,
// protecting the store from unbounded single-request writes.
const MaxBatchSize = 1000

// Ingest normalizes a batch, submits it to the store as one unordered
// best-effort write, and reconciles the per-record outcomes.
//
// Validation is fail-fast and atomic: one malformed record rejects the
// whole batch before anything is written. Duplicate event_ids are not
// errors; they are dropped as no-ops and counted, so re-submitting a
// batch after a timeout is safe. The first writer always wins -
// duplicates are never merged or overwritten. Any non-duplicate store
// failure aborts with no partial accounting.
func (e *Engine) Ingest(ctx context.Context, raws []models.RawEvent, tc models.TenantContext, md models.RequestMetadata) (models.IngestResult, error) {
	if !tc.Resolved() {
		return models.IngestResult{}, ErrUnauthenticated
	}
	if len(raws) == 0 {
		return models.IngestResult{}, &ValidationError{Index: -1, Field: "events", Reason: "array is required and cannot be empty"}
	}
	if len(raws) > MaxBatchSize {
		return models.IngestResult{}, &CapacityError{
			Limit:  MaxBatchSize,
			Reason: fmt.Sprintf("maximum %d events allowed per request", MaxBatchSize),
		}
	}

	// Normalize everything before any write is attempted.
	// A repeated event_id within the batch is resolved here: the first
	// occurrence is written, later ones count as duplicates.
	batch := make([]models.Event, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	inBatchDuplicates := 0
	for i, raw := range raws {
		ev, err := e.Normalize(raw, tc, md, i)
		if err != nil {
			return models.IngestResult{}, err
		}
		if seen[ev.EventID] {
			inBatchDuplicates++
			continue
		}
		seen[ev.EventID] = true
		batch = append(batch, ev)
	}

	outcomes, err := e.store.InsertMany(ctx, batch)
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("insert events: %w", err)
	}

	inserted := make([]models.Event, 0, len(batch))
	duplicates := inBatchDuplicates
	for i, out := range outcomes {
		if out.Inserted {
			inserted = append(inserted, batch[i])
		} else {
			duplicates++
		}
	}

	e.logger.Info("batch ingested",
		"organization_id", tc.OrganizationID,
		"project_id", tc.ProjectID,
		"total", len(raws),
		"ingested", len(inserted),
		"duplicates", duplicates,
	)

	return models.IngestResult{
		Ingested:   len(inserted),
		Total:      len(raws),
		Duplicates: duplicates,
		Events:     inserted,
	}, nil
}
