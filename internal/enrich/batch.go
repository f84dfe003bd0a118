// Package enrich turns the plate-only log into enriched vehicle records.
//
// It backs the deferred-enrichment mode: scanning sessions append bare
// plates to the basic log, and a later batch run resolves each one
// against the registry and moves it into the full log.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"platewatch/internal/anpr"
)

// DefaultPause spaces registry lookups so batch runs do not hammer the
// service.
const DefaultPause = 500 * time.Millisecond

// Enricher drains the basic log through the registry into the full log.
type Enricher struct {
	lookup   anpr.LookupClient
	basic    anpr.BasicLog
	enriched anpr.EnrichedLog
	pause    time.Duration
	status   anpr.StatusSink
	log      *slog.Logger
}

func New(lookup anpr.LookupClient, basic anpr.BasicLog, enriched anpr.EnrichedLog, pause time.Duration, status anpr.StatusSink, log *slog.Logger) *Enricher {
	if pause < 0 {
		pause = DefaultPause
	}
	return &Enricher{
		lookup:   lookup,
		basic:    basic,
		enriched: enriched,
		pause:    pause,
		status:   status,
		log:      log,
	}
}

// Run enriches every plate in the basic log. Plates the registry has no
// data for are persisted as placeholder records rather than retried. The
// basic log is deleted only after every record has been written; a write
// failure aborts the run and leaves the basic log untouched so a later
// run can pick up where this one failed.
func (e *Enricher) Run(ctx context.Context) error {
	plates, err := e.basic.ReadAll()
	if err != nil {
		return fmt.Errorf("enrich: read basic log: %w", err)
	}
	if len(plates) == 0 {
		e.status.Post("Nothing to enrich.")
		e.log.Info("basic log empty, nothing to enrich")
		return nil
	}

	e.log.Info("batch enrichment started", "plates", len(plates))
	for i, plate := range plates {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.status.Post(fmt.Sprintf("[%d/%d] %s", i+1, len(plates), plate))

		rec := e.resolve(ctx, plate)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.enriched.Append(rec); err != nil {
			return fmt.Errorf("enrich: append record for %s: %w", plate, err)
		}

		if i < len(plates)-1 && e.pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.pause):
			}
		}
	}

	if err := e.basic.Delete(); err != nil {
		// The records are safe; a stale basic log only means some
		// plates get re-enriched next run.
		e.log.Warn("basic log cleanup failed", "error", err)
		e.status.Post("Warning: could not clear the basic log.")
	}
	e.status.Post(fmt.Sprintf("Enrichment complete: %d plates processed.", len(plates)))
	e.log.Info("batch enrichment finished", "plates", len(plates))
	return nil
}

func (e *Enricher) resolve(ctx context.Context, plate string) anpr.VehicleRecord {
	rec, err := e.lookup.Lookup(ctx, plate)
	if err != nil {
		if !errors.Is(err, anpr.ErrNotFound) {
			e.log.Warn("registry lookup failed", "plate", plate, "error", err)
		}
		return anpr.NewNotFoundRecord(plate)
	}
	out := *rec
	out.PlateText = plate
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now()
	}
	return out
}
