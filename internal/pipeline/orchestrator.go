package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"platewatch/internal/anpr"
)

// Enrichment modes.
const (
	// ModeLive looks the plate up immediately and appends the enriched log.
	ModeLive = "live"
	// ModeDeferred appends the plate-only basic log for later batch
	// enrichment.
	ModeDeferred = "deferred"
)

// Orchestrator accepts stable plate readings and guarantees at most one
// enrichment per unique valid plate per session.
type Orchestrator struct {
	validator *anpr.PlateValidator
	dedup     *DedupSet
	lookup    anpr.LookupClient
	basic     anpr.BasicLog
	enriched  anpr.EnrichedLog
	mode      string
	status    anpr.StatusSink
	log       *slog.Logger
}

// NewOrchestrator wires the orchestrator. mode is ModeLive or ModeDeferred.
func NewOrchestrator(
	validator *anpr.PlateValidator,
	dedup *DedupSet,
	lookup anpr.LookupClient,
	basic anpr.BasicLog,
	enriched anpr.EnrichedLog,
	mode string,
	status anpr.StatusSink,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		validator: validator,
		dedup:     dedup,
		lookup:    lookup,
		basic:     basic,
		enriched:  enriched,
		mode:      mode,
		status:    status,
		log:       log,
	}
}

// Submit processes one stable plate candidate. It returns true only when
// the text is a valid plate seen for the first time this session; that one
// true triggers the lookup and persistence. Safe for concurrent calls from
// the one-shot and live paths.
func (o *Orchestrator) Submit(ctx context.Context, text string) bool {
	if text == "" || !o.validator.Valid(text) {
		return false
	}

	// Insert-if-absent is the commit point: two concurrent observations
	// of the same plate race here, and exactly one wins.
	if !o.dedup.Add(text) {
		o.log.Debug("duplicate plate ignored", "plate", text)
		return false
	}

	o.log.Info("new valid plate detected", "plate", text, "mode", o.mode)
	o.status.Post(fmt.Sprintf("New plate: %s", text))

	if o.mode == ModeDeferred {
		if err := o.basic.Append(time.Now(), text); err != nil {
			o.log.Warn("basic log append failed", "plate", text, "error", err)
			o.status.Post(fmt.Sprintf("Warning: could not log %s (store busy?)", text))
		}
		return true
	}

	rec := o.enrich(ctx, text)
	if err := o.enriched.Append(rec); err != nil {
		o.log.Warn("enriched log append failed", "plate", text, "error", err)
		o.status.Post(fmt.Sprintf("Warning: could not log %s (store busy?)", text))
		return true
	}
	o.status.Post(fmt.Sprintf("Logged details for %s", text))
	return true
}

// enrich resolves the plate against the registry. A miss or a transient
// lookup failure yields the "Not Found" placeholder; the plate stays
// marked processed either way so failing lookups are not retried per frame.
func (o *Orchestrator) enrich(ctx context.Context, text string) anpr.VehicleRecord {
	rec, err := o.lookup.Lookup(ctx, text)
	switch {
	case errors.Is(err, anpr.ErrNotFound):
		o.log.Info("plate not found in registry", "plate", text)
		return anpr.NewNotFoundRecord(text)
	case err != nil:
		o.log.Warn("lookup failed", "plate", text, "error", err)
		return anpr.NewNotFoundRecord(text)
	}

	rec.PlateText = text
	rec.Timestamp = time.Now()
	return *rec
}

// Reset clears the session dedup state. The durable logs are untouched.
func (o *Orchestrator) Reset() {
	o.dedup.Reset()
	o.log.Info("session dedup state cleared")
}

// Processed returns the number of unique plates handled this session.
func (o *Orchestrator) Processed() int {
	return o.dedup.Len()
}
