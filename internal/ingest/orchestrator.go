// Package ingest implements the event ingestion pipeline: validation,
// timestamp normalization, deduplication, persistence, responsible-party
// resolution, notification dispatch and status annotation.
package ingest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/guaxindiba/firenotify/internal/logger"
	"github.com/guaxindiba/firenotify/internal/notify"
	"github.com/guaxindiba/firenotify/internal/observability/metrics"
	"github.com/guaxindiba/firenotify/internal/rowstore"
	"github.com/guaxindiba/firenotify/internal/timefmt"
)

// DuplicateChecker finds an exact-match quadruple in event history.
type DuplicateChecker interface {
	FindDuplicate(ctx context.Context, regionID, timestamp, lat, lng string) (int, bool, error)
}

// Resolver looks up the responsible notification address for a region.
type Resolver interface {
	Resolve(ctx context.Context, regionID string) (string, bool, error)
}

// StageHook observes state-machine transitions. Injected so diagnostics stay
// out of the pipeline logic; nil disables observation.
type StageHook func(requestID string, stage Stage, req *Request)

// Orchestrator sequences one ingestion request end to end. It serves requests
// synchronously; the only internal coordination is the per-region lock around
// the dedup-check/append pair.
type Orchestrator struct {
	cfg        Config
	normalizer *timefmt.Normalizer
	store      rowstore.Store
	checker    DuplicateChecker
	resolver   Resolver
	notifier   notify.Notifier
	metrics    *metrics.Ingest
	log        logger.Logger
	hook       StageHook
	locks      *regionLocks
}

// NewOrchestrator wires the pipeline. metrics and hook may be nil.
func NewOrchestrator(
	cfg Config,
	normalizer *timefmt.Normalizer,
	store rowstore.Store,
	checker DuplicateChecker,
	resolver Resolver,
	notifier notify.Notifier,
	m *metrics.Ingest,
	log logger.Logger,
	hook StageHook,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		normalizer: normalizer,
		store:      store,
		checker:    checker,
		resolver:   resolver,
		notifier:   notifier,
		metrics:    m,
		log:        log,
		hook:       hook,
		locks:      newRegionLocks(),
	}
}

// Handle runs the state machine for one request and returns its structured
// result. Persistence deliberately precedes resolution and notification: the
// event of record must survive a routing or delivery failure, and the
// notified-status column, not the HTTP response, is the source of truth for
// whether an e-mail went out.
func (o *Orchestrator) Handle(ctx context.Context, req Request) Result {
	requestID := uuid.NewString()
	started := time.Now()
	log := o.log.With(
		logger.String("requestId", requestID),
		logger.String("regionId", req.RegionID))

	result := o.run(ctx, requestID, &req, log)

	o.metrics.RecordRequest(string(result.Outcome), time.Since(started).Seconds())
	log.Info("ingest finished",
		logger.String("outcome", string(result.Outcome)),
		logger.Int("status", result.Status),
		logger.Int("row", result.Row))
	return result
}

func (o *Orchestrator) run(ctx context.Context, requestID string, req *Request, log logger.Logger) Result {
	// Validating: nothing touches the store until the request is well formed.
	o.transition(requestID, StageValidating, req)
	if req.RegionID == "" || req.Timestamp == "" || req.Lat == "" || req.Lng == "" {
		return clientError("Missing one or more required params: regionId, timestamp, lat, lng")
	}
	normalized, err := o.normalizer.Normalize(req.Timestamp)
	if err != nil {
		if errors.Is(err, timefmt.ErrInvalidCalendarDate) {
			return clientError("timestamp names an invalid calendar date")
		}
		return clientError("timestamp must be in format dd/mm/yyyy HH:MM[:SS]")
	}

	// Deduplicating + Persisting run under the region lock: a concurrent
	// identical request must not pass the duplicate scan before this one
	// appends.
	release := o.locks.acquire(req.RegionID)

	o.transition(requestID, StageDeduplicating, req)
	dupRow, found, err := o.checker.FindDuplicate(ctx, req.RegionID, normalized, req.Lat, req.Lng)
	if err != nil {
		release()
		log.Error("duplicate scan failed", logger.Error(err))
		return serverError(err.Error())
	}
	if found {
		release()
		return Result{
			Outcome:   OutcomeDuplicateSkipped,
			Status:    http.StatusOK,
			Duplicate: true,
			Message:   "Duplicate event ignored (already notified)",
			RegionID:  req.RegionID,
			Row:       dupRow,
		}
	}

	o.transition(requestID, StagePersisting, req)
	cols := o.cfg.HistoryCols
	row := make([]string, max(cols.Region, cols.Timestamp, cols.Lat, cols.Lng, cols.Notified)+1)
	row[o.cfg.HistoryCols.Region] = req.RegionID
	row[o.cfg.HistoryCols.Timestamp] = normalized
	row[o.cfg.HistoryCols.Lat] = req.Lat
	row[o.cfg.HistoryCols.Lng] = req.Lng
	row[o.cfg.HistoryCols.Notified] = ""
	rowIdx, err := o.store.Append(ctx, o.cfg.HistoryTable, row)
	release()
	if err != nil {
		log.Error("event append failed", logger.Error(err))
		return serverError(err.Error())
	}

	o.transition(requestID, StageResolving, req)
	address, ok, err := o.resolver.Resolve(ctx, req.RegionID)
	if err != nil {
		log.Error("responsible lookup failed", logger.Error(err), logger.Int("row", rowIdx))
		return serverError(err.Error())
	}
	if !ok {
		if err := o.setNotifiedStatus(ctx, rowIdx, StatusNoResponsibleFound); err != nil {
			log.Error("failed to flag unroutable event", logger.Error(err), logger.Int("row", rowIdx))
		}
		return Result{
			Outcome:  OutcomeUnroutable,
			Status:   http.StatusNotFound,
			Error:    "No responsible email found for region",
			RegionID: req.RegionID,
			Row:      rowIdx,
		}
	}

	o.transition(requestID, StageNotifying, req)
	msg := notify.BuildMessage(req.RegionID, normalized, req.Lat, req.Lng)
	if err := o.notifier.Send(ctx, address, msg.Subject, msg.Body); err != nil {
		// Status stays empty on purpose: the persisted-but-unconfirmed
		// event is the flag for manual follow-up.
		log.Error("notification dispatch failed",
			logger.Error(err),
			logger.Int("row", rowIdx),
			logger.String("responsible", address))
		return serverError(err.Error())
	}
	o.metrics.RecordNotification()

	o.transition(requestID, StageFinalizing, req)
	if err := o.setNotifiedStatus(ctx, rowIdx, StatusNotified); err != nil {
		// The e-mail went out but the record does not say so.
		log.Error("failed to mark event notified", logger.Error(err), logger.Int("row", rowIdx))
		return serverError(err.Error())
	}

	return Result{
		Outcome:          OutcomeSuccess,
		Status:           http.StatusOK,
		Message:          "Record stored and email sent",
		RegionID:         req.RegionID,
		Row:              rowIdx,
		ResponsibleEmail: address,
		MapsLink:         msg.MapsLink,
	}
}

func (o *Orchestrator) setNotifiedStatus(ctx context.Context, row int, status string) error {
	return o.store.SetCell(ctx, o.cfg.HistoryTable, row, o.cfg.HistoryCols.Notified, status)
}

func (o *Orchestrator) transition(requestID string, stage Stage, req *Request) {
	o.log.Debug("stage transition",
		logger.String("requestId", requestID),
		logger.String("stage", string(stage)),
		logger.String("regionId", req.RegionID))
	if o.hook != nil {
		o.hook(requestID, stage, req)
	}
}
