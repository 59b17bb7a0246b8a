// Package executor dispatches the items of an analysis to the remote HCM
// platform and aggregates the outcome into a persisted implementation
// record. Item failures are recorded and skipped over; only a failure to
// obtain a token aborts the run.
package executor

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/confpilot/confpilot/pkg/hcm"
	"github.com/confpilot/confpilot/pkg/pipeline"
	"github.com/confpilot/confpilot/pkg/stores"
	"github.com/confpilot/confpilot/pkg/telemetry"
)

const (
	defaultWorkers     = 4
	defaultItemTimeout = 30 * time.Second
)

// TokenSource issues a bearer token for a connection.
type TokenSource interface {
	Token(ctx context.Context, conn pipeline.Connection) (string, error)
}

// Applier posts one item payload to a named endpoint.
type Applier interface {
	Apply(ctx context.Context, token, endpoint string, payload map[string]string) error
}

// Options tune one executor instance.
type Options struct {
	// Workers bounds concurrent apply calls. 1 means sequential dispatch;
	// zero or negative selects the default.
	Workers int

	// ItemTimeout bounds each individual apply call.
	ItemTimeout time.Duration
}

// Executor runs implementations against a tenant.
type Executor struct {
	tokens  TokenSource
	applier Applier
	db      stores.Store
	opts    Options
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

// New creates an Executor. db may be nil to skip record persistence.
func New(tokens TokenSource, applier Applier, db stores.Store, opts Options,
	logger *telemetry.Logger, metrics *telemetry.Metrics, tracer *telemetry.Tracer) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = defaultItemTimeout
	}
	return &Executor{
		tokens:  tokens,
		applier: applier,
		db:      db,
		opts:    opts,
		logger:  logger.NewComponentLogger("executor"),
		metrics: metrics,
		tracer:  tracer,
	}
}

// Execute applies every item of the analysis to the connection's tenant
// and returns the aggregated record. The record is always returned, never
// raised: a token failure yields a failed record with zero changes, item
// failures are data inside a partial record.
func (e *Executor) Execute(ctx context.Context, conn pipeline.Connection,
	analysis *pipeline.AnalysisResult, versionID string) (*pipeline.ImplementationRecord, error) {
	start := time.Now()
	record := &pipeline.ImplementationRecord{
		ID:           uuid.New().String(),
		VersionID:    versionID,
		ConnectionID: conn.ID,
		CreatedAt:    start.UTC(),
	}

	logger := e.logger.WithImplementationID(record.ID).WithVersionID(versionID)
	e.metrics.ImplementationStarted()

	spanCtx := ctx
	if e.tracer != nil {
		var span trace.Span
		spanCtx, span = e.tracer.StartImplementationSpan(ctx, versionID)
		defer func() {
			if record.Status == pipeline.StatusSuccess {
				telemetry.RecordSuccess(span)
			} else {
				span.SetAttributes(attribute.String("implementation.status", string(record.Status)))
			}
			span.End()
		}()
	}

	token, err := e.tokens.Token(spanCtx, conn)
	if err != nil {
		// Pipeline-level fault: nothing was attempted, nothing will be.
		record.Status = pipeline.StatusFailed
		record.Errors = []pipeline.ItemError{{ItemID: "", Message: err.Error()}}
		logger.WithError(err).Error("token resolution failed, no items attempted")
		e.finish(ctx, record, 0, time.Since(start))
		return record, nil
	}

	applied, itemErrors := e.dispatch(spanCtx, token, analysis.Configurations, logger)

	record.ChangesApplied = applied
	record.Errors = itemErrors
	record.Status = deriveStatus(itemErrors)
	record.Result = resultPayload(analysis, applied, len(itemErrors))

	logger.WithField("status", string(record.Status)).
		WithField("applied", applied).
		WithField("failed", len(itemErrors)).
		Info("implementation finished")

	e.finish(ctx, record, len(itemErrors), time.Since(start))
	return record, nil
}

// dispatch runs the apply calls over a bounded worker pool. Aggregation
// is mutex-guarded; the error list is sorted by item ID afterward so a
// given run always reports failures in the same order.
func (e *Executor) dispatch(ctx context.Context, token string,
	items []pipeline.ConfigurationItem, logger *telemetry.Logger) (int, []pipeline.ItemError) {
	if len(items) == 0 {
		return 0, nil
	}

	workers := e.opts.Workers
	if len(items) < workers {
		workers = len(items)
	}

	work := make(chan pipeline.ConfigurationItem, len(items))
	for _, item := range items {
		work <- item
	}
	close(work)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		applied    int
		itemErrors []pipeline.ItemError
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				// In-flight calls run to completion, but once cancellation
				// is observed no further items are dispatched.
				select {
				case <-ctx.Done():
					return
				default:
				}

				err := e.applyItem(ctx, token, item)

				mu.Lock()
				if err != nil {
					itemErrors = append(itemErrors, pipeline.ItemError{
						ItemID:  item.ID,
						Message: err.Error(),
					})
				} else {
					applied++
				}
				mu.Unlock()

				if err != nil {
					logger.WithItemID(item.ID).WithError(err).Warn("item apply failed")
				}
			}
		}()
	}
	wg.Wait()

	sort.Slice(itemErrors, func(i, j int) bool {
		return itemErrors[i].ItemID < itemErrors[j].ItemID
	})
	return applied, itemErrors
}

// applyItem issues one remote call with a bounded timeout. An expired
// timeout is an item-level failure like any other.
func (e *Executor) applyItem(ctx context.Context, token string, item pipeline.ConfigurationItem) error {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.ItemTimeout)
	defer cancel()

	endpoint := hcm.EndpointFor(item.Type)

	if e.tracer != nil {
		itemCtx, span := e.tracer.StartItemSpan(callCtx, item.ID, endpoint)
		defer span.End()
		err := e.applier.Apply(itemCtx, token, endpoint, item.DataMap())
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		return err
	}

	return e.applier.Apply(callCtx, token, endpoint, item.DataMap())
}

// deriveStatus maps the aggregated outcome to a record status. The
// pipeline-level failed status is assigned at the token step and never
// here: once items were dispatched the run is success or partial.
func deriveStatus(itemErrors []pipeline.ItemError) pipeline.ImplementationStatus {
	if len(itemErrors) == 0 {
		return pipeline.StatusSuccess
	}
	return pipeline.StatusPartial
}

func resultPayload(analysis *pipeline.AnalysisResult, applied, failed int) string {
	payload, err := json.Marshal(map[string]interface{}{
		"estimated_changes": analysis.EstimatedChanges,
		"applied":           applied,
		"failed":            failed,
		"complexity":        analysis.Complexity,
		"risk_level":        analysis.RiskLevel,
	})
	if err != nil {
		return ""
	}
	return string(payload)
}

// finish persists the record and closes out metrics. Persistence failures
// are logged, not surfaced: the caller still receives the record.
func (e *Executor) finish(ctx context.Context, record *pipeline.ImplementationRecord,
	failed int, duration time.Duration) {
	e.metrics.ImplementationFinished(string(record.Status), record.ChangesApplied, failed, duration)

	if e.db == nil {
		return
	}
	if err := e.db.CreateImplementation(ctx, record); err != nil {
		e.logger.WithImplementationID(record.ID).WithError(err).
			Error("failed to persist implementation record")
	}
}
