// Package reconcile is the imperative shell around the pure reconciliation
// engine: it loads periods and transactions from the document store, runs
// the matching pipeline, and persists the resulting mutations with
// fail-soft batch semantics. All side effects of the system live here.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/finpulse/backend/internal/engine"
	"github.com/finpulse/backend/internal/metrics"
	"github.com/finpulse/backend/internal/model"
	"github.com/finpulse/backend/internal/store"
)

const listPageSize = 500

// Summary is the result of one reconciliation batch. A non-empty error
// list does not mean the batch failed: every error is a per-item failure
// and the remaining items were still processed. The caller decides whether
// partial success constitutes an overall failure.
type Summary struct {
	Processed      int      `json:"processed"`
	Matched        int      `json:"matched"`
	PeriodsUpdated int      `json:"periodsUpdated"`
	Errors         []string `json:"errors"`
}

// Orchestrator sequences the reconciliation pipeline over a batch of
// transactions and periods. Processing within a batch is strictly
// sequential: obligation-period claiming must observe prior matches in the
// same batch so two fragments are never assigned to the same period.
type Orchestrator struct {
	store store.Store
	cfg   *engine.Config
	retry RetryConfig
	log   zerolog.Logger
	now   func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRetryConfig overrides the storage-write retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(o *Orchestrator) { o.retry = cfg }
}

// New creates an orchestrator over the given store. cfg may be nil, in
// which case the default engine configuration is used.
func New(st store.Store, cfg *engine.Config, log zerolog.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		cfg = engine.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	o := &Orchestrator{
		store: st,
		cfg:   cfg.Clone(),
		retry: DefaultStorageRetryConfig,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run reconciles every unreconciled transaction for an owner against the
// periods overlapping the given window. The period window should extend a
// few months around the transactions under consideration; the index is
// rebuilt fresh from whatever the store returns, so batching granularity
// is entirely the store's concern.
//
// A returned error means the batch could not start (periods or
// transactions failed to load). Per-item failures never abort the batch;
// they are collected into the summary's error list.
func (o *Orchestrator) Run(ctx context.Context, ownerID string, windowStart, windowEnd time.Time) (*Summary, error) {
	start := o.now()

	periods, err := o.loadPeriods(ctx, ownerID, windowStart, windowEnd)
	if err != nil {
		return nil, &ReconcileError{Code: ErrStorageRead, Message: "failed to load periods", ItemID: ownerID, Retryable: true, Cause: err}
	}
	idx := engine.BuildIndex(periods)

	summary := &Summary{}
	touched := make(map[string]*model.Period)

	pageToken := ""
	for {
		txs, nextToken, err := o.store.ListUnreconciledTransactions(ctx, ownerID, listPageSize, pageToken)
		if err != nil {
			return nil, &ReconcileError{Code: ErrStorageRead, Message: "failed to list transactions", ItemID: ownerID, Retryable: true, Cause: err}
		}
		for _, tx := range txs {
			o.processTransaction(ctx, tx, idx, touched, summary)
		}
		if nextToken == "" {
			break
		}
		pageToken = nextToken
	}

	o.updateTouchedPeriods(ctx, touched, summary)

	metrics.BatchDuration.Observe(o.now().Sub(start).Seconds())
	o.log.Info().
		Str("owner_id", ownerID).
		Int("processed", summary.Processed).
		Int("matched", summary.Matched).
		Int("periods_updated", summary.PeriodsUpdated).
		Int("errors", len(summary.Errors)).
		Msg("reconciliation batch completed")

	return summary, nil
}

func (o *Orchestrator) loadPeriods(ctx context.Context, ownerID string, windowStart, windowEnd time.Time) ([]*model.Period, error) {
	var periods []*model.Period
	pageToken := ""
	for {
		page, nextToken, err := o.store.ListPeriods(ctx, ownerID, "", windowStart, windowEnd, listPageSize, pageToken)
		if err != nil {
			return nil, err
		}
		periods = append(periods, page...)
		if nextToken == "" {
			return periods, nil
		}
		pageToken = nextToken
	}
}

// processTransaction runs the pipeline for one transaction: calendar
// bucketing always happens for every fragment, budget assignment fills
// either a period ID or the explicit unassigned sentinel, and unassigned
// fragments go through fuzzy obligation matching. A failure persisting the
// transaction is recorded and the batch continues.
func (o *Orchestrator) processTransaction(ctx context.Context, tx *model.Transaction, idx *engine.Index, touched map[string]*model.Period, summary *Summary) {
	for _, frag := range tx.Fragments {
		o.assignCalendar(frag, tx, idx)
		o.assignBudget(frag, tx, idx)
		o.matchObligation(ctx, frag, tx, idx, touched, summary)
	}

	err := withRetry(ctx, o.retry, func(ctx context.Context) error {
		return o.store.UpdateTransaction(ctx, tx)
	})
	if err != nil {
		recErr := &ReconcileError{Code: ErrStorageWrite, Message: "failed to persist transaction", ItemID: tx.ID, Retryable: true, Cause: err}
		summary.Errors = append(summary.Errors, recErr.Error())
		metrics.TransactionsProcessed.WithLabelValues("error").Inc()
		o.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("failed to persist transaction")
		return
	}
	summary.Processed++
	metrics.TransactionsProcessed.WithLabelValues("ok").Inc()
}

// assignCalendar stores the containing calendar period of each granularity
// on its own fragment field. A fragment with no containing period of a
// granularity keeps that field unset; calendar buckets have no sentinel.
func (o *Orchestrator) assignCalendar(frag *model.Fragment, tx *model.Transaction, idx *engine.Index) {
	frag.CalendarPeriods.MonthlyID = o.pickCalendar(tx, idx, model.GranularityMonthly, frag.CalendarPeriods.MonthlyID)
	frag.CalendarPeriods.WeeklyID = o.pickCalendar(tx, idx, model.GranularityWeekly, frag.CalendarPeriods.WeeklyID)
	frag.CalendarPeriods.BiWeeklyID = o.pickCalendar(tx, idx, model.GranularityBiWeekly, frag.CalendarPeriods.BiWeeklyID)
}

func (o *Orchestrator) pickCalendar(tx *model.Transaction, idx *engine.Index, gran model.CalendarGranularity, current string) string {
	matches := idx.FindCalendar(tx.Timestamp, gran)
	if len(matches) == 0 {
		return current
	}
	if len(matches) > 1 {
		o.logInconsistency(tx, string(gran), matches)
	}
	return matches[0].ID
}

func (o *Orchestrator) assignBudget(frag *model.Fragment, tx *model.Transaction, idx *engine.Index) {
	if frag.AssignedBudgetID != "" {
		return
	}
	matches := idx.Find(tx.Timestamp, model.PeriodTypeBudget)
	if len(matches) == 0 {
		// Evaluated with no applicable budget: the explicit sentinel
		// distinguishes this from "not yet evaluated".
		frag.AssignedBudgetID = model.BudgetUnassigned
		return
	}
	if len(matches) > 1 {
		o.logInconsistency(tx, "budget", matches)
	}
	frag.AssignedBudgetID = matches[0].ID
}

func (o *Orchestrator) matchObligation(ctx context.Context, frag *model.Fragment, tx *model.Transaction, idx *engine.Index, touched map[string]*model.Period, summary *Summary) {
	if frag.Assigned() {
		return // monotonic assignment: re-matching is a no-op
	}

	// A prior run may have appended the reference and then lost the
	// transaction write. The period side is authoritative: restore the
	// assignment from the existing reference instead of matching the same
	// fragment onto a second period.
	for _, p := range idx.Obligations() {
		if p.HasReference(tx.ID, frag.ID) {
			frag.AssignedObligationID = p.ID
			touched[p.ID] = p
			o.log.Debug().
				Str("transaction_id", tx.ID).
				Str("fragment_id", frag.ID).
				Str("period_id", p.ID).
				Msg("restored fragment assignment from existing reference")
			return
		}
	}

	res := engine.MatchObligation(engine.FragmentInput{
		Amount:       frag.Amount,
		Timestamp:    tx.Timestamp,
		MerchantHint: merchantHint(frag, tx),
	}, idx.OpenObligations(), o.cfg)
	if res == nil {
		return // not an error: retried on a later pass
	}

	period := res.Period
	now := o.now()
	ref := &model.FragmentReference{
		TransactionID:  tx.ID,
		FragmentID:     frag.ID,
		Amount:         frag.Amount,
		Timestamp:      tx.Timestamp,
		Classification: engine.Classify(frag.Amount, tx.Timestamp, period, now, o.cfg),
		MatchedAt:      now,
	}

	err := withRetry(ctx, o.retry, func(ctx context.Context) error {
		_, appendErr := o.store.AppendFragmentReference(ctx, period.ID, ref)
		return appendErr
	})
	if err != nil {
		recErr := &ReconcileError{Code: ErrStorageWrite, Message: "failed to append fragment reference", ItemID: period.ID, Retryable: true, Cause: err}
		if errors.Is(err, store.ErrNotFound) {
			// The matched obligation vanished between load and write:
			// stale period data, skipped rather than fatal.
			recErr.Code = ErrMissingPeriod
			recErr.Retryable = false
			metrics.DataInconsistencies.Inc()
		}
		summary.Errors = append(summary.Errors, recErr.Error())
		o.log.Error().Err(err).Str("period_id", period.ID).Str("fragment_id", frag.ID).Msg("failed to append fragment reference")
		return
	}

	// Claim the period in the in-memory index so no other fragment in this
	// batch can select it, and record the reference for the aggregate
	// recompute. The store already deduplicated on {transactionId,
	// fragmentId}, so a duplicate delivery lands here with the reference
	// in place.
	if !period.HasReference(ref.TransactionID, ref.FragmentID) {
		period.MatchedFragments = append(period.MatchedFragments, ref)
	}
	frag.AssignedObligationID = period.ID
	touched[period.ID] = period

	summary.Matched++
	metrics.FragmentsMatched.WithLabelValues(string(ref.Classification)).Inc()
	o.log.Debug().
		Str("transaction_id", tx.ID).
		Str("fragment_id", frag.ID).
		Str("period_id", period.ID).
		Int("score", res.Score).
		Str("classification", string(ref.Classification)).
		Msg("fragment matched to obligation period")
}

// updateTouchedPeriods recomputes and persists the aggregate of every
// obligation period that gained a reference in this batch. Recompute is a
// pure function of the reference list, so re-running it after a partial
// failure yields the same result.
func (o *Orchestrator) updateTouchedPeriods(ctx context.Context, touched map[string]*model.Period, summary *Summary) {
	for _, period := range touched {
		agg := engine.Recompute(period, period.MatchedFragments, o.now(), o.cfg)
		engine.ApplyAggregate(period, agg)

		err := withRetry(ctx, o.retry, func(ctx context.Context) error {
			return o.store.UpdatePeriod(ctx, period)
		})
		if err != nil {
			recErr := &ReconcileError{Code: ErrStorageWrite, Message: "failed to persist period aggregate", ItemID: period.ID, Retryable: true, Cause: err}
			summary.Errors = append(summary.Errors, recErr.Error())
			o.log.Error().Err(err).Str("period_id", period.ID).Msg("failed to persist period aggregate")
			continue
		}
		summary.PeriodsUpdated++
		metrics.PeriodsUpdated.Inc()
	}
}

// merchantHint prefers the fragment's own hint and falls back to the
// transaction description.
func merchantHint(frag *model.Fragment, tx *model.Transaction) string {
	if frag.MerchantHint != "" {
		return frag.MerchantHint
	}
	return tx.Description
}

func (o *Orchestrator) logInconsistency(tx *model.Transaction, scheme string, matches []*model.Period) {
	metrics.DataInconsistencies.Inc()
	o.log.Warn().
		Str("transaction_id", tx.ID).
		Str("scheme", scheme).
		Int("matches", len(matches)).
		Str("selected_period_id", matches[0].ID).
		Msg("timestamp contained by multiple periods of the same scheme; taking earliest start")
}
