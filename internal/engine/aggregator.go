package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finpulse/backend/internal/model"
)

// Aggregate is the recomputed derived state of an obligation period.
type Aggregate struct {
	Status          model.PeriodStatus
	AmountPaid      decimal.Decimal
	AmountDue       decimal.Decimal
	ProgressPercent float64
}

// Recompute derives an obligation period's lifecycle status and payment
// progress from its full reference list. It is a pure, total function of
// the inputs: running it twice on the same period and references yields the
// same aggregate, which is what makes recovery from partial failures safe —
// references, not running totals, are authoritative, so a retried batch
// never double-counts.
//
// References are expected to be deduplicated on {transactionId, fragmentId}
// by the storage boundary before they reach this function.
func Recompute(period *model.Period, refs []*model.FragmentReference, now time.Time, cfg *Config) Aggregate {
	amountPaid := decimal.Zero
	for _, ref := range refs {
		amountPaid = amountPaid.Add(ref.Amount)
	}

	amountDue := period.ExpectedAmount.Sub(amountPaid)
	if amountDue.IsNegative() {
		amountDue = decimal.Zero
	}

	return Aggregate{
		Status:          deriveStatus(period, refs, amountPaid, now, cfg),
		AmountPaid:      amountPaid,
		AmountDue:       amountDue,
		ProgressPercent: progressPercent(amountPaid, period.ExpectedAmount, len(refs)),
	}
}

func deriveStatus(period *model.Period, refs []*model.FragmentReference, amountPaid decimal.Decimal, now time.Time, cfg *Config) model.PeriodStatus {
	if len(refs) == 0 {
		return unpaidStatus(period.DueDate, now, cfg)
	}

	// References that net to zero or below (a payment fully reversed by a
	// refund) leave a positive expectation unpaid.
	if period.ExpectedAmount.IsPositive() && !amountPaid.IsPositive() {
		return unpaidStatus(period.DueDate, now, cfg)
	}

	if amountPaid.IsPositive() && amountPaid.LessThan(period.ExpectedAmount) {
		return model.StatusPartial
	}

	// Paid in full (or expected amount is zero). Paid-early requires a due
	// date, every payment at or before it, and at least one strictly
	// before; a fully paid period with any late payment is simply paid.
	if period.DueDate != nil {
		due := *period.DueDate
		allOnTime := true
		anyEarly := false
		for _, ref := range refs {
			if ref.Timestamp.After(due) {
				allOnTime = false
				break
			}
			if ref.Timestamp.Before(due) {
				anyEarly = true
			}
		}
		if allOnTime && anyEarly {
			return model.StatusPaidEarly
		}
	}
	return model.StatusPaid
}

// unpaidStatus classifies a period with no payments by due-date proximity.
func unpaidStatus(dueDate *time.Time, now time.Time, cfg *Config) model.PeriodStatus {
	if dueDate == nil {
		return model.StatusPending
	}
	due := *dueDate
	if due.Before(now) {
		return model.StatusOverdue
	}
	if due.Sub(now) <= time.Duration(cfg.DueSoonWindowDays)*24*time.Hour {
		return model.StatusDueSoon
	}
	return model.StatusPending
}

// progressPercent reports paid progress against the expected amount, capped
// at 100. A zero expected amount counts as fully paid once any reference
// exists.
func progressPercent(amountPaid, expected decimal.Decimal, refCount int) float64 {
	if !expected.IsPositive() {
		if refCount > 0 {
			return 100
		}
		return 0
	}
	pct, _ := amountPaid.Div(expected).Mul(decimal.NewFromInt(100)).Float64()
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// ApplyAggregate copies a recomputed aggregate onto the period document.
func ApplyAggregate(period *model.Period, agg Aggregate) {
	period.Status = agg.Status
	period.AmountPaid = agg.AmountPaid
	period.AmountDue = agg.AmountDue
	period.ProgressPercent = agg.ProgressPercent
}
