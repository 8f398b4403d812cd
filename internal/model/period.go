package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodType discriminates the three period variants.
type PeriodType string

const (
	PeriodTypeCalendar   PeriodType = "calendar"
	PeriodTypeBudget     PeriodType = "budget"
	PeriodTypeObligation PeriodType = "obligation"
)

// CalendarGranularity identifies which calendar bucketing scheme a calendar
// period belongs to. Granularities overlap with one another, so a timestamp
// may fall into one period of each granularity at the same time.
type CalendarGranularity string

const (
	GranularityMonthly  CalendarGranularity = "monthly"
	GranularityWeekly   CalendarGranularity = "weekly"
	GranularityBiWeekly CalendarGranularity = "biweekly"
)

// PeriodStatus is the lifecycle status of an obligation period, derived from
// its matched fragment references.
type PeriodStatus string

const (
	StatusPending   PeriodStatus = "pending"
	StatusDueSoon   PeriodStatus = "due_soon"
	StatusPartial   PeriodStatus = "partial"
	StatusPaid      PeriodStatus = "paid"
	StatusPaidEarly PeriodStatus = "paid_early"
	StatusOverdue   PeriodStatus = "overdue"
)

// Period is a tagged union over the three period variants. Type selects the
// variant; Granularity is meaningful only for calendar periods, and the
// obligation fields (DueDate, ExpectedAmount, MerchantHint, MatchedFragments
// and the derived aggregate) only for obligation periods.
//
// Within one type and owner scope, intervals are contiguous and
// non-overlapping. The aggregate fields (Status, AmountPaid, AmountDue,
// ProgressPercent) are derived from MatchedFragments and recomputable at any
// time; MatchedFragments is the authoritative record.
type Period struct {
	ID            string
	OwnerID       string
	Type          PeriodType
	Granularity   CalendarGranularity
	Name          string
	IntervalStart time.Time
	IntervalEnd   time.Time

	// Obligation variant fields.
	DueDate          *time.Time
	ExpectedAmount   decimal.Decimal
	MerchantHint     string
	MatchedFragments []*FragmentReference
	Status           PeriodStatus
	AmountPaid       decimal.Decimal
	AmountDue        decimal.Decimal
	ProgressPercent  float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether ts falls inside the period's closed interval.
// Both bounds are inclusive.
func (p *Period) Contains(ts time.Time) bool {
	return !ts.Before(p.IntervalStart) && !ts.After(p.IntervalEnd)
}

// IsClaimed reports whether an obligation period already holds at least one
// fragment reference. A claimed period is excluded from fuzzy matching.
func (p *Period) IsClaimed() bool {
	return len(p.MatchedFragments) > 0
}

// HasReference reports whether the period already holds a reference for the
// given transaction fragment.
func (p *Period) HasReference(transactionID, fragmentID string) bool {
	for _, ref := range p.MatchedFragments {
		if ref.TransactionID == transactionID && ref.FragmentID == fragmentID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the period.
func (p *Period) Clone() *Period {
	cp := *p
	if p.DueDate != nil {
		due := *p.DueDate
		cp.DueDate = &due
	}
	if p.MatchedFragments != nil {
		cp.MatchedFragments = make([]*FragmentReference, len(p.MatchedFragments))
		for i, ref := range p.MatchedFragments {
			r := *ref
			cp.MatchedFragments[i] = &r
		}
	}
	return &cp
}
