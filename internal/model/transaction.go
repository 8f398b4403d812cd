package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetUnassigned is the explicit sentinel stored on a fragment whose budget
// lookup was evaluated and found no applicable budget period. Downstream
// aggregation distinguishes "no budget applies" from "not yet evaluated"
// (empty string). Obligation assignment deliberately has no sentinel: an
// unmatched fragment keeps an empty assignment so later passes retry it.
const BudgetUnassigned = "unassigned"

// Transaction is an external bank-transaction event. Its amount is divided
// into one or more independently assignable fragments.
type Transaction struct {
	ID          string
	OwnerID     string
	AccountID   string
	Description string
	Amount      decimal.Decimal
	Timestamp   time.Time
	Fragments   []*Fragment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CalendarAssignment holds one calendar period per granularity. The fields
// are independent: a fragment may match one period of each granularity
// simultaneously. An empty field means no period of that granularity
// contained the transaction timestamp.
type CalendarAssignment struct {
	MonthlyID  string
	WeeklyID   string
	BiWeeklyID string
}

// Fragment is an independently assignable portion of a transaction's amount
// (a split). A fragment holds at most one obligation assignment at a time;
// assignment is monotonic unless explicitly cleared.
type Fragment struct {
	ID                   string
	Amount               decimal.Decimal
	Note                 string
	MerchantHint         string
	AssignedBudgetID     string
	AssignedObligationID string
	CalendarPeriods      CalendarAssignment
}

// Assigned reports whether the fragment already carries an obligation
// assignment. Re-matching an assigned fragment is a no-op.
func (f *Fragment) Assigned() bool {
	return f.AssignedObligationID != ""
}

// Clone returns a deep copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	cp := *t
	if t.Fragments != nil {
		cp.Fragments = make([]*Fragment, len(t.Fragments))
		for i, f := range t.Fragments {
			fc := *f
			cp.Fragments[i] = &fc
		}
	}
	return &cp
}

// Reconciled reports whether every fragment has had its obligation lookup
// resolved, either to a period or left for a later pass with calendar
// buckets already populated.
func (t *Transaction) Reconciled() bool {
	for _, f := range t.Fragments {
		if !f.Assigned() {
			return false
		}
	}
	return true
}
