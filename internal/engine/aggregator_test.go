package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/finpulse/backend/internal/model"
)

func ref(txID, fragID string, amount int64, ts time.Time) *model.FragmentReference {
	return &model.FragmentReference{
		TransactionID: txID,
		FragmentID:    fragID,
		Amount:        decimal.NewFromInt(amount),
		Timestamp:     ts,
	}
}

func TestRecompute_UnpaidStatuses(t *testing.T) {
	cfg := DefaultConfig()
	now := day(2025, time.March, 10)

	dueIn2 := day(2025, time.March, 12)
	dueIn10 := day(2025, time.March, 20)
	duePast := day(2025, time.March, 5)

	tests := []struct {
		name string
		due  *time.Time
		want model.PeriodStatus
	}{
		{"no due date", nil, model.StatusPending},
		{"due well in the future", &dueIn10, model.StatusPending},
		{"due within the window", &dueIn2, model.StatusDueSoon},
		{"due date passed", &duePast, model.StatusOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := obligationPeriod("p-1", day(2025, time.March, 1), day(2025, time.March, 31), tt.due, decimal.NewFromInt(1200), "acme")
			agg := Recompute(p, nil, now, cfg)
			assert.Equal(t, tt.want, agg.Status)
			assert.True(t, agg.AmountPaid.IsZero())
			assert.True(t, agg.AmountDue.Equal(decimal.NewFromInt(1200)))
			assert.Zero(t, agg.ProgressPercent)
		})
	}
}

func TestRecompute_Partial(t *testing.T) {
	cfg := DefaultConfig()
	due := day(2025, time.March, 15)
	p := obligationPeriod("p-1", day(2025, time.March, 1), day(2025, time.March, 31), &due, decimal.NewFromInt(1200), "acme")

	agg := Recompute(p, []*model.FragmentReference{
		ref("tx-1", "f-1", 600, day(2025, time.March, 5)),
	}, day(2025, time.March, 10), cfg)

	assert.Equal(t, model.StatusPartial, agg.Status)
	assert.True(t, agg.AmountPaid.Equal(decimal.NewFromInt(600)))
	assert.True(t, agg.AmountDue.Equal(decimal.NewFromInt(600)))
	assert.InDelta(t, 50.0, agg.ProgressPercent, 0.001)
}

func TestRecompute_PaidEarly(t *testing.T) {
	cfg := DefaultConfig()
	due := day(2025, time.March, 15)
	p := obligationPeriod("p-1", day(2025, time.March, 1), day(2025, time.March, 31), &due, decimal.NewFromInt(1200), "acme")

	agg := Recompute(p, []*model.FragmentReference{
		ref("tx-1", "f-1", 600, day(2025, time.March, 5)),
		ref("tx-2", "f-2", 600, due),
	}, day(2025, time.March, 20), cfg)

	assert.Equal(t, model.StatusPaidEarly, agg.Status)
	assert.True(t, agg.AmountDue.IsZero())
	assert.InDelta(t, 100.0, agg.ProgressPercent, 0.001)
}

func TestRecompute_PaidExactlyOnDueDateIsNotEarly(t *testing.T) {
	cfg := DefaultConfig()
	due := day(2025, time.March, 15)
	p := obligationPeriod("p-1", day(2025, time.March, 1), day(2025, time.March, 31), &due, decimal.NewFromInt(1200), "acme")

	agg := Recompute(p, []*model.FragmentReference{
		ref("tx-1", "f-1", 1200, due),
	}, day(2025, time.March, 20), cfg)

	assert.Equal(t, model.StatusPaid, agg.Status)
}

func TestRecompute_AnyLatePaymentIsJustPaid(t *testing.T) {
	cfg := DefaultConfig()
	due := day(2025, time.March, 15)
	p := obligationPeriod("p-1", day(2025, time.March, 1), day(2025, time.March, 31), &due, decimal.NewFromInt(1200), "acme")

	agg := Recompute(p, []*model.FragmentReference{
		ref("tx-1", "f-1", 600, day(2025, time.March, 5)),
		ref("tx-2", "f-2", 600, day(2025, time.March, 18)),
	}, day(2025, time.March, 20), cfg)

	assert.Equal(t, model.StatusPaid, agg.Status)
}

func TestRecompute_OverpaymentCapsProgressAndDue(t *testing.T) {
	cfg := DefaultConfig()
	p := obligationPeriod("p-1", day(2025, time.March, 1), day(2025, time.March, 31), nil, decimal.NewFromInt(1200), "acme")

	agg := Recompute(p, []*model.FragmentReference{
		ref("tx-1", "f-1", 1500, day(2025, time.March, 5)),
	}, day(2025, time.March, 10), cfg)

	assert.Equal(t, model.StatusPaid, agg.Status)
	assert.True(t, agg.AmountPaid.Equal(decimal.NewFromInt(1500)))
	assert.True(t, agg.AmountDue.IsZero(), "amount due never goes negative")
	assert.InDelta(t, 100.0, agg.ProgressPercent, 0.001, "progress capped at 100")
}

func TestRecompute_NetZeroReferencesLeaveExpectationUnpaid(t *testing.T) {
	// A payment fully reversed by a refund nets to zero; the positive
	// expectation is still outstanding, not paid.
	cfg := DefaultConfig()
	due := day(2025, time.March, 15)
	p := obligationPeriod("p-1", day(2025, time.March, 1), day(2025, time.March, 31), &due, decimal.NewFromInt(1200), "acme")

	agg := Recompute(p, []*model.FragmentReference{
		ref("tx-1", "f-1", 1200, day(2025, time.March, 5)),
		ref("tx-2", "f-2", -1200, day(2025, time.March, 6)),
	}, day(2025, time.March, 20), cfg)

	assert.Equal(t, model.StatusOverdue, agg.Status)
	assert.True(t, agg.AmountPaid.IsZero())
	assert.True(t, agg.AmountDue.Equal(decimal.NewFromInt(1200)))
	assert.Zero(t, agg.ProgressPercent)

	// Before the due date passes the same references report due-soon.
	agg = Recompute(p, []*model.FragmentReference{
		ref("tx-1", "f-1", 1200, day(2025, time.March, 5)),
		ref("tx-2", "f-2", -1200, day(2025, time.March, 6)),
	}, day(2025, time.March, 13), cfg)
	assert.Equal(t, model.StatusDueSoon, agg.Status)
}

func TestRecompute_ZeroExpectedAmount(t *testing.T) {
	cfg := DefaultConfig()
	p := obligationPeriod("p-1", day(2025, time.March, 1), day(2025, time.March, 31), nil, decimal.Zero, "acme")

	agg := Recompute(p, nil, day(2025, time.March, 10), cfg)
	assert.Equal(t, model.StatusPending, agg.Status)
	assert.Zero(t, agg.ProgressPercent)

	agg = Recompute(p, []*model.FragmentReference{
		ref("tx-1", "f-1", 0, day(2025, time.March, 5)),
	}, day(2025, time.March, 10), cfg)
	assert.Equal(t, model.StatusPaid, agg.Status)
	assert.InDelta(t, 100.0, agg.ProgressPercent, 0.001)
}

func TestRecompute_Idempotent(t *testing.T) {
	// Recompute is a pure function of the reference list: applying the
	// aggregate and recomputing again yields the identical aggregate, which
	// is what makes retried batches safe.
	cfg := DefaultConfig()
	due := day(2025, time.March, 15)
	p := obligationPeriod("p-1", day(2025, time.March, 1), day(2025, time.March, 31), &due, decimal.NewFromInt(1200), "acme")
	refs := []*model.FragmentReference{
		ref("tx-1", "f-1", 600, day(2025, time.March, 5)),
	}
	now := day(2025, time.March, 10)

	first := Recompute(p, refs, now, cfg)
	ApplyAggregate(p, first)
	second := Recompute(p, refs, now, cfg)

	assert.Equal(t, first.Status, second.Status)
	assert.True(t, first.AmountPaid.Equal(second.AmountPaid))
	assert.True(t, first.AmountDue.Equal(second.AmountDue))
	assert.Equal(t, first.ProgressPercent, second.ProgressPercent)

	assert.Equal(t, model.StatusPartial, p.Status)
	assert.True(t, p.AmountDue.Equal(decimal.NewFromInt(600)))
}
