package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finpulse/backend/internal/model"
)

// Classify derives the payment-timing classification for a payment against
// a matched obligation period. The rules are evaluated in fixed priority
// order and the first match wins:
//
//  1. Amount beyond the tolerance band above the expected amount is an
//     extra-principal payment, regardless of timing.
//  2. A payment made before a due date that has since passed is a catch-up.
//  3. A payment more than the advance threshold ahead of the due date is an
//     advance.
//  4. Anything else is a regular payment.
//
// Rules 2 and 3 require a due date: an obligation period without a discrete
// due event can only classify as regular or extra-principal. now is passed
// explicitly so the catch-up rule is testable.
func Classify(amount decimal.Decimal, paidAt time.Time, period *model.Period, now time.Time, cfg *Config) model.PaymentClassification {
	ceiling := period.ExpectedAmount.Add(period.ExpectedAmount.Mul(cfg.AmountTolerancePercent))
	if amount.GreaterThan(ceiling) {
		return model.ClassificationExtraPrincipal
	}

	if period.DueDate != nil {
		due := *period.DueDate
		if paidAt.Before(due) && due.Before(now) {
			return model.ClassificationCatchUp
		}
		if due.Sub(paidAt) > time.Duration(cfg.AdvanceThresholdDays)*24*time.Hour {
			return model.ClassificationAdvance
		}
	}

	return model.ClassificationRegular
}
