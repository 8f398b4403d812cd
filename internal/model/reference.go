package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentClassification is the semantic timing label assigned to a matched
// payment relative to its obligation's due date.
type PaymentClassification string

const (
	// ClassificationRegular is a payment at the expected amount inside the
	// normal payment window.
	ClassificationRegular PaymentClassification = "regular"
	// ClassificationCatchUp is a payment made before a due date that has
	// since passed, i.e. a late catch-up for a closed window.
	ClassificationCatchUp PaymentClassification = "catch_up"
	// ClassificationAdvance is a payment made well ahead of the due date.
	ClassificationAdvance PaymentClassification = "advance"
	// ClassificationExtraPrincipal is a payment exceeding the expected
	// amount beyond the configured tolerance band.
	ClassificationExtraPrincipal PaymentClassification = "extra_principal"
)

// FragmentReference is the immutable record attached to an obligation period
// once a fragment is matched to it. References are created once, never
// mutated, only appended; the parent period's aggregate fields are derived
// from the reference list, which is what makes recovery idempotent.
type FragmentReference struct {
	TransactionID  string
	FragmentID     string
	Amount         decimal.Decimal
	Timestamp      time.Time
	Classification PaymentClassification
	MatchedAt      time.Time
}

// Key uniquely identifies a reference for deduplication under at-least-once
// delivery.
func (r *FragmentReference) Key() string {
	return r.TransactionID + "/" + r.FragmentID
}
