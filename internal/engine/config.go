// Package engine implements the pure reconciliation core: interval
// containment over period documents, payment-timing classification, weighted
// fuzzy matching of fragments to obligation periods, and idempotent
// recomputation of a period's aggregate status. Every function in this
// package is a pure function of its inputs; persistence and logging belong
// to the caller.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds every tunable of the reconciliation engine. The defaults
// encode the production rule set; tests exercise boundary cases by varying
// individual fields.
type Config struct {
	// MerchantWeight is added when the fragment's merchant hint and the
	// candidate's merchant hint are substrings of one another.
	MerchantWeight int

	// AmountWeight is added when the fragment amount is within
	// AmountTolerancePercent of the candidate's expected amount.
	AmountWeight int

	// DateWeight is the maximum date-proximity contribution, decayed by
	// DateDecayPerDay for every whole day between payment and due date.
	DateWeight int

	// DateDecayPerDay is subtracted from DateWeight per whole day of
	// distance between the payment timestamp and the due date.
	DateDecayPerDay int

	// DateProximityDays bounds the date-proximity rule: beyond this many
	// days from the due date the rule contributes nothing.
	DateProximityDays int

	// MinMatchScore is the floor a candidate's total score must reach to be
	// accepted. At the default weights this guarantees the merchant signal,
	// or the amount signal plus partial date proximity, must be present.
	MinMatchScore int

	// AmountTolerancePercent is the relative band used both for the amount
	// score and for the extra-principal classification (0.10 == 10%).
	AmountTolerancePercent decimal.Decimal

	// AdvanceThresholdDays is how many days before the due date a payment
	// must arrive to classify as an advance.
	AdvanceThresholdDays int

	// DueSoonWindowDays is how close an unpaid obligation's due date must
	// be before its status moves from pending to due soon.
	DueSoonWindowDays int
}

// DefaultConfig returns the production rule set.
func DefaultConfig() *Config {
	return &Config{
		MerchantWeight:         50,
		AmountWeight:           30,
		DateWeight:             20,
		DateDecayPerDay:        2,
		DateProximityDays:      7,
		MinMatchScore:          50,
		AmountTolerancePercent: decimal.NewFromFloat(0.10),
		AdvanceThresholdDays:   7,
		DueSoonWindowDays:      3,
	}
}

// Validate checks the configuration for values the engine cannot operate
// with.
func (c *Config) Validate() error {
	if c.MerchantWeight < 0 || c.AmountWeight < 0 || c.DateWeight < 0 {
		return fmt.Errorf("score weights must be non-negative")
	}
	if c.DateDecayPerDay < 0 {
		return fmt.Errorf("date decay must be non-negative")
	}
	if c.DateProximityDays < 0 {
		return fmt.Errorf("date proximity window must be non-negative")
	}
	if c.MinMatchScore <= 0 {
		return fmt.Errorf("minimum match score must be positive")
	}
	if c.MinMatchScore > c.MerchantWeight+c.AmountWeight+c.DateWeight {
		return fmt.Errorf("minimum match score %d exceeds maximum attainable score %d",
			c.MinMatchScore, c.MerchantWeight+c.AmountWeight+c.DateWeight)
	}
	if c.AmountTolerancePercent.IsNegative() {
		return fmt.Errorf("amount tolerance must be non-negative")
	}
	if c.AdvanceThresholdDays < 0 {
		return fmt.Errorf("advance threshold must be non-negative")
	}
	if c.DueSoonWindowDays < 0 {
		return fmt.Errorf("due-soon window must be non-negative")
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
