package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/finpulse/backend/internal/model"
)

// FragmentInput is the slice of a fragment the matcher needs: the amount,
// the parent transaction's timestamp, and a merchant hint.
type FragmentInput struct {
	Amount       decimal.Decimal
	Timestamp    time.Time
	MerchantHint string
}

// MatchResult reports the accepted candidate and the score that selected it.
type MatchResult struct {
	Period *model.Period
	Score  int
}

// MatchObligation scores every open obligation-period candidate against the
// fragment and returns the best match, or nil when no candidate reaches the
// configured score floor. Candidates already holding a fragment reference
// are skipped: one obligation period accepts at most one payment fragment
// through this path. Ties on score break to the earliest interval start,
// which makes the selection deterministic for any input order.
//
// A nil result is not an error; the fragment simply remains unassigned and
// is retried on a later pass.
func MatchObligation(frag FragmentInput, candidates []*model.Period, cfg *Config) *MatchResult {
	var best *model.Period
	bestScore := 0

	for _, cand := range candidates {
		if cand.Type != model.PeriodTypeObligation || cand.IsClaimed() {
			continue
		}
		score := scoreCandidate(frag, cand, cfg)
		if score < cfg.MinMatchScore {
			continue
		}
		switch {
		case best == nil,
			score > bestScore,
			score == bestScore && cand.IntervalStart.Before(best.IntervalStart):
			best = cand
			bestScore = score
		}
	}

	if best == nil {
		return nil
	}
	return &MatchResult{Period: best, Score: bestScore}
}

// scoreCandidate computes the additive weighted score of one candidate.
func scoreCandidate(frag FragmentInput, cand *model.Period, cfg *Config) int {
	score := 0

	if merchantHintsOverlap(frag.MerchantHint, cand.MerchantHint) {
		score += cfg.MerchantWeight
	}

	if amountWithinTolerance(frag.Amount, cand.ExpectedAmount, cfg.AmountTolerancePercent) {
		score += cfg.AmountWeight
	}

	if cand.DueDate != nil {
		days := absDayDistance(frag.Timestamp, *cand.DueDate)
		if days <= cfg.DateProximityDays {
			score += cfg.DateWeight - cfg.DateDecayPerDay*days
		}
	}

	return score
}

// merchantHintsOverlap reports whether either hint is a case-insensitive
// substring of the other. Hints come from bank feeds in arbitrary scripts,
// so comparison uses Unicode case folding rather than ASCII lowering.
// Empty hints never overlap.
func merchantHintsOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	fold := cases.Fold()
	fa, fb := fold.String(a), fold.String(b)
	return strings.Contains(fa, fb) || strings.Contains(fb, fa)
}

// amountWithinTolerance reports whether |amount − expected| is inside the
// relative tolerance band around the expected amount.
func amountWithinTolerance(amount, expected, tolerancePercent decimal.Decimal) bool {
	diff := amount.Sub(expected).Abs()
	return diff.LessThanOrEqual(expected.Mul(tolerancePercent))
}

// absDayDistance returns the whole-day distance between two timestamps,
// truncated: a gap of 6.5 days counts as 6 days.
func absDayDistance(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
