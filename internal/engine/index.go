package engine

import (
	"sort"
	"time"

	"github.com/finpulse/backend/internal/model"
)

// indexKey partitions periods so that calendar granularities never shadow
// one another: monthly, weekly and bi-weekly buckets legitimately overlap,
// and a lookup must consider exactly one partition at a time.
type indexKey struct {
	typ  model.PeriodType
	gran model.CalendarGranularity
}

// Index is an in-memory interval index over a batch of period documents,
// rebuilt fresh per reconciliation call. Each partition is sorted by
// interval start; maxSpan bounds how far left of the binary-search position
// a containing interval can begin, which keeps lookups sublinear for
// well-formed data.
type Index struct {
	partitions map[indexKey][]*model.Period
	maxSpan    map[indexKey]time.Duration
}

// BuildIndex loads a set of period documents into an interval index. The
// input may mix all three period types and every calendar granularity;
// periods with an end before their start are indexed as-is and simply never
// match.
func BuildIndex(periods []*model.Period) *Index {
	idx := &Index{
		partitions: make(map[indexKey][]*model.Period),
		maxSpan:    make(map[indexKey]time.Duration),
	}
	for _, p := range periods {
		key := keyFor(p)
		idx.partitions[key] = append(idx.partitions[key], p)
		if span := p.IntervalEnd.Sub(p.IntervalStart); span > idx.maxSpan[key] {
			idx.maxSpan[key] = span
		}
	}
	for _, part := range idx.partitions {
		sort.Slice(part, func(i, j int) bool {
			return part[i].IntervalStart.Before(part[j].IntervalStart)
		})
	}
	return idx
}

func keyFor(p *model.Period) indexKey {
	key := indexKey{typ: p.Type}
	if p.Type == model.PeriodTypeCalendar {
		key.gran = p.Granularity
	}
	return key
}

// Find returns every period of the given type whose closed interval
// contains ts, ordered by interval start. Under the non-overlap invariant
// the result holds at most one period; more than one indicates stale or
// malformed period data, which the caller logs as a data inconsistency and
// resolves by taking the earliest-starting period (the first element).
func (idx *Index) Find(ts time.Time, typ model.PeriodType) []*model.Period {
	return idx.find(ts, indexKey{typ: typ})
}

// FindCalendar returns the calendar period(s) of one granularity containing
// ts. Callers query once per granularity and store the results on separate
// fragment fields.
func (idx *Index) FindCalendar(ts time.Time, gran model.CalendarGranularity) []*model.Period {
	return idx.find(ts, indexKey{typ: model.PeriodTypeCalendar, gran: gran})
}

func (idx *Index) find(ts time.Time, key indexKey) []*model.Period {
	part := idx.partitions[key]
	if len(part) == 0 {
		return nil
	}

	// First period starting after ts; everything at or beyond this position
	// cannot contain it.
	hi := sort.Search(len(part), func(i int) bool {
		return part[i].IntervalStart.After(ts)
	})

	// A containing interval must start within maxSpan of ts.
	earliest := ts.Add(-idx.maxSpan[key])

	var matches []*model.Period
	for i := hi - 1; i >= 0; i-- {
		p := part[i]
		if p.IntervalStart.Before(earliest) {
			break
		}
		if p.Contains(ts) {
			matches = append(matches, p)
		}
	}
	// Restore ascending start order after the backwards scan.
	for l, r := 0, len(matches)-1; l < r; l, r = l+1, r-1 {
		matches[l], matches[r] = matches[r], matches[l]
	}
	return matches
}

// OpenObligations returns the obligation periods that hold no fragment
// references yet, ordered by interval start. These are the only candidates
// eligible for fuzzy matching; a period is claimed by its first reference.
func (idx *Index) OpenObligations() []*model.Period {
	part := idx.partitions[indexKey{typ: model.PeriodTypeObligation}]
	open := make([]*model.Period, 0, len(part))
	for _, p := range part {
		if !p.IsClaimed() {
			open = append(open, p)
		}
	}
	return open
}

// Obligations returns all indexed obligation periods ordered by interval
// start.
func (idx *Index) Obligations() []*model.Period {
	return idx.partitions[indexKey{typ: model.PeriodTypeObligation}]
}

// Len reports the total number of indexed periods.
func (idx *Index) Len() int {
	n := 0
	for _, part := range idx.partitions {
		n += len(part)
	}
	return n
}
