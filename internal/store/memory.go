package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/finpulse/backend/internal/model"
)

// MemoryStore implements Store with in-memory storage. It is used for local
// development and tests; documents are deep-copied on the way in and out so
// callers never share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	periods      map[string]*model.Period
	transactions map[string]*model.Transaction
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		periods:      make(map[string]*model.Period),
		transactions: make(map[string]*model.Transaction),
	}
}

// paginateIDs applies cursor-based pagination to a sorted slice of IDs.
// Returns the paginated IDs and the next page token (empty if no more
// pages).
func paginateIDs(ids []string, pageSize int32, pageToken string) ([]string, string, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	sort.Strings(ids)

	startIdx := 0
	if pageToken != "" {
		cursorID, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		for i, id := range ids {
			if id > cursorID {
				startIdx = i
				break
			}
			startIdx = i + 1
		}
	}

	endIdx := startIdx + int(pageSize)
	if endIdx >= len(ids) {
		return ids[startIdx:], "", nil
	}
	return ids[startIdx:endIdx], EncodePageToken(ids[endIdx-1]), nil
}

// CreatePeriod stores a new period document.
func (s *MemoryStore) CreatePeriod(_ context.Context, period *model.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.periods[period.ID]; exists {
		return fmt.Errorf("period %s already exists", period.ID)
	}
	s.periods[period.ID] = period.Clone()
	return nil
}

// GetPeriod retrieves a period document by ID.
func (s *MemoryStore) GetPeriod(_ context.Context, periodID string) (*model.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.periods[periodID]
	if !ok {
		return nil, fmt.Errorf("period %s: %w", periodID, ErrNotFound)
	}
	return p.Clone(), nil
}

// UpdatePeriod replaces a period document.
func (s *MemoryStore) UpdatePeriod(_ context.Context, period *model.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.periods[period.ID]; !ok {
		return fmt.Errorf("period %s: %w", period.ID, ErrNotFound)
	}
	cp := period.Clone()
	cp.UpdatedAt = time.Now()
	s.periods[period.ID] = cp
	return nil
}

// ListPeriods returns periods for an owner whose intervals overlap the
// requested window, paginated by document ID.
func (s *MemoryStore) ListPeriods(_ context.Context, ownerID string, periodType model.PeriodType, rangeStart, rangeEnd time.Time, pageSize int32, pageToken string) ([]*model.Period, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, p := range s.periods {
		if ownerID != "" && p.OwnerID != ownerID {
			continue
		}
		if periodType != "" && p.Type != periodType {
			continue
		}
		// Interval overlap with the closed window.
		if p.IntervalEnd.Before(rangeStart) || p.IntervalStart.After(rangeEnd) {
			continue
		}
		ids = append(ids, id)
	}

	pageIDs, nextToken, err := paginateIDs(ids, pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}

	result := make([]*model.Period, 0, len(pageIDs))
	for _, id := range pageIDs {
		result = append(result, s.periods[id].Clone())
	}
	return result, nextToken, nil
}

// AppendFragmentReference appends a reference to an obligation period,
// deduplicating on {transactionId, fragmentId}.
func (s *MemoryStore) AppendFragmentReference(_ context.Context, periodID string, ref *model.FragmentReference) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.periods[periodID]
	if !ok {
		return false, fmt.Errorf("period %s: %w", periodID, ErrNotFound)
	}
	if p.Type != model.PeriodTypeObligation {
		return false, fmt.Errorf("period %s is not an obligation period", periodID)
	}
	if p.HasReference(ref.TransactionID, ref.FragmentID) {
		return false, nil
	}

	r := *ref
	p.MatchedFragments = append(p.MatchedFragments, &r)
	p.UpdatedAt = time.Now()
	return true, nil
}

// CreateTransaction stores a new transaction document.
func (s *MemoryStore) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	s.transactions[tx.ID] = tx.Clone()
	return nil
}

// GetTransaction retrieves a transaction document by ID.
func (s *MemoryStore) GetTransaction(_ context.Context, txID string) (*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", txID, ErrNotFound)
	}
	return tx.Clone(), nil
}

// UpdateTransaction replaces a transaction document.
func (s *MemoryStore) UpdateTransaction(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; !ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
	}
	cp := tx.Clone()
	cp.UpdatedAt = time.Now()
	s.transactions[tx.ID] = cp
	return nil
}

// ListTransactions returns transactions for an owner within an optional
// date range, paginated by document ID.
func (s *MemoryStore) ListTransactions(_ context.Context, ownerID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	return s.listTransactions(ownerID, startDate, endDate, false, pageSize, pageToken)
}

// ListUnreconciledTransactions returns transactions that still carry at
// least one fragment without an obligation assignment.
func (s *MemoryStore) ListUnreconciledTransactions(_ context.Context, ownerID string, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	return s.listTransactions(ownerID, nil, nil, true, pageSize, pageToken)
}

func (s *MemoryStore) listTransactions(ownerID string, startDate, endDate *time.Time, unreconciledOnly bool, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, tx := range s.transactions {
		if ownerID != "" && tx.OwnerID != ownerID {
			continue
		}
		if startDate != nil && tx.Timestamp.Before(*startDate) {
			continue
		}
		if endDate != nil && tx.Timestamp.After(*endDate) {
			continue
		}
		if unreconciledOnly && tx.Reconciled() {
			continue
		}
		ids = append(ids, id)
	}

	pageIDs, nextToken, err := paginateIDs(ids, pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}

	result := make([]*model.Transaction, 0, len(pageIDs))
	for _, id := range pageIDs {
		result = append(result, s.transactions[id].Clone())
	}
	return result, nextToken, nil
}
