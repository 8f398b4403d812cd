package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/finpulse/backend/internal/model"
)

const (
	periodsCollection      = "periods"
	transactionsCollection = "transactions"
)

// FirestoreStore implements the Store interface using Firestore. Amounts
// are persisted as integer cents because the in-memory decimal type does
// not round-trip through Firestore's reflection-based codec.
//
// Firestore single-document writes are atomic, so the read-check-append in
// AppendFragmentReference runs inside a transaction and is safe against
// concurrent duplicate delivery for the same period document.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{client: client}
}

// periodDoc is the Firestore representation of a model.Period.
type periodDoc struct {
	ID                  string            `firestore:"id"`
	OwnerID             string            `firestore:"ownerId"`
	Type                string            `firestore:"type"`
	Granularity         string            `firestore:"granularity,omitempty"`
	Name                string            `firestore:"name,omitempty"`
	IntervalStart       time.Time         `firestore:"intervalStart"`
	IntervalEnd         time.Time         `firestore:"intervalEnd"`
	DueDate             *time.Time        `firestore:"dueDate,omitempty"`
	ExpectedAmountCents int64             `firestore:"expectedAmountCents"`
	MerchantHint        string            `firestore:"merchantHint,omitempty"`
	MatchedFragments    []fragmentRefDoc  `firestore:"matchedFragments"`
	Status              string            `firestore:"status,omitempty"`
	AmountPaidCents     int64             `firestore:"amountPaidCents"`
	AmountDueCents      int64             `firestore:"amountDueCents"`
	ProgressPercent     float64           `firestore:"progressPercent"`
	CreatedAt           time.Time         `firestore:"createdAt"`
	UpdatedAt           time.Time         `firestore:"updatedAt"`
}

type fragmentRefDoc struct {
	TransactionID  string    `firestore:"transactionId"`
	FragmentID     string    `firestore:"fragmentId"`
	AmountCents    int64     `firestore:"amountCents"`
	Timestamp      time.Time `firestore:"timestamp"`
	Classification string    `firestore:"classification"`
	MatchedAt      time.Time `firestore:"matchedAt"`
}

type transactionDoc struct {
	ID          string        `firestore:"id"`
	OwnerID     string        `firestore:"ownerId"`
	AccountID   string        `firestore:"accountId,omitempty"`
	Description string        `firestore:"description,omitempty"`
	AmountCents int64         `firestore:"amountCents"`
	Timestamp   time.Time     `firestore:"timestamp"`
	Fragments   []fragmentDoc `firestore:"fragments"`
	Reconciled  bool          `firestore:"reconciled"`
	CreatedAt   time.Time     `firestore:"createdAt"`
	UpdatedAt   time.Time     `firestore:"updatedAt"`
}

type fragmentDoc struct {
	ID                   string `firestore:"id"`
	AmountCents          int64  `firestore:"amountCents"`
	Note                 string `firestore:"note,omitempty"`
	MerchantHint         string `firestore:"merchantHint,omitempty"`
	AssignedBudgetID     string `firestore:"assignedBudgetId,omitempty"`
	AssignedObligationID string `firestore:"assignedObligationId,omitempty"`
	MonthlyPeriodID      string `firestore:"monthlyPeriodId,omitempty"`
	WeeklyPeriodID       string `firestore:"weeklyPeriodId,omitempty"`
	BiWeeklyPeriodID     string `firestore:"biWeeklyPeriodId,omitempty"`
}

// docErr wraps a document lookup failure. Firestore signals a missing
// document with the gRPC NotFound code; mapping it onto ErrNotFound lets
// callers distinguish a vanished document from a transient storage failure.
func docErr(kind, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func periodToDoc(p *model.Period) periodDoc {
	doc := periodDoc{
		ID:                  p.ID,
		OwnerID:             p.OwnerID,
		Type:                string(p.Type),
		Granularity:         string(p.Granularity),
		Name:                p.Name,
		IntervalStart:       p.IntervalStart,
		IntervalEnd:         p.IntervalEnd,
		DueDate:             p.DueDate,
		ExpectedAmountCents: toCents(p.ExpectedAmount),
		MerchantHint:        p.MerchantHint,
		Status:              string(p.Status),
		AmountPaidCents:     toCents(p.AmountPaid),
		AmountDueCents:      toCents(p.AmountDue),
		ProgressPercent:     p.ProgressPercent,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	for _, ref := range p.MatchedFragments {
		doc.MatchedFragments = append(doc.MatchedFragments, fragmentRefDoc{
			TransactionID:  ref.TransactionID,
			FragmentID:     ref.FragmentID,
			AmountCents:    toCents(ref.Amount),
			Timestamp:      ref.Timestamp,
			Classification: string(ref.Classification),
			MatchedAt:      ref.MatchedAt,
		})
	}
	return doc
}

func docToPeriod(doc periodDoc) *model.Period {
	p := &model.Period{
		ID:              doc.ID,
		OwnerID:         doc.OwnerID,
		Type:            model.PeriodType(doc.Type),
		Granularity:     model.CalendarGranularity(doc.Granularity),
		Name:            doc.Name,
		IntervalStart:   doc.IntervalStart,
		IntervalEnd:     doc.IntervalEnd,
		DueDate:         doc.DueDate,
		ExpectedAmount:  fromCents(doc.ExpectedAmountCents),
		MerchantHint:    doc.MerchantHint,
		Status:          model.PeriodStatus(doc.Status),
		AmountPaid:      fromCents(doc.AmountPaidCents),
		AmountDue:       fromCents(doc.AmountDueCents),
		ProgressPercent: doc.ProgressPercent,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	for _, ref := range doc.MatchedFragments {
		p.MatchedFragments = append(p.MatchedFragments, &model.FragmentReference{
			TransactionID:  ref.TransactionID,
			FragmentID:     ref.FragmentID,
			Amount:         fromCents(ref.AmountCents),
			Timestamp:      ref.Timestamp,
			Classification: model.PaymentClassification(ref.Classification),
			MatchedAt:      ref.MatchedAt,
		})
	}
	return p
}

func transactionToDoc(tx *model.Transaction) transactionDoc {
	doc := transactionDoc{
		ID:          tx.ID,
		OwnerID:     tx.OwnerID,
		AccountID:   tx.AccountID,
		Description: tx.Description,
		AmountCents: toCents(tx.Amount),
		Timestamp:   tx.Timestamp,
		Reconciled:  tx.Reconciled(),
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
	for _, f := range tx.Fragments {
		doc.Fragments = append(doc.Fragments, fragmentDoc{
			ID:                   f.ID,
			AmountCents:          toCents(f.Amount),
			Note:                 f.Note,
			MerchantHint:         f.MerchantHint,
			AssignedBudgetID:     f.AssignedBudgetID,
			AssignedObligationID: f.AssignedObligationID,
			MonthlyPeriodID:      f.CalendarPeriods.MonthlyID,
			WeeklyPeriodID:       f.CalendarPeriods.WeeklyID,
			BiWeeklyPeriodID:     f.CalendarPeriods.BiWeeklyID,
		})
	}
	return doc
}

func docToTransaction(doc transactionDoc) *model.Transaction {
	tx := &model.Transaction{
		ID:          doc.ID,
		OwnerID:     doc.OwnerID,
		AccountID:   doc.AccountID,
		Description: doc.Description,
		Amount:      fromCents(doc.AmountCents),
		Timestamp:   doc.Timestamp,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for _, f := range doc.Fragments {
		tx.Fragments = append(tx.Fragments, &model.Fragment{
			ID:                   f.ID,
			Amount:               fromCents(f.AmountCents),
			Note:                 f.Note,
			MerchantHint:         f.MerchantHint,
			AssignedBudgetID:     f.AssignedBudgetID,
			AssignedObligationID: f.AssignedObligationID,
			CalendarPeriods: model.CalendarAssignment{
				MonthlyID:  f.MonthlyPeriodID,
				WeeklyID:   f.WeeklyPeriodID,
				BiWeeklyID: f.BiWeeklyPeriodID,
			},
		})
	}
	return tx
}

// CreatePeriod creates a new period document in Firestore.
func (s *FirestoreStore) CreatePeriod(ctx context.Context, period *model.Period) error {
	_, err := s.client.Collection(periodsCollection).Doc(period.ID).Create(ctx, periodToDoc(period))
	return err
}

// GetPeriod retrieves a period document from Firestore.
func (s *FirestoreStore) GetPeriod(ctx context.Context, periodID string) (*model.Period, error) {
	snap, err := s.client.Collection(periodsCollection).Doc(periodID).Get(ctx)
	if err != nil {
		return nil, docErr("period", periodID, err)
	}
	var doc periodDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse period: %w", err)
	}
	return docToPeriod(doc), nil
}

// UpdatePeriod replaces a period document in Firestore.
func (s *FirestoreStore) UpdatePeriod(ctx context.Context, period *model.Period) error {
	period.UpdatedAt = time.Now()
	_, err := s.client.Collection(periodsCollection).Doc(period.ID).Set(ctx, periodToDoc(period))
	return err
}

// listPagination adds OrderBy + StartAfter + Limit to a query whose
// inequality field is intervalStart. Firestore requires ordering on the
// inequality field first, so the cursor carries both the start value and
// the document ID.
func (s *FirestoreStore) listPagination(ctx context.Context, query firestore.Query, collection, orderField string, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy(orderField, firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, fmt.Errorf("invalid page token: %w", err)
		}
		cursorDoc, err := s.client.Collection(collection).Doc(docID).Get(ctx)
		if err != nil {
			return query, fmt.Errorf("failed to fetch cursor document: %w", err)
		}
		query = query.StartAfter(cursorDoc.Data()[orderField], docID)
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	query = query.Limit(int(pageSize) + 1) // +1 to detect next page
	return query, nil
}

// ListPeriods returns periods overlapping the requested window. Firestore
// allows a range filter on a single field, so the query bounds
// intervalStart and the intervalEnd side of the overlap test is applied
// client-side.
func (s *FirestoreStore) ListPeriods(ctx context.Context, ownerID string, periodType model.PeriodType, rangeStart, rangeEnd time.Time, pageSize int32, pageToken string) ([]*model.Period, string, error) {
	query := s.client.Collection(periodsCollection).Query
	if ownerID != "" {
		query = query.Where("ownerId", "==", ownerID)
	}
	if periodType != "" {
		query = query.Where("type", "==", string(periodType))
	}
	query = query.Where("intervalStart", "<=", rangeEnd)

	query, err := s.listPagination(ctx, query, periodsCollection, "intervalStart", pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var periods []*model.Period
	var lastID string
	count := int32(0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return periods, "", nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to list periods: %w", err)
		}
		count++
		if count > pageSizeOrDefault(pageSize) {
			return periods, EncodePageToken(lastID), nil
		}
		var doc periodDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, "", fmt.Errorf("failed to parse period: %w", err)
		}
		lastID = snap.Ref.ID
		p := docToPeriod(doc)
		if p.IntervalEnd.Before(rangeStart) {
			count-- // filtered out, does not consume the page
			continue
		}
		periods = append(periods, p)
	}
}

func pageSizeOrDefault(pageSize int32) int32 {
	if pageSize <= 0 {
		return 100
	}
	return pageSize
}

// AppendFragmentReference appends a reference to an obligation period
// inside a Firestore transaction, deduplicating on {transactionId,
// fragmentId}.
func (s *FirestoreStore) AppendFragmentReference(ctx context.Context, periodID string, ref *model.FragmentReference) (bool, error) {
	docRef := s.client.Collection(periodsCollection).Doc(periodID)
	appended := false

	err := s.client.RunTransaction(ctx, func(ctx context.Context, txn *firestore.Transaction) error {
		snap, err := txn.Get(docRef)
		if err != nil {
			return docErr("period", periodID, err)
		}
		var doc periodDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("failed to parse period: %w", err)
		}
		if doc.Type != string(model.PeriodTypeObligation) {
			return fmt.Errorf("period %s is not an obligation period", periodID)
		}
		for _, existing := range doc.MatchedFragments {
			if existing.TransactionID == ref.TransactionID && existing.FragmentID == ref.FragmentID {
				return nil // duplicate delivery, no-op
			}
		}
		doc.MatchedFragments = append(doc.MatchedFragments, fragmentRefDoc{
			TransactionID:  ref.TransactionID,
			FragmentID:     ref.FragmentID,
			AmountCents:    toCents(ref.Amount),
			Timestamp:      ref.Timestamp,
			Classification: string(ref.Classification),
			MatchedAt:      ref.MatchedAt,
		})
		doc.UpdatedAt = time.Now()
		appended = true
		return txn.Set(docRef, doc)
	})
	if err != nil {
		return false, err
	}
	return appended, nil
}

// CreateTransaction creates a new transaction document in Firestore.
func (s *FirestoreStore) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	_, err := s.client.Collection(transactionsCollection).Doc(tx.ID).Create(ctx, transactionToDoc(tx))
	return err
}

// GetTransaction retrieves a transaction document from Firestore.
func (s *FirestoreStore) GetTransaction(ctx context.Context, txID string) (*model.Transaction, error) {
	snap, err := s.client.Collection(transactionsCollection).Doc(txID).Get(ctx)
	if err != nil {
		return nil, docErr("transaction", txID, err)
	}
	var doc transactionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %w", err)
	}
	return docToTransaction(doc), nil
}

// UpdateTransaction replaces a transaction document in Firestore.
func (s *FirestoreStore) UpdateTransaction(ctx context.Context, tx *model.Transaction) error {
	tx.UpdatedAt = time.Now()
	_, err := s.client.Collection(transactionsCollection).Doc(tx.ID).Set(ctx, transactionToDoc(tx))
	return err
}

// ListTransactions returns transactions for an owner within an optional
// date range.
func (s *FirestoreStore) ListTransactions(ctx context.Context, ownerID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	query := s.client.Collection(transactionsCollection).Query
	if ownerID != "" {
		query = query.Where("ownerId", "==", ownerID)
	}
	if startDate != nil {
		query = query.Where("timestamp", ">=", *startDate)
	}
	if endDate != nil {
		query = query.Where("timestamp", "<=", *endDate)
	}

	query, err := s.listPagination(ctx, query, transactionsCollection, "timestamp", pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}
	return s.collectTransactions(ctx, query, pageSize)
}

// ListUnreconciledTransactions returns transactions that still carry at
// least one unassigned fragment.
func (s *FirestoreStore) ListUnreconciledTransactions(ctx context.Context, ownerID string, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	query := s.client.Collection(transactionsCollection).Query
	if ownerID != "" {
		query = query.Where("ownerId", "==", ownerID)
	}
	query = query.Where("reconciled", "==", false)

	query, err := s.listPagination(ctx, query, transactionsCollection, "timestamp", pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}
	return s.collectTransactions(ctx, query, pageSize)
}

func (s *FirestoreStore) collectTransactions(ctx context.Context, query firestore.Query, pageSize int32) ([]*model.Transaction, string, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var txs []*model.Transaction
	var lastID string
	count := int32(0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return txs, "", nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to list transactions: %w", err)
		}
		count++
		if count > pageSizeOrDefault(pageSize) {
			return txs, EncodePageToken(lastID), nil
		}
		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, "", fmt.Errorf("failed to parse transaction: %w", err)
		}
		lastID = snap.Ref.ID
		txs = append(txs, docToTransaction(doc))
	}
}
