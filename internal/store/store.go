package store

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/finpulse/backend/internal/model"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Store defines the document-store operations the reconciliation service
// uses. The store is the system of record for periods and transactions; the
// engine itself operates on in-memory copies and never owns persistent
// state. Implementations must make AppendFragmentReference idempotent on
// {transactionId, fragmentId} so that at-least-once delivery of the same
// event never double-counts a payment.
type Store interface {
	// Period operations. ListPeriods returns periods overlapping the
	// [rangeStart, rangeEnd] window; an empty period type selects all
	// three variants.
	CreatePeriod(ctx context.Context, period *model.Period) error
	GetPeriod(ctx context.Context, periodID string) (*model.Period, error)
	UpdatePeriod(ctx context.Context, period *model.Period) error
	ListPeriods(ctx context.Context, ownerID string, periodType model.PeriodType, rangeStart, rangeEnd time.Time, pageSize int32, pageToken string) ([]*model.Period, string, error)

	// AppendFragmentReference appends one immutable reference to an
	// obligation period. It reports false without error when the period
	// already holds a reference for the same {transactionId, fragmentId},
	// which is the dedupe point for duplicate event delivery.
	AppendFragmentReference(ctx context.Context, periodID string, ref *model.FragmentReference) (bool, error)

	// Transaction operations. ListUnreconciledTransactions returns
	// transactions that still carry at least one fragment without an
	// obligation assignment.
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	GetTransaction(ctx context.Context, txID string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *model.Transaction) error
	ListTransactions(ctx context.Context, ownerID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*model.Transaction, string, error)
	ListUnreconciledTransactions(ctx context.Context, ownerID string, pageSize int32, pageToken string) ([]*model.Transaction, string, error)
}

// EncodePageToken encodes a document ID into a page token.
func EncodePageToken(docID string) string {
	if docID == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(docID))
}

// DecodePageToken decodes a page token back to a document ID.
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
