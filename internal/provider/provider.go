// Package provider defines the boundaries to external collaborators the
// reconciliation service depends on but does not implement: the upstream
// financial-data aggregator, encrypted credential storage, and the keyword
// category dictionary. Production implementations live outside this
// repository; the package ships a JSON-file source for local ingestion.
package provider

import (
	"context"

	"github.com/finpulse/backend/internal/model"
)

// Source supplies bank-transaction records from the upstream aggregator.
// Authentication, token exchange, pagination against the provider API and
// its retry policy are the implementation's concern; the service only
// consumes the resulting records.
type Source interface {
	// FetchTransactions returns a page of transactions for an owner along
	// with an opaque cursor; an empty cursor means no more pages.
	FetchTransactions(ctx context.Context, ownerID, cursor string) ([]*model.Transaction, string, error)
}

// CredentialVault stores and retrieves provider access tokens. Encryption
// at rest is the implementation's concern.
type CredentialVault interface {
	GetToken(ctx context.Context, ownerID string) (string, error)
	PutToken(ctx context.Context, ownerID, token string) error
}

// CategoryDictionary resolves a transaction description to a spending
// category via simple keyword lookup.
type CategoryDictionary interface {
	Lookup(description string) (category string, ok bool)
}
