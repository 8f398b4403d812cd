package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finpulse/backend/internal/model"
)

// FileSource reads transactions from a JSON file. It exists for local
// development and one-shot ingestion; the file is the whole feed, so the
// cursor is a single page.
type FileSource struct {
	path string
}

// NewFileSource creates a source over a JSON transaction file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

type fileTransaction struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"ownerId"`
	AccountID   string         `json:"accountId"`
	Description string         `json:"description"`
	Amount      string         `json:"amount"`
	Timestamp   time.Time      `json:"timestamp"`
	Fragments   []fileFragment `json:"fragments"`
}

type fileFragment struct {
	ID           string `json:"id"`
	Amount       string `json:"amount"`
	Note         string `json:"note"`
	MerchantHint string `json:"merchantHint"`
}

// FetchTransactions reads the whole file as one page. Transactions without
// explicit fragments get a single fragment covering the full amount.
func (s *FileSource) FetchTransactions(_ context.Context, ownerID, cursor string) ([]*model.Transaction, string, error) {
	if cursor != "" {
		return nil, "", nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read transaction file: %w", err)
	}
	var fileTxs []fileTransaction
	if err := json.Unmarshal(data, &fileTxs); err != nil {
		return nil, "", fmt.Errorf("failed to parse transaction file: %w", err)
	}

	now := time.Now()
	txs := make([]*model.Transaction, 0, len(fileTxs))
	for i, ft := range fileTxs {
		amount, err := decimal.NewFromString(ft.Amount)
		if err != nil {
			return nil, "", fmt.Errorf("transaction %d: invalid amount %q: %w", i, ft.Amount, err)
		}
		tx := &model.Transaction{
			ID:          orUUID(ft.ID),
			OwnerID:     firstNonEmpty(ft.OwnerID, ownerID),
			AccountID:   ft.AccountID,
			Description: ft.Description,
			Amount:      amount,
			Timestamp:   ft.Timestamp,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for j, ff := range ft.Fragments {
			fragAmount, err := decimal.NewFromString(ff.Amount)
			if err != nil {
				return nil, "", fmt.Errorf("transaction %d fragment %d: invalid amount %q: %w", i, j, ff.Amount, err)
			}
			tx.Fragments = append(tx.Fragments, &model.Fragment{
				ID:           orUUID(ff.ID),
				Amount:       fragAmount,
				Note:         ff.Note,
				MerchantHint: ff.MerchantHint,
			})
		}
		if len(tx.Fragments) == 0 {
			tx.Fragments = []*model.Fragment{{
				ID:     uuid.New().String(),
				Amount: amount,
			}}
		}
		txs = append(txs, tx)
	}
	return txs, "", nil
}

func orUUID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
