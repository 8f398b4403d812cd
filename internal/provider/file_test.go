package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFileSource_FetchTransactions(t *testing.T) {
	path := writeFeed(t, `[
		{
			"id": "tx-1",
			"ownerId": "owner-1",
			"accountId": "acct-1",
			"description": "ACME MORTGAGE PAYMENT",
			"amount": "1200.00",
			"timestamp": "2025-03-10T00:00:00Z",
			"fragments": [
				{"id": "f-1", "amount": "1200.00", "merchantHint": "Acme Mortgage"}
			]
		},
		{
			"description": "COFFEE",
			"amount": "4.50",
			"timestamp": "2025-03-11T08:30:00Z"
		}
	]`)

	src := NewFileSource(path)
	txs, cursor, err := src.FetchTransactions(context.Background(), "owner-1", "")
	require.NoError(t, err)
	assert.Empty(t, cursor, "the file is a single page")
	require.Len(t, txs, 2)

	assert.Equal(t, "tx-1", txs[0].ID)
	assert.Equal(t, "owner-1", txs[0].OwnerID)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(1200)))
	require.Len(t, txs[0].Fragments, 1)
	assert.Equal(t, "Acme Mortgage", txs[0].Fragments[0].MerchantHint)

	// Missing IDs are generated, the caller's owner fills the gap, and a
	// fragmentless transaction gets one fragment covering the full amount.
	assert.NotEmpty(t, txs[1].ID)
	assert.Equal(t, "owner-1", txs[1].OwnerID)
	require.Len(t, txs[1].Fragments, 1)
	assert.NotEmpty(t, txs[1].Fragments[0].ID)
	assert.True(t, txs[1].Fragments[0].Amount.Equal(decimal.NewFromFloat(4.5)))
}

func TestFileSource_NonEmptyCursorEndsFeed(t *testing.T) {
	src := NewFileSource(writeFeed(t, `[]`))
	txs, cursor, err := src.FetchTransactions(context.Background(), "owner-1", "done")
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Empty(t, cursor)
}

func TestFileSource_Errors(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.json"))
	_, _, err := src.FetchTransactions(context.Background(), "owner-1", "")
	assert.Error(t, err)

	src = NewFileSource(writeFeed(t, `{not json`))
	_, _, err = src.FetchTransactions(context.Background(), "owner-1", "")
	assert.Error(t, err)

	src = NewFileSource(writeFeed(t, `[{"amount": "abc", "timestamp": "2025-03-10T00:00:00Z"}]`))
	_, _, err = src.FetchTransactions(context.Background(), "owner-1", "")
	assert.Error(t, err)
}
