package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestDocErr_MapsGRPCNotFound(t *testing.T) {
	err := docErr("period", "p-1", status.Error(codes.NotFound, "document missing"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "p-1")
}

func TestDocErr_KeepsTransientErrors(t *testing.T) {
	cause := status.Error(codes.Unavailable, "backend overloaded")
	err := docErr("period", "p-1", cause)
	assert.False(t, errors.Is(err, ErrNotFound), "a transient failure is not a vanished document")
	assert.ErrorIs(t, err, cause)
}

func TestCentsRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1200", "1200.50", "0.01", "-45.99"} {
		d, err := decimal.NewFromString(s)
		assert.NoError(t, err)
		assert.True(t, fromCents(toCents(d)).Equal(d), "cents round trip for %s", s)
	}
}
