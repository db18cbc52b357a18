package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderFill(t *testing.T) {
	order := NewOrder(1, BID, 100, 10, 1)

	require.NoError(t, order.Fill(4))
	assert.Equal(t, Quantity(6), order.GetRemainingQuantity())
	assert.Equal(t, Quantity(4), order.GetFilledQuantity())
	assert.False(t, order.IsFilled())

	require.NoError(t, order.Fill(6))
	assert.True(t, order.IsFilled())

	// quantity is monotonically non-increasing; overfills are refused
	err := order.Fill(1)
	assert.Error(t, err)
	assert.Equal(t, Quantity(0), order.GetRemainingQuantity())
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, ASK, BID.Opposite())
	assert.Equal(t, BID, ASK.Opposite())
	assert.Equal(t, "BID", BID.String())
	assert.Equal(t, "ASK", ASK.String())
}
