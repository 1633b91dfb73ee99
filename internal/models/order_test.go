package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirm, true},
		{OrderStatusConfirm, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusPickup, true},
		{OrderStatusPickup, OrderStatusOnTheWay, true},
		{OrderStatusOnTheWay, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusProcessing, false},
		{OrderStatusConfirm, OrderStatusPending, false},
		{OrderStatusPickup, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusPending, "shipped", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, OrderStatusOnTheWay.Valid())
	assert.True(t, OrderStatusCancelled.Valid())
	assert.False(t, OrderStatus("shipped").Valid())
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.False(t, OrderStatusPickup.IsTerminal())
}

func TestShippingDetails_Scan(t *testing.T) {
	var s ShippingDetails
	err := s.Scan([]byte(`{"name":"Ana","email":"ana@example.com","phone":"1","address":"Main 1","country":"PT","postalCode":"1000"}`))
	assert.NoError(t, err)
	assert.Equal(t, "Ana", s.Name)
	assert.Equal(t, "1000", s.PostalCode)

	assert.Error(t, s.Scan(42))
}
