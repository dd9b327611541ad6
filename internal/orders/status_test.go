package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusPaid))
	assert.True(t, CanTransition(StatusPaid, StatusShipped))
	assert.True(t, CanTransition(StatusPaid, StatusCancelled))
	assert.False(t, CanTransition(StatusPaid, StatusPending))
	assert.False(t, CanTransition(StatusShipped, StatusCancelled))
	assert.False(t, CanTransition(StatusPaid, StatusPaid))
	assert.False(t, CanTransition("lost", StatusPaid))
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("shipped")
	assert.True(t, ok)
	assert.Equal(t, StatusShipped, s)

	_, ok = ParseStatus("SHIPPED")
	assert.False(t, ok)
}

func TestAddressMatching(t *testing.T) {
	a := Address{Address1: "12 MG Road", PostalCode: "411001", Phone: "999", City: "Pune"}
	b := a
	b.City = "Mumbai"
	assert.True(t, a.SameDestination(b))

	b.Phone = "888"
	assert.False(t, a.SameDestination(b))

	c := &Customer{Addresses: []Address{a}}
	assert.True(t, c.HasAddress(Address{Address1: "12 MG Road", PostalCode: "411001", Phone: "999"}))
	assert.False(t, c.HasAddress(b))
}
