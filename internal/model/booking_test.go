package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from string
		to   string
		want bool
	}{
		{PaymentPending, PaymentCompleted, true},
		{PaymentPending, PaymentCancelled, true},
		{PaymentCompleted, PaymentCancelled, true},
		{PaymentCompleted, PaymentCompleted, false},
		{PaymentCompleted, PaymentPending, false},
		// Cancelled is terminal.
		{PaymentCancelled, PaymentPending, false},
		{PaymentCancelled, PaymentCompleted, false},
		{PaymentCancelled, PaymentCancelled, false},
		{"bogus", PaymentCompleted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransitionTo(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
