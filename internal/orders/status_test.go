package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusExpired, true},
		{StatusExpired, StatusPaid, true}, // late completion still wins
		{StatusPaid, StatusExpired, false},
		{StatusPaid, StatusPending, false},
		{StatusExpired, StatusPending, false},
		{StatusPaid, StatusPaid, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}
