package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartTotal(t *testing.T) {
	discount := 40.0
	lines := []CartLine{
		{ProductID: "p1", Price: 100, Quantity: 2},
		{ProductID: "p2", Price: 50, DiscountPrice: &discount, Quantity: 3},
	}
	assert.Equal(t, 320.0, CartTotal(lines))
}

func TestCartTotalEmpty(t *testing.T) {
	assert.Zero(t, CartTotal(nil))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAstrologer, ParseRole("astrologer"))
	assert.Equal(t, RoleUser, ParseRole("user"))
	assert.Equal(t, RoleUser, ParseRole(""))
	assert.False(t, Role("admin").Valid())
}
