package ticketing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBetterNameUpgradesPlaceholder(t *testing.T) {
	assert.True(t, BetterName(GenericContactName, "João Silva", "5511999998888"))
	assert.True(t, BetterName("5511999998888", "João Silva", "5511999998888"))
	assert.True(t, BetterName("(11) 99999-8888", "João Silva", "11999998888"))
}

func TestBetterNameNeverDowngrades(t *testing.T) {
	assert.False(t, BetterName("João Silva", GenericContactName, "5511999998888"))
	assert.False(t, BetterName("João Silva", "5511999998888", "5511999998888"))
	assert.False(t, BetterName("João Silva", "", "5511999998888"))
	assert.False(t, BetterName("João Silva", "Maria Souza", "5511999998888"),
		"a good name is kept even against another good name")
}

func TestBetterNameRejectsPhoneShapedCandidates(t *testing.T) {
	assert.False(t, BetterName(GenericContactName, "(11) 99999-8888", "11999998888"))
	assert.False(t, BetterName(GenericContactName, "+55 11 99999-8888", "11999998888"))
}

func TestPhoneLike(t *testing.T) {
	assert.True(t, phoneLike("5511999998888"))
	assert.True(t, phoneLike("(11) 9999-8888"))
	assert.False(t, phoneLike("João Silva"))
	assert.False(t, phoneLike("4 amigos"))
	assert.False(t, phoneLike("123"), "too few digits to be a phone")
}
