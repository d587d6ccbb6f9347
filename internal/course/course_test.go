package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	code, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, None, code)

	code, err = Parse("none")
	require.NoError(t, err)
	assert.Equal(t, None, code)

	code, err = Parse(" online_cardio ")
	require.NoError(t, err)
	assert.Equal(t, OnlineCardio, code)

	_, err = Parse("yoga")
	assert.Error(t, err)
}

func TestByCategory(t *testing.T) {
	assert.Len(t, ByCategory(InPerson), 2)
	assert.Len(t, ByCategory(Online), 3)
	assert.Len(t, All(), 5)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "نامشخص", Label(None))
	assert.Contains(t, Label(OnlineCombo), "وزنه")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "999,000 تومان", FormatPrice(999000))
	assert.Equal(t, "3,000,000 تومان", FormatPrice(3000000))
}
