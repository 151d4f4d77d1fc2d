package cmdargs

import (
	"sort"
	"testing"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	got, err := Split(`12345 pay_time="7-8 PM"  bonus_paid=3 'a b'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"12345", "pay_time=7-8 PM", "bonus_paid=3", "a b"}, got)

	got, err = Split("   ")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Split(`""`)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)

	got, err = Split(`pay_time=7-8\ PM`)
	require.NoError(t, err)
	assert.Equal(t, []string{"pay_time=7-8 PM"}, got)

	_, err = Split(`pay_time="7-8 PM`)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParseNamedAndPositional(t *testing.T) {
	a, err := Parse(`12345 People_Paid=4 pay_time="1-2 PM"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"12345"}, a.Positional)

	n, err := a.Int("people_paid")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 4, *n)

	n, err = a.Int("bonus_paid")
	require.NoError(t, err)
	assert.Nil(t, n)

	require.NotNil(t, a.String("pay_time"))
	assert.Equal(t, "1-2 PM", *a.String("pay_time"))
	assert.Nil(t, a.String("pay_date"))
}

func TestIntRejectsGarbage(t *testing.T) {
	a, err := Parse("people_paid=lots")
	require.NoError(t, err)
	_, err = a.Int("people_paid")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestInts(t *testing.T) {
	a, err := Parse("10 8 400 50")
	require.NoError(t, err)
	got, err := a.Ints(4, "total_claiming", "people_paid", "paytime_paid", "bonus_paid")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 8, 400, 50}, got)

	a, _ = Parse("10 8")
	_, err = a.Ints(4)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	a, _ = Parse("10 x 1 1")
	_, err = a.Ints(4, "total_claiming", "people_paid")
	assert.ErrorContains(t, err, "people_paid")
}

func TestUnknown(t *testing.T) {
	a, _ := Parse("record_id=1 colour=red size=2")
	got := a.Unknown("record_id")
	sort.Strings(got)
	assert.Equal(t, []string{"colour", "size"}, got)
}
