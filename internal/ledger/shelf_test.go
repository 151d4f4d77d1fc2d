package ledger

import (
	"testing"
	"time"

	"github.com/alufers/paystat-bot/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShelfOpensOneBookPerPeriod(t *testing.T) {
	dir := t.TempDir()
	shelf := NewShelf(dir, WithIDSource(seqIDs("11111", "22222")))

	oct, err := shelf.At(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "OCT_2026", oct.Name())
	assert.FileExists(t, PeriodFile(dir, "OCT_2026"))

	again, err := shelf.ForDate("2026-10-01")
	require.NoError(t, err)
	assert.Same(t, oct, again)

	nov, err := shelf.ForDate("2026-11-01")
	require.NoError(t, err)
	assert.Equal(t, "NOV_2026", nov.Name())

	_, err = shelf.ForDate("16/10/2026")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
