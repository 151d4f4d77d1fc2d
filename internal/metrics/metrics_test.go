package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersExposed(t *testing.T) {
	m := New()
	m.RecordsAdded.Inc()
	m.Voids.WithLabelValues("ban applied").Inc()
	m.AmountPaid.WithLabelValues("bonus").Add(50)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsAdded))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.AmountPaid.WithLabelValues("bonus")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `paystat_voids_total{outcome="ban applied"} 1`)
}
