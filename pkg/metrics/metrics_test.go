package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(ticketsConfirmed)
	RecordTicketsConfirmed(3)
	assert.Equal(t, before+3, testutil.ToFloat64(ticketsConfirmed))

	RecordPurchaseRejected("sales_closed")
	assert.Equal(t, float64(1), testutil.ToFloat64(purchasesRejected.WithLabelValues("sales_closed")))

	SetRound(7, 25_000_000, 5, true)
	assert.Equal(t, float64(7), testutil.ToFloat64(roundNumber))
	assert.Equal(t, float64(1), testutil.ToFloat64(roundStuck))

	ObserveDisbursement(true, 2*time.Second)
	RecordRoundOutcome("jackpot_paid")
	assert.Equal(t, float64(1), testutil.ToFloat64(roundOutcomes.WithLabelValues("jackpot_paid")))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/lottery/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/lottery/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/lottery/stats", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nikepig_http_requests_total")
}
