package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsPrivateRegistries(t *testing.T) {
	// Two registries must not collide.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())
	require.NotNil(t, a)
	require.NotNil(t, b)

	unregistered := NewMetrics(nil)
	unregistered.SetMountsActive(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(unregistered.MountsActive))
}

func TestRecordSync(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordSync(true, 10, 2, 3, 1, 4)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncRuns.WithLabelValues("dry_run")))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.SyncObjects.WithLabelValues("scanned")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.SyncObjects.WithLabelValues("error")))
}

func TestTimer(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	NewTimer(m, "list").Stop("ok")
	m.RecordRPC("read", "not_found", time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.OpsTotal.WithLabelValues("list", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RPCCalls.WithLabelValues("read", "not_found")))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.POST("/api/nfs/:method", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/nfs/list", nil))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/api/nfs/:method", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
