package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSplitFullMethod(t *testing.T) {
	service, method := splitFullMethod("/grpc.health.v1.Health/Check")
	require.Equal(t, "grpc.health.v1.Health", service)
	require.Equal(t, "Check", method)

	service, method = splitFullMethod("bogus")
	require.Equal(t, "unknown", service)
	require.Equal(t, "unknown", method)
}

func TestObserveRoomOp(t *testing.T) {
	before := testutil.ToFloat64(roomOperationsTotal.WithLabelValues("test_op", "error"))
	ObserveRoomOp("test_op", errors.New("boom"))
	require.Equal(t, before+1, testutil.ToFloat64(roomOperationsTotal.WithLabelValues("test_op", "error")))
}

func TestHTTPMetricsMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", MetricsHandler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "chat_http_requests_total")
}
