package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMiddleware_CountsByRouteTemplate(t *testing.T) {
	m := New()
	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/book/:isbn", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, isbn := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/book/"+isbn, nil))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/book/:isbn", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "readersforest_http_requests_total")
}

func TestRecorders(t *testing.T) {
	m := New()
	m.RatingsFailure()
	m.RatingsFailure()
	m.ReviewSubmitted()
	m.LoginFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ratingsFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewsSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginFailures))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.RatingsFailure()
		nilMetrics.ReviewSubmitted()
		nilMetrics.LoginFailure()
	})
}
