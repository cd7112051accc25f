package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSwapTransition_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(swapTransitions.WithLabelValues("open", "accepted"))
	SwapTransition("open", "accepted")
	after := testutil.ToFloat64(swapTransitions.WithLabelValues("open", "accepted"))

	if after-before != 1 {
		t.Errorf("期望计数 +1，实际 +%v", after-before)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register() // 第二次调用不应 panic
}

func TestInstrument_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Instrument())
	r.GET("/shifts/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/shifts/:id", "200"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shifts/abc", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/shifts/:id", "200"))
	if after-before != 1 {
		t.Errorf("期望按路由模板计数 +1，实际 +%v", after-before)
	}
}
