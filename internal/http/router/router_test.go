package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "beneficios_backend/internal/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerConfig struct {
	allowAll bool
	origins  []string
}

func (routerConfig) GetHTTPAddr() string        { return ":0" }
func (c routerConfig) GetCORSAllowAll() bool    { return c.allowAll }
func (c routerConfig) GetCORSOrigins() []string { return c.origins }
func (routerConfig) GetCORSAllowCreds() bool    { return true }
func (routerConfig) GetJWTAccessSecret() string { return "secret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "echo") })
	ctx.Protected.GET("/private", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := New(&apphttp.App{Config: routerConfig{allowAll: true}, Health: pinger{}})
	assert.Equal(t, http.StatusOK, serve(healthy, http.MethodGet, "/api/health").Code)
	assert.Equal(t, http.StatusOK, serve(healthy, http.MethodGet, "/api/ready").Code)

	down := New(&apphttp.App{Config: routerConfig{allowAll: true}, Health: pinger{err: errors.New("db down")}})
	assert.Equal(t, http.StatusOK, serve(down, http.MethodGet, "/api/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, http.MethodGet, "/api/ready").Code)
}

func TestModulesAreMountedBehindAuth(t *testing.T) {
	engine := New(&apphttp.App{Config: routerConfig{allowAll: true}, Modules: []apphttp.Module{echoModule{}}})

	rec := serve(engine, http.MethodGet, "/api/v1/echo")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/private").Code)
}

func TestMetricsEndpointIsOptional(t *testing.T) {
	without := New(&apphttp.App{Config: routerConfig{allowAll: true}})
	assert.Equal(t, http.StatusNotFound, serve(without, http.MethodGet, "/metrics").Code)

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "beneficios_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	with := New(&apphttp.App{Config: routerConfig{allowAll: true}, Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})
	rec := serve(with, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "beneficios_test_total 1")
}

func TestCORSConfig(t *testing.T) {
	open := corsConfig(routerConfig{allowAll: true})
	assert.True(t, open.AllowAllOrigins)
	assert.False(t, open.AllowCredentials)

	scoped := corsConfig(routerConfig{origins: []string{"https://beneficios.natal.rn.gov.br"}})
	assert.False(t, scoped.AllowAllOrigins)
	assert.True(t, scoped.AllowCredentials)
	assert.Equal(t, []string{"https://beneficios.natal.rn.gov.br"}, scoped.AllowOrigins)

	empty := corsConfig(routerConfig{})
	assert.True(t, empty.AllowAllOrigins)
}
