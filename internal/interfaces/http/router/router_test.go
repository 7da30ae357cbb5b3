package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.groups)

	r = NewRouter(gin.New(), WithAPIVersion("/v2/"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	hits := 0
	r := NewRouter(engine, WithAPIMiddleware(func(c *gin.Context) {
		hits++
		c.Next()
	}))

	mounted := r.Mount(Group{
		Name:   "test",
		Prefix: "/test",
		Routes: []Route{GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })},
	}).Setup()
	assert.Equal(t, []string{"GET /api/v1/test/ping"}, mounted)

	engine.GET("/outside", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outside", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, hits, "API middleware runs only for versioned routes")
}

func TestGroup(t *testing.T) {
	noop := func(c *gin.Context) {}

	t.Run("describes routes in order", func(t *testing.T) {
		g := Group{Prefix: "/receipts", Routes: []Route{
			POST("", noop),
			GET("/:handle", noop),
			DELETE("/:handle", noop),
		}}
		assert.Equal(t, []string{
			"POST /receipts",
			"GET /receipts/:handle",
			"DELETE /receipts/:handle",
		}, g.Describe())
	})

	t.Run("applies group middleware", func(t *testing.T) {
		engine := gin.New()
		g := Group{
			Prefix: "/test",
			Middleware: []gin.HandlerFunc{func(c *gin.Context) {
				c.Header("X-Group", "yes")
				c.Next()
			}},
			Routes: []Route{DELETE("/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })},
		}
		g.mount(engine.Group("/api"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/test/42", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "yes", w.Header().Get("X-Group"))
	})
}
