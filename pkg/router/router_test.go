package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestGroupMiddlewareOrderAndNames(t *testing.T) {
	r := New()

	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, req)
			})
		}
	}

	api := r.Group("/api", tag("api"))
	admin := api.Group("admin", tag("admin"))
	admin.Post("/updateOrderStatus", "admin.updateOrderStatus", ok, tag("route"))
	api.Get("/products/list", "products.list", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/updateOrderStatus", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"api", "admin", "route"}, order)

	path, found := r.Path("admin.updateOrderStatus")
	require.True(t, found)
	assert.Equal(t, "/api/admin/updateOrderStatus", path)

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "admin.updateOrderStatus", routes[0].Name)
	assert.Equal(t, http.MethodGet, routes[1].Method)
}

func TestMethodMismatch(t *testing.T) {
	r := New()
	r.Post("/api/cart/addItem", "cart.addItem", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart/addItem", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestURL(t *testing.T) {
	r := New()
	r.Get("/storage/{key}", "storage.show", ok)

	u, err := r.URL("storage.show", map[string]string{"key": "a.png"})
	require.NoError(t, err)
	assert.Equal(t, "/storage/a.png", u)

	_, err = r.URL("storage.show", nil)
	assert.Error(t, err)

	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}
