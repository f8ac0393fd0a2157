package router

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAdminPermissionCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	noop := func(*gin.Context) {}
	engine.GET("/api/v1/orders", noop)
	engine.GET("/api/v1/admin/orders", noop)
	engine.GET("/api/v1/admin/orders/:id", noop)
	engine.GET("/api/v1/admin/authz/roles", noop)

	items := buildAdminPermissionCatalog(engine)
	require.Len(t, items, 3)
	assert.Equal(t, "authz", items[0].Module)
	assert.Equal(t, "GET:/admin/authz/roles", items[0].Permission)
	assert.Equal(t, "orders", items[1].Module)
	assert.Equal(t, "/admin/orders", items[1].Object)
	assert.Equal(t, "/admin/orders/:id", items[2].Object)
}

func TestDeriveAdminPermissionModule(t *testing.T) {
	assert.Equal(t, "system", deriveAdminPermissionModule("/"))
	assert.Equal(t, "orders", deriveAdminPermissionModule("/admin/orders/:id"))
	assert.Equal(t, "authz", deriveAdminPermissionModule("/admin/authz/roles/:role/policies"))
	assert.Equal(t, "seller", deriveAdminPermissionModule("/seller/orders"))
}
