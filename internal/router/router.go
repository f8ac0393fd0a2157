package router

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bazaar-next/internal/authz"
	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/config"
	adminhandlers "github.com/bazaar-next/internal/http/handlers/admin"
	publichandlers "github.com/bazaar-next/internal/http/handlers/public"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "bz"
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
		Message:       "too many checkout attempts, retry in %d seconds",
	}
	checkoutLimiter := RateLimitMiddleware(cache.Client(), checkoutRule, KeyByUserID)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(MetricsMiddleware(c.Metrics))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 买家与卖家接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/cart", publicHandler.GetCart)
			user.POST("/cart/items", publicHandler.UpsertCartItem)
			user.DELETE("/cart/items/:product_id", publicHandler.DeleteCartItem)
			user.POST("/checkout/preview", checkoutLimiter, publicHandler.PreviewCheckout)
			user.POST("/orders", checkoutLimiter, publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.POST("/orders/:id/cancel", publicHandler.CancelOrder)
			user.POST("/orders/:id/confirm-received", publicHandler.ConfirmOrderReceived)
			user.GET("/me/points", publicHandler.GetMyPoints)

			user.GET("/seller/shops", publicHandler.ListSellerShops)
			user.GET("/seller/orders", publicHandler.ListSellerOrders)
			user.PATCH("/seller/orders/:id/status", publicHandler.UpdateSellerOrderStatus)
		}

		// 支付网关回调（签名校验）
		apiV1.POST("/payments/notify", publicHandler.PaymentNotify)

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(AdminJWTAuthMiddleware(cfg.JWT.SecretKey), AdminRBACMiddleware(c.AuthzService))
		{
			// 权限
			admin.GET("/authz/me", adminHandler.GetAuthzMe)
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			admin.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})

			// 订单
			admin.GET("/orders", adminHandler.AdminListOrders)
			admin.GET("/orders/:id", adminHandler.AdminGetOrder)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := models.PingDB(ctx); err != nil {
			logger.Warnw("health_db_ping_failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

// adminPermissionCatalogItem 可授权的管理端接口
type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 从已注册路由生成权限目录，按模块、路径、方法排序
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	items := []adminPermissionCatalogItem{}
	if engine == nil {
		return items
	}
	seen := map[string]bool{}
	for _, route := range engine.Routes() {
		method := authz.CanonicalMethod(route.Method)
		if method == "" || method == "OPTIONS" || method == "HEAD" || !strings.HasPrefix(route.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.ResourcePath(route.Path)
		permission := method + ":" + object
		if seen[permission] {
			continue
		}
		seen[permission] = true
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Method < b.Method
	})
	return items
}

// deriveAdminPermissionModule /admin/<module>/... 取 module，其余取首段
func deriveAdminPermissionModule(object string) string {
	segments := strings.Split(strings.Trim(strings.TrimSpace(object), "/"), "/")
	switch {
	case segments[0] == "":
		return "system"
	case segments[0] == "admin" && len(segments) > 1:
		return segments[1]
	}
	return segments[0]
}
