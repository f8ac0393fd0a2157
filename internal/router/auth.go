package router

import (
	"errors"
	"strings"

	"github.com/bazaar-next/internal/authz"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const adminRolesContextKey = "admin_roles"

var (
	errAuthHeaderMissing = errors.New("authorization header missing")
	errAuthHeaderInvalid = errors.New("authorization header invalid")
)

// bearerToken 读取 Authorization: Bearer <token>
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errAuthHeaderMissing
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", errAuthHeaderInvalid
	}
	return token, nil
}

// parseHS256 只接受 HS256 签名，claims 由调用方提供具体类型
func parseHS256(tokenString, secretKey string, claims jwt.Claims) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	return err
}

func abortUnauthorized(c *gin.Context, msg string) {
	response.Unauthorized(c, msg)
	c.Abort()
}

func abortForbidden(c *gin.Context) {
	response.Forbidden(c, "forbidden")
	c.Abort()
}

// AdminJWTAuthMiddleware 校验账号中心签发的管理员令牌
func AdminJWTAuthMiddleware(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			abortUnauthorized(c, "jwt secret not configured")
			return
		}
		tokenString, err := bearerToken(c)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}
		claims := &service.AdminJWTClaims{}
		if err := parseHS256(tokenString, secretKey, claims); err != nil || claims.AdminID == 0 {
			abortUnauthorized(c, "token invalid")
			return
		}

		c.Set("admin_id", claims.AdminID)
		c.Set("username", claims.Username)
		c.Set(adminRolesContextKey, claims.Roles)
		c.Next()
	}
}

// AdminRBACMiddleware 按令牌角色校验路由模板权限
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortUnauthorized(c, "unauthorized")
			return
		}
		roles, _ := c.Value(adminRolesContextKey).([]string)
		if len(roles) == 0 {
			abortForbidden(c)
			return
		}

		resource := c.FullPath()
		if resource == "" {
			resource = c.Request.URL.Path
		}
		allowed, err := authzService.Allow(roles, c.Request.Method, resource)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", c.GetUint("admin_id"),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", c.GetUint("admin_id"),
				"roles", roles,
				"method", c.Request.Method,
				"resource", authz.ResourcePath(resource),
			)
			abortForbidden(c)
			return
		}
		c.Next()
	}
}

// UserJWTAuthMiddleware 用户 JWT 鉴权，令牌中的用户必须已同步到本地
func UserJWTAuthMiddleware(secretKey string, userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			abortUnauthorized(c, "jwt secret not configured")
			return
		}
		tokenString, err := bearerToken(c)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}
		claims := &service.UserJWTClaims{}
		if err := parseHS256(tokenString, secretKey, claims); err != nil || claims.UserID == 0 || userRepo == nil {
			abortUnauthorized(c, "token invalid")
			return
		}
		user, err := userRepo.GetByID(claims.UserID)
		if err != nil || user == nil {
			if err != nil {
				logger.Warnw("user_auth_lookup_failed", "user_id", claims.UserID, "error", err)
			}
			abortUnauthorized(c, "token invalid")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", user.Email)
		c.Next()
	}
}
