package admin

import (
	"github.com/bazaar-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetAuthzMe 当前管理员身份与角色（来自令牌）
func (h *Handler) GetAuthzMe(c *gin.Context) {
	var roles []string
	if raw, ok := c.Get("admin_roles"); ok {
		roles, _ = raw.([]string)
	}
	response.Success(c, gin.H{
		"admin_id": c.GetUint("admin_id"),
		"username": c.GetString("username"),
		"roles":    roles,
	})
}

// ListAuthzRoles 角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.Roles()
	if err != nil {
		respondError(c, response.CodeInternal, "role fetch failed", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	policies, err := h.AuthzService.RolePolicies(c.Param("role"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "role invalid", err)
		return
	}
	response.Success(c, policies)
}
