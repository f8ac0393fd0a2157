package authz

import (
	"errors"
	"strings"
)

// 管理端接口在授权表中不带版本前缀
const apiPrefix = "/api/v1"

const roleNamespace = "role:"

// rbacModel 角色继承 + 路由模板匹配，"*" 动作表示任意方法
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (r.sub == p.sub || g(r.sub, p.sub)) && keyMatch2(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

var errRoleRequired = errors.New("role is required")

// Policy 角色可访问的接口
type Policy struct {
	Role   string `json:"role"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// RoleView 角色及其直接继承与策略
type RoleView struct {
	Role     string   `json:"role"`
	Inherits []string `json:"inherits"`
	Policies []Policy `json:"policies"`
}

// CanonicalRole 角色统一带 role: 命名空间，空白替换为下划线
func CanonicalRole(role string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(role), roleNamespace)
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		return "", errRoleRequired
	}
	return roleNamespace + name, nil
}

// ResourcePath 去掉版本前缀并保证以 / 开头
func ResourcePath(path string) string {
	p := strings.TrimSpace(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	switch {
	case p == apiPrefix:
		return "/"
	case strings.HasPrefix(p, apiPrefix+"/"):
		return p[len(apiPrefix):]
	}
	return p
}

// CanonicalMethod HTTP 方法大写
func CanonicalMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}
