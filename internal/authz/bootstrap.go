package authz

import (
	"github.com/bazaar-next/internal/constants"
)

// RoleSeed 预置角色
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 稽核只读列表，客服可看详情，超级管理员全部放行
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role:     constants.AdminRoleAuditor,
			Policies: []Policy{{Method: "GET", Path: "/admin/orders"}, {Method: "GET", Path: "/admin/authz/me"}},
		},
		{
			Role:     constants.AdminRoleSupport,
			Inherits: []string{constants.AdminRoleAuditor},
			Policies: []Policy{{Method: "GET", Path: "/admin/orders/:id"}},
		},
		{
			Role:     constants.AdminRoleSuper,
			Policies: []Policy{{Method: "*", Path: "/admin/*"}},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	for _, seed := range BuiltinRoleSeeds() {
		for _, p := range seed.Policies {
			if err := s.Grant(seed.Role, p.Method, p.Path); err != nil {
				return err
			}
		}
		for _, parent := range seed.Inherits {
			if err := s.Inherit(seed.Role, parent); err != nil {
				return err
			}
		}
	}
	return nil
}
