package authz

import (
	"errors"
	"fmt"
	"sort"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const policyTable = "casbin_rule"

// ErrUnavailable 授权服务未初始化
var ErrUnavailable = errors.New("authz service unavailable")

// Service 管理端角色授权
// 管理员身份与角色来自账号中心签发的令牌，本服务只维护角色到接口的映射
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 基于 gorm 适配器加载策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", policyTable)
	if err != nil {
		return nil, fmt.Errorf("authz adapter: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz load policy: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// Allow 令牌中任一角色可访问该接口即放行，无效角色忽略
func (s *Service) Allow(roles []string, method, path string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	obj, act := ResourcePath(path), CanonicalMethod(method)
	for _, raw := range roles {
		role, err := CanonicalRole(raw)
		if err != nil {
			continue
		}
		ok, err := s.enforcer.Enforce(role, obj, act)
		if err != nil {
			return false, fmt.Errorf("enforce %s: %w", role, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Grant 为角色增加接口权限，已存在时不报错
func (s *Service) Grant(role, method, path string) error {
	if err := s.ready(); err != nil {
		return err
	}
	name, err := CanonicalRole(role)
	if err != nil {
		return err
	}
	act := CanonicalMethod(method)
	if act == "" {
		return errors.New("method is required")
	}
	if _, err := s.enforcer.AddPolicy(name, ResourcePath(path), act); err != nil {
		return fmt.Errorf("grant %s %s %s: %w", name, act, path, err)
	}
	return nil
}

// Inherit 角色继承父角色全部权限
func (s *Service) Inherit(role, parent string) error {
	if err := s.ready(); err != nil {
		return err
	}
	child, err := CanonicalRole(role)
	if err != nil {
		return err
	}
	base, err := CanonicalRole(parent)
	if err != nil {
		return err
	}
	if child == base {
		return fmt.Errorf("role %s cannot inherit itself", child)
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", child, base); err != nil {
		return fmt.Errorf("inherit %s from %s: %w", child, base, err)
	}
	return nil
}

// RolePolicies 角色自身的策略（不含继承）
func (s *Service) RolePolicies(role string) ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	name, err := CanonicalRole(role)
	if err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, name)
	if err != nil {
		return nil, fmt.Errorf("list policies of %s: %w", name, err)
	}
	return toPolicies(rules), nil
}

// Roles 全部角色视图，按角色名排序
func (s *Service) Roles() ([]RoleView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	links, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0)
	if err != nil {
		return nil, fmt.Errorf("list role links: %w", err)
	}

	views := make(map[string]*RoleView)
	view := func(role string) *RoleView {
		v, ok := views[role]
		if !ok {
			v = &RoleView{Role: role, Inherits: []string{}, Policies: []Policy{}}
			views[role] = v
		}
		return v
	}
	for _, p := range toPolicies(rules) {
		v := view(p.Role)
		v.Policies = append(v.Policies, p)
	}
	for _, link := range links {
		if len(link) < 2 {
			continue
		}
		v := view(link[0])
		v.Inherits = append(v.Inherits, link[1])
		view(link[1])
	}

	out := make([]RoleView, 0, len(views))
	for _, v := range views {
		sort.Strings(v.Inherits)
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

func toPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{Role: rule[0], Path: rule[1], Method: rule[2]})
	}
	return policies
}
