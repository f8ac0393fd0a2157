package service

import "github.com/golang-jwt/jwt/v5"

// UserJWTClaims 账号中心签发的用户令牌声明
type UserJWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AdminJWTClaims 管理员令牌声明，角色由账号中心维护
type AdminJWTClaims struct {
	AdminID  uint     `json:"admin_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}
