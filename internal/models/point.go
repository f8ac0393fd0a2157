package models

import (
	"time"
)

// PointWallet 积分钱包
type PointWallet struct {
	ID        uint      `gorm:"primarykey" json:"id"`                 // 主键
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`  // 用户ID
	Balance   int64     `gorm:"not null;default:0" json:"balance"`    // 积分余额
	CreatedAt time.Time `json:"created_at"`                           // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                           // 更新时间
}

// TableName 指定表名
func (PointWallet) TableName() string {
	return "point_wallets"
}

// PointHistory 积分流水（只追加）
type PointHistory struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                  // 主键
	UserID       uint      `gorm:"index;not null" json:"user_id"`                         // 用户ID
	Amount       int64     `gorm:"not null" json:"amount"`                                // 变动积分（正为入账，负为扣减）
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`                         // 变动后余额
	Reason       string    `gorm:"type:varchar(40);index;not null" json:"reason"`         // 变动原因
	OrderID      *uint     `gorm:"index" json:"order_id,omitempty"`                       // 关联订单ID
	Reference    string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"` // 幂等引用
	Description  string    `gorm:"type:varchar(255)" json:"description"`                  // 描述
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                               // 创建时间
}

// TableName 指定表名
func (PointHistory) TableName() string {
	return "point_histories"
}
