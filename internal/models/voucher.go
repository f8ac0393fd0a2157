package models

import (
	"time"

	"gorm.io/gorm"
)

// Voucher 优惠券（店铺券或平台券）
type Voucher struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                      // 主键
	Code        string         `gorm:"uniqueIndex;not null" json:"code"`                          // 优惠码
	Scope       string         `gorm:"type:varchar(20);not null;index" json:"scope"`              // 范围（shop/system）
	ShopID      uint           `gorm:"not null;default:0;index" json:"shop_id"`                   // 店铺ID（平台券为 0）
	Type        string         `gorm:"type:varchar(20);not null" json:"type"`                     // 类型（fixed/percent）
	Value       Money          `gorm:"type:decimal(20,2);not null" json:"value"`                  // 数值（固定金额或百分比）
	MinAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_amount"`   // 使用门槛
	MaxDiscount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_discount"` // 最大优惠金额（0 表示不限）
	UsageLimit  int            `gorm:"not null;default:0" json:"usage_limit"`                     // 总使用上限（0 表示不限制）
	UsedCount   int            `gorm:"not null;default:0" json:"used_count"`                      // 已使用次数
	StartsAt    *time.Time     `gorm:"index" json:"starts_at"`                                    // 生效时间
	EndsAt      *time.Time     `gorm:"index" json:"ends_at"`                                      // 失效时间
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`                    // 是否启用
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (Voucher) TableName() string {
	return "vouchers"
}

// UserVoucher 用户个人用券记录
type UserVoucher struct {
	ID        uint       `gorm:"primarykey" json:"id"`                                   // 主键
	UserID    uint       `gorm:"not null;uniqueIndex:idx_user_voucher" json:"user_id"`   // 用户ID
	VoucherID uint       `gorm:"not null;uniqueIndex:idx_user_voucher" json:"voucher_id"` // 优惠券ID
	IsUsed    bool       `gorm:"not null;default:false" json:"is_used"`                  // 是否已使用
	UsedAt    *time.Time `json:"used_at"`                                                // 使用时间
	OrderID   *uint      `gorm:"index" json:"order_id,omitempty"`                        // 使用订单ID
	CreatedAt time.Time  `json:"created_at"`                                             // 创建时间
	UpdatedAt time.Time  `json:"updated_at"`                                             // 更新时间
}

// TableName 指定表名
func (UserVoucher) TableName() string {
	return "user_vouchers"
}
