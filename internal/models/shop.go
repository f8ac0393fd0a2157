package models

import (
	"time"

	"gorm.io/gorm"
)

// Shop 店铺表
type Shop struct {
	ID         uint           `gorm:"primarykey" json:"id"`                    // 主键
	OwnerID    uint           `gorm:"not null;index" json:"owner_id"`          // 店主用户ID
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`  // 店铺名称
	Phone      string         `gorm:"type:varchar(32)" json:"phone"`           // 联系电话
	Address    string         `gorm:"type:varchar(500)" json:"address"`        // 发货地址
	ProvinceID int            `gorm:"not null;default:0" json:"province_id"`   // 发货省份编码
	DistrictID int            `gorm:"not null;default:0" json:"district_id"`   // 发货区县编码
	WardCode   string         `gorm:"type:varchar(32)" json:"ward_code"`       // 发货街道编码
	IsActive   bool           `gorm:"not null;default:true" json:"is_active"`  // 是否营业
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`                 // 创建时间
	UpdatedAt  time.Time      `json:"updated_at"`                              // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                          // 软删除时间
}

// TableName 指定表名
func (Shop) TableName() string {
	return "shops"
}
