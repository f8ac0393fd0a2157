package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（库存计数以商品为粒度）
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                               // 主键
	ShopID      uint           `gorm:"not null;index" json:"shop_id"`                      // 所属店铺ID（0 视为数据异常）
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`             // 名称
	Price       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 价格
	Stock       int            `gorm:"not null;default:0" json:"stock"`                    // 库存
	WeightGrams int            `gorm:"not null;default:0" json:"weight_grams"`             // 单件重量（克，0 使用默认值）
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`                // 是否上架
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"` // 规格列表
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// ProductVariant 商品规格（仅覆盖价格）
type ProductVariant struct {
	ID        uint           `gorm:"primarykey" json:"id"`                               // 主键
	ProductID uint           `gorm:"not null;index" json:"product_id"`                   // 商品ID
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`             // 规格名称
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 规格价格
	IsActive  bool           `gorm:"default:true" json:"is_active"`                      // 是否可售
	CreatedAt time.Time      `json:"created_at"`                                         // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
