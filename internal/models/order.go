package models

import (
	"time"

	"github.com/bazaar-next/internal/constants"

	"gorm.io/gorm"
)

// Order 订单表（一次结算按店铺拆分为多个同级订单）
type Order struct {
	ID              uint                  `gorm:"primarykey" json:"id"`                                              // 主键
	OrderNo         string                `gorm:"uniqueIndex;not null" json:"order_no"`                              // 订单编号
	CheckoutNo      string                `gorm:"index;not null" json:"checkout_no"`                                 // 结算批次号（同级订单共享）
	UserID          uint                  `gorm:"index;not null" json:"user_id"`                                     // 买家ID
	ShopID          uint                  `gorm:"index;not null" json:"shop_id"`                                     // 店铺ID
	Status          constants.OrderStatus `gorm:"type:varchar(20);index;not null" json:"status"`                     // 履约状态
	PaymentMethod   string                `gorm:"type:varchar(20);not null" json:"payment_method"`                   // 支付方式（cod/online）
	PaymentStatus   string                `gorm:"type:varchar(20);index;not null" json:"payment_status"`             // 支付状态
	Subtotal        Money                 `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`             // 商品小计
	ShippingFee     Money                 `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_fee"`         // 运费
	GiftFee         Money                 `gorm:"type:decimal(20,2);not null;default:0" json:"gift_fee"`             // 礼品包装费
	ShopDiscount    Money                 `gorm:"type:decimal(20,2);not null;default:0" json:"shop_discount"`        // 店铺券优惠
	SystemDiscount  Money                 `gorm:"type:decimal(20,2);not null;default:0" json:"system_discount"`      // 平台券分摊优惠
	CoinDiscount    Money                 `gorm:"type:decimal(20,2);not null;default:0" json:"coin_discount"`        // 积分抵扣分摊
	CoinPoints      int64                 `gorm:"not null;default:0" json:"coin_points"`                             // 扣除的整数积分（取消时原样退回）
	TotalAmount     Money                 `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`         // 实付金额
	VoucherID       *uint                 `gorm:"index" json:"voucher_id,omitempty"`                                 // 店铺券ID
	SystemVoucherID *uint                 `gorm:"index" json:"system_voucher_id,omitempty"`                          // 平台券ID
	RecipientName   string                `gorm:"type:varchar(100);not null" json:"recipient_name"`                  // 收件人
	RecipientPhone  string                `gorm:"type:varchar(32);not null" json:"recipient_phone"`                  // 收件电话
	RecipientAddr   string                `gorm:"type:varchar(500);not null" json:"recipient_address"`               // 收件地址
	ProvinceID      int                   `gorm:"not null;default:0" json:"province_id"`                             // 省份编码
	DistrictID      int                   `gorm:"not null;default:0" json:"district_id"`                             // 区县编码
	WardCode        string                `gorm:"type:varchar(32)" json:"ward_code"`                                 // 街道编码
	IsGift          bool                  `gorm:"not null;default:false" json:"is_gift"`                             // 是否礼品订单
	GiftMessage     string                `gorm:"type:varchar(500)" json:"gift_message,omitempty"`                   // 礼品留言
	GiftSenderName  string                `gorm:"type:varchar(100)" json:"gift_sender_name,omitempty"`               // 赠送人
	Note            string                `gorm:"type:varchar(500)" json:"note,omitempty"`                           // 买家备注
	WeightGrams     int                   `gorm:"not null;default:0" json:"weight_grams"`                            // 总重量（克）
	TrackingCode    string                `gorm:"type:varchar(64);index" json:"tracking_code,omitempty"`             // 物流单号
	PaymentURL      string                `gorm:"type:varchar(1000)" json:"payment_url,omitempty"`                   // 支付跳转地址
	ConfirmedAt     *time.Time            `json:"confirmed_at"`                                                      // 卖家确认时间
	DeliveredAt     *time.Time            `gorm:"index" json:"delivered_at"`                                         // 送达时间
	CanceledAt      *time.Time            `gorm:"index" json:"canceled_at"`                                          // 取消时间
	CreatedAt       time.Time             `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt       time.Time             `gorm:"index" json:"updated_at"`                                           // 更新时间
	DeletedAt       gorm.DeletedAt        `gorm:"index" json:"-"`                                                    // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
	Shop  *Shop       `gorm:"foreignKey:ShopID" json:"shop,omitempty"`   // 店铺
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
