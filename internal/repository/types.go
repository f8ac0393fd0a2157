package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	ShopOwnerID uint
	ShopID      uint
	Status      string
	CheckoutNo  string
	Keyword     string // 管理端模糊搜索：订单ID/订单号/收件人/买家邮箱
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PointHistoryListFilter 查询积分流水的过滤条件
type PointHistoryListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Reason   string
}
