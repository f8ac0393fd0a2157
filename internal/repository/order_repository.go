package repository

import (
	"errors"
	"strings"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDAndUser(id uint, userID uint) (*models.Order, error)
	ListByCheckoutNo(checkoutNo string) ([]models.Order, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	ListByShopOwner(filter OrderListFilter) ([]models.Order, int64, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	TransitionStatus(id uint, from []constants.OrderStatus, to constants.OrderStatus, updates map[string]interface{}) (int64, error)
	SetTrackingCode(id uint, trackingCode string) (int64, error)
	SetPaymentURL(ids []uint, paymentURL string) error
	MarkCheckoutPaid(checkoutNo string) (int64, error)
	CountLiveSiblingsWithSystemVoucher(checkoutNo string, voucherID uint, excludeOrderID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items", "Shop").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDAndUser 获取用户订单详情
func (r *GormOrderRepository) GetByIDAndUser(id uint, userID uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByCheckoutNo 获取同一次结算的全部同级订单
func (r *GormOrderRepository) ListByCheckoutNo(checkoutNo string) ([]models.Order, error) {
	var orders []models.Order
	if strings.TrimSpace(checkoutNo) == "" {
		return orders, nil
	}
	if err := r.db.Preload("Items").
		Where("checkout_no = ?", checkoutNo).
		Order("id asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListByUser 获取买家订单列表
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Where("user_id = ?", filter.UserID)
	return r.list(applyOrderFilter(query, filter), filter)
}

// ListByShopOwner 获取卖家（店主）名下所有店铺的订单
func (r *GormOrderRepository) ListByShopOwner(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).
		Where("shop_id IN (?)", r.db.Model(&models.Shop{}).Select("id").Where("owner_id = ?", filter.ShopOwnerID))
	return r.list(applyOrderFilter(query, filter), filter)
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.UserID != 0 {
		query = query.Where("orders.user_id = ?", filter.UserID)
	}
	query = applyOrderFilter(query, filter)

	keyword := strings.TrimSpace(filter.Keyword)
	if keyword != "" {
		like := "%" + keyword + "%"
		condition, argCount := buildLikeCondition(r.db, []string{
			"orders.id",
			"orders.order_no",
			"orders.recipient_name",
			"orders.recipient_phone",
		})
		emailCondition, _ := buildLikeCondition(r.db, []string{"email"})
		buyers := r.db.Model(&models.User{}).Select("id").Where(emailCondition, like)
		args := append(repeatLikeArgs(like, argCount), buyers)
		query = query.Where("("+condition+" OR orders.user_id IN (?))", args...)
	}
	return r.list(query, filter)
}

func (r *GormOrderRepository) list(query *gorm.DB, filter OrderListFilter) ([]models.Order, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Preload("Items").Order("orders.id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func applyOrderFilter(query *gorm.DB, filter OrderListFilter) *gorm.DB {
	if filter.ShopID != 0 {
		query = query.Where("orders.shop_id = ?", filter.ShopID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("orders.status = ?", status)
	}
	if checkoutNo := strings.TrimSpace(filter.CheckoutNo); checkoutNo != "" {
		query = query.Where("orders.checkout_no = ?", checkoutNo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("orders.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("orders.created_at <= ?", *filter.CreatedTo)
	}
	return query
}

// TransitionStatus 条件更新订单状态，仅当当前状态属于 from 时生效，返回影响行数
func (r *GormOrderRepository) TransitionStatus(id uint, from []constants.OrderStatus, to constants.OrderStatus, updates map[string]interface{}) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	query := r.db.Model(&models.Order{}).Where("id = ?", id)
	if len(from) > 0 {
		query = query.Where("status IN ?", from)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SetTrackingCode 回写物流单号，已有单号时不覆盖
func (r *GormOrderRepository) SetTrackingCode(id uint, trackingCode string) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND (tracking_code IS NULL OR tracking_code = '')", id).
		Update("tracking_code", trackingCode)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SetPaymentURL 为同批订单写入支付跳转地址
func (r *GormOrderRepository) SetPaymentURL(ids []uint, paymentURL string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id IN ?", ids).Update("payment_url", paymentURL).Error
}

// MarkCheckoutPaid 将同批次待支付的在线订单标记为已支付，返回影响行数
func (r *GormOrderRepository) MarkCheckoutPaid(checkoutNo string) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("checkout_no = ? AND payment_method = ? AND payment_status = ? AND status <> ?",
			checkoutNo, constants.PaymentMethodOnline, constants.PaymentStatusPending, constants.OrderStatusCancelled).
		Update("payment_status", constants.PaymentStatusPaid)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountLiveSiblingsWithSystemVoucher 统计同批次中仍未取消且使用同一平台券的其他订单
func (r *GormOrderRepository) CountLiveSiblingsWithSystemVoucher(checkoutNo string, voucherID uint, excludeOrderID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("checkout_no = ? AND system_voucher_id = ? AND id <> ? AND status <> ?",
			checkoutNo, voucherID, excludeOrderID, constants.OrderStatusCancelled).
		Count(&count).Error
	return count, err
}
