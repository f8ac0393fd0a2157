package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoucherRepository 优惠券数据访问接口
type VoucherRepository interface {
	GetByID(id uint) (*models.Voucher, error)
	ListByCodes(codes []string) ([]models.Voucher, error)
	IncrementUsage(id uint) (int64, error)
	DecrementUsage(id uint) (int64, error)
	ListUsedVoucherIDs(userID uint, voucherIDs []uint) ([]uint, error)
	MarkUserVoucherUsed(userID, voucherID, orderID uint, usedAt time.Time) (int64, error)
	RevertUserVoucher(userID, voucherID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormVoucherRepository
}

// GormVoucherRepository GORM 实现
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository 创建优惠券仓库
func NewVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVoucherRepository) WithTx(tx *gorm.DB) *GormVoucherRepository {
	if tx == nil {
		return r
	}
	return &GormVoucherRepository{db: tx}
}

// GetByID 根据 ID 获取优惠券
func (r *GormVoucherRepository) GetByID(id uint) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.First(&voucher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// ListByCodes 按优惠码批量查询（忽略大小写前后空白）
func (r *GormVoucherRepository) ListByCodes(codes []string) ([]models.Voucher, error) {
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		if trimmed := strings.TrimSpace(code); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	var vouchers []models.Voucher
	if len(normalized) == 0 {
		return vouchers, nil
	}
	if err := r.db.Where("code IN ?", normalized).Order("id asc").Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// IncrementUsage 条件增加使用次数（未达上限时生效），返回影响行数
func (r *GormVoucherRepository) IncrementUsage(id uint) (int64, error) {
	result := r.db.Model(&models.Voucher{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", id).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DecrementUsage 回退使用次数
func (r *GormVoucherRepository) DecrementUsage(id uint) (int64, error) {
	result := r.db.Model(&models.Voucher{}).
		Where("id = ? AND used_count > 0", id).
		UpdateColumn("used_count", gorm.Expr("used_count - ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListUsedVoucherIDs 返回用户已使用过的优惠券 ID
func (r *GormVoucherRepository) ListUsedVoucherIDs(userID uint, voucherIDs []uint) ([]uint, error) {
	var ids []uint
	if userID == 0 || len(voucherIDs) == 0 {
		return ids, nil
	}
	if err := r.db.Model(&models.UserVoucher{}).
		Where("user_id = ? AND voucher_id IN ? AND is_used = ?", userID, voucherIDs, true).
		Pluck("voucher_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// MarkUserVoucherUsed 标记个人用券，已使用时不再重复标记，返回影响行数
func (r *GormVoucherRepository) MarkUserVoucherUsed(userID, voucherID, orderID uint, usedAt time.Time) (int64, error) {
	row := models.UserVoucher{UserID: userID, VoucherID: voucherID}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "voucher_id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return 0, err
	}
	result := r.db.Model(&models.UserVoucher{}).
		Where("user_id = ? AND voucher_id = ? AND is_used = ?", userID, voucherID, false).
		Updates(map[string]interface{}{
			"is_used":  true,
			"used_at":  usedAt,
			"order_id": orderID,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// RevertUserVoucher 撤销个人用券标记
func (r *GormVoucherRepository) RevertUserVoucher(userID, voucherID uint) (int64, error) {
	result := r.db.Model(&models.UserVoucher{}).
		Where("user_id = ? AND voucher_id = ? AND is_used = ?", userID, voucherID, true).
		Updates(map[string]interface{}{
			"is_used":  false,
			"used_at":  nil,
			"order_id": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
