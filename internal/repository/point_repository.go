package repository

import (
	"errors"
	"strings"

	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PointRepository 积分钱包数据访问接口
type PointRepository interface {
	GetWallet(userID uint) (*models.PointWallet, error)
	EnsureWallet(userID uint) (*models.PointWallet, error)
	Debit(userID uint, amount int64) (int64, error)
	Credit(userID uint, amount int64) error
	CreateHistory(history *models.PointHistory) error
	GetHistoryByReference(reference string) (*models.PointHistory, error)
	ListHistory(filter PointHistoryListFilter) ([]models.PointHistory, int64, error)
	WithTx(tx *gorm.DB) *GormPointRepository
}

// GormPointRepository GORM 实现
type GormPointRepository struct {
	db *gorm.DB
}

// NewPointRepository 创建积分仓库
func NewPointRepository(db *gorm.DB) *GormPointRepository {
	return &GormPointRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPointRepository) WithTx(tx *gorm.DB) *GormPointRepository {
	if tx == nil {
		return r
	}
	return &GormPointRepository{db: tx}
}

// GetWallet 获取积分钱包
func (r *GormPointRepository) GetWallet(userID uint) (*models.PointWallet, error) {
	var wallet models.PointWallet
	if err := r.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// EnsureWallet 获取或创建积分钱包
func (r *GormPointRepository) EnsureWallet(userID uint) (*models.PointWallet, error) {
	wallet := models.PointWallet{UserID: userID}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&wallet).Error; err != nil {
		return nil, err
	}
	return r.GetWallet(userID)
}

// Debit 条件扣减积分（余额充足时生效），返回影响行数
func (r *GormPointRepository) Debit(userID uint, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, errors.New("invalid point debit amount")
	}
	result := r.db.Model(&models.PointWallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Credit 增加积分
func (r *GormPointRepository) Credit(userID uint, amount int64) error {
	if amount <= 0 {
		return errors.New("invalid point credit amount")
	}
	return r.db.Model(&models.PointWallet{}).
		Where("user_id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error
}

// CreateHistory 写入积分流水
func (r *GormPointRepository) CreateHistory(history *models.PointHistory) error {
	return r.db.Create(history).Error
}

// GetHistoryByReference 按幂等引用查询流水
func (r *GormPointRepository) GetHistoryByReference(reference string) (*models.PointHistory, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var history models.PointHistory
	if err := r.db.Where("reference = ?", reference).First(&history).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &history, nil
}

// ListHistory 积分流水列表
func (r *GormPointRepository) ListHistory(filter PointHistoryListFilter) ([]models.PointHistory, int64, error) {
	query := r.db.Model(&models.PointHistory{}).Where("user_id = ?", filter.UserID)
	if reason := strings.TrimSpace(filter.Reason); reason != "" {
		query = query.Where("reason = ?", reason)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var histories []models.PointHistory
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&histories).Error; err != nil {
		return nil, 0, err
	}
	return histories, total, nil
}
