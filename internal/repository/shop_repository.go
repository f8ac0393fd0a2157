package repository

import (
	"errors"

	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// ShopRepository 店铺数据访问接口
type ShopRepository interface {
	GetByID(id uint) (*models.Shop, error)
	ListByOwner(ownerID uint) ([]models.Shop, error)
}

// GormShopRepository GORM 实现
type GormShopRepository struct {
	db *gorm.DB
}

// NewShopRepository 创建店铺仓库
func NewShopRepository(db *gorm.DB) *GormShopRepository {
	return &GormShopRepository{db: db}
}

// GetByID 获取店铺
func (r *GormShopRepository) GetByID(id uint) (*models.Shop, error) {
	if id == 0 {
		return nil, nil
	}
	var shop models.Shop
	if err := r.db.First(&shop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

// ListByOwner 获取店主名下店铺
func (r *GormShopRepository) ListByOwner(ownerID uint) ([]models.Shop, error) {
	var shops []models.Shop
	if err := r.db.Where("owner_id = ?", ownerID).Order("id asc").Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}
