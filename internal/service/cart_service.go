package service

import (
	"time"

	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
)

// CartItemDetail 购物车项详情（用于响应）
type CartItemDetail struct {
	ProductID uint            `json:"product_id"`
	VariantID uint            `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice models.Money    `json:"unit_price"`
	Product   *models.Product `json:"product"`
}

// UpsertCartItemInput 购物车更新输入
type UpsertCartItemInput struct {
	UserID    uint
	ProductID uint
	VariantID uint
	Quantity  int
}

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart 获取用户购物车原始项（按加入顺序）
func (s *CartService) GetCart(userID uint) ([]models.CartItem, error) {
	if userID == 0 {
		return nil, ErrInvalidCheckoutItem
	}
	return s.cartRepo.ListByUser(userID)
}

// ListByUser 获取用户购物车详情，已下架商品会被移除
func (s *CartService) ListByUser(userID uint) ([]CartItemDetail, error) {
	items, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	details := make([]CartItemDetail, 0, len(items))
	for _, item := range items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			_ = s.cartRepo.DeleteByUserAndProduct(userID, item.ProductID)
			continue
		}
		unitPrice := product.Price
		if variant, err := s.productRepo.GetVariant(product.ID, item.VariantID); err == nil && variant != nil {
			unitPrice = variant.Price
		}
		details = append(details, CartItemDetail{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			Product:   product,
		})
	}
	return details, nil
}

// UpsertItem 添加或更新购物车项
func (s *CartService) UpsertItem(input UpsertCartItemInput) error {
	if input.UserID == 0 || input.ProductID == 0 || input.Quantity <= 0 {
		return ErrInvalidCheckoutItem
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return newProductError(ErrProductNotFound, input.ProductID)
	}

	now := time.Now()
	return s.cartRepo.Upsert(&models.CartItem{
		UserID:    input.UserID,
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Quantity:  input.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// RemoveItem 删除购物车项
func (s *CartService) RemoveItem(userID, productID uint) error {
	if userID == 0 || productID == 0 {
		return ErrInvalidCheckoutItem
	}
	return s.cartRepo.DeleteByUserAndProduct(userID, productID)
}

// RemoveItems 批量删除已购买的购物车行
func (s *CartService) RemoveItems(userID uint, lines []models.CartLine) error {
	if userID == 0 {
		return ErrInvalidCheckoutItem
	}
	return s.cartRepo.DeleteByUserAndLines(userID, lines)
}

// ClearCart 清空购物车
func (s *CartService) ClearCart(userID uint) error {
	if userID == 0 {
		return ErrInvalidCheckoutItem
	}
	return s.cartRepo.ClearByUser(userID)
}
