package service

import (
	"strings"

	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
)

// GetOrderByUser 获取买家订单详情
func (s *OrderService) GetOrderByUser(orderID, userID uint) (*models.Order, error) {
	if orderID == 0 || userID == 0 {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersByUser 买家订单列表
func (s *OrderService) ListOrdersByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return nil, 0, ErrOrderNotFound
	}
	return s.orderRepo.ListByUser(normalizeOrderFilter(filter))
}

// ListOrdersBySeller 卖家订单列表（仅自己名下店铺）
func (s *OrderService) ListOrdersBySeller(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.ShopOwnerID == 0 {
		return nil, 0, ErrShopNotFound
	}
	return s.orderRepo.ListByShopOwner(normalizeOrderFilter(filter))
}

// ListOrdersForAdmin 管理端订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(normalizeOrderFilter(filter))
}

// GetOrderForAdmin 管理端订单详情
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	return s.reloadOrder(orderID)
}

func normalizeOrderFilter(filter repository.OrderListFilter) repository.OrderListFilter {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.Keyword = strings.TrimSpace(filter.Keyword)
	filter.CheckoutNo = strings.TrimSpace(filter.CheckoutNo)
	return filter
}
