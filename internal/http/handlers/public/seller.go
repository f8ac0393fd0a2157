package public

import (
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest 卖家推进订单状态请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListSellerShops 卖家名下店铺
func (h *Handler) ListSellerShops(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	shops, err := h.ShopRepo.ListByOwner(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "shop fetch failed", err)
		return
	}
	response.Success(c, shops)
}

// ListSellerOrders 卖家名下店铺的订单
func (h *Handler) ListSellerOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		ShopOwnerID: uid,
		Status:      c.Query("status"),
	}
	if raw := c.Query("shop_id"); raw != "" {
		shopID, ok := handlershared.ParseUintQuery(c, "shop_id")
		if !ok {
			return
		}
		filter.ShopID = shopID
	}

	orders, total, err := h.OrderService.ListOrdersBySeller(filter)
	if err != nil {
		respondWithMappedError(c, err, orderLifecycleErrorRules, response.CodeInternal, "order fetch failed")
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// UpdateSellerOrderStatus 卖家推进订单状态
func (h *Handler) UpdateSellerOrderStatus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	order, err := h.OrderService.UpdateOrderStatus(c.Request.Context(), orderID, uid, req.Status)
	if err != nil {
		respondWithMappedError(c, err, orderLifecycleErrorRules, response.CodeInternal, "order update failed")
		return
	}
	response.Success(c, order)
}
