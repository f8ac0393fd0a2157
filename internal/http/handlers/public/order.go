package public

import (
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListOrders 买家订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, pageSize := handlershared.ParsePagination(c)
	orders, total, err := h.OrderService.ListOrdersByUser(repository.OrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		UserID:     uid,
		Status:     c.Query("status"),
		CheckoutNo: c.Query("checkout_no"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetOrder 买家订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	order, err := h.OrderService.GetOrderByUser(orderID, uid)
	if err != nil {
		respondWithMappedError(c, err, orderLifecycleErrorRules, response.CodeInternal, "order fetch failed")
		return
	}
	response.Success(c, order)
}

// CancelOrder 买家取消待处理订单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	order, err := h.OrderService.CancelOrder(c.Request.Context(), uid, orderID)
	if err != nil {
		respondWithMappedError(c, err, orderLifecycleErrorRules, response.CodeInternal, "order cancel failed")
		return
	}
	response.Success(c, order)
}

// ConfirmOrderReceived 买家确认收货
func (h *Handler) ConfirmOrderReceived(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	result, err := h.OrderService.ConfirmOrderReceived(c.Request.Context(), uid, orderID)
	if err != nil {
		respondWithMappedError(c, err, orderLifecycleErrorRules, response.CodeInternal, "order confirm failed")
		return
	}
	response.Success(c, result)
}
