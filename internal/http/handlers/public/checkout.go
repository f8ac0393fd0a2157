package public

import (
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PreviewCheckout 结算金额预览（不落库）
func (h *Handler) PreviewCheckout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	preview, err := h.OrderService.PreviewOrder(c.Request.Context(), uid, req)
	if err != nil {
		respondCheckoutError(c, err, "checkout preview failed")
		return
	}
	response.Success(c, preview)
}

// CreateOrder 提交结算，按店铺拆分生成订单
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	result, err := h.OrderService.CreateOrder(c.Request.Context(), uid, req)
	if err != nil {
		respondCheckoutError(c, err, "order create failed")
		return
	}
	response.Success(c, result)
}
