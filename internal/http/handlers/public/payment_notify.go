package public

import (
	"errors"
	"strconv"
	"strings"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/payment/gateway"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentNotify 支付网关异步通知
// 网关以表单或 JSON 回传 order_ref/status/amount/signature，验签且金额与整批应付一致后标记为已支付。
func (h *Handler) PaymentNotify(c *gin.Context) {
	if h.PaymentGateway == nil {
		respondError(c, response.CodeBadRequest, "payment gateway disabled", nil)
		return
	}

	params, err := readNotifyParams(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid notify payload", err)
		return
	}
	if err := h.PaymentGateway.VerifyNotify(params); err != nil {
		handlershared.RequestLog(c).Warnw("payment_notify_signature_invalid", "order_ref", params["order_ref"])
		respondError(c, response.CodeBadRequest, "signature invalid", nil)
		return
	}

	orderRef, err := strconv.ParseUint(strings.TrimSpace(params["order_ref"]), 10, 64)
	if err != nil || orderRef == 0 {
		respondError(c, response.CodeBadRequest, "order_ref invalid", nil)
		return
	}

	amount, err := gateway.NotifyAmount(params)
	if err != nil {
		respondError(c, response.CodeBadRequest, "amount invalid", nil)
		return
	}

	rows, err := h.OrderService.ConfirmOnlinePayment(uint(orderRef), params["status"], amount)
	if err != nil {
		respondWithMappedError(c, err, []handlershared.MappedError{
			{Target: service.ErrOrderNotFound, Code: response.CodeNotFound},
			{Target: service.ErrInvalidPayment, Code: response.CodeBadRequest},
			{Target: service.ErrPaymentAmountMismatch, Code: response.CodeBadRequest},
		}, response.CodeInternal, "payment confirm failed")
		return
	}
	response.Success(c, gin.H{"updated": rows})
}

func readNotifyParams(c *gin.Context) (map[string]string, error) {
	params := make(map[string]string)
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&params); err != nil {
			return nil, err
		}
		return params, nil
	}
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	if len(params) == 0 {
		return nil, errors.New("empty notify payload")
	}
	return params, nil
}
