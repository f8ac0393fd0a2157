package public

import (
	"errors"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

func respondWithMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackCode int, fallbackMsg string) {
	handlershared.RespondMappedError(c, err, rules, fallbackCode, fallbackMsg)
}

func concatMappedErrors(groups ...[]handlershared.MappedError) []handlershared.MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]handlershared.MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var checkoutInputErrorRules = []handlershared.MappedError{
	{Target: service.ErrEmptyCheckout, Code: response.CodeBadRequest},
	{Target: service.ErrInvalidCheckoutItem, Code: response.CodeBadRequest},
	{Target: service.ErrInvalidPayment, Code: response.CodeBadRequest},
	{Target: service.ErrReceiverRequired, Code: response.CodeBadRequest},
}

var checkoutInventoryErrorRules = []handlershared.MappedError{
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound},
	{Target: service.ErrMalformedProduct, Code: response.CodeBadRequest},
	{Target: service.ErrInsufficientStock, Code: response.CodeConflict},
	{Target: service.ErrOutOfStock, Code: response.CodeConflict},
}

var checkoutCommitErrorRules = []handlershared.MappedError{
	{Target: service.ErrVoucherExhausted, Code: response.CodeConflict},
	{Target: service.ErrPointsInsufficient, Code: response.CodeConflict},
	{Target: service.ErrCheckoutTimeout, Code: response.CodeTimeout},
}

var orderLifecycleErrorRules = []handlershared.MappedError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound},
	{Target: service.ErrShopNotFound, Code: response.CodeNotFound},
	{Target: service.ErrInvalidCancelState, Code: response.CodeBadRequest},
	{Target: service.ErrInvalidConfirmState, Code: response.CodeBadRequest},
	{Target: service.ErrOrderStatusInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrAlreadyFinalized, Code: response.CodeConflict},
}

// respondCheckoutError 商品级错误附带商品与库存信息，便于前端定位问题行
func respondCheckoutError(c *gin.Context, err error, fallbackMsg string) {
	var productErr *service.ProductError
	if errors.As(err, &productErr) {
		code := response.CodeBadRequest
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			code = response.CodeNotFound
		case errors.Is(err, service.ErrInsufficientStock), errors.Is(err, service.ErrOutOfStock):
			code = response.CodeConflict
		}
		response.ErrorWithData(c, code, err.Error(), gin.H{
			"product_id": productErr.ProductID,
			"requested":  productErr.Requested,
			"available":  productErr.Available,
		})
		return
	}
	respondWithMappedError(c, err, concatMappedErrors(
		checkoutInputErrorRules,
		checkoutInventoryErrorRules,
		checkoutCommitErrorRules,
	), response.CodeInternal, fallbackMsg)
}
