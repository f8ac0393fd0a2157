package queue

import (
	"encoding/json"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartClear 结算后清理购物车
	TaskCartClear = constants.TaskCheckoutCartClear
	// TaskShipmentRegister 货到付款订单登记运单
	TaskShipmentRegister = constants.TaskCheckoutShipment
	// TaskAnalyticsPurchase 购买分析事件
	TaskAnalyticsPurchase = constants.TaskCheckoutAnalyticsEmit
)

// CartClearPayload 购物车清理任务载荷
type CartClearPayload struct {
	UserID     uint              `json:"user_id"`
	CheckoutNo string            `json:"checkout_no"`
	Lines      []models.CartLine `json:"lines,omitempty"`
	ClearAll   bool              `json:"clear_all"`
}

// ShipmentRegisterPayload 运单登记任务载荷
type ShipmentRegisterPayload struct {
	OrderID    uint   `json:"order_id"`
	CheckoutNo string `json:"checkout_no"`
}

// AnalyticsPurchasePayload 购买事件任务载荷
type AnalyticsPurchasePayload struct {
	UserID     uint   `json:"user_id"`
	CheckoutNo string `json:"checkout_no"`
	Revenue    string `json:"revenue"`
	OrderCount int    `json:"order_count"`
}

// NewCartClearTask 创建购物车清理任务
func NewCartClearTask(payload CartClearPayload) (*asynq.Task, error) {
	return newJSONTask(TaskCartClear, payload)
}

// NewShipmentRegisterTask 创建运单登记任务
func NewShipmentRegisterTask(payload ShipmentRegisterPayload) (*asynq.Task, error) {
	return newJSONTask(TaskShipmentRegister, payload)
}

// NewAnalyticsPurchaseTask 创建购买事件任务
func NewAnalyticsPurchaseTask(payload AnalyticsPurchasePayload) (*asynq.Task, error) {
	return newJSONTask(TaskAnalyticsPurchase, payload)
}

func newJSONTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}
