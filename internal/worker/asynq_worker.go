package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/provider"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/service"

	"github.com/hibiken/asynq"
)

// SideEffectRunner 可重放的结算副作用
type SideEffectRunner interface {
	ClearPurchasedItems(ctx context.Context, payload queue.CartClearPayload) error
	RegisterShipment(ctx context.Context, orderID uint) error
	EmitPurchaseEvent(ctx context.Context, payload queue.AnalyticsPurchasePayload) error
}

// Consumer 异步任务消费者，重放下单后失败的副作用
type Consumer struct {
	SideEffects SideEffectRunner
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{}
	if c != nil && c.SideEffectDispatcher != nil {
		consumer.SideEffects = c.SideEffectDispatcher
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCartClear, c.handleCartClear)
	mux.HandleFunc(queue.TaskShipmentRegister, c.handleShipmentRegister)
	mux.HandleFunc(queue.TaskAnalyticsPurchase, c.handleAnalyticsPurchase)
}

func (c *Consumer) handleCartClear(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_clear_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CartClearPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cart_clear_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 {
		logger.Debugw("worker_cart_clear_skip_invalid_payload", "checkout_no", payload.CheckoutNo)
		return nil
	}
	if c.SideEffects == nil {
		logger.Warnw("worker_cart_clear_skip_runner_nil", "checkout_no", payload.CheckoutNo)
		return nil
	}
	if err := c.SideEffects.ClearPurchasedItems(ctx, payload); err != nil {
		logger.Warnw("worker_cart_clear_failed",
			"user_id", payload.UserID,
			"checkout_no", payload.CheckoutNo,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleShipmentRegister(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_shipment_register_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ShipmentRegisterPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_shipment_register_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_shipment_register_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.SideEffects == nil {
		logger.Warnw("worker_shipment_register_skip_runner_nil", "order_id", payload.OrderID)
		return nil
	}
	err := c.SideEffects.RegisterShipment(ctx, payload.OrderID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrOrderNotFound):
		logger.Debugw("worker_shipment_register_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	default:
		logger.Warnw("worker_shipment_register_failed",
			"order_id", payload.OrderID,
			"checkout_no", payload.CheckoutNo,
			"error", err,
		)
		return err
	}
}

func (c *Consumer) handleAnalyticsPurchase(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_analytics_purchase_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AnalyticsPurchasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_analytics_purchase_unmarshal_failed", "error", err)
		return err
	}
	if payload.CheckoutNo == "" {
		logger.Debugw("worker_analytics_purchase_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	if c.SideEffects == nil {
		logger.Warnw("worker_analytics_purchase_skip_runner_nil", "checkout_no", payload.CheckoutNo)
		return nil
	}
	if err := c.SideEffects.EmitPurchaseEvent(ctx, payload); err != nil {
		logger.Warnw("worker_analytics_purchase_failed", "checkout_no", payload.CheckoutNo, "error", err)
		return err
	}
	return nil
}
