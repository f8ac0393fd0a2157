package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryConfirmation 买家确认收货结果
type DeliveryConfirmation struct {
	OrderID      uint  `json:"order_id"`
	EarnedPoints int64 `json:"earned_points"`
	NewBalance   int64 `json:"new_balance"`
}

// 履约推进顺序，只允许向前
var orderStatusRank = map[constants.OrderStatus]int{
	constants.OrderStatusPending:   0,
	constants.OrderStatusConfirmed: 1,
	constants.OrderStatusShipping:  2,
	constants.OrderStatusDelivered: 3,
}

// CancelOrder 买家取消待处理订单，归还库存、优惠券与积分
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	if userID == 0 || orderID == 0 {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending {
		return nil, ErrInvalidCancelState
	}

	now := s.now()
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.orderRepo.WithTx(tx).TransitionStatus(order.ID,
			[]constants.OrderStatus{constants.OrderStatusPending},
			constants.OrderStatusCancelled,
			map[string]interface{}{
				"canceled_at": now,
				"updated_at":  now,
			})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidCancelState
		}
		return s.releaseOrderResources(tx, order)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCancelState) {
			return nil, err
		}
		logger.Errorw("order_cancel_failed", "order_id", orderID, "user_id", userID, "error", err)
		return nil, ErrOrderUpdateFailed
	}

	logger.Infow("order_cancelled", "order_id", order.ID, "checkout_no", order.CheckoutNo, "user_id", userID)
	return s.reloadOrder(order.ID)
}

// releaseOrderResources 归还库存、店铺券、平台券（最后一个存活同级订单时）与积分抵扣
func (s *OrderService) releaseOrderResources(tx *gorm.DB, order *models.Order) error {
	productRepo := s.productRepo.WithTx(tx)
	for _, item := range order.Items {
		if _, err := productRepo.IncrementStock(item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	voucherRepo := s.voucherRepo.WithTx(tx)
	if order.VoucherID != nil {
		if err := revertVoucher(voucherRepo, order.UserID, *order.VoucherID); err != nil {
			return err
		}
	}
	if order.SystemVoucherID != nil {
		live, err := s.orderRepo.WithTx(tx).CountLiveSiblingsWithSystemVoucher(order.CheckoutNo, *order.SystemVoucherID, order.ID)
		if err != nil {
			return err
		}
		if live == 0 {
			if err := revertVoucher(voucherRepo, order.UserID, *order.SystemVoucherID); err != nil {
				return err
			}
		}
	}

	if refund := order.CoinPoints; refund > 0 {
		orderID := order.ID
		_, err := s.points.AddPoints(tx, order.UserID, refund,
			constants.PointReasonCancelRefund,
			fmt.Sprintf("order:%d:coin_refund", order.ID),
			&orderID,
			fmt.Sprintf("订单 %s 取消退回积分", order.OrderNo),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

type voucherReverter interface {
	DecrementUsage(id uint) (int64, error)
	RevertUserVoucher(userID, voucherID uint) (int64, error)
}

func revertVoucher(repo voucherReverter, userID, voucherID uint) error {
	if _, err := repo.DecrementUsage(voucherID); err != nil {
		return err
	}
	_, err := repo.RevertUserVoucher(userID, voucherID)
	return err
}

// UpdateOrderStatus 卖家推进自己店铺的订单状态
// 首次进入 delivered 时发放送达积分；奖励失败只记录日志，状态变更照常提交。
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID, sellerID uint, status string) (*models.Order, error) {
	target := constants.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if _, ok := orderStatusRank[target]; !ok {
		return nil, ErrOrderStatusInvalid
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	shop, err := s.shopRepo.GetByID(order.ShopID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if shop == nil || sellerID == 0 || shop.OwnerID != sellerID {
		return nil, ErrShopNotFound
	}
	if order.Status == constants.OrderStatusCancelled {
		return nil, ErrAlreadyFinalized
	}

	now := s.now()
	if order.Status == constants.OrderStatusDelivered {
		if target != constants.OrderStatusDelivered {
			return nil, ErrAlreadyFinalized
		}
		// 重复标记送达只刷新更新时间，不再发放奖励
		if _, err := s.orderRepo.TransitionStatus(order.ID,
			[]constants.OrderStatus{constants.OrderStatusDelivered},
			constants.OrderStatusDelivered,
			map[string]interface{}{"updated_at": now},
		); err != nil {
			logger.Errorw("order_status_update_failed", "order_id", order.ID, "error", err)
			return nil, ErrOrderUpdateFailed
		}
		return s.reloadOrder(order.ID)
	}
	if orderStatusRank[target] <= orderStatusRank[order.Status] {
		return nil, ErrOrderStatusInvalid
	}
	// 送达必须先经过 confirmed 或 shipping
	if target == constants.OrderStatusDelivered && order.Status == constants.OrderStatusPending {
		return nil, ErrOrderStatusInvalid
	}

	updates := map[string]interface{}{"updated_at": now}
	switch target {
	case constants.OrderStatusConfirmed:
		updates["confirmed_at"] = now
	case constants.OrderStatusDelivered:
		updates["delivered_at"] = now
	}

	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.orderRepo.WithTx(tx).TransitionStatus(order.ID,
			[]constants.OrderStatus{order.Status}, target, updates)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrOrderStatusInvalid
		}
		if target != constants.OrderStatusDelivered {
			return nil
		}
		s.rewardDelivered(tx, order)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderStatusInvalid) {
			return nil, err
		}
		logger.Errorw("order_status_update_failed", "order_id", order.ID, "target", target, "error", err)
		return nil, ErrOrderUpdateFailed
	}

	logger.Infow("order_status_updated",
		"order_id", order.ID,
		"seller_id", sellerID,
		"from", order.Status,
		"to", target,
	)
	return s.reloadOrder(order.ID)
}

// ConfirmOrderReceived 买家确认收货并领取送达积分
func (s *OrderService) ConfirmOrderReceived(ctx context.Context, userID, orderID uint) (*DeliveryConfirmation, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	switch order.Status {
	case constants.OrderStatusDelivered, constants.OrderStatusCancelled:
		return nil, ErrAlreadyFinalized
	case constants.OrderStatusShipping, constants.OrderStatusConfirmed:
	default:
		return nil, ErrInvalidConfirmState
	}

	now := s.now()
	var confirmation *DeliveryConfirmation
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.orderRepo.WithTx(tx).TransitionStatus(order.ID,
			[]constants.OrderStatus{constants.OrderStatusShipping, constants.OrderStatusConfirmed},
			constants.OrderStatusDelivered,
			map[string]interface{}{
				"delivered_at": now,
				"updated_at":   now,
			})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyFinalized
		}
		confirmation = &DeliveryConfirmation{OrderID: order.ID}
		if credit := s.rewardDelivered(tx, order); credit != nil {
			confirmation.EarnedPoints = credit.Amount
			confirmation.NewBalance = credit.Balance
			return nil
		}
		balance, err := s.points.balance(s.points.pointRepo.WithTx(tx), order.UserID)
		if err != nil {
			return err
		}
		confirmation.NewBalance = balance
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			return nil, err
		}
		logger.Errorw("order_confirm_received_failed", "order_id", orderID, "user_id", userID, "error", err)
		return nil, ErrOrderUpdateFailed
	}

	logger.Infow("order_confirmed_received",
		"order_id", order.ID,
		"user_id", userID,
		"earned_points", confirmation.EarnedPoints,
	)
	return confirmation, nil
}

// rewardDelivered 在保存点内发放送达奖励；失败时回滚保存点、记录并计数，订单仍保持送达
func (s *OrderService) rewardDelivered(tx *gorm.DB, order *models.Order) *PointCredit {
	var credit *PointCredit
	err := tx.Transaction(func(inner *gorm.DB) error {
		c, err := s.applyDeliveryReward(inner, order)
		credit = c
		return err
	})
	if err != nil {
		s.metrics.RewardFailed()
		logger.Errorw("order_delivery_reward_failed",
			"order_id", order.ID,
			"user_id", order.UserID,
			"error", err,
		)
		return nil
	}
	return credit
}

// applyDeliveryReward 送达奖励 floor(实付 / 兑换比例)，以订单引用保证只入账一次
func (s *OrderService) applyDeliveryReward(tx *gorm.DB, order *models.Order) (*PointCredit, error) {
	rate := decimal.NewFromInt(s.checkoutCfg.PointConversionRate)
	points := order.TotalAmount.Decimal.Div(rate).Floor().IntPart()
	orderID := order.ID
	return s.points.CreditInTx(tx, order.UserID, points,
		constants.PointReasonOrderReward,
		fmt.Sprintf("order:%d:reward", order.ID),
		&orderID,
		fmt.Sprintf("订单 %s 送达奖励", order.OrderNo),
	)
}

func (s *OrderService) reloadOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
