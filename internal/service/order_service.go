package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutResult 下单结果
type CheckoutResult struct {
	CheckoutNo  string          `json:"checkout_no"`
	Orders      []models.Order  `json:"orders"`
	PaymentURL  string          `json:"payment_url,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderServiceOptions 订单服务依赖
type OrderServiceOptions struct {
	OrderRepo   repository.OrderRepository
	ProductRepo repository.ProductRepository
	VoucherRepo repository.VoucherRepository
	ShopRepo    repository.ShopRepository
	Resolver    *CartResolver
	Pricing     *PricingEngine
	Points      *PointService
	Dispatcher  *SideEffectDispatcher
	Metrics     *metrics.CheckoutMetrics
	CheckoutCfg config.CheckoutConfig
}

// OrderService 订单服务
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	voucherRepo repository.VoucherRepository
	shopRepo    repository.ShopRepository
	resolver    *CartResolver
	pricing     *PricingEngine
	points      *PointService
	dispatcher  *SideEffectDispatcher
	metrics     *metrics.CheckoutMetrics
	checkoutCfg config.CheckoutConfig
	// commitTimeout 下单事务上限，超时整体回滚
	commitTimeout time.Duration
	now           func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(opts OrderServiceOptions) *OrderService {
	checkoutCfg := opts.CheckoutCfg.Normalize()
	return &OrderService{
		orderRepo:     opts.OrderRepo,
		productRepo:   opts.ProductRepo,
		voucherRepo:   opts.VoucherRepo,
		shopRepo:      opts.ShopRepo,
		resolver:      opts.Resolver,
		pricing:       opts.Pricing,
		points:        opts.Points,
		dispatcher:    opts.Dispatcher,
		metrics:       opts.Metrics,
		checkoutCfg:   checkoutCfg,
		commitTimeout: checkoutCfg.CommitTimeout(),
		now:           time.Now,
	}
}

// PreviewOrder 计算结算预览，不落库
func (s *OrderService) PreviewOrder(ctx context.Context, userID uint, req CheckoutRequest) (*OrderPreview, error) {
	if userID == 0 {
		return nil, ErrInvalidCheckoutItem
	}
	groups, err := s.resolver.Resolve(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return s.pricing.Price(ctx, userID, groups, req)
}

// CreateOrder 提交结算：重新计价后在一个事务内扣积分、核销优惠券、扣库存并按店铺生成订单
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, req CheckoutRequest) (*CheckoutResult, error) {
	method, err := normalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	req.PaymentMethod = method
	req.Receiver = normalizeReceiver(req.Receiver)
	if req.Receiver.Name == "" || req.Receiver.Phone == "" || req.Receiver.Address == "" {
		return nil, ErrReceiverRequired
	}

	preview, err := s.PreviewOrder(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	checkoutNo := generateCheckoutNo()
	commitCtx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	started := time.Now()
	var orders []models.Order
	err = models.DB.WithContext(commitCtx).Transaction(func(tx *gorm.DB) error {
		created, err := s.commitCheckout(tx, userID, checkoutNo, req, preview)
		if err != nil {
			return err
		}
		orders = created
		return nil
	})
	if err != nil {
		err = s.mapCommitError(commitCtx, err)
		s.metrics.ObserveCommit(commitResultLabel(err), time.Since(started), 0)
		logger.Warnw("order_checkout_commit_failed",
			"user_id", userID,
			"checkout_no", checkoutNo,
			"error", err,
		)
		return nil, err
	}
	s.metrics.ObserveCommit("success", time.Since(started), len(orders))

	result := &CheckoutResult{
		CheckoutNo:  checkoutNo,
		Orders:      orders,
		TotalAmount: decimal.Zero,
	}
	for _, order := range orders {
		result.TotalAmount = result.TotalAmount.Add(order.TotalAmount.Decimal)
	}
	logger.Infow("order_checkout_committed",
		"user_id", userID,
		"checkout_no", checkoutNo,
		"order_count", len(orders),
		"total_amount", result.TotalAmount.StringFixed(2),
		"coins_used", preview.CoinsUsed,
	)

	if s.dispatcher != nil {
		outcome := CheckoutOutcome{
			UserID:        userID,
			CheckoutNo:    checkoutNo,
			PaymentMethod: method,
			Receiver:      req.Receiver,
			Orders:        orders,
			TotalAmount:   result.TotalAmount,
		}
		if req.usesExplicitItems() {
			outcome.PurchasedLines = purchasedLines(preview)
		} else {
			outcome.ClearCart = true
		}
		result.PaymentURL = s.dispatcher.Dispatch(ctx, outcome)
		if result.PaymentURL != "" {
			for i := range result.Orders {
				result.Orders[i].PaymentURL = result.PaymentURL
			}
		}
	}
	return result, nil
}

// commitCheckout 事务内的提交步骤：积分 -> 优惠券计数 -> 逐店扣库存并建单 -> 个人用券标记
func (s *OrderService) commitCheckout(tx *gorm.DB, userID uint, checkoutNo string, req CheckoutRequest, preview *OrderPreview) ([]models.Order, error) {
	if preview.CoinsUsed > 0 {
		reference := fmt.Sprintf("checkout:%s:coins", checkoutNo)
		description := fmt.Sprintf("结算 %s 积分抵扣", checkoutNo)
		if _, err := s.points.SpendInTx(tx, userID, preview.CoinsUsed, reference, description); err != nil {
			return nil, err
		}
	}

	voucherRepo := s.voucherRepo.WithTx(tx)
	for _, applied := range preview.AppliedVouchers {
		rows, err := voucherRepo.IncrementUsage(applied.VoucherID)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, ErrVoucherExhausted
		}
	}

	productRepo := s.productRepo.WithTx(tx)
	orderRepo := s.orderRepo.WithTx(tx)
	orders := make([]models.Order, 0, len(preview.Groups))
	shopOrderIDs := make(map[uint]uint, len(preview.Groups))
	for _, group := range preview.Groups {
		items := make([]models.OrderItem, 0, len(group.Items))
		for _, line := range group.Items {
			rows, err := productRepo.DecrementStock(line.ProductID, line.Quantity)
			if err != nil {
				return nil, err
			}
			if rows == 0 {
				return nil, newStockError(ErrOutOfStock, line.ProductID, line.Quantity, 0)
			}
			items = append(items, models.OrderItem{
				ProductID:   line.ProductID,
				VariantID:   line.VariantID,
				ProductName: line.Name,
				UnitPrice:   models.NewMoneyFromDecimal(line.UnitPrice),
				Quantity:    line.Quantity,
				TotalPrice:  models.NewMoneyFromDecimal(line.LineSubtotal),
				WeightGrams: line.WeightGrams,
			})
		}

		order := s.buildOrder(userID, checkoutNo, req, preview, group)
		if err := orderRepo.Create(&order, items); err != nil {
			return nil, err
		}
		shopOrderIDs[group.ShopID] = order.ID
		orders = append(orders, order)
	}

	usedAt := s.now()
	for _, applied := range preview.AppliedVouchers {
		orderID := orders[0].ID
		if applied.Scope == constants.VoucherScopeShop {
			orderID = shopOrderIDs[applied.ShopID]
		}
		rows, err := voucherRepo.MarkUserVoucherUsed(userID, applied.VoucherID, orderID, usedAt)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, ErrVoucherExhausted
		}
	}
	return orders, nil
}

func (s *OrderService) buildOrder(userID uint, checkoutNo string, req CheckoutRequest, preview *OrderPreview, group PricedShopGroup) models.Order {
	order := models.Order{
		OrderNo:         generateOrderNo(),
		CheckoutNo:      checkoutNo,
		UserID:          userID,
		ShopID:          group.ShopID,
		Status:          constants.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   constants.PaymentStatusPending,
		Subtotal:        models.NewMoneyFromDecimal(group.Subtotal),
		ShippingFee:     models.NewMoneyFromDecimal(group.ShippingFee),
		GiftFee:         models.NewMoneyFromDecimal(group.GiftFee),
		ShopDiscount:    models.NewMoneyFromDecimal(group.ShopDiscount),
		SystemDiscount:  models.NewMoneyFromDecimal(group.SystemDiscount),
		CoinDiscount:    models.NewMoneyFromDecimal(group.CoinDiscount),
		CoinPoints:      group.CoinPoints,
		TotalAmount:     models.NewMoneyFromDecimal(group.Total),
		VoucherID:       group.ShopVoucherID,
		SystemVoucherID: preview.SystemVoucherID,
		RecipientName:   req.Receiver.Name,
		RecipientPhone:  req.Receiver.Phone,
		RecipientAddr:   req.Receiver.Address,
		ProvinceID:      req.Receiver.ProvinceID,
		DistrictID:      req.Receiver.DistrictID,
		WardCode:        req.Receiver.WardCode,
		Note:            group.Note,
		WeightGrams:     group.WeightGrams,
	}
	if req.Gift.Enabled {
		order.IsGift = true
		order.GiftMessage = strings.TrimSpace(req.Gift.Message)
		order.GiftSenderName = strings.TrimSpace(req.Gift.SenderName)
	}
	return order
}

// mapCommitError 事务失败的错误归类：超时、业务错误原样返回，其余统一为创建失败
func (s *OrderService) mapCommitError(commitCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(commitCtx.Err(), context.DeadlineExceeded) {
		return ErrCheckoutTimeout
	}
	switch {
	case errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrVoucherExhausted),
		errors.Is(err, ErrPointsInsufficient):
		return err
	}
	logger.Errorw("order_checkout_commit_error", "error", err)
	return ErrOrderCreateFailed
}

func commitResultLabel(err error) string {
	switch {
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrVoucherExhausted):
		return "voucher_exhausted"
	case errors.Is(err, ErrPointsInsufficient):
		return "points_insufficient"
	case errors.Is(err, ErrCheckoutTimeout):
		return "timeout"
	default:
		return "error"
	}
}

func normalizeReceiver(receiver ReceiverAddress) ReceiverAddress {
	receiver.Name = strings.TrimSpace(receiver.Name)
	receiver.Phone = strings.TrimSpace(receiver.Phone)
	receiver.Address = strings.TrimSpace(receiver.Address)
	receiver.WardCode = strings.TrimSpace(receiver.WardCode)
	return receiver
}

func purchasedLines(preview *OrderPreview) []models.CartLine {
	seen := make(map[models.CartLine]struct{})
	lines := make([]models.CartLine, 0)
	for _, group := range preview.Groups {
		for _, item := range group.Items {
			line := models.CartLine{ProductID: item.ProductID, VariantID: item.VariantID}
			if _, ok := seen[line]; ok {
				continue
			}
			seen[line] = struct{}{}
			lines = append(lines, line)
		}
	}
	return lines
}

func generateOrderNo() string {
	return fmt.Sprintf("BZ%s%s", time.Now().Format("20060102150405"), randNumeric(6))
}

func generateCheckoutNo() string {
	return fmt.Sprintf("CK%s%s", time.Now().Format("20060102150405"), randNumeric(8))
}

func randNumeric(n int) string {
	const digits = "0123456789"
	buf := make([]byte, n)
	max := big.NewInt(int64(len(digits)))
	for i := range buf {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			buf[i] = digits[0]
			continue
		}
		buf[i] = digits[num.Int64()]
	}
	return string(buf)
}
