package admin

import (
	"errors"
	"strings"
	"time"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminOrderListItem 管理端订单列表返回
type AdminOrderListItem struct {
	models.Order
	UserEmail       string `json:"user_email,omitempty"`
	UserDisplayName string `json:"user_display_name,omitempty"`
}

// AdminOrderDetail 管理端订单详情返回
type AdminOrderDetail struct {
	models.Order
	UserEmail         string `json:"user_email,omitempty"`
	UserDisplayName   string `json:"user_display_name,omitempty"`
	VoucherCode       string `json:"voucher_code,omitempty"`
	SystemVoucherCode string `json:"system_voucher_code,omitempty"`
}

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)

	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_from invalid", err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_to invalid", err)
		return
	}
	filter := repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      c.Query("status"),
		Keyword:     c.Query("keyword"),
		CheckoutNo:  c.Query("checkout_no"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	}
	if strings.TrimSpace(c.Query("shop_id")) != "" {
		shopID, ok := handlershared.ParseUintQuery(c, "shop_id")
		if !ok {
			return
		}
		filter.ShopID = shopID
	}

	orders, total, err := h.OrderService.ListOrdersForAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}

	userIDs := make([]uint, 0, len(orders))
	seen := map[uint]struct{}{}
	for _, order := range orders {
		if order.UserID == 0 {
			continue
		}
		if _, ok := seen[order.UserID]; ok {
			continue
		}
		seen[order.UserID] = struct{}{}
		userIDs = append(userIDs, order.UserID)
	}
	userMap := map[uint]models.User{}
	if len(userIDs) > 0 {
		users, err := h.UserRepo.ListByIDs(userIDs)
		if err != nil {
			respondError(c, response.CodeInternal, "order fetch failed", err)
			return
		}
		for _, user := range users {
			userMap[user.ID] = user
		}
	}

	items := make([]AdminOrderListItem, 0, len(orders))
	for _, order := range orders {
		user := userMap[order.UserID]
		items = append(items, AdminOrderListItem{
			Order:           order,
			UserEmail:       user.Email,
			UserDisplayName: user.DisplayName,
		})
	}

	response.SuccessWithPage(c, items, response.NewPagination(page, pageSize, total))
}

// AdminGetOrder 管理端订单详情
func (h *Handler) AdminGetOrder(c *gin.Context) {
	orderID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	order, err := h.OrderService.GetOrderForAdmin(orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}

	detail := AdminOrderDetail{Order: *order}
	if order.UserID != 0 {
		user, err := h.UserRepo.GetByID(order.UserID)
		if err != nil {
			respondError(c, response.CodeInternal, "order fetch failed", err)
			return
		}
		if user != nil {
			detail.UserEmail = user.Email
			detail.UserDisplayName = user.DisplayName
		}
	}

	if detail.VoucherCode, err = h.voucherCode(order.VoucherID); err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	if detail.SystemVoucherCode, err = h.voucherCode(order.SystemVoucherID); err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}

	response.Success(c, detail)
}

func (h *Handler) voucherCode(id *uint) (string, error) {
	if id == nil || *id == 0 {
		return "", nil
	}
	voucher, err := h.VoucherRepo.GetByID(*id)
	if err != nil || voucher == nil {
		return "", err
	}
	return voucher.Code, nil
}

// parseTimeNullable 解析 RFC3339 或日期格式，空值返回 nil
func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
