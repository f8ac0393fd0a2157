package public

import (
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetMyPoints 当前用户积分余额与流水
func (h *Handler) GetMyPoints(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	balance, err := h.PointService.GetBalance(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "point fetch failed", err)
		return
	}

	page, pageSize := handlershared.ParsePagination(c)
	histories, total, err := h.PointService.ListHistory(repository.PointHistoryListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Reason:   c.Query("reason"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "point fetch failed", err)
		return
	}
	response.SuccessWithPage(c, gin.H{
		"balance": balance,
		"history": histories,
	}, response.NewPagination(page, pageSize, total))
}
