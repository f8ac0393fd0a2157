package public

import "github.com/bazaar-next/internal/provider"

// Handler 前台接口处理器入口
// 说明：覆盖买家购物车、结算、订单与卖家履约接口。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
