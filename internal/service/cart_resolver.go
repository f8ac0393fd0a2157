package service

import (
	"context"
	"strings"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CartResolver 解析结算商品并按店铺分组
type CartResolver struct {
	cart        CartStore
	productRepo repository.ProductRepository
	shopRepo    repository.ShopRepository
	checkoutCfg config.CheckoutConfig
}

// NewCartResolver 创建结算解析器
func NewCartResolver(cart CartStore, productRepo repository.ProductRepository, shopRepo repository.ShopRepository, checkoutCfg config.CheckoutConfig) *CartResolver {
	return &CartResolver{
		cart:        cart,
		productRepo: productRepo,
		shopRepo:    shopRepo,
		checkoutCfg: checkoutCfg.Normalize(),
	}
}

type resolvedLine struct {
	productID uint
	variantID uint
	quantity  int
}

// Resolve 校验商品与库存，返回按首次出现顺序排列的店铺分组
func (r *CartResolver) Resolve(ctx context.Context, userID uint, req CheckoutRequest) ([]ShopGroup, error) {
	lines, err := r.collectLines(userID, req)
	if err != nil {
		return nil, err
	}

	products := make(map[uint]*models.Product, len(lines))
	requested := make(map[uint]int, len(lines))
	for _, line := range lines {
		if _, ok := products[line.productID]; !ok {
			product, err := r.productRepo.GetByID(line.productID)
			if err != nil {
				return nil, err
			}
			if product == nil {
				return nil, newProductError(ErrProductNotFound, line.productID)
			}
			products[line.productID] = product
		}
		requested[line.productID] += line.quantity
	}

	groups := make([]ShopGroup, 0)
	groupIndex := make(map[uint]int)
	shops := make(map[uint]*models.Shop)
	for _, line := range lines {
		product := products[line.productID]
		if requested[product.ID] > product.Stock {
			return nil, newStockError(ErrInsufficientStock, product.ID, requested[product.ID], product.Stock)
		}
		shop, err := r.resolveShop(product, shops)
		if err != nil {
			return nil, err
		}

		item, err := r.buildLineItem(product, line)
		if err != nil {
			return nil, err
		}

		idx, ok := groupIndex[shop.ID]
		if !ok {
			groups = append(groups, ShopGroup{
				ShopID:   shop.ID,
				ShopName: shop.Name,
				Origin: ShippingOrigin{
					ProvinceID: shop.ProvinceID,
					DistrictID: shop.DistrictID,
					WardCode:   shop.WardCode,
				},
				Subtotal: decimal.Zero,
				Note:     req.Notes.Resolve(shop.ID),
			})
			idx = len(groups) - 1
			groupIndex[shop.ID] = idx
		}
		group := &groups[idx]
		group.Items = append(group.Items, item)
		group.Subtotal = group.Subtotal.Add(item.LineSubtotal)
		group.WeightGrams += item.WeightGrams
	}

	logger.Debugw("checkout_cart_resolved",
		"user_id", userID,
		"line_count", len(lines),
		"shop_count", len(groups),
	)
	return groups, nil
}

// collectLines 收集下单项并合并重复的商品规格
func (r *CartResolver) collectLines(userID uint, req CheckoutRequest) ([]resolvedLine, error) {
	var raw []resolvedLine
	if req.usesExplicitItems() {
		for _, item := range req.Items {
			raw = append(raw, resolvedLine{productID: item.ProductID, variantID: item.VariantID, quantity: item.Quantity})
		}
	} else {
		if r.cart == nil {
			return nil, ErrEmptyCheckout
		}
		items, err := r.cart.GetCart(userID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			raw = append(raw, resolvedLine{productID: item.ProductID, variantID: item.VariantID, quantity: item.Quantity})
		}
	}
	if len(raw) == 0 {
		return nil, ErrEmptyCheckout
	}

	type lineKey struct {
		productID uint
		variantID uint
	}
	merged := make([]resolvedLine, 0, len(raw))
	index := make(map[lineKey]int, len(raw))
	for _, line := range raw {
		if line.productID == 0 || line.quantity <= 0 {
			return nil, ErrInvalidCheckoutItem
		}
		key := lineKey{productID: line.productID, variantID: line.variantID}
		if idx, ok := index[key]; ok {
			merged[idx].quantity += line.quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

func (r *CartResolver) resolveShop(product *models.Product, cache map[uint]*models.Shop) (*models.Shop, error) {
	if product.ShopID == 0 {
		return nil, newProductError(ErrMalformedProduct, product.ID)
	}
	if shop, ok := cache[product.ShopID]; ok {
		return shop, nil
	}
	shop, err := r.shopRepo.GetByID(product.ShopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, newProductError(ErrMalformedProduct, product.ID)
	}
	cache[product.ShopID] = shop
	return shop, nil
}

// buildLineItem 规格不存在时回退为商品本身
func (r *CartResolver) buildLineItem(product *models.Product, line resolvedLine) (LineItem, error) {
	name := strings.TrimSpace(product.Name)
	unitPrice := product.Price.Decimal
	variantID := uint(0)
	if line.variantID != 0 {
		variant, err := r.productRepo.GetVariant(product.ID, line.variantID)
		if err != nil {
			return LineItem{}, err
		}
		if variant != nil {
			variantID = variant.ID
			unitPrice = variant.Price.Decimal
			if variantName := strings.TrimSpace(variant.Name); variantName != "" {
				name = name + " - " + variantName
			}
		} else {
			logger.Debugw("checkout_variant_fallback",
				"product_id", product.ID,
				"variant_id", line.variantID,
			)
		}
	}

	unitWeight := product.WeightGrams
	if unitWeight <= 0 {
		unitWeight = r.checkoutCfg.DefaultItemWeightGrams
	}
	return LineItem{
		ProductID:    product.ID,
		VariantID:    variantID,
		Name:         name,
		UnitPrice:    unitPrice.Round(2),
		Quantity:     line.quantity,
		LineSubtotal: unitPrice.Mul(decimal.NewFromInt(int64(line.quantity))).Round(2),
		WeightGrams:  unitWeight * line.quantity,
	}, nil
}
