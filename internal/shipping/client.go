package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bazaar-next/internal/config"
)

var (
	ErrConfigInvalid   = errors.New("shipping config invalid")
	ErrRequestFailed   = errors.New("shipping request failed")
	ErrResponseInvalid = errors.New("shipping response invalid")
)

const (
	feePath         = "/shiip/public-api/v2/shipping-order/fee"
	createOrderPath = "/shiip/public-api/v2/shipping-order/create"
	defaultTimeout  = 5 * time.Second
)

// FeeRequest 运费报价请求
type FeeRequest struct {
	FromDistrictID int    `json:"from_district_id"`
	FromWardCode   string `json:"from_ward_code"`
	ToDistrictID   int    `json:"to_district_id"`
	ToWardCode     string `json:"to_ward_code"`
	WeightGrams    int    `json:"weight"`
	InsuranceValue int64  `json:"insurance_value"`
}

// ShipmentItem 运单货品
type ShipmentItem struct {
	Name     string `json:"name"`
	Code     string `json:"code,omitempty"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Weight   int    `json:"weight,omitempty"`
}

// ShipmentRequest 运单登记请求
type ShipmentRequest struct {
	ClientOrderCode string         `json:"client_order_code"`
	FromName        string         `json:"from_name,omitempty"`
	FromPhone       string         `json:"from_phone,omitempty"`
	FromAddress     string         `json:"from_address,omitempty"`
	FromDistrictID  int            `json:"from_district_id,omitempty"`
	FromWardCode    string         `json:"from_ward_code,omitempty"`
	ToName          string         `json:"to_name"`
	ToPhone         string         `json:"to_phone"`
	ToAddress       string         `json:"to_address"`
	ToDistrictID    int            `json:"to_district_id"`
	ToWardCode      string         `json:"to_ward_code"`
	CODAmount       int64          `json:"cod_amount"`
	WeightGrams     int            `json:"weight"`
	Note            string         `json:"note,omitempty"`
	Items           []ShipmentItem `json:"items"`
}

// ShipmentResult 运单登记结果
type ShipmentResult struct {
	TrackingCode         string `json:"order_code"`
	ExpectedDeliveryTime string `json:"expected_delivery_time"`
}

// Client 物流开放平台客户端
type Client struct {
	baseURL    string
	token      string
	shopCode   string
	httpClient *http.Client
}

// NewClient 根据配置创建物流客户端，未配置地址时返回 nil
func NewClient(cfg config.ShippingConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil
	}
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		shopCode:   strings.TrimSpace(cfg.ShopCode),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CalculateFee 查询运费（最小货币单位）
func (c *Client) CalculateFee(ctx context.Context, req FeeRequest) (int64, error) {
	if c == nil {
		return 0, ErrConfigInvalid
	}
	if req.ToDistrictID <= 0 || strings.TrimSpace(req.ToWardCode) == "" {
		return 0, fmt.Errorf("%w: destination is required", ErrConfigInvalid)
	}
	var data struct {
		Total int64 `json:"total"`
	}
	if err := c.call(ctx, feePath, req, &data); err != nil {
		return 0, err
	}
	return data.Total, nil
}

// CreateShipment 登记运单
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error) {
	if c == nil {
		return nil, ErrConfigInvalid
	}
	if strings.TrimSpace(req.ToName) == "" || strings.TrimSpace(req.ToPhone) == "" || len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: recipient and items are required", ErrConfigInvalid)
	}
	var data ShipmentResult
	if err := c.call(ctx, createOrderPath, req, &data); err != nil {
		return nil, err
	}
	if strings.TrimSpace(data.TrackingCode) == "" {
		return nil, fmt.Errorf("%w: order_code missing", ErrResponseInvalid)
	}
	return &data, nil
}

func (c *Client) call(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)
	if c.shopCode != "" {
		req.Header.Set("ShopId", c.shopCode)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if envelope.Code != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrResponseInvalid, envelope.Message)
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("%w: empty data", ErrResponseInvalid)
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return nil
}
