package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bazaar-next/internal/config"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("payment gateway config invalid")
	ErrRequestFailed    = errors.New("payment gateway request failed")
	ErrResponseInvalid  = errors.New("payment gateway response invalid")
	ErrSignatureInvalid = errors.New("payment gateway signature invalid")
	ErrAmountInvalid    = errors.New("payment gateway notify amount invalid")
)

const (
	createSessionPath = "/api/v1/sessions"
	defaultTimeout    = 10 * time.Second
)

// Client 托管收银台网关客户端
type Client struct {
	gatewayURL string
	merchantID string
	secretKey  string
	returnURL  string
	notifyURL  string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient 根据配置创建网关客户端，网关地址为空时返回 nil
func NewClient(cfg config.PaymentConfig) *Client {
	gatewayURL := strings.TrimRight(strings.TrimSpace(cfg.GatewayURL), "/")
	if gatewayURL == "" {
		return nil
	}
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Client{
		gatewayURL: gatewayURL,
		merchantID: strings.TrimSpace(cfg.MerchantID),
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		returnURL:  strings.TrimSpace(cfg.ReturnURL),
		notifyURL:  strings.TrimSpace(cfg.NotifyURL),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// CreatePaymentSession 创建支付会话并返回收银台跳转地址
func (c *Client) CreatePaymentSession(ctx context.Context, orderID uint, amount decimal.Decimal, description string) (string, error) {
	if c == nil {
		return "", ErrConfigInvalid
	}
	if c.merchantID == "" || c.secretKey == "" {
		return "", fmt.Errorf("%w: merchant_id and secret_key are required", ErrConfigInvalid)
	}
	if orderID == 0 || amount.LessThanOrEqual(decimal.Zero) {
		return "", fmt.Errorf("%w: order id and positive amount are required", ErrConfigInvalid)
	}

	params := map[string]string{
		"merchant_id": c.merchantID,
		"order_ref":   strconv.FormatUint(uint64(orderID), 10),
		"amount":      amount.StringFixed(2),
		"description": strings.TrimSpace(description),
		"return_url":  c.returnURL,
		"notify_url":  c.notifyURL,
		"timestamp":   strconv.FormatInt(c.now().Unix(), 10),
	}
	params["signature"] = Sign(params, c.secretKey)

	respBytes, err := c.postJSON(ctx, c.gatewayURL+createSessionPath, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			SessionID  string `json:"session_id"`
			PaymentURL string `json:"payment_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if resp.Code != 0 {
		return "", fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	paymentURL := strings.TrimSpace(resp.Data.PaymentURL)
	if paymentURL == "" {
		return "", fmt.Errorf("%w: payment_url missing", ErrResponseInvalid)
	}
	return paymentURL, nil
}

// VerifyNotify 校验网关异步通知签名
func (c *Client) VerifyNotify(params map[string]string) error {
	if c == nil {
		return ErrConfigInvalid
	}
	expected := Sign(params, c.secretKey)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(params["signature"])))) {
		return ErrSignatureInvalid
	}
	return nil
}

// NotifyAmount 读取通知中的实付金额，该字段参与签名，缺失或非正数视为无效
func NotifyAmount(params map[string]string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(params["amount"])
	if raw == "" {
		return decimal.Zero, ErrAmountInvalid
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrAmountInvalid, err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrAmountInvalid
	}
	return amount, nil
}

// Sign 生成签名
// 非空且非 signature 的参数按键名升序以 key=value 拼接，& 连接后做 HMAC-SHA256，输出小写十六进制
func Sign(params map[string]string, secretKey string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "signature" || strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) postJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
