package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bazaar-next/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDisabledWithoutGatewayURL(t *testing.T) {
	assert.Nil(t, NewClient(config.PaymentConfig{}))
}

func TestSignSkipsEmptyAndSignatureFields(t *testing.T) {
	params := map[string]string{
		"b":         "2",
		"a":         "1",
		"empty":     " ",
		"signature": "ignored",
	}
	assert.Equal(t, Sign(map[string]string{"a": "1", "b": "2"}, "secret"), Sign(params, "secret"))
	assert.NotEqual(t, Sign(params, "secret"), Sign(params, "other"))
}

func TestCreatePaymentSessionSignsRequest(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, createSessionPath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"code":0,"data":{"session_id":"s1","payment_url":"https://pay.example/s1"}}`))
	}))
	defer server.Close()

	client := NewClient(config.PaymentConfig{
		GatewayURL: server.URL + "/",
		MerchantID: "m-1",
		SecretKey:  "secret",
		ReturnURL:  "https://shop.example/return",
	})
	client.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := client.CreatePaymentSession(context.Background(), 42, decimal.RequireFromString("60150"), "checkout CK1")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/s1", url)
	assert.Equal(t, "42", received["order_ref"])
	assert.Equal(t, "60150.00", received["amount"])
	assert.Equal(t, "1700000000", received["timestamp"])
	assert.NoError(t, client.VerifyNotify(received))

	received["amount"] = "1.00"
	assert.ErrorIs(t, client.VerifyNotify(received), ErrSignatureInvalid, "amount is covered by the signature")
}

func TestNotifyAmount(t *testing.T) {
	amount, err := NotifyAmount(map[string]string{"amount": " 60150.00 "})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("60150")))

	for _, raw := range []string{"", "abc", "0", "-5"} {
		_, err := NotifyAmount(map[string]string{"amount": raw})
		assert.ErrorIs(t, err, ErrAmountInvalid, raw)
	}
}

func TestCreatePaymentSessionRejectsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":4001,"message":"merchant disabled"}`))
	}))
	defer server.Close()

	client := NewClient(config.PaymentConfig{GatewayURL: server.URL, MerchantID: "m", SecretKey: "k"})
	_, err := client.CreatePaymentSession(context.Background(), 1, decimal.NewFromInt(10), "")
	assert.True(t, errors.Is(err, ErrResponseInvalid))
}

func TestCreatePaymentSessionHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(config.PaymentConfig{GatewayURL: server.URL, MerchantID: "m", SecretKey: "k"})
	_, err := client.CreatePaymentSession(context.Background(), 1, decimal.NewFromInt(10), "")
	assert.True(t, errors.Is(err, ErrRequestFailed))
}

func TestCreatePaymentSessionValidatesInput(t *testing.T) {
	client := NewClient(config.PaymentConfig{GatewayURL: "http://127.0.0.1:1", MerchantID: "m", SecretKey: "k"})
	_, err := client.CreatePaymentSession(context.Background(), 0, decimal.NewFromInt(10), "")
	assert.True(t, errors.Is(err, ErrConfigInvalid))
	_, err = client.CreatePaymentSession(context.Background(), 1, decimal.Zero, "")
	assert.True(t, errors.Is(err, ErrConfigInvalid))
}
