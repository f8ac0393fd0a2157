package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bazaar-next/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.ShippingConfig{BaseURL: server.URL, Token: "tk", ShopCode: "885"})
}

func TestCalculateFeeSendsTokenHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, feePath, r.URL.Path)
		assert.Equal(t, "tk", r.Header.Get("Token"))
		assert.Equal(t, "885", r.Header.Get("ShopId"))
		var req FeeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 400, req.WeightGrams)
		_, _ = w.Write([]byte(`{"code":200,"message":"Success","data":{"total":36500}}`))
	})

	fee, err := client.CalculateFee(context.Background(), FeeRequest{
		FromDistrictID: 1442, FromWardCode: "20101",
		ToDistrictID: 1451, ToWardCode: "20814",
		WeightGrams: 400, InsuranceValue: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(36500), fee)
}

func TestCalculateFeeRequiresDestination(t *testing.T) {
	client := NewClient(config.ShippingConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := client.CalculateFee(context.Background(), FeeRequest{})
	assert.True(t, errors.Is(err, ErrConfigInvalid))
}

func TestCalculateFeeBusinessError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":400,"message":"route not supported"}`))
	})
	_, err := client.CalculateFee(context.Background(), FeeRequest{ToDistrictID: 1, ToWardCode: "1"})
	assert.True(t, errors.Is(err, ErrResponseInvalid))
}

func TestCreateShipmentReturnsTrackingCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, createOrderPath, r.URL.Path)
		var req ShipmentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(30100), req.CODAmount)
		_, _ = w.Write([]byte(`{"code":200,"data":{"order_code":"GHN123","expected_delivery_time":"2026-10-20T00:00:00Z"}}`))
	})

	result, err := client.CreateShipment(context.Background(), ShipmentRequest{
		ClientOrderCode: "BZ1",
		ToName:          "Lan",
		ToPhone:         "0900000000",
		ToAddress:       "1 Street",
		ToDistrictID:    1451,
		ToWardCode:      "20814",
		CODAmount:       30100,
		WeightGrams:     400,
		Items:           []ShipmentItem{{Name: "Tea", Quantity: 2, Price: 50}},
	})
	require.NoError(t, err)
	assert.Equal(t, "GHN123", result.TrackingCode)
}

func TestCreateShipmentHTTPFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := client.CreateShipment(context.Background(), ShipmentRequest{
		ToName: "a", ToPhone: "b", Items: []ShipmentItem{{Name: "x", Quantity: 1}},
	})
	assert.True(t, errors.Is(err, ErrRequestFailed))
}

type countingCalculator struct {
	calls int
	fee   int64
	err   error
}

func (c *countingCalculator) CalculateFee(ctx context.Context, req FeeRequest) (int64, error) {
	c.calls++
	return c.fee, c.err
}

func TestCachedRateProviderPassesThroughWithoutRedis(t *testing.T) {
	next := &countingCalculator{fee: 22000}
	provider := NewCachedRateProvider(next, time.Minute)

	for i := 0; i < 2; i++ {
		fee, err := provider.CalculateFee(context.Background(), FeeRequest{ToDistrictID: 1, ToWardCode: "w"})
		require.NoError(t, err)
		assert.Equal(t, int64(22000), fee)
	}
	assert.Equal(t, 2, next.calls)
}

func TestCachedRateProviderPropagatesError(t *testing.T) {
	provider := NewCachedRateProvider(&countingCalculator{err: ErrRequestFailed}, time.Minute)
	_, err := provider.CalculateFee(context.Background(), FeeRequest{})
	assert.True(t, errors.Is(err, ErrRequestFailed))
}

func TestQuoteCacheKeyBucketsWeight(t *testing.T) {
	a := quoteCacheKey(FeeRequest{ToDistrictID: 1, ToWardCode: "w", WeightGrams: 410})
	b := quoteCacheKey(FeeRequest{ToDistrictID: 1, ToWardCode: "w", WeightGrams: 490})
	c := quoteCacheKey(FeeRequest{ToDistrictID: 1, ToWardCode: "w", WeightGrams: 510})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
