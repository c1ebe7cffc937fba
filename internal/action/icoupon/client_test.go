package icoupon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixmatch/internal/model"
)

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:            baseURL,
		TokenURL:           "/token",
		CouponsURL:         "/coupons",
		GrantType:          "client_credentials",
		ClientID:           "pos-terminal",
		ClientSecret:       "secret",
		LocationRef:        "MAD",
		ServiceProviderRef: "SP01",
		TradingOutletRef:   "T042",
		Timeout:            2 * time.Second,
	}, zerolog.Nop())
}

func TestClient_FetchCoupons(t *testing.T) {
	var couponsReq couponsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
			assert.Equal(t, "pos-terminal", r.FormValue("client_id"))
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-123"})
		case "/coupons":
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&couponsReq))
			json.NewEncoder(w).Encode(couponsResponse{Coupons: []model.Coupon{
				{Ref: "CP1", Name: "Free menu", Value: decimal.NewFromFloat(8.50)},
				{Ref: "CP2", Name: "Drink", Value: decimal.NewFromFloat(2.00), Redeemed: true},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	coupons, err := newTestClient(srv.URL).FetchCoupons(context.Background(), "0001234567890")
	require.NoError(t, err)

	assert.Equal(t, "0001234567890", couponsReq.Barcode)
	assert.Equal(t, "auto", couponsReq.BarcodeFormat)
	assert.Equal(t, "MAD", couponsReq.LocationRef)

	require.Len(t, coupons, 2)
	assert.Equal(t, "CP1", coupons[0].Ref)
	assert.True(t, coupons[0].Value.Equal(decimal.NewFromFloat(8.50)))
	assert.True(t, coupons[1].Redeemed)
}

func TestClient_FetchCoupons_AuthenticationRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(tokenResponse{Error: "invalid_client"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchCoupons(context.Background(), "0001234567890")
	require.Error(t, err)
	assert.Equal(t, model.ErrCodeAuthentication, model.ClassifyCode(err))
}

func TestClient_FetchCoupons_CodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-123"})
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(couponsResponse{Message: "Unknown barcode"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchCoupons(context.Background(), "garbage")
	require.Error(t, err)
	assert.Equal(t, model.ErrCodeInvalidCode, model.ClassifyCode(err))

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "Unknown barcode", domainErr.Message)
}

func TestClient_FetchCoupons_MissingCouponList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-123"})
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchCoupons(context.Background(), "0001234567890")
	require.Error(t, err)
	assert.Equal(t, model.ErrCodeProvider, model.ClassifyCode(err))
}

func TestClient_FetchCoupons_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:  srv.URL,
		TokenURL: "/token",
		Timeout:  50 * time.Millisecond,
	}, zerolog.Nop())

	_, err := client.FetchCoupons(context.Background(), "0001234567890")
	require.ErrorIs(t, err, model.ErrProviderTimeout)
}
