// Package icoupon implements the iCoupon provider: an OAuth-style REST
// service exchanging a scanned barcode for the coupons it unlocks.
package icoupon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mixmatch/internal/model"
)

// ClientConfig holds the REST client configuration: credentials, base URL
// and operation URLs.
type ClientConfig struct {
	BaseURL      string
	TokenURL     string
	CouponsURL   string
	GrantType    string
	ClientID     string
	ClientSecret string

	LocationRef        string
	ServiceProviderRef string
	TradingOutletRef   string

	// Timeout bounds each HTTP round trip. The cashier is waiting at the
	// register, so there are no retries.
	Timeout time.Duration
}

// Client talks to the iCoupon REST API.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates an iCoupon client.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "icoupon-client").Logger(),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

type couponsRequest struct {
	Barcode            string `json:"barcode"`
	BarcodeFormat      string `json:"barcodeFormat"`
	LocationRef        string `json:"locationRef"`
	ServiceProviderRef string `json:"serviceProviderRef"`
	TradingOutletRef   string `json:"tradingOutletRef"`
}

type couponsResponse struct {
	Coupons []model.Coupon `json:"coupons"`
	Message string         `json:"message"`
}

// FetchCoupons authenticates and exchanges the barcode for the candidate
// coupon list.
func (c *Client) FetchCoupons(ctx context.Context, barcode string) ([]model.Coupon, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(couponsRequest{
		Barcode:            barcode,
		BarcodeFormat:      "auto",
		LocationRef:        c.cfg.LocationRef,
		ServiceProviderRef: c.cfg.ServiceProviderRef,
		TradingOutletRef:   c.cfg.TradingOutletRef,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode coupons request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.CouponsURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build coupons request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read coupons response: %w", err)
	}

	var coupons couponsResponse
	if err := json.Unmarshal(body, &coupons); err != nil {
		return nil, model.NewDomainError(model.ErrCodeProvider, "The coupon provider returned an unreadable response")
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("message", coupons.Message).Msg("coupons request rejected")
		message := coupons.Message
		if message == "" {
			message = "The scanned code was rejected by the coupon provider"
		}
		return nil, model.NewDomainError(model.ErrCodeInvalidCode, message)
	}

	if coupons.Coupons == nil {
		return nil, model.NewDomainError(model.ErrCodeProvider, "The coupon provider response is missing the coupon list")
	}

	c.logger.Info().Int("coupon_count", len(coupons.Coupons)).Msg("coupons fetched")
	return coupons.Coupons, nil
}

// authenticate performs the client-credentials token exchange.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {c.cfg.GrantType},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", model.NewDomainError(model.ErrCodeAuthentication, "The coupon provider login returned an unreadable response")
	}

	if resp.StatusCode != http.StatusOK || token.AccessToken == "" {
		c.logger.Warn().Int("status", resp.StatusCode).Str("error", token.Error).Msg("authentication rejected")
		return "", model.NewDomainError(model.ErrCodeAuthentication, "Could not authenticate against the coupon provider")
	}

	return token.AccessToken, nil
}

// classifyTransport maps transport failures onto the error taxonomy. A
// timeout is reported distinctly in logs but reaches the cashier the same
// way every other provider failure does.
func classifyTransport(err error) error {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		return model.ErrProviderTimeout
	}
	return model.NewDomainError(model.ErrCodeProvider, "Could not reach the coupon provider")
}
