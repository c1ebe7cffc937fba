// Package hybris implements the Hybris provider: a QR validation service
// that answers with the promotion codes to apply instead of a coupon list,
// so no picker is involved.
package hybris

import (
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

// ClientConfig holds the REST client configuration.
type ClientConfig struct {
	BaseURL    string
	TokenURL   string
	ValidateURL string

	GrantType    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	// TerminalCode identifies the POS terminal to the validation service.
	TerminalCode string

	Timeout time.Duration
}

// ValidationResult is the provider's answer to a valid QR code.
type ValidationResult struct {
	// POSCodes are the line codes shown to the cashier.
	POSCodes []string
	// Promos are the promotion codes to apply, last one wins on the
	// exchange file.
	Promos []string
}

// Client talks to the Hybris validation API.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates a Hybris client.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "hybris-client").Logger(),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

type validateResponse struct {
	Message struct {
		POS []struct {
			Code string `json:"code"`
		} `json:"pos"`
		Promos []string `json:"promos"`
	} `json:"message"`
}

type rejectionResponse struct {
	Message string `json:"message"`
}

// ValidateQR authenticates and submits the scanned QR code for validation.
func (c *Client) ValidateQR(ctx context.Context, qrCode string) (*ValidationResult, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"qrCode": {qrCode},
		"codTPV": {c.cfg.TerminalCode},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.ValidateURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read validation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var rejection rejectionResponse
		message := "The scanned QR code is not valid"
		if err := json.Unmarshal(body, &rejection); err == nil && rejection.Message != "" {
			message = rejection.Message
		}
		c.logger.Warn().Int("status", resp.StatusCode).Str("message", message).Msg("QR validation rejected")
		return nil, model.NewDomainError(model.ErrCodeInvalidCode, message)
	}

	var validated validateResponse
	if err := json.Unmarshal(body, &validated); err != nil {
		return nil, model.NewDomainError(model.ErrCodeProvider, "The validation provider returned an unreadable response")
	}
	if len(validated.Message.Promos) == 0 {
		return nil, model.NewDomainError(model.ErrCodeProvider, "The validation provider response is missing the promotion codes")
	}

	result := &ValidationResult{Promos: validated.Message.Promos}
	for _, p := range validated.Message.POS {
		result.POSCodes = append(result.POSCodes, p.Code)
	}

	c.logger.Info().
		Int("pos_count", len(result.POSCodes)).
		Int("promo_count", len(result.Promos)).
		Msg("QR code validated")

	return result, nil
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {c.cfg.GrantType},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"username":      {c.cfg.Username},
		"password":      {c.cfg.Password},
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
		return "", model.NewDomainError(model.ErrCodeAuthentication, "The validation provider login returned an unreadable response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || token.AccessToken == "" {
		c.logger.Warn().Int("status", resp.StatusCode).Str("error", token.Error).Msg("authentication rejected")
		return "", model.NewDomainError(model.ErrCodeAuthentication, "Could not authenticate against the validation provider")
	}

	return token.AccessToken, nil
}

func classifyTransport(err error) error {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		return model.ErrProviderTimeout
	}
	return model.NewDomainError(model.ErrCodeProvider, "Could not reach the validation provider")
}
