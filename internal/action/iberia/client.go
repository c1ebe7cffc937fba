// Package iberia implements the Iberia voucher provider: an XML web service
// exposing Login and GetVoucherAvailability operations. Scanned voucher
// barcodes embed the voucher id; tickets and boarding passes travel whole.
package iberia

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mixmatch/internal/match"
	"mixmatch/internal/model"
)

// Lookup types understood by GetVoucherAvailability.
const (
	typeVoucher = "BON"
	typeTicket  = "TKT"
)

// voucherStatusOpen marks a voucher that can still be redeemed.
const voucherStatusOpen = "ABIERTO"

// ClientConfig holds the web-service client configuration.
type ClientConfig struct {
	BaseURL    string
	User       string
	Password   string
	Airport    string
	IDProvider string

	// VoucherPattern recognises voucher barcodes and captures the embedded
	// voucher id in its last group. Non-matching barcodes are sent whole
	// as tickets.
	VoucherPattern string

	Timeout time.Duration
}

// Client talks to the Iberia voucher web service.
type Client struct {
	cfg     ClientConfig
	voucher *match.Matcher
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates an Iberia client. The voucher pattern is compiled here;
// a malformed pattern is a configuration error.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.VoucherPattern == "" {
		cfg.VoucherPattern = `(0002)(\d{2})(\d+)`
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	voucher, err := match.Compile(cfg.VoucherPattern)
	if err != nil {
		return nil, fmt.Errorf("iberia voucher pattern: %w", err)
	}

	return &Client{
		cfg:     cfg,
		voucher: voucher,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With().Str("component", "iberia-client").Logger(),
	}, nil
}

type loginRequest struct {
	XMLName xml.Name `xml:"Login"`
	User    string   `xml:"user"`
	Pwd     string   `xml:"pwd"`
}

type loginResponse struct {
	XMLName xml.Name `xml:"LoginResponse"`
	Code    string   `xml:"code"`
	Token   string   `xml:"tkn"`
}

type availabilityRequest struct {
	XMLName    xml.Name `xml:"GetVoucherAvailability"`
	Data       string   `xml:"data"`
	Type       string   `xml:"type"`
	Airport    string   `xml:"airport"`
	IDProvider string   `xml:"idProvider"`
	CSDate     string   `xml:"csdate"`
}

type availabilityResponse struct {
	XMLName  xml.Name  `xml:"GetVoucherAvailabilityResponse"`
	Code     string    `xml:"code"`
	Vouchers []voucher `xml:"vouchers>voucher"`
}

type voucher struct {
	ID      string `xml:"id"`
	Name    string `xml:"nbre_svc"`
	Amount  string `xml:"importe"`
	Status  string `xml:"status"`
	Outdate string `xml:"outdate"`
}

// FetchCoupons logs in, resolves the barcode to a voucher id or ticket
// number, and maps the returned vouchers onto coupons. A voucher is
// redeemable while it is open and carries no out-of-date mark.
func (c *Client) FetchCoupons(ctx context.Context, barcode string) ([]model.Coupon, error) {
	token, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	data, lookupType := c.resolveBarcode(barcode)
	c.logger.Debug().Str("type", lookupType).Str("data", data).Msg("requesting voucher availability")

	var availability availabilityResponse
	err = c.call(ctx, token, availabilityRequest{
		Data:       data,
		Type:       lookupType,
		Airport:    c.cfg.Airport,
		IDProvider: c.cfg.IDProvider,
		CSDate:     time.Now().Format("20060102 15:04"),
	}, &availability)
	if err != nil {
		return nil, err
	}

	if availability.Code != "OK" {
		c.logger.Warn().Str("code", availability.Code).Msg("voucher availability rejected")
		return nil, model.NewDomainError(model.ErrCodeInvalidCode, "The scanned code was rejected by the voucher provider")
	}

	coupons := make([]model.Coupon, 0, len(availability.Vouchers))
	for _, v := range availability.Vouchers {
		value, err := decimal.NewFromString(v.Amount)
		if err != nil {
			return nil, model.NewDomainError(model.ErrCodeProvider, "The voucher provider response is missing the voucher amount")
		}
		open := v.Status == voucherStatusOpen && v.Outdate == ""
		coupons = append(coupons, model.Coupon{
			Ref:      v.ID,
			Name:     v.Name,
			Value:    value,
			Redeemed: !open,
		})
	}

	c.logger.Info().Int("voucher_count", len(coupons)).Msg("vouchers fetched")
	return coupons, nil
}

// resolveBarcode decides whether the scan is a voucher with an embedded id
// or a whole ticket number.
func (c *Client) resolveBarcode(barcode string) (data, lookupType string) {
	groups, ok := c.voucher.Groups(barcode, c.voucher.GroupCount())
	if ok {
		return groups[0], typeVoucher
	}
	return barcode, typeTicket
}

func (c *Client) login(ctx context.Context) (string, error) {
	var login loginResponse
	if err := c.call(ctx, "", loginRequest{User: c.cfg.User, Pwd: c.cfg.Password}, &login); err != nil {
		if errors.Is(err, model.ErrProviderTimeout) {
			return "", err
		}
		return "", model.NewDomainError(model.ErrCodeAuthentication, "Could not authenticate against the voucher provider")
	}
	if login.Code != "OK" || login.Token == "" {
		c.logger.Warn().Str("code", login.Code).Msg("login rejected")
		return "", model.NewDomainError(model.ErrCodeAuthentication, "Could not authenticate against the voucher provider")
	}
	return login.Token, nil
}

// call posts one XML request envelope and decodes the response body into
// out.
func (c *Client) call(ctx context.Context, token string, in, out any) error {
	payload, err := xml.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("voucher service rejected request")
		return model.NewDomainError(model.ErrCodeProvider, "The voucher provider rejected the request")
	}

	if err := xml.Unmarshal(body, out); err != nil {
		return model.NewDomainError(model.ErrCodeProvider, "The voucher provider returned an unreadable response")
	}
	return nil
}

func classifyTransport(err error) error {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		return model.ErrProviderTimeout
	}
	return model.NewDomainError(model.ErrCodeProvider, "Could not reach the voucher provider")
}
