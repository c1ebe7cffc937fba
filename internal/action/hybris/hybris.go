package hybris

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"mixmatch/internal/exchange"
	"mixmatch/internal/match"
	"mixmatch/internal/model"
)

// ActionName identifies the Hybris action in logs.
const ActionName = "HYBRIS"

// Config wires the Hybris action.
type Config struct {
	PromotionID int
	Pattern     string

	// StatusPrefix opens the status message shown to the cashier; the POS
	// line codes returned by the provider are appended to it.
	StatusPrefix string

	Client ClientConfig
}

// PromotionActivator moves the validity window of provider-selected
// promotions so the POS accepts them on the current ticket.
type PromotionActivator interface {
	ActivatePromotions(ctx context.Context, promotionIDs []int) error
}

// Action validates a scanned QR code and activates the promotions the
// provider answers with. Unlike the coupon-presenting actions there is no
// selection step: the provider decides.
type Action struct {
	cfg        Config
	matcher    *match.Matcher
	client     *Client
	promotions PromotionActivator
	logger     zerolog.Logger
}

// New builds the Hybris action.
func New(cfg Config, promotions PromotionActivator, logger zerolog.Logger) (*Action, error) {
	matcher, err := match.Compile(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("hybris: %w", err)
	}

	return &Action{
		cfg:        cfg,
		matcher:    matcher,
		client:     NewClient(cfg.Client, logger),
		promotions: promotions,
		logger:     logger.With().Str("action", ActionName).Logger(),
	}, nil
}

// ID returns the promotion identifier this action answers to.
func (a *Action) ID() int {
	return a.cfg.PromotionID
}

// Name identifies the action in logs.
func (a *Action) Name() string {
	return ActionName
}

// Apply validates the scanned QR code. A valid code activates the last
// promotion the provider returned; a rejected or timed-out validation
// cancels the promotion line and reports through the status field.
func (a *Action) Apply(ctx context.Context, doc *exchange.Document) error {
	barcode := doc.Barcode()
	if !a.matcher.Matches(barcode) {
		a.logger.Debug().Str("barcode", barcode).Msg("barcode does not match action pattern")
		return nil
	}

	result, err := a.client.ValidateQR(ctx, barcode)
	if err != nil {
		return a.reject(doc, err)
	}

	promoIDs, err := parsePromotionIDs(result.Promos)
	if err != nil {
		return a.reject(doc, err)
	}

	if err := a.promotions.ActivatePromotions(ctx, promoIDs); err != nil {
		a.logger.Error().Err(err).Msg("failed to activate promotion windows")
		return doc.SetStatus("The promotion could not be applied.")
	}

	// Last promo code wins on the exchange file.
	if err := doc.Activate(result.Promos[len(result.Promos)-1]); err != nil {
		return err
	}
	return doc.SetStatus(fmt.Sprintf("%s: %s", a.cfg.StatusPrefix, strings.Join(result.POSCodes, ",")))
}

// reject contains a classified validation failure: the message reaches the
// status field and the promotion line is cancelled so the POS applies
// nothing.
func (a *Action) reject(doc *exchange.Document, cause error) error {
	a.logger.Error().
		Err(cause).
		Str("classification", model.ClassifyCode(cause)).
		Msg("QR validation failed")

	message := "The promotion could not be applied."
	var domainErr *model.DomainError
	if errors.As(cause, &domainErr) {
		message = domainErr.Message
	}

	if err := doc.SetStatus(message); err != nil {
		return err
	}
	return doc.Cancel()
}

func parsePromotionIDs(promos []string) ([]int, error) {
	ids := make([]int, 0, len(promos))
	for _, p := range promos {
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, model.NewDomainError(model.ErrCodeProvider, "The validation provider returned a non-numeric promotion code")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
