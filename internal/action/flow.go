package action

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mixmatch/internal/exchange"
	"mixmatch/internal/match"
	"mixmatch/internal/model"
	"mixmatch/internal/reconcile"
	"mixmatch/internal/ui"
)

// Picker status messages shown on the POS screen.
const (
	msgCouponsSelected = "Coupons selected successfully"
	msgNoneSelected    = "No coupons selected for redemption."
	msgCancelled       = "Cancelled redemption."
	msgNoCoupons       = "There are no coupons up to date to be redeemed."
	msgNotApplied      = "The promotion could not be applied."
)

// SelectionStore persists the coupons selected so far for the current
// promotion.
type SelectionStore interface {
	Save(provider string, coupons []model.Coupon) error
	Load() ([]model.Coupon, error)
	Delete() error
}

// ValueStore commits the aggregate discount to the promotion's value row.
type ValueStore interface {
	UpdateValue(ctx context.Context, promotionID int, total decimal.Decimal) error
}

// CouponFlow is the provider-agnostic orchestration shared by every
// coupon-presenting action: gate on the barcode pattern, query the
// provider, present the candidates, reconcile the selection and commit.
//
// The commit order is selection, value, document activation, status. A
// failure at any step leaves the document un-activated rather than
// activated against a stale value.
type CouponFlow struct {
	name       string
	id         int
	matcher    *match.Matcher
	provider   Provider
	picker     ui.Picker
	selections SelectionStore
	values     ValueStore

	// managerPromotionID keys the value row and, as a string, is the
	// aplicarmm value the POS applies.
	managerPromotionID int
	activationValue    string

	logger zerolog.Logger
}

// CouponFlowConfig wires one coupon flow.
type CouponFlowConfig struct {
	Name               string
	PromotionID        int
	Matcher            *match.Matcher
	Provider           Provider
	Picker             ui.Picker
	Selections         SelectionStore
	Values             ValueStore
	ManagerPromotionID int
	ActivationValue    string
}

// NewCouponFlow creates the shared orchestration for one provider.
func NewCouponFlow(cfg CouponFlowConfig, logger zerolog.Logger) *CouponFlow {
	return &CouponFlow{
		name:               cfg.Name,
		id:                 cfg.PromotionID,
		matcher:            cfg.Matcher,
		provider:           cfg.Provider,
		picker:             cfg.Picker,
		selections:         cfg.Selections,
		values:             cfg.Values,
		managerPromotionID: cfg.ManagerPromotionID,
		activationValue:    cfg.ActivationValue,
		logger:             logger.With().Str("action", cfg.Name).Logger(),
	}
}

// ID returns the promotion identifier this flow answers to.
func (f *CouponFlow) ID() int {
	return f.id
}

// Name identifies the flow in logs.
func (f *CouponFlow) Name() string {
	return f.name
}

// Apply runs the flow state machine against the document.
func (f *CouponFlow) Apply(ctx context.Context, doc *exchange.Document) error {
	barcode := doc.Barcode()
	if !f.matcher.Matches(barcode) {
		// The common case: the scanned value belongs to another action.
		f.logger.Debug().Str("barcode", barcode).Msg("barcode does not match action pattern")
		return nil
	}

	stored, err := f.selections.Load()
	if err != nil {
		return f.fail(doc, msgNotApplied, err)
	}

	coupons, err := f.provider.FetchCoupons(ctx, barcode)
	if err != nil {
		return f.fail(doc, failureMessage(err), err)
	}

	candidates := reconcile.MarkStored(coupons, stored)
	if len(candidates) == 0 {
		f.logger.Info().Msg("no redeemable coupons for barcode")
		return doc.SetStatus(msgNoCoupons)
	}

	outcome, annotated, err := f.picker.Present(ctx, candidates)
	if err != nil {
		return f.fail(doc, msgNotApplied, err)
	}

	switch outcome {
	case ui.OutcomeRedeem:
		merged, total := reconcile.Merge(annotated, stored)
		if len(merged) == 0 {
			// Deselecting everything is a cancellation, not a
			// zero-value success.
			return f.cancel(ctx, doc, msgNoneSelected)
		}
		return f.commit(ctx, doc, merged, total)
	case ui.OutcomeCancel:
		return f.cancel(ctx, doc, msgCancelled)
	default:
		f.logger.Info().Msg("picker exited, nothing has been done")
		return nil
	}
}

func (f *CouponFlow) commit(ctx context.Context, doc *exchange.Document, coupons []model.Coupon, total decimal.Decimal) error {
	f.logger.Info().
		Int("coupon_count", len(coupons)).
		Str("total", total.StringFixed(2)).
		Msg("committing coupon selection")

	if err := f.selections.Save(f.name, coupons); err != nil {
		return f.fail(doc, msgNotApplied, err)
	}
	if err := f.values.UpdateValue(ctx, f.managerPromotionID, total); err != nil {
		return f.fail(doc, msgNotApplied, err)
	}
	if err := doc.Activate(f.activationValue); err != nil {
		return f.fail(doc, msgNotApplied, err)
	}
	return doc.SetStatus(msgCouponsSelected)
}

func (f *CouponFlow) cancel(ctx context.Context, doc *exchange.Document, message string) error {
	f.logger.Info().Str("reason", message).Msg("cancelling redemption")

	if err := doc.Cancel(); err != nil {
		return f.fail(doc, msgNotApplied, err)
	}
	if err := f.values.UpdateValue(ctx, f.managerPromotionID, decimal.Zero); err != nil {
		return f.fail(doc, msgNotApplied, err)
	}
	if err := f.selections.Delete(); err != nil {
		return f.fail(doc, msgNotApplied, err)
	}
	return doc.SetStatus(message)
}

// fail contains the failure inside the action: the classified message goes
// to the status field, the document is left un-activated, and the process
// keeps going.
func (f *CouponFlow) fail(doc *exchange.Document, message string, cause error) error {
	f.logger.Error().
		Err(cause).
		Str("classification", model.ClassifyCode(cause)).
		Msg("action failed")
	return doc.SetStatus(message)
}

// failureMessage picks the cashier-facing message for a provider failure.
func failureMessage(err error) string {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return msgNotApplied
}
