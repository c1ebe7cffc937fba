// Package ui defines the coupon-picker capability the engine consumes. The
// engine only needs "present candidates, get back a verdict and the toggled
// list"; the surface behind it is swappable.
package ui

import (
	"context"

	"mixmatch/internal/model"
)

// Outcome is the verdict the cashier leaves the picker with.
type Outcome string

const (
	// OutcomeRedeem applies the toggled selection.
	OutcomeRedeem Outcome = "REDEEM"
	// OutcomeCancel abandons the redemption and clears any stored selection.
	OutcomeCancel Outcome = "CANCEL"
	// OutcomeExit leaves everything as it was.
	OutcomeExit Outcome = "EXIT"
)

// Picker presents candidate coupons for selection and returns the outcome
// together with the candidates carrying the cashier's final toggle state.
type Picker interface {
	Present(ctx context.Context, candidates []model.Coupon) (Outcome, []model.Coupon, error)
}
