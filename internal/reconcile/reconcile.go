// Package reconcile merges the coupon selection a customer made in previous
// scans with the freshly presented, toggled candidate list into the new
// authoritative selection.
package reconcile

import (
	"github.com/shopspring/decimal"

	"mixmatch/internal/model"
)

// Merge reconciles the presented candidate list against the previously
// stored selection and returns the new selection plus its aggregate value.
//
// Starting from a copy of stored, each presented coupon either removes a
// previously stored coupon the customer deselected, appends a newly selected
// one, or changes nothing. Coupon identity is the reference alone, so the
// result never holds duplicate references and does not depend on the order
// of either input.
func Merge(presented, stored []model.Coupon) ([]model.Coupon, decimal.Decimal) {
	merged := make([]model.Coupon, len(stored))
	copy(merged, stored)

	for _, c := range presented {
		switch {
		case model.ContainsCoupon(stored, c.Ref) && !c.Selected:
			merged = remove(merged, c.Ref)
		case !model.ContainsCoupon(stored, c.Ref) && c.Selected:
			merged = append(merged, c)
		}
	}

	return merged, model.TotalValue(merged)
}

// MarkStored annotates candidates that are already part of the stored
// selection so the picker shows them toggled on, and drops candidates that
// can no longer be redeemed.
func MarkStored(candidates, stored []model.Coupon) []model.Coupon {
	marked := make([]model.Coupon, 0, len(candidates))
	for _, c := range candidates {
		if !c.Redeemable() {
			continue
		}
		if model.ContainsCoupon(stored, c.Ref) {
			c.Selected = true
		}
		marked = append(marked, c)
	}
	return marked
}

func remove(coupons []model.Coupon, ref string) []model.Coupon {
	kept := coupons[:0]
	for _, c := range coupons {
		if c.Ref != ref {
			kept = append(kept, c)
		}
	}
	return kept
}
