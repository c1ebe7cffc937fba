package model

import (
	"github.com/shopspring/decimal"
)

// Coupon represents a redeemable coupon or voucher returned by a provider.
// Identity is the provider reference alone: two coupons with the same Ref
// are the same coupon regardless of any other field.
type Coupon struct {
	Ref      string          `json:"couponRef"`
	Name     string          `json:"couponTypeName"`
	Value    decimal.Decimal `json:"value"`
	Redeemed bool            `json:"redeemed"`
	Expired  bool            `json:"expired"`

	// Selected is transient UI state: true while the cashier has the
	// coupon toggled on in the picker, and true by construction for every
	// coupon in a persisted selection.
	Selected bool `json:"selected"`
}

// Redeemable reports whether the coupon can still be offered to the
// customer.
func (c Coupon) Redeemable() bool {
	return !c.Redeemed && !c.Expired
}

// ContainsCoupon reports whether the list holds a coupon with the same
// reference.
func ContainsCoupon(coupons []Coupon, ref string) bool {
	for _, c := range coupons {
		if c.Ref == ref {
			return true
		}
	}
	return false
}

// TotalValue sums the values of all coupons in the list.
func TotalValue(coupons []Coupon) decimal.Decimal {
	total := decimal.Zero
	for _, c := range coupons {
		total = total.Add(c.Value)
	}
	return total
}
