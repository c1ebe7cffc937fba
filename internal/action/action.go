// Package action holds the promotion actions and the registry that routes
// one exchange document to the action configured for its promotion id.
package action

import (
	"context"

	"mixmatch/internal/exchange"
	"mixmatch/internal/model"
)

// Action is one configured promotion's business logic. Exactly one instance
// exists per configured provider per invocation.
//
// Apply owns its failure containment: provider and store failures are
// converted into a status message on the document and Apply returns nil.
// A non-nil error means the action could not even report its outcome.
type Action interface {
	// ID is the promotion identifier this action answers to.
	ID() int

	// Name identifies the action in logs.
	Name() string

	// Apply runs the action's business logic against the document.
	Apply(ctx context.Context, doc *exchange.Document) error
}

// Provider is the coupon-validation capability an action consumes: exchange
// a barcode for the candidate coupons it unlocks, or fail with a classified
// error.
type Provider interface {
	FetchCoupons(ctx context.Context, barcode string) ([]model.Coupon, error)
}
