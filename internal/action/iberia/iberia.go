package iberia

import (
	"fmt"

	"github.com/rs/zerolog"

	"mixmatch/internal/action"
	"mixmatch/internal/match"
	"mixmatch/internal/ui"
)

// ActionName identifies the Iberia action in logs and selection records.
const ActionName = "IBERIA"

// Config wires the Iberia action.
type Config struct {
	PromotionID int

	// Pattern gates the action on the scanned barcode; it covers both
	// voucher and ticket shapes for this provider.
	Pattern string
	Client  ClientConfig
}

// Dependencies are the collaborators the action orchestrates.
type Dependencies struct {
	Picker     ui.Picker
	Selections action.SelectionStore
	Values     action.ValueStore

	ManagerPromotionID int
	ActivationValue    string
}

// New builds the Iberia action on top of the shared coupon flow.
func New(cfg Config, deps Dependencies, logger zerolog.Logger) (action.Action, error) {
	matcher, err := match.Compile(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("iberia: %w", err)
	}

	client, err := NewClient(cfg.Client, logger)
	if err != nil {
		return nil, err
	}

	return action.NewCouponFlow(action.CouponFlowConfig{
		Name:               ActionName,
		PromotionID:        cfg.PromotionID,
		Matcher:            matcher,
		Provider:           client,
		Picker:             deps.Picker,
		Selections:         deps.Selections,
		Values:             deps.Values,
		ManagerPromotionID: deps.ManagerPromotionID,
		ActivationValue:    deps.ActivationValue,
	}, logger), nil
}
