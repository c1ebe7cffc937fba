package icoupon

import (
	"fmt"

	"github.com/rs/zerolog"

	"mixmatch/internal/action"
	"mixmatch/internal/match"
	"mixmatch/internal/ui"
)

// ActionName identifies the iCoupon action in logs and selection records.
const ActionName = "ICOUPON"

// Config wires the iCoupon action: which promotion id it answers to, the
// barcode pattern gating it, and the REST client settings.
type Config struct {
	PromotionID int
	Pattern     string
	Client      ClientConfig
}

// Dependencies are the collaborators the action orchestrates.
type Dependencies struct {
	Picker     ui.Picker
	Selections action.SelectionStore
	Values     action.ValueStore

	// ManagerPromotionID keys the value row; ActivationValue is what the
	// aplicarmm field is set to on success.
	ManagerPromotionID int
	ActivationValue    string
}

// New builds the iCoupon action on top of the shared coupon flow.
func New(cfg Config, deps Dependencies, logger zerolog.Logger) (action.Action, error) {
	matcher, err := match.Compile(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("icoupon: %w", err)
	}

	return action.NewCouponFlow(action.CouponFlowConfig{
		Name:               ActionName,
		PromotionID:        cfg.PromotionID,
		Matcher:            matcher,
		Provider:           NewClient(cfg.Client, logger),
		Picker:             deps.Picker,
		Selections:         deps.Selections,
		Values:             deps.Values,
		ManagerPromotionID: deps.ManagerPromotionID,
		ActivationValue:    deps.ActivationValue,
	}, logger), nil
}
