package action_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixmatch/internal/action"
	"mixmatch/internal/exchange"
	"mixmatch/internal/match"
	"mixmatch/internal/model"
	"mixmatch/internal/store"
	"mixmatch/internal/ui"
)

type fakeProvider struct {
	coupons []model.Coupon
	err     error
	calls   int
}

func (p *fakeProvider) FetchCoupons(ctx context.Context, barcode string) ([]model.Coupon, error) {
	p.calls++
	return p.coupons, p.err
}

// fakePicker returns a fixed outcome and flips the selection of the given
// refs before returning the candidates.
type fakePicker struct {
	outcome ui.Outcome
	toggle  map[string]bool
	err     error
}

func (p *fakePicker) Present(ctx context.Context, candidates []model.Coupon) (ui.Outcome, []model.Coupon, error) {
	if p.err != nil {
		return ui.OutcomeExit, nil, p.err
	}
	annotated := make([]model.Coupon, len(candidates))
	copy(annotated, candidates)
	for i := range annotated {
		if selected, ok := p.toggle[annotated[i].Ref]; ok {
			annotated[i].Selected = selected
		}
	}
	return p.outcome, annotated, nil
}

type valueUpdate struct {
	promotionID int
	total       decimal.Decimal
}

type fakeValues struct {
	updates []valueUpdate
	err     error
}

func (v *fakeValues) UpdateValue(ctx context.Context, promotionID int, total decimal.Decimal) error {
	if v.err != nil {
		return v.err
	}
	v.updates = append(v.updates, valueUpdate{promotionID: promotionID, total: total})
	return nil
}

type flowFixture struct {
	flow       *action.CouponFlow
	doc        *exchange.Document
	docPath    string
	selections *store.SelectionStore
	selPath    string
	values     *fakeValues
}

func newFlowFixture(t *testing.T, provider *fakeProvider, picker ui.Picker, values *fakeValues) *flowFixture {
	t.Helper()

	dir := t.TempDir()
	docPath := filepath.Join(dir, "intercambio.xml")
	content := `<ticket>
    <identificador>0002051234567</identificador>
    <idpromocion>10</idpromocion>
    <aplicarmm>0</aplicarmm>
    <estadomm></estadomm>
</ticket>`
	require.NoError(t, os.WriteFile(docPath, []byte(content), 0o644))

	doc, err := exchange.Open(docPath, zerolog.Nop())
	require.NoError(t, err)

	selPath := filepath.Join(dir, "coupons.json")
	selections := store.NewSelectionStore(selPath, zerolog.Nop())

	flow := action.NewCouponFlow(action.CouponFlowConfig{
		Name:               "TESTPROVIDER",
		PromotionID:        10,
		Matcher:            match.MustCompile(`\d{13}`),
		Provider:           provider,
		Picker:             picker,
		Selections:         selections,
		Values:             values,
		ManagerPromotionID: 677,
		ActivationValue:    "677",
	}, zerolog.Nop())

	return &flowFixture{
		flow:       flow,
		doc:        doc,
		docPath:    docPath,
		selections: selections,
		selPath:    selPath,
		values:     values,
	}
}

func reopen(t *testing.T, path string) *exchange.Document {
	t.Helper()
	doc, err := exchange.Open(path, zerolog.Nop())
	require.NoError(t, err)
	return doc
}

func TestCouponFlow_RedeemCommitsSelectionValueAndActivation(t *testing.T) {
	provider := &fakeProvider{coupons: []model.Coupon{
		{Ref: "CP1", Name: "Free menu", Value: decimal.NewFromFloat(5.00)},
	}}
	picker := &fakePicker{outcome: ui.OutcomeRedeem, toggle: map[string]bool{"CP1": true}}
	values := &fakeValues{}
	fx := newFlowFixture(t, provider, picker, values)

	require.NoError(t, fx.flow.Apply(context.Background(), fx.doc))

	doc := reopen(t, fx.docPath)
	assert.Equal(t, "677", doc.MixAndMatch())
	assert.Equal(t, "Coupons selected successfully", doc.Status())

	require.Len(t, values.updates, 1)
	assert.Equal(t, 677, values.updates[0].promotionID)
	assert.True(t, values.updates[0].total.Equal(decimal.NewFromFloat(5.00)))

	stored, err := fx.selections.Load()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "CP1", stored[0].Ref)
	assert.True(t, stored[0].Selected)
}

func TestCouponFlow_ProviderTimeoutLeavesPromotionUnapplied(t *testing.T) {
	provider := &fakeProvider{err: model.ErrProviderTimeout}
	picker := &fakePicker{outcome: ui.OutcomeRedeem}
	values := &fakeValues{}
	fx := newFlowFixture(t, provider, picker, values)

	require.NoError(t, fx.flow.Apply(context.Background(), fx.doc))

	doc := reopen(t, fx.docPath)
	assert.Equal(t, "0", doc.MixAndMatch(), "activation flag must stay untouched")
	assert.Equal(t, model.ErrProviderTimeout.Message, doc.Status())
	assert.Empty(t, values.updates, "no value write on provider failure")
}

func TestCouponFlow_AuthenticationFailureSurfacesMessage(t *testing.T) {
	provider := &fakeProvider{err: model.NewDomainError(model.ErrCodeAuthentication, "Could not authenticate against the coupon provider")}
	values := &fakeValues{}
	fx := newFlowFixture(t, provider, &fakePicker{}, values)

	require.NoError(t, fx.flow.Apply(context.Background(), fx.doc))

	doc := reopen(t, fx.docPath)
	assert.Equal(t, "0", doc.MixAndMatch())
	assert.Equal(t, "Could not authenticate against the coupon provider", doc.Status())
}

func TestCouponFlow_BarcodeMismatchIsSilent(t *testing.T) {
	provider := &fakeProvider{}
	values := &fakeValues{}
	fx := newFlowFixture(t, provider, &fakePicker{}, values)

	content := `<ticket>
    <identificador>garbage</identificador>
    <idpromocion>10</idpromocion>
    <aplicarmm>0</aplicarmm>
    <estadomm></estadomm>
</ticket>`
	require.NoError(t, os.WriteFile(fx.docPath, []byte(content), 0o644))
	doc := reopen(t, fx.docPath)

	require.NoError(t, fx.flow.Apply(context.Background(), doc))

	assert.Equal(t, 0, provider.calls, "provider must not be queried on a mismatch")
	assert.Equal(t, "", reopen(t, fx.docPath).Status())
}

func TestCouponFlow_NoRedeemableCoupons(t *testing.T) {
	provider := &fakeProvider{coupons: []model.Coupon{
		{Ref: "CP1", Value: decimal.NewFromInt(5), Redeemed: true},
	}}
	values := &fakeValues{}
	fx := newFlowFixture(t, provider, &fakePicker{}, values)

	require.NoError(t, fx.flow.Apply(context.Background(), fx.doc))

	doc := reopen(t, fx.docPath)
	assert.Equal(t, "0", doc.MixAndMatch())
	assert.Equal(t, "There are no coupons up to date to be redeemed.", doc.Status())
	assert.Empty(t, values.updates)
}

func TestCouponFlow_CancelResetsValueAndDeletesSelection(t *testing.T) {
	provider := &fakeProvider{coupons: []model.Coupon{
		{Ref: "CP1", Value: decimal.NewFromFloat(5.00)},
	}}
	picker := &fakePicker{outcome: ui.OutcomeCancel}
	values := &fakeValues{}
	fx := newFlowFixture(t, provider, picker, values)

	require.NoError(t, fx.selections.Save("TESTPROVIDER", []model.Coupon{
		{Ref: "CP1", Value: decimal.NewFromFloat(5.00)},
	}))

	require.NoError(t, fx.flow.Apply(context.Background(), fx.doc))

	doc := reopen(t, fx.docPath)
	assert.Equal(t, exchange.CancelValue, doc.MixAndMatch())
	assert.Equal(t, "Cancelled redemption.", doc.Status())

	require.Len(t, values.updates, 1)
	assert.True(t, values.updates[0].total.IsZero())

	_, err := os.Stat(fx.selPath)
	assert.True(t, os.IsNotExist(err), "selection file must be removed")
}

func TestCouponFlow_DeselectingEverythingIsCancellation(t *testing.T) {
	stored := []model.Coupon{{Ref: "CP1", Value: decimal.NewFromFloat(5.00)}}
	provider := &fakeProvider{coupons: []model.Coupon{
		{Ref: "CP1", Value: decimal.NewFromFloat(5.00)},
	}}
	picker := &fakePicker{outcome: ui.OutcomeRedeem, toggle: map[string]bool{"CP1": false}}
	values := &fakeValues{}
	fx := newFlowFixture(t, provider, picker, values)

	require.NoError(t, fx.selections.Save("TESTPROVIDER", stored))

	require.NoError(t, fx.flow.Apply(context.Background(), fx.doc))

	doc := reopen(t, fx.docPath)
	assert.Equal(t, exchange.CancelValue, doc.MixAndMatch())
	assert.Equal(t, "No coupons selected for redemption.", doc.Status())

	require.Len(t, values.updates, 1)
	assert.True(t, values.updates[0].total.IsZero())

	_, err := os.Stat(fx.selPath)
	assert.True(t, os.IsNotExist(err))
}

func TestCouponFlow_ExitLeavesEverythingUntouched(t *testing.T) {
	provider := &fakeProvider{coupons: []model.Coupon{
		{Ref: "CP1", Value: decimal.NewFromFloat(5.00)},
	}}
	picker := &fakePicker{outcome: ui.OutcomeExit}
	values := &fakeValues{}
	fx := newFlowFixture(t, provider, picker, values)

	require.NoError(t, fx.flow.Apply(context.Background(), fx.doc))

	doc := reopen(t, fx.docPath)
	assert.Equal(t, "0", doc.MixAndMatch())
	assert.Equal(t, "", doc.Status())
	assert.Empty(t, values.updates)
}

// A value commit failure after the selection was persisted must leave the
// document un-activated: better an unapplied promotion than an activated
// one against a stale value.
func TestCouponFlow_ValueCommitFailureLeavesDocumentUnactivated(t *testing.T) {
	provider := &fakeProvider{coupons: []model.Coupon{
		{Ref: "CP1", Value: decimal.NewFromFloat(5.00)},
	}}
	picker := &fakePicker{outcome: ui.OutcomeRedeem, toggle: map[string]bool{"CP1": true}}
	values := &fakeValues{err: errors.New("connection refused")}
	fx := newFlowFixture(t, provider, picker, values)

	require.NoError(t, fx.flow.Apply(context.Background(), fx.doc))

	doc := reopen(t, fx.docPath)
	assert.Equal(t, "0", doc.MixAndMatch())
	assert.Equal(t, "The promotion could not be applied.", doc.Status())
}

func TestCouponFlow_PickerErrorIsContained(t *testing.T) {
	provider := &fakeProvider{coupons: []model.Coupon{
		{Ref: "CP1", Value: decimal.NewFromFloat(5.00)},
	}}
	picker := &fakePicker{err: errors.New("input closed")}
	values := &fakeValues{}
	fx := newFlowFixture(t, provider, picker, values)

	require.NoError(t, fx.flow.Apply(context.Background(), fx.doc))

	doc := reopen(t, fx.docPath)
	assert.Equal(t, "0", doc.MixAndMatch())
	assert.Equal(t, "The promotion could not be applied.", doc.Status())
}
