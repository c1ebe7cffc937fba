package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"mixmatch/internal/model"
)

// ConsolePicker is a terminal coupon picker: it lists the candidates with
// their toggle state and reads commands until the cashier redeems, cancels
// or exits. It replaces the graphical dialog of earlier deployments on
// terminals without a display toolkit.
type ConsolePicker struct {
	in     *bufio.Scanner
	out    io.Writer
	logger zerolog.Logger
}

// NewConsolePicker creates a picker reading commands from in and rendering
// to out.
func NewConsolePicker(in io.Reader, out io.Writer, logger zerolog.Logger) *ConsolePicker {
	return &ConsolePicker{
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger.With().Str("component", "console-picker").Logger(),
	}
}

// Present lists the candidates and processes toggle commands. Commands are
// a candidate number to flip its selection, "r" to redeem, "c" to cancel
// and "x" to exit. End of input counts as exit.
func (p *ConsolePicker) Present(ctx context.Context, candidates []model.Coupon) (Outcome, []model.Coupon, error) {
	coupons := make([]model.Coupon, len(candidates))
	copy(coupons, candidates)

	p.render(coupons)

	for p.in.Scan() {
		if err := ctx.Err(); err != nil {
			return OutcomeExit, coupons, err
		}

		input := strings.TrimSpace(strings.ToLower(p.in.Text()))
		switch input {
		case "r":
			p.logger.Info().Msg("leaving picker with REDEEM")
			return OutcomeRedeem, coupons, nil
		case "c":
			p.logger.Info().Msg("leaving picker with CANCEL")
			return OutcomeCancel, coupons, nil
		case "x":
			p.logger.Info().Msg("leaving picker with EXIT")
			return OutcomeExit, coupons, nil
		default:
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 || n > len(coupons) {
				fmt.Fprintf(p.out, "Unknown command %q\n", input)
				continue
			}
			coupons[n-1].Selected = !coupons[n-1].Selected
			p.render(coupons)
		}
	}

	if err := p.in.Err(); err != nil {
		return OutcomeExit, coupons, fmt.Errorf("failed to read picker input: %w", err)
	}
	return OutcomeExit, coupons, nil
}

func (p *ConsolePicker) render(coupons []model.Coupon) {
	fmt.Fprintln(p.out, "Escoja cupones de la lista:")
	for i, c := range coupons {
		mark := " "
		if c.Selected {
			mark = "x"
		}
		fmt.Fprintf(p.out, "  [%s] %d. %s (%s)\n", mark, i+1, c.Name, c.Value.StringFixed(2))
	}
	fmt.Fprintln(p.out, "Toggle with the coupon number; (r)edeem, (c)ancel, e(x)it")
}
