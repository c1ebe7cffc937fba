package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"mixmatch/internal/action"
	"mixmatch/internal/action/hybris"
	"mixmatch/internal/action/iberia"
	"mixmatch/internal/action/icoupon"
	"mixmatch/internal/config"
	"mixmatch/internal/exchange"
	"mixmatch/internal/store"
	"mixmatch/internal/ui"
)

// The engine is launched by the POS once per scan: read the exchange file,
// dispatch to the configured action, exit. Success and business failures
// both exit 0 — the exchange file's status field is the real outcome
// channel. Only unrecoverable startup errors exit non-zero.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info().Strs("actions", cfg.Actions.Enabled).Msg("starting mixmatch engine")

	// The POS blocks on this process; let an interrupt cut network calls
	// short instead of leaving the cashier waiting.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	doc, err := exchange.Open(cfg.Exchange.FilePath(), logger)
	if err != nil {
		return fmt.Errorf("failed to open exchange file: %w", err)
	}

	promotions := store.NewPromotionStore(cfg.Database, logger)
	defer promotions.Close()

	selections := store.NewSelectionStore(cfg.Exchange.SelectionPath(), logger)
	picker := ui.NewConsolePicker(os.Stdin, os.Stdout, logger)

	registry, err := buildRegistry(cfg, picker, selections, promotions, logger)
	if err != nil {
		return err
	}

	if err := registry.Dispatch(ctx, doc); err != nil {
		// The action could not even report its outcome; the invocation
		// contract still demands a clean exit.
		logger.Error().Err(err).Msg("dispatch failed")
	}

	logger.Info().Msg("mixmatch engine finished")
	return nil
}

// buildRegistry constructs the configured actions in configuration order.
func buildRegistry(
	cfg *config.Config,
	picker ui.Picker,
	selections *store.SelectionStore,
	promotions *store.PromotionStore,
	logger zerolog.Logger,
) (*action.Registry, error) {
	registry := action.NewRegistry(logger)
	for _, name := range cfg.Actions.Enabled {
		var (
			a   action.Action
			err error
		)
		switch name {
		case config.ActionICoupon:
			a, err = icoupon.New(cfg.Actions.ICoupon, icoupon.Dependencies{
				Picker:             picker,
				Selections:         selections,
				Values:             promotions,
				ManagerPromotionID: cfg.Manager.PromotionID,
				ActivationValue:    cfg.Manager.ActivationValue(),
			}, logger)
		case config.ActionHybris:
			a, err = hybris.New(cfg.Actions.Hybris, promotions, logger)
		case config.ActionIberia:
			a, err = iberia.New(cfg.Actions.Iberia, iberia.Dependencies{
				Picker:             picker,
				Selections:         selections,
				Values:             promotions,
				ManagerPromotionID: cfg.Manager.PromotionID,
				ActivationValue:    cfg.Manager.ActivationValue(),
			}, logger)
		default:
			err = fmt.Errorf("unknown action: %s", name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build action %s: %w", name, err)
		}
		registry.Register(a)
	}
	return registry, nil
}
