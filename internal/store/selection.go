package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mixmatch/internal/model"
)

// SelectionRecord is the on-disk record of the coupons a customer has
// selected so far for the current promotion. The file is overwritten
// wholesale on every reconciliation and deleted on cancellation; the POS
// reads it after the ticket closes.
type SelectionRecord struct {
	ID       uuid.UUID      `json:"id"`
	Provider string         `json:"provider"`
	SavedAt  time.Time      `json:"savedAt"`
	Coupons  []model.Coupon `json:"coupons"`
}

// SelectionStore persists the current coupon selection as a JSON file next
// to the exchange file.
type SelectionStore struct {
	path   string
	logger zerolog.Logger
}

// NewSelectionStore creates a selection store over the given file path.
func NewSelectionStore(path string, logger zerolog.Logger) *SelectionStore {
	return &SelectionStore{
		path:   path,
		logger: logger.With().Str("store", "selection").Str("file", path).Logger(),
	}
}

// Save overwrites the selection file with the given coupons. Every persisted
// coupon is selected by construction.
func (s *SelectionStore) Save(provider string, coupons []model.Coupon) error {
	record := SelectionRecord{
		ID:       uuid.New(),
		Provider: provider,
		SavedAt:  time.Now(),
		Coupons:  make([]model.Coupon, len(coupons)),
	}
	for i, c := range coupons {
		c.Selected = true
		record.Coupons[i] = c
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode selection record: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write selection file %s: %w", s.path, err)
	}

	s.logger.Info().
		Str("provider", provider).
		Int("coupon_count", len(record.Coupons)).
		Msg("selection saved")

	return nil
}

// Load returns the previously persisted selection, or an empty list when no
// selection file exists yet.
func (s *SelectionStore) Load() ([]model.Coupon, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read selection file %s: %w", s.path, err)
	}

	var record SelectionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse selection file %s: %w", s.path, err)
	}

	s.logger.Debug().
		Str("provider", record.Provider).
		Int("coupon_count", len(record.Coupons)).
		Msg("selection loaded")

	return record.Coupons, nil
}

// Delete removes the selection file. Deleting an absent file is a no-op.
func (s *SelectionStore) Delete() error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete selection file %s: %w", s.path, err)
	}
	s.logger.Info().Msg("selection deleted")
	return nil
}
