package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mixmatch/internal/config"
)

// PromotionStore reads and updates the monetary value row the POS keeps for
// each mix-and-match promotion. The VALOR column is a pipe-delimited string
// whose first segment is the currently applied discount amount; the other
// segments belong to the POS and are preserved on update.
//
// The connection is established on first use, not at construction: a down
// database must surface as an action-level failure, never as a startup
// failure that would block unrelated promotions.
type PromotionStore struct {
	cfg    config.DatabaseConfig
	logger zerolog.Logger

	pool    *pgxpool.Pool
	dialErr error
	dialed  bool
}

// NewPromotionStore creates a promotion value store over the given database
// configuration.
func NewPromotionStore(cfg config.DatabaseConfig, logger zerolog.Logger) *PromotionStore {
	return &PromotionStore{
		cfg:    cfg,
		logger: logger.With().Str("store", "promotion").Logger(),
	}
}

// connect dials the database once and caches the outcome. The engine is
// single-threaded, so no locking is needed here.
func (p *PromotionStore) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if p.dialed {
		return p.pool, p.dialErr
	}
	p.dialed = true
	p.pool, p.dialErr = NewPool(ctx, p.cfg, p.logger)
	return p.pool, p.dialErr
}

// UpdateValue rewrites the first segment of the promotion's VALOR column
// with the given total, formatted with the comma decimal convention the POS
// expects.
func (p *PromotionStore) UpdateValue(ctx context.Context, promotionID int, total decimal.Decimal) error {
	pool, err := p.connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to manager database: %w", err)
	}

	var current string
	selectSQL := `SELECT VALOR FROM ACCIONESPROMOCION WHERE IDPROMOCION = $1`
	if err := pool.QueryRow(ctx, selectSQL, promotionID).Scan(&current); err != nil {
		p.logger.Error().Err(err).Int("promotion_id", promotionID).Msg("failed to read promotion value")
		return fmt.Errorf("failed to read promotion %d value: %w", promotionID, err)
	}

	segments := strings.Split(current, "|")
	segments[0] = FormatValue(total)
	updated := strings.Join(segments, "|")

	p.logger.Info().
		Int("promotion_id", promotionID).
		Str("value", updated).
		Msg("updating promotion value")

	updateSQL := `UPDATE ACCIONESPROMOCION SET VALOR = $1 WHERE IDPROMOCION = $2`
	if _, err := pool.Exec(ctx, updateSQL, updated, promotionID); err != nil {
		p.logger.Error().Err(err).Int("promotion_id", promotionID).Msg("failed to update promotion value")
		return fmt.Errorf("failed to update promotion %d value: %w", promotionID, err)
	}

	return nil
}

// ActivatePromotions moves the validity window of the given promotions to
// today..tomorrow so the POS accepts the line on the current ticket.
func (p *PromotionStore) ActivatePromotions(ctx context.Context, promotionIDs []int) error {
	pool, err := p.connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to manager database: %w", err)
	}

	start := time.Now()
	end := start.AddDate(0, 0, 1)
	updateSQL := `UPDATE PROMOCIONES SET FECHAINICIAL = $1, FECHAFINAL = $2 WHERE IDPROMOCION = $3`

	for _, id := range promotionIDs {
		p.logger.Debug().
			Int("promotion_id", id).
			Str("start", start.Format("2006-01-02")).
			Str("end", end.Format("2006-01-02")).
			Msg("activating promotion window")

		if _, err := pool.Exec(ctx, updateSQL, start.Format("2006-01-02"), end.Format("2006-01-02"), id); err != nil {
			p.logger.Error().Err(err).Int("promotion_id", id).Msg("failed to activate promotion")
			return fmt.Errorf("failed to activate promotion %d: %w", id, err)
		}
	}

	return nil
}

// Close releases the connection pool if one was ever opened.
func (p *PromotionStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// FormatValue renders a monetary amount the way the POS stores it: two
// decimals with a comma separator.
func FormatValue(value decimal.Decimal) string {
	return strings.Replace(value.StringFixed(2), ".", ",", 1)
}
