// README: Tenant pricing configuration stores (PostgreSQL and static).
package tariff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore reads tenant pricing configurations from PostgreSQL. Vehicle and
// option catalogs are stored as JSONB alongside the scalar pricing knobs.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Resolve(ctx context.Context, tenantKey string) (Config, error) {
	const q = `
        SELECT vehicles, options, stop_fee, quote_message, pricing_behavior,
               lead_time_threshold_minutes,
               immediate_enabled, immediate_base_delta_amount,
               immediate_base_delta_percent, immediate_total_delta_percent
        FROM tenant_pricing
        WHERE tenant_key = $1`

	var (
		cfg          Config
		vehiclesJSON []byte
		optionsJSON  []byte
	)
	err := s.db.QueryRow(ctx, q, tenantKey).Scan(
		&vehiclesJSON,
		&optionsJSON,
		&cfg.StopFee,
		&cfg.QuoteMessage,
		&cfg.PricingBehavior,
		&cfg.LeadTimeThresholdMinutes,
		&cfg.Immediate.Enabled,
		&cfg.Immediate.BaseDeltaAmount,
		&cfg.Immediate.BaseDeltaPercent,
		&cfg.Immediate.TotalDeltaPercent,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, ErrUnknownTenant
	}
	if err != nil {
		return Config{}, fmt.Errorf("resolve tenant %q: %w", tenantKey, err)
	}

	if err := json.Unmarshal(vehiclesJSON, &cfg.Vehicles); err != nil {
		return Config{}, fmt.Errorf("tenant %q vehicles: %w", tenantKey, err)
	}
	if err := json.Unmarshal(optionsJSON, &cfg.Options); err != nil {
		return Config{}, fmt.Errorf("tenant %q options: %w", tenantKey, err)
	}
	return cfg, nil
}

// StaticStore serves one fixed configuration for every tenant key. Used for
// single-tenant deployments and tests.
type StaticStore struct {
	Config Config
}

func (s StaticStore) Resolve(context.Context, string) (Config, error) {
	return s.Config, nil
}
