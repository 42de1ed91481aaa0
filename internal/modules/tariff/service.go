// README: Tariff engine: deterministic trip pricing against a tenant configuration.
package tariff

import (
	"context"
	"math"
	"time"
)

// Engine computes prices. It is pure except for Now, which only feeds the
// lead-time classification; identical inputs at the same instant always
// produce identical results, so concurrent use needs no synchronisation.
type Engine struct {
	Now func() time.Time
}

// Compute prices one trip, in fixed order: quote-only short-circuit, distance
// and stop fares, night surcharge, volume discount, option fees, lead-time
// surcharge. Returns ErrUnknownVehicle / ErrInvalidInput for bad input.
func (e Engine) Compute(cfg Config, req Request) (Result, error) {
	if math.IsNaN(req.Km) || math.IsInf(req.Km, 0) || req.Km < 0 || req.StopsCount < 0 {
		return Result{}, ErrInvalidInput
	}
	vehicle, ok := cfg.VehicleByID(req.VehicleID)
	if !ok {
		return Result{}, ErrUnknownVehicle
	}

	if cfg.PricingBehavior == BehaviorAllQuote || vehicle.QuoteOnly {
		return Result{
			IsQuote:      true,
			Total:        0,
			PricingMode:  cfg.PricingBehavior,
			QuoteMessage: cfg.QuoteMessage,
		}, nil
	}

	// Any trip under one kilometre bills as one.
	billableKm := math.Max(1, math.Ceil(req.Km))
	extraStops := float64(req.StopsCount) * cfg.StopFee
	total := vehicle.BaseFare + billableKm*vehicle.PricePerKm + extraStops

	if hour, hasHour := pickupHour(req.PickupTime); hasHour && (hour >= 22 || hour < 5) {
		total *= 1.10
	}
	if total > 600 {
		total *= 0.90
	}

	applied, fee := ApplyOptions(total, req.SelectedOptionIDs, cfg.Options)
	total += fee

	var surcharge *Surcharge
	if cfg.PricingBehavior == BehaviorLeadTime {
		lt := ClassifyLeadTime(req.PickupDate, req.PickupTime, cfg.LeadTimeThresholdMinutes, e.now())
		switch {
		case lt.Mode == ModeImmediate && cfg.Immediate.Enabled:
			total += cfg.Immediate.BaseDeltaAmount + vehicle.BaseFare*cfg.Immediate.BaseDeltaPercent/100
			total *= 1 + cfg.Immediate.TotalDeltaPercent/100
			surcharge = &Surcharge{
				Kind:              string(ModeImmediate),
				BaseDeltaAmount:   cfg.Immediate.BaseDeltaAmount,
				BaseDeltaPercent:  cfg.Immediate.BaseDeltaPercent,
				TotalDeltaPercent: cfg.Immediate.TotalDeltaPercent,
				ThresholdMinutes:  cfg.LeadTimeThresholdMinutes,
				DeltaMinutes:      lt.DeltaMinutes,
			}
		case lt.Mode == ModeReservation:
			surcharge = &Surcharge{
				Kind:             string(ModeReservation),
				ThresholdMinutes: cfg.LeadTimeThresholdMinutes,
				DeltaMinutes:     lt.DeltaMinutes,
			}
		}
	}

	return Result{
		Total:           roundCents(total),
		PricingMode:     cfg.PricingBehavior,
		Surcharge:       surcharge,
		AppliedOptions:  applied,
		OptionsFee:      fee,
		ExtraStopsTotal: roundCents(extraStops),
	}, nil
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// pickupHour extracts the hour from a pickup time string. The night window
// check is skipped entirely when the time is absent or unparsable.
func pickupHour(clock string) (int, bool) {
	if clock == "" {
		return 0, false
	}
	hour, _, ok := parseClock(clock)
	return hour, ok
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Store resolves a tenant's pricing configuration by tenant key.
type Store interface {
	Resolve(ctx context.Context, tenantKey string) (Config, error)
}

// Service pairs the engine with a tenant configuration store.
type Service struct {
	store  Store
	engine Engine
}

func NewService(store Store) *Service {
	return &Service{store: store, engine: Engine{Now: time.Now}}
}

// Quote resolves the tenant configuration and prices the trip.
func (s *Service) Quote(ctx context.Context, tenantKey string, req Request) (Result, error) {
	cfg, err := s.store.Resolve(ctx, tenantKey)
	if err != nil {
		return Result{}, err
	}
	return s.engine.Compute(cfg, req)
}
