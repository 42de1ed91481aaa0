// README: Context sanitiser: rebuilds untrusted client payloads field by field.
package chat

import (
	"math"
	"strings"

	"berline/internal/modules/tariff"
)

// Caps applied while rebuilding an inbound payload. Anything beyond them is
// discarded, never rejected: the widget must keep working against a hostile
// or simply buggy client.
const (
	maxAddressLen = 200
	maxLabelLen   = 80
	maxMessageLen = 2000
	maxVehicles   = 20
	maxOptions    = 12
	maxCount      = 99
)

// Sanitize rebuilds a trusted Context from raw inbound JSON. Every string is
// trimmed and capped, every list bounded, every number checked for
// finiteness. Nested objects are reconstructed field by field; nothing from
// the wire is passed through as-is.
func Sanitize(raw Context) Context {
	out := Context{
		Pickup:     capStr(raw.Pickup, maxAddressLen),
		Dropoff:    capStr(raw.Dropoff, maxAddressLen),
		PickupDate: capStr(raw.PickupDate, 20),
		PickupTime: capStr(raw.PickupTime, 10),

		OptionsAskedOnce: raw.OptionsAskedOnce,
		CountsAskedOnce:  raw.CountsAskedOnce,
	}

	switch raw.OptionsDecision {
	case DecisionNone, DecisionSome:
		out.OptionsDecision = raw.OptionsDecision
	default:
		out.OptionsDecision = DecisionUnknown
	}

	for _, v := range raw.Vehicles {
		if len(out.Vehicles) >= maxVehicles {
			break
		}
		id := capStr(v.ID, maxLabelLen)
		if id == "" {
			continue
		}
		out.Vehicles = append(out.Vehicles, CatalogVehicle{
			ID:        id,
			Label:     capStr(v.Label, maxLabelLen),
			QuoteOnly: v.QuoteOnly,
		})
	}

	for _, o := range raw.Options {
		if len(out.Options) >= maxOptions {
			break
		}
		id := capStr(o.ID, maxLabelLen)
		if id == "" || !finite(o.Amount) {
			continue
		}
		typ := capStr(o.Type, 10)
		if typ != string(tariff.OptionFixed) && typ != string(tariff.OptionPercent) {
			continue
		}
		out.Options = append(out.Options, CatalogOption{
			ID:     id,
			Label:  capStr(o.Label, maxLabelLen),
			Type:   typ,
			Amount: o.Amount,
		})
	}

	for _, q := range raw.VehicleQuotes {
		if len(out.VehicleQuotes) >= maxVehicles {
			break
		}
		id := capStr(q.ID, maxLabelLen)
		if id == "" {
			continue
		}
		vq := VehicleQuote{ID: id, Label: capStr(q.Label, maxLabelLen), IsQuote: q.IsQuote}
		if q.Total != nil && finite(*q.Total) && *q.Total >= 0 {
			total := *q.Total
			vq.Total = &total
		}
		out.VehicleQuotes = append(out.VehicleQuotes, vq)
	}

	for _, id := range raw.SelectedOptionIDs {
		if len(out.SelectedOptionIDs) >= maxOptions {
			break
		}
		if id = capStr(id, maxLabelLen); id != "" {
			out.SelectedOptionIDs = append(out.SelectedOptionIDs, id)
		}
	}

	out.Passengers = sanitizeCount(raw.Passengers)
	out.Bags = sanitizeCount(raw.Bags)

	if raw.RouteKm != nil && finite(*raw.RouteKm) && *raw.RouteKm >= 0 {
		km := *raw.RouteKm
		out.RouteKm = &km
	}

	if raw.Pricing != nil {
		cfg := sanitizePricing(*raw.Pricing)
		out.Pricing = &cfg
	}

	return out
}

// sanitizePricing rebuilds the tenant pricing snapshot the client holds for
// local recomputation.
func sanitizePricing(raw tariff.Config) tariff.Config {
	cfg := tariff.Config{
		QuoteMessage:             capStr(raw.QuoteMessage, maxAddressLen),
		LeadTimeThresholdMinutes: raw.LeadTimeThresholdMinutes,
	}
	if finite(raw.StopFee) && raw.StopFee >= 0 {
		cfg.StopFee = raw.StopFee
	}
	switch raw.PricingBehavior {
	case tariff.BehaviorAllQuote, tariff.BehaviorLeadTime:
		cfg.PricingBehavior = raw.PricingBehavior
	default:
		cfg.PricingBehavior = tariff.BehaviorNormal
	}
	if cfg.LeadTimeThresholdMinutes < 0 {
		cfg.LeadTimeThresholdMinutes = 0
	}

	imm := raw.Immediate
	if finite(imm.BaseDeltaAmount) && finite(imm.BaseDeltaPercent) && finite(imm.TotalDeltaPercent) {
		cfg.Immediate = imm
	}

	for _, v := range raw.Vehicles {
		if len(cfg.Vehicles) >= maxVehicles {
			break
		}
		id := capStr(v.ID, maxLabelLen)
		if id == "" || !finite(v.BaseFare) || !finite(v.PricePerKm) || v.BaseFare < 0 || v.PricePerKm < 0 {
			continue
		}
		cfg.Vehicles = append(cfg.Vehicles, tariff.Vehicle{
			ID:         id,
			Label:      capStr(v.Label, maxLabelLen),
			BaseFare:   v.BaseFare,
			PricePerKm: v.PricePerKm,
			QuoteOnly:  v.QuoteOnly,
		})
	}
	for _, o := range raw.Options {
		if len(cfg.Options) >= maxOptions {
			break
		}
		id := capStr(o.ID, maxLabelLen)
		if id == "" || !finite(o.Amount) || o.Amount < 0 {
			continue
		}
		if o.Type != tariff.OptionFixed && o.Type != tariff.OptionPercent {
			continue
		}
		cfg.Options = append(cfg.Options, tariff.Option{
			ID:     id,
			Label:  capStr(o.Label, maxLabelLen),
			Type:   o.Type,
			Amount: o.Amount,
		})
	}
	return cfg
}

// BoundHistory trims a conversation to the newest MaxHistory turns and caps
// each turn's content.
func BoundHistory(history []Turn) []Turn {
	var out []Turn
	for _, t := range history {
		role := capStr(t.Role, 12)
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		content := capStr(t.Content, maxMessageLen)
		if content == "" {
			continue
		}
		out = append(out, Turn{Role: role, Content: content})
	}
	if len(out) > MaxHistory {
		out = out[len(out)-MaxHistory:]
	}
	return out
}

// Redact produces the model-safe view of a context. The pricing configuration
// is dropped entirely; only catalog identities and already-computed quote
// totals survive. This is the single choke point between tenant pricing and
// the language model.
func Redact(c Context) RedactedContext {
	return RedactedContext{
		Pickup:            c.Pickup,
		Dropoff:           c.Dropoff,
		PickupDate:        c.PickupDate,
		PickupTime:        c.PickupTime,
		Vehicles:          c.Vehicles,
		Options:           c.Options,
		VehicleQuotes:     c.VehicleQuotes,
		OptionsAskedOnce:  c.OptionsAskedOnce,
		OptionsDecision:   c.OptionsDecision,
		SelectedOptionIDs: c.SelectedOptionIDs,
		Passengers:        c.Passengers,
		Bags:              c.Bags,
	}
}

func capStr(s string, max int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > max {
		s = string(r[:max])
	}
	return s
}

func sanitizeCount(v *int) *int {
	if v == nil || *v < 0 || *v > maxCount {
		return nil
	}
	n := *v
	return &n
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
