// README: Tariff domain model: tenant pricing configuration, request and result types.
package tariff

import "errors"

var (
	ErrUnknownVehicle = errors.New("unknown vehicle")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownTenant  = errors.New("unknown tenant")
)

type PricingBehavior string

const (
	BehaviorNormal   PricingBehavior = "normal_prices"
	BehaviorAllQuote PricingBehavior = "all_quote"
	BehaviorLeadTime PricingBehavior = "lead_time_pricing"
)

type OptionType string

const (
	OptionFixed   OptionType = "fixed"
	OptionPercent OptionType = "percent"
)

// Vehicle is one bookable vehicle class of a tenant.
type Vehicle struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	BaseFare   float64 `json:"baseFare"`
	PricePerKm float64 `json:"pricePerKm"`
	QuoteOnly  bool    `json:"quoteOnly"`
}

// Option is an add-on the passenger can book (child seat, meet & greet, ...).
type Option struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Type   OptionType `json:"type"`
	Amount float64    `json:"amount"`
}

// ImmediateSurcharge parameterises the extra charged on short-notice pickups.
type ImmediateSurcharge struct {
	Enabled           bool    `json:"enabled"`
	BaseDeltaAmount   float64 `json:"baseDeltaAmount"`
	BaseDeltaPercent  float64 `json:"baseDeltaPercent"`
	TotalDeltaPercent float64 `json:"totalDeltaPercent"`
}

// Config is a tenant's full pricing configuration. It is owned by the tenant
// configuration store and read-only here.
type Config struct {
	Vehicles                 []Vehicle          `json:"vehicles"`
	Options                  []Option           `json:"options"`
	StopFee                  float64            `json:"stopFee"`
	QuoteMessage             string             `json:"quoteMessage"`
	PricingBehavior          PricingBehavior    `json:"pricingBehavior"`
	LeadTimeThresholdMinutes int                `json:"leadTimeThresholdMinutes"`
	Immediate                ImmediateSurcharge `json:"immediateSurcharge"`
}

func (c Config) VehicleByID(id string) (Vehicle, bool) {
	for _, v := range c.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// Request describes one trip to price. It is request-scoped and never persisted.
type Request struct {
	Km                float64  `json:"km"`
	StopsCount        int      `json:"stopsCount"`
	PickupDate        string   `json:"pickupDate"`
	PickupTime        string   `json:"pickupTime"`
	VehicleID         string   `json:"vehicleId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

// AppliedOption records one option fee that contributed to a total.
type AppliedOption struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Type   OptionType `json:"type"`
	Amount float64    `json:"amount"`
	Fee    float64    `json:"fee"`
}

// Surcharge describes the lead-time pricing decision for audit and display.
type Surcharge struct {
	Kind              string  `json:"kind"`
	BaseDeltaAmount   float64 `json:"baseDeltaAmount,omitempty"`
	BaseDeltaPercent  float64 `json:"baseDeltaPercent,omitempty"`
	TotalDeltaPercent float64 `json:"totalDeltaPercent,omitempty"`
	ThresholdMinutes  int     `json:"thresholdMinutes"`
	DeltaMinutes      *int    `json:"deltaMinutes"`
}

// Result is the outcome of a tariff computation. IsQuote discriminates the
// "quote only" variant, in which Total is always zero and no option fees are
// applied. Input failures are returned as errors, not results.
type Result struct {
	IsQuote         bool            `json:"isQuote"`
	Total           float64         `json:"total"`
	PricingMode     PricingBehavior `json:"pricingMode"`
	QuoteMessage    string          `json:"quoteMessage,omitempty"`
	Surcharge       *Surcharge      `json:"surchargesApplied,omitempty"`
	AppliedOptions  []AppliedOption `json:"appliedOptions"`
	OptionsFee      float64         `json:"optionsFee"`
	ExtraStopsTotal float64         `json:"extraStopsTotal"`
}
