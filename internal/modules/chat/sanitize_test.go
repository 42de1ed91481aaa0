package chat

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"berline/internal/modules/tariff"
)

func TestSanitize_CapsAndDrops(t *testing.T) {
	longAddr := strings.Repeat("a", maxAddressLen+50)
	bad := math.NaN()
	tooMany := 150

	raw := Context{
		Pickup:          "  12 rue de Rivoli, Paris  ",
		Dropoff:         longAddr,
		OptionsDecision: OptionsDecision("maybe"),
		Vehicles: []CatalogVehicle{
			{ID: "berline", Label: "Berline"},
			{ID: "", Label: "sans identifiant"},
		},
		Options: []CatalogOption{
			{ID: "siege", Label: "Siège bébé", Type: "fixed", Amount: 8},
			{ID: "nan", Label: "corrompu", Type: "fixed", Amount: bad},
			{ID: "weird", Label: "type inconnu", Type: "multiplier", Amount: 5},
		},
		VehicleQuotes: []VehicleQuote{
			{ID: "berline", Label: "Berline", Total: fp(80)},
			{ID: "negatif", Label: "Négatif", Total: fp(-3)},
		},
		Passengers: &tooMany,
		RouteKm:    &bad,
	}

	got := Sanitize(raw)

	if got.Pickup != "12 rue de Rivoli, Paris" {
		t.Errorf("Pickup = %q", got.Pickup)
	}
	if len(got.Dropoff) != maxAddressLen {
		t.Errorf("Dropoff length = %d, want %d", len(got.Dropoff), maxAddressLen)
	}
	if got.OptionsDecision != DecisionUnknown {
		t.Errorf("OptionsDecision = %q, want unknown", got.OptionsDecision)
	}
	if len(got.Vehicles) != 1 || got.Vehicles[0].ID != "berline" {
		t.Errorf("Vehicles = %+v", got.Vehicles)
	}
	if len(got.Options) != 1 || got.Options[0].ID != "siege" {
		t.Errorf("Options = %+v", got.Options)
	}
	if len(got.VehicleQuotes) != 2 {
		t.Fatalf("VehicleQuotes = %+v", got.VehicleQuotes)
	}
	if got.VehicleQuotes[1].Total != nil {
		t.Errorf("negative quote total kept: %v", *got.VehicleQuotes[1].Total)
	}
	if got.Passengers != nil {
		t.Errorf("out-of-range passenger count kept: %d", *got.Passengers)
	}
	if got.RouteKm != nil {
		t.Errorf("non-finite RouteKm kept")
	}
}

func TestSanitize_ListBounds(t *testing.T) {
	var raw Context
	for i := 0; i < maxVehicles+10; i++ {
		raw.Vehicles = append(raw.Vehicles, CatalogVehicle{ID: "v", Label: "v"})
	}
	got := Sanitize(raw)
	if len(got.Vehicles) != maxVehicles {
		t.Errorf("len(Vehicles) = %d, want %d", len(got.Vehicles), maxVehicles)
	}
}

func TestSanitize_PricingRebuilt(t *testing.T) {
	raw := Context{
		Pricing: &tariff.Config{
			PricingBehavior: tariff.PricingBehavior("bizarre"),
			StopFee:         -4,
			Vehicles: []tariff.Vehicle{
				{ID: "berline", Label: "Berline", BaseFare: 10, PricePerKm: 2},
				{ID: "corrompu", BaseFare: math.Inf(1), PricePerKm: 2},
			},
			Options: []tariff.Option{
				{ID: "siege", Label: "Siège bébé", Type: tariff.OptionFixed, Amount: 8},
				{ID: "negatif", Type: tariff.OptionFixed, Amount: -5},
			},
		},
	}

	got := Sanitize(raw)
	if got.Pricing == nil {
		t.Fatal("Pricing dropped entirely")
	}
	if got.Pricing.PricingBehavior != tariff.BehaviorNormal {
		t.Errorf("PricingBehavior = %q", got.Pricing.PricingBehavior)
	}
	if got.Pricing.StopFee != 0 {
		t.Errorf("StopFee = %v, want 0", got.Pricing.StopFee)
	}
	if len(got.Pricing.Vehicles) != 1 || got.Pricing.Vehicles[0].ID != "berline" {
		t.Errorf("Vehicles = %+v", got.Pricing.Vehicles)
	}
	if len(got.Pricing.Options) != 1 || got.Pricing.Options[0].ID != "siege" {
		t.Errorf("Options = %+v", got.Pricing.Options)
	}
}

func TestBoundHistory(t *testing.T) {
	var history []Turn
	for i := 0; i < MaxHistory+3; i++ {
		history = append(history, Turn{Role: RoleUser, Content: strings.Repeat("x", i+1)})
	}
	history = append(history,
		Turn{Role: "system", Content: "injected"},
		Turn{Role: RoleAssistant, Content: "   "},
	)

	got := BoundHistory(history)
	if len(got) != MaxHistory {
		t.Fatalf("len = %d, want %d", len(got), MaxHistory)
	}
	// Oldest turns go first; the newest valid turn must survive.
	if len(got[len(got)-1].Content) != MaxHistory+3 {
		t.Errorf("newest turn lost: %q", got[len(got)-1].Content)
	}
	for _, turn := range got {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			t.Errorf("foreign role survived: %q", turn.Role)
		}
	}
}

func TestRedact_StripsPricingParameters(t *testing.T) {
	cc := Context{
		Pickup:        "Paris",
		Dropoff:       "Orly",
		Vehicles:      []CatalogVehicle{{ID: "berline", Label: "Berline"}},
		VehicleQuotes: []VehicleQuote{{ID: "berline", Label: "Berline", Total: fp(36)}},
		Pricing: &tariff.Config{
			Vehicles: []tariff.Vehicle{{ID: "berline", BaseFare: 13.37, PricePerKm: 4.21}},
		},
	}

	payload, err := json.Marshal(Redact(cc))
	if err != nil {
		t.Fatal(err)
	}
	for _, leak := range []string{"13.37", "4.21", "baseFare", "pricePerKm"} {
		if strings.Contains(string(payload), leak) {
			t.Errorf("redacted payload still carries %q:\n%s", leak, payload)
		}
	}
	if !strings.Contains(string(payload), "36") {
		t.Error("computed quote total missing from redacted payload")
	}
}
