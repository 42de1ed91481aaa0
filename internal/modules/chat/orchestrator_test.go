package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"berline/internal/modules/tariff"
)

func intp(n int) *int       { return &n }
func fp(v float64) *float64 { return &v }

type fakeAssistant struct {
	rep   AssistantReply
	err   error
	calls int
	last  AssistantRequest
}

func (f *fakeAssistant) Reply(_ context.Context, req AssistantRequest) (AssistantReply, error) {
	f.calls++
	f.last = req
	return f.rep, f.err
}

type fakeRouter struct {
	est   RouteEstimate
	err   error
	calls int
}

func (f *fakeRouter) Estimate(context.Context, string, string) (RouteEstimate, error) {
	f.calls++
	return f.est, f.err
}

func testPricing() *tariff.Config {
	return &tariff.Config{
		PricingBehavior: tariff.BehaviorNormal,
		Vehicles: []tariff.Vehicle{
			{ID: "berline", Label: "Berline", BaseFare: 10, PricePerKm: 2},
			{ID: "van", Label: "Van 7 places", BaseFare: 20, PricePerKm: 3},
		},
	}
}

func testOptions() []CatalogOption {
	return []CatalogOption{
		{ID: "siege", Label: "Siège bébé", Type: "fixed", Amount: 8},
	}
}

// fullRoute returns a context with all four route slots filled and quotes
// already computed, the state from which the options and counts stages run.
func fullRoute() Context {
	return Context{
		Pickup:     "12 rue de Rivoli, Paris",
		Dropoff:    "Aéroport d'Orly",
		PickupDate: "2030-05-10",
		PickupTime: "14:00",
		Vehicles: []CatalogVehicle{
			{ID: "berline", Label: "Berline"},
			{ID: "van", Label: "Van 7 places"},
		},
		VehicleQuotes: []VehicleQuote{
			{ID: "berline", Label: "Berline", Total: fp(36)},
			{ID: "van", Label: "Van 7 places", Total: fp(59)},
		},
	}
}

func TestRespond_EmptyMessage(t *testing.T) {
	o := NewOrchestrator(&fakeAssistant{}, nil, nil, nil)
	_, err := o.Respond(context.Background(), TurnRequest{UserMessage: "   "})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestRespond_AsksForMissingRouteFields(t *testing.T) {
	assistant := &fakeAssistant{}
	o := NewOrchestrator(assistant, nil, nil, nil)

	resp, err := o.Respond(context.Background(), TurnRequest{
		UserMessage: "Bonjour, il me faut un chauffeur",
		Context:     Context{Pickup: "Paris"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"l'adresse d'arrivée", "la date", "l'heure de prise en charge"} {
		if !strings.Contains(resp.Reply, want) {
			t.Errorf("reply misses %q: %s", want, resp.Reply)
		}
	}
	if strings.Contains(resp.Reply, "l'adresse de départ") {
		t.Errorf("known pickup asked again: %s", resp.Reply)
	}
	if assistant.calls != 0 {
		t.Errorf("model called for a deterministic stage")
	}
	if resp.FormUpdate != nil {
		t.Errorf("unexpected form update: %+v", resp.FormUpdate)
	}
}

func TestRespond_AsksOptionsOnce(t *testing.T) {
	assistant := &fakeAssistant{}
	o := NewOrchestrator(assistant, nil, nil, nil)

	cc := fullRoute()
	cc.Options = testOptions()

	resp, err := o.Respond(context.Background(), TurnRequest{UserMessage: "C'est noté", Context: cc})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Reply, "option") || !strings.Contains(resp.Reply, "Siège bébé") {
		t.Errorf("reply = %q", resp.Reply)
	}
	if assistant.calls != 0 {
		t.Errorf("model called for the options question")
	}
}

func TestRespond_OptionsRefusal(t *testing.T) {
	o := NewOrchestrator(&fakeAssistant{}, nil, nil, nil)

	cc := fullRoute()
	cc.Options = testOptions()
	cc.OptionsAskedOnce = true

	resp, err := o.Respond(context.Background(), TurnRequest{UserMessage: "Sans options, merci", Context: cc})
	if err != nil {
		t.Fatal(err)
	}
	// Decision settled, next stage is the counts question.
	if !strings.Contains(resp.Reply, "passagers") || !strings.Contains(resp.Reply, "bagages") {
		t.Errorf("reply = %q", resp.Reply)
	}
	if resp.FormUpdate == nil || resp.FormUpdate.OptionIDs == nil || len(*resp.FormUpdate.OptionIDs) != 0 {
		t.Errorf("refusal must carry an explicit empty selection: %+v", resp.FormUpdate)
	}
}

func TestRespond_OptionPickedByLabel(t *testing.T) {
	o := NewOrchestrator(&fakeAssistant{}, nil, nil, nil)

	cc := fullRoute()
	cc.Options = testOptions()
	cc.OptionsAskedOnce = true

	resp, err := o.Respond(context.Background(), TurnRequest{
		UserMessage: "Ajoutez le siège bébé s'il vous plaît",
		Context:     cc,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.FormUpdate == nil || resp.FormUpdate.OptionIDs == nil {
		t.Fatalf("no option selection carried back: %+v", resp.FormUpdate)
	}
	if got := *resp.FormUpdate.OptionIDs; len(got) != 1 || got[0] != "siege" {
		t.Errorf("OptionIDs = %v", got)
	}
}

func TestRespond_UnreadableOptionsAnswerDefaultsToNone(t *testing.T) {
	o := NewOrchestrator(&fakeAssistant{}, nil, nil, nil)

	cc := fullRoute()
	cc.Options = testOptions()
	cc.OptionsAskedOnce = true

	resp, err := o.Respond(context.Background(), TurnRequest{UserMessage: "euh je ne sais pas trop", Context: cc})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Reply, "passagers") {
		t.Errorf("conversation stuck on options: %q", resp.Reply)
	}
	if resp.FormUpdate == nil || resp.FormUpdate.OptionIDs == nil || len(*resp.FormUpdate.OptionIDs) != 0 {
		t.Errorf("default decision not carried back: %+v", resp.FormUpdate)
	}
}

func TestRespond_EmptyOptionCatalogSkipsTheQuestion(t *testing.T) {
	o := NewOrchestrator(&fakeAssistant{}, nil, nil, nil)

	resp, err := o.Respond(context.Background(), TurnRequest{UserMessage: "Très bien", Context: fullRoute()})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(resp.Reply, "option") {
		t.Errorf("options asked with an empty catalog: %q", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "passagers") {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestRespond_SecondCountsAttemptDemandsExactFormat(t *testing.T) {
	o := NewOrchestrator(&fakeAssistant{}, nil, nil, nil)

	cc := fullRoute()
	cc.CountsAskedOnce = true

	resp, err := o.Respond(context.Background(), TurnRequest{UserMessage: "pas mal de monde", Context: cc})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Reply, "Passagers : 2 / Bagages : 3") {
		t.Errorf("exact format missing: %q", resp.Reply)
	}
}

func TestRespond_CountsLeadToRecommendation(t *testing.T) {
	assistant := &fakeAssistant{}
	o := NewOrchestrator(assistant, nil, nil, nil)

	cc := fullRoute()
	cc.CountsAskedOnce = true

	resp, err := o.Respond(context.Background(), TurnRequest{
		UserMessage: "Nous serons 2 passagers avec 1 valise",
		Context:     cc,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Reply, "recommande") || !strings.Contains(resp.Reply, "Berline : 36 €") {
		t.Errorf("reply = %q", resp.Reply)
	}
	if resp.FormUpdate == nil || len(resp.FormUpdate.SuggestedVehicleIDs) == 0 {
		t.Errorf("no suggested vehicles: %+v", resp.FormUpdate)
	}
	if resp.FormUpdate.SuggestedVehicleIDs[0] != "berline" {
		t.Errorf("SuggestedVehicleIDs = %v", resp.FormUpdate.SuggestedVehicleIDs)
	}
	if assistant.calls != 0 {
		t.Errorf("recommendation must not consult the model")
	}
}

func TestRespond_RouterComputesQuotes(t *testing.T) {
	router := &fakeRouter{est: RouteEstimate{Km: 12.4, Minutes: 25}}
	o := NewOrchestrator(&fakeAssistant{}, router, nil, nil)

	cc := fullRoute()
	cc.VehicleQuotes = nil
	cc.Pricing = testPricing()
	cc.Passengers = intp(2)
	cc.Bags = intp(1)

	resp, err := o.Respond(context.Background(), TurnRequest{UserMessage: "Et donc ?", Context: cc})
	if err != nil {
		t.Fatal(err)
	}
	if router.calls != 1 {
		t.Fatalf("router calls = %d, want 1", router.calls)
	}
	// 12.4 km -> 13 billable km; berline 10 + 13*2 = 36.
	if !strings.Contains(resp.Reply, "Berline : 36 €") {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestRespond_RouteFailureAsksForClearerAddresses(t *testing.T) {
	router := &fakeRouter{err: errors.New("NOT_FOUND")}
	o := NewOrchestrator(&fakeAssistant{}, router, nil, nil)

	cc := fullRoute()
	cc.VehicleQuotes = nil
	cc.Pricing = testPricing()

	resp, err := o.Respond(context.Background(), TurnRequest{UserMessage: "On part de là", Context: cc})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Reply, "localiser") {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestRespond_FormulaProbeNeverReachesTheModel(t *testing.T) {
	assistant := &fakeAssistant{}
	o := NewOrchestrator(assistant, nil, nil, nil)

	cc := fullRoute()
	cc.VehicleQuotes = []VehicleQuote{{ID: "prestige", Label: "Limousine", IsQuote: true}}
	cc.Passengers = intp(2)
	cc.Bags = intp(1)

	resp, err := o.Respond(context.Background(), TurnRequest{
		UserMessage: "Comment est calculé le prix exactement ?",
		Context:     cc,
	})
	if err != nil {
		t.Fatal(err)
	}
	if assistant.calls != 0 {
		t.Fatal("formula probe reached the model")
	}
	if !strings.Contains(resp.Reply, "n'est pas communiqué") {
		t.Errorf("reply = %q", resp.Reply)
	}
	if ContainsLeak(resp.Reply) {
		t.Errorf("refusal itself leaks: %q", resp.Reply)
	}
}

func TestRespond_FreeformMergesPendingFormUpdate(t *testing.T) {
	assistant := &fakeAssistant{rep: AssistantReply{Structured: &StructuredReply{
		Answer:     "Très bon choix, la Limousine est disponible sur devis.",
		FormUpdate: &FormUpdate{VehicleID: "prestige"},
	}}}
	o := NewOrchestrator(assistant, nil, nil, nil)

	cc := fullRoute()
	cc.Options = testOptions()
	cc.OptionsAskedOnce = true
	cc.VehicleQuotes = []VehicleQuote{{ID: "prestige", Label: "Limousine", IsQuote: true}}
	cc.Passengers = intp(2)
	cc.Bags = intp(1)

	resp, err := o.Respond(context.Background(), TurnRequest{
		UserMessage: "Sans options, je prends la limousine",
		Context:     cc,
	})
	if err != nil {
		t.Fatal(err)
	}
	if assistant.calls != 1 {
		t.Fatalf("assistant calls = %d, want 1", assistant.calls)
	}
	if resp.FormUpdate == nil || resp.FormUpdate.VehicleID != "prestige" {
		t.Fatalf("model update lost: %+v", resp.FormUpdate)
	}
	if resp.FormUpdate.OptionIDs == nil || len(*resp.FormUpdate.OptionIDs) != 0 {
		t.Errorf("pending options decision lost: %+v", resp.FormUpdate)
	}
	if !strings.Contains(resp.Reply, "sur devis") {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestRespond_FreeformRepliesNeverLeak(t *testing.T) {
	assistant := &fakeAssistant{rep: AssistantReply{
		Text: "Nos berlines sont facturées 2 €/km avec une base de 10 €.",
	}}
	o := NewOrchestrator(assistant, nil, nil, nil)

	cc := fullRoute()
	cc.VehicleQuotes = []VehicleQuote{{ID: "prestige", Label: "Limousine", IsQuote: true}}
	cc.Passengers = intp(2)
	cc.Bags = intp(1)

	resp, err := o.Respond(context.Background(), TurnRequest{UserMessage: "Parlez-moi de vos berlines", Context: cc})
	if err != nil {
		t.Fatal(err)
	}
	if ContainsLeak(resp.Reply) {
		t.Fatalf("reply leaks pricing internals: %q", resp.Reply)
	}
	if !strings.Contains(resp.Reply, SafePriceAnswer) {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestRespond_AssistantFailureDegradesGracefully(t *testing.T) {
	assistant := &fakeAssistant{err: errors.New("boom")}
	o := NewOrchestrator(assistant, nil, nil, nil)

	cc := fullRoute()
	cc.VehicleQuotes = nil
	cc.Passengers = intp(2)
	cc.Bags = intp(1)

	resp, err := o.Respond(context.Background(), TurnRequest{UserMessage: "Vous êtes là ?", Context: cc})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Reply, "indisponible") {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestRespond_ModelNeverSeesPricingConfig(t *testing.T) {
	assistant := &fakeAssistant{rep: AssistantReply{Text: "D'accord."}}
	o := NewOrchestrator(assistant, nil, nil, nil)

	cc := fullRoute()
	cc.VehicleQuotes = []VehicleQuote{{ID: "prestige", Label: "Limousine", IsQuote: true}}
	cc.Pricing = &tariff.Config{
		PricingBehavior: tariff.BehaviorAllQuote,
		Vehicles:        []tariff.Vehicle{{ID: "prestige", Label: "Limousine", BaseFare: 99, QuoteOnly: true}},
	}
	cc.Passengers = intp(2)
	cc.Bags = intp(1)

	if _, err := o.Respond(context.Background(), TurnRequest{UserMessage: "Une question générale", Context: cc}); err != nil {
		t.Fatal(err)
	}
	if assistant.calls != 1 {
		t.Fatalf("assistant calls = %d, want 1", assistant.calls)
	}
	if len(assistant.last.Context.VehicleQuotes) == 0 {
		t.Error("redacted context lost the computed quotes")
	}
}

func TestMergeQuotes_ServerWins(t *testing.T) {
	server := []VehicleQuote{{ID: "berline", Total: fp(36)}}
	client := []VehicleQuote{
		{ID: "berline", Total: fp(999)},
		{ID: "van", Total: fp(59)},
	}

	got := mergeQuotes(server, client)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if *got[0].Total != 36 {
		t.Errorf("server quote overridden: %v", *got[0].Total)
	}
	if got[1].ID != "van" {
		t.Errorf("client-only quote lost: %+v", got[1])
	}
}

func TestIsPricingFormulaProbe(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Comment est calculé le prix ?", true},
		{"Quelle est la formule de vos tarifs ?", true},
		{"Combien coûte le trajet avec le détail du calcul ?", true},
		{"Quel est le prix total ?", false},
		{"Quelle heure vous arrange ?", false},
	}
	for _, tt := range tests {
		if got := isPricingFormulaProbe(tt.msg); got != tt.want {
			t.Errorf("isPricingFormulaProbe(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
